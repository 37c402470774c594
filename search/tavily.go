package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"auto_blog_writer/workflow"
)

const tavilyURL = "https://api.tavily.com/search"

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	IncludeImages     bool   `json:"include_images"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey     string
	endpoint   string
	client     *http.Client
	maxRetries uint64
	maxElapsed time.Duration
}

// TavilyOption customizes the client.
type TavilyOption func(*Tavily)

// WithEndpoint overrides the API URL (tests point it at httptest).
func WithEndpoint(url string) TavilyOption {
	return func(t *Tavily) { t.endpoint = url }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) TavilyOption {
	return func(t *Tavily) {
		if c != nil {
			t.client = c
		}
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int, maxElapsed time.Duration) TavilyOption {
	return func(t *Tavily) {
		if n >= 0 {
			t.maxRetries = uint64(n)
		}
		t.maxElapsed = maxElapsed
	}
}

// NewTavily builds a client for the given API key.
func NewTavily(apiKey string, opts ...TavilyOption) (*Tavily, error) {
	if apiKey == "" {
		return nil, errors.New("tavily api key missing; set TAVILY_API_KEY")
	}
	t := &Tavily{
		apiKey:     apiKey,
		endpoint:   tavilyURL,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 2,
		maxElapsed: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Tavily) Search(ctx context.Context, req Request) (Response, error) {
	depth := req.Depth
	if depth == "" {
		depth = DepthAdvanced
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	body, err := json.Marshal(tavilyRequest{
		APIKey:            t.apiKey,
		Query:             req.Query,
		SearchDepth:       string(depth),
		MaxResults:        maxResults,
		IncludeAnswer:     true,
		IncludeRawContent: true,
	})
	if err != nil {
		return Response{}, err
	}

	var out Response
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = t.maxElapsed
	err = backoff.Retry(func() error {
		resp, err := t.post(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		out = resp
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, t.maxRetries), ctx))
	if err != nil {
		return Response{}, fmt.Errorf("tavily search %q: %w", req.Query, err)
	}
	if out.Query == "" {
		out.Query = req.Query
	}
	return out, nil
}

// post performs one request. Retryable failures come back as
// *workflow.TransientError, everything else is wrapped as permanent.
func (t *Tavily) post(ctx context.Context, body []byte) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, workflow.NewTransientError("tavily search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("tavily: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return Response{}, workflow.NewTransientError("tavily search", err)
		}
		return Response{}, backoff.Permanent(err)
	}

	var data tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return Response{}, backoff.Permanent(fmt.Errorf("tavily: decode response: %w", err))
	}
	return Response{Query: data.Query, Answer: data.Answer, Results: data.Results}, nil
}
