// Package search fetches web results that feed the research stage.
package search

import (
	"context"
	"fmt"
	"strings"
)

// Depth controls how hard the backend digs for a query.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Request is a single search query.
type Request struct {
	Query      string
	Depth      Depth
	MaxResults int
}

// Result is one hit returned by the backend.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response holds the backend's summary answer and its ranked hits.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Searcher is the search collaborator used by the research stage.
type Searcher interface {
	Search(ctx context.Context, req Request) (Response, error)
}

// Link renders a result as a markdown link.
func (r Result) Link() string {
	return fmt.Sprintf("[%s](%s)", r.Title, r.URL)
}

// Static answers every query from canned results. Useful for local runs
// and tests without network access.
type Static struct {
	Answer  string
	Results []Result
}

func (s Static) Search(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	answer := s.Answer
	if answer == "" {
		answer = "Summary for " + strings.TrimSpace(req.Query)
	}
	results := s.Results
	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	out := make([]Result, len(results))
	copy(out, results)
	return Response{Query: req.Query, Answer: answer, Results: out}, nil
}
