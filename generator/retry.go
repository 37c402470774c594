package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/openai/openai-go"
	"google.golang.org/genai"

	"auto_blog_writer/workflow"
)

// RetryingLLM retries transient completion failures with exponential backoff.
type RetryingLLM struct {
	next       LLMClient
	maxRetries uint64
	baseWait   time.Duration
	logger     *slog.Logger
}

// NewRetryingLLM wraps next. maxRetries counts attempts after the first.
func NewRetryingLLM(next LLMClient, maxRetries int, baseWait time.Duration, logger *slog.Logger) *RetryingLLM {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseWait <= 0 {
		baseWait = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RetryingLLM{next: next, maxRetries: uint64(maxRetries), baseWait: baseWait, logger: logger}
}

func (r *RetryingLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.baseWait
	bo.MaxElapsedTime = 0

	var out string
	err := backoff.RetryNotify(func() error {
		text, err := r.next.Complete(ctx, prompt)
		if err == nil {
			out = text
			return nil
		}
		if ctx.Err() != nil || !workflow.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, r.maxRetries), ctx), func(err error, wait time.Duration) {
		r.logger.Warn("llm call failed, retrying", "err", err, "wait", wait)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// classify tags provider errors worth retrying. Client errors other than
// rate limits and timeouts are permanent.
func classify(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if code, ok := statusCode(err); ok && !retryableStatus(code) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return workflow.NewTransientError(provider+" completion", err)
}

// statusCode extracts the HTTP status from openai and genai API errors.
func statusCode(err error) (int, bool) {
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return oaiErr.StatusCode, true
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil {
		return gErrPtr.Code, true
	}
	return 0, false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
