package oada

import (
	"context"
	"log/slog"
)

// RetryPolicy decides how many times a fetch is attempted and which errors
// are worth retrying. The policy is deliberately explicit so call sites can
// be tested and tuned without touching the client.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// IsRetryable reports whether a failed attempt should be retried.
	IsRetryable func(error) bool
}

// DefaultRetryPolicy retries everything except not-found up to five
// attempts, with no delay between attempts. Not-found is a definitive
// answer from the store, not a transient condition.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		IsRetryable: func(err error) bool { return !IsNotFound(err) },
	}
}

// Fetcher wraps a Client with a RetryPolicy. All reads during the crawl go
// through a Fetcher; writes use the Client directly.
type Fetcher struct {
	client *Client
	policy RetryPolicy
	log    *slog.Logger
}

// NewFetcher creates a Fetcher. A nil logger discards retry tracing.
func NewFetcher(client *Client, policy RetryPolicy, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Fetcher{client: client, policy: policy, log: log}
}

// Get fetches a resource, retrying transient failures per the policy.
// After the final attempt the last error is returned.
func (f *Fetcher) Get(ctx context.Context, path string) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		resp, err := f.client.Get(ctx, path)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if f.policy.IsRetryable == nil || !f.policy.IsRetryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.log.Debug("retrying fetch", "path", path, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

// GetJSON fetches a resource with retry and unmarshals it into v.
func (f *Fetcher) GetJSON(ctx context.Context, path string, v any) error {
	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		err := f.client.GetJSON(ctx, path, v)
		if err == nil {
			return nil
		}
		lastErr = err
		if f.policy.IsRetryable == nil || !f.policy.IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Debug("retrying fetch", "path", path, "attempt", attempt, "error", err)
	}
	return lastErr
}

// Client returns the underlying Client, for operations that must not be
// retried.
func (f *Fetcher) Client() *Client {
	return f.client
}
