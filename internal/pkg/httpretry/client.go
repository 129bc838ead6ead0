// Package httpretry wraps an HTTP client with bounded retries and
// jittered exponential backoff for calls to external endpoints.
package httpretry

import (
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/ignite/launchlist/internal/pkg/logger"
)

// HTTPDoer is satisfied by *http.Client and *RetryClient alike.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient retries transient failures: network errors and the
// retryable status codes 429, 500, 502, 503, 504. Client errors and
// context cancellation are returned immediately.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryClient wraps client with maxRetries additional attempts.
// A nil client gets a default http.Client with a 10s timeout.
func NewRetryClient(client HTTPDoer, maxRetries int) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  200 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

// Do executes the request, retrying transient failures. On the final
// attempt a retryable response is returned as-is so the caller can
// inspect it.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				req.Body = body
			}

			delay := rc.backoff(attempt)
			logger.Debug("retrying request", "method", req.Method, "host", req.URL.Host, "attempt", attempt, "delay", delay.String())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		if !retryable(resp.StatusCode) || attempt == rc.maxRetries {
			return resp, nil
		}

		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = nil
	}

	return nil, lastErr
}

// backoff returns a full-jitter delay capped at maxDelay.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	max := rc.baseDelay << (attempt - 1)
	if max > rc.maxDelay {
		max = rc.maxDelay
	}
	d := time.Duration(rand.Int63n(int64(max)))
	if d < 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return d
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
