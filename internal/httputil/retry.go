// Package httputil provides HTTP helpers shared by the API clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RetryBaseDelay is the first backoff delay. Tests override this to avoid
// real sleeps.
var RetryBaseDelay = 2 * time.Second

const (
	// DefaultMaxRetries is the retry budget callers use unless configured.
	DefaultMaxRetries = 3

	// DefaultMaxDelay caps a single backoff wait, including Retry-After.
	DefaultMaxDelay = 60 * time.Second
)

// Retryer executes requests with rate limiting and bounded retries on
// 429 and 5xx responses and on transport errors.
type Retryer struct {
	Client     *http.Client
	Limiter    *rate.Limiter // Optional; waited on before every attempt
	MaxRetries int           // 0 sends each request once
	MaxDelay   time.Duration

	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, wait time.Duration, reason string)
}

// NewRetryer returns a Retryer around client. A nil client uses
// http.DefaultClient.
func NewRetryer(client *http.Client, limiter *rate.Limiter, maxRetries int) *Retryer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Retryer{Client: client, Limiter: limiter, MaxRetries: maxRetries}
}

// PerMinute builds a limiter allowing n requests per minute with a burst of 1.
// n <= 0 means unlimited.
func PerMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}

// Retryable reports whether a status code is worth retrying.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Do sends req, retrying with exponential backoff. The delay starts at
// RetryBaseDelay and doubles each attempt, capped at MaxDelay; a Retry-After
// header overrides the computed delay. After exhausting retries the last
// retryable response is returned so the caller can inspect it. Request bodies
// are replayed through req.GetBody.
func (r *Retryer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxRetries := max(r.MaxRetries, 0)
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	for attempt := 0; ; attempt++ {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		attemptReq, err := cloneRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		resp, err := r.Client.Do(attemptReq)
		var wait time.Duration
		var reason string
		switch {
		case err != nil:
			if ctx.Err() != nil || attempt >= maxRetries {
				return nil, err
			}
			reason = err.Error()
		case !Retryable(resp.StatusCode) || attempt >= maxRetries:
			return resp, nil
		default:
			reason = resp.Status
			wait = retryAfter(resp.Header.Get("Retry-After"))
			// Drain and close the body before retrying.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		if wait > maxDelay {
			wait = maxDelay
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt+1, wait, reason)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// cloneRequest prepares a fresh copy of req for one attempt.
func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replaying request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

// CheckStatus returns an error describing a non-2xx response, including a
// prefix of the body. The body is not closed.
func CheckStatus(resp *http.Response, service string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}

// StatusError is a non-2xx HTTP response from an upstream service.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}
