package httpclient

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls DoWithRetry.
type RetryPolicy struct {
	// Retry429 waits Retry-After (capped at Max429Wait) and retries once.
	Retry429   bool
	Max429Wait time.Duration
	// Retry5xx waits Backoff5xx and retries once.
	Retry5xx   bool
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (cap 30s) and 5xx (1s backoff) once.
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 30 * time.Second,
	Retry5xx:   true,
	Backoff5xx: time.Second,
}

// NoRetry disables DoWithRetry's retry.
var NoRetry = RetryPolicy{}

// DoWithRetry performs req and, when policy allows, retries a 429 or 5xx
// answer exactly once. Other 4xx answers are returned as they are. Only
// bodiless requests can be retried. Caller must close resp.Body when
// err == nil.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	if client == nil {
		client = Default()
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	wait, retry := retryDelay(resp, policy)
	if !retry || req.Body != nil && req.Body != http.NoBody {
		return resp, nil
	}
	drain(resp.Body)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	again, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), nil)
	if err != nil {
		return nil, err
	}
	again.Header = req.Header.Clone()
	return client.Do(again)
}

// maxDrain caps how much of a discarded body is read so the connection can
// be reused.
const maxDrain = 4096

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	body.Close()
}

func retryDelay(resp *http.Response, policy RetryPolicy) (time.Duration, bool) {
	code := resp.StatusCode
	switch {
	case code == http.StatusTooManyRequests && policy.Retry429:
		return parseRetryAfter(resp.Header.Get("Retry-After"), policy.Max429Wait), true
	case code >= 500 && policy.Retry5xx:
		return policy.Backoff5xx, true
	}
	return 0, false
}

// parseRetryAfter reads seconds or an HTTP date and caps the result at max.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	var d time.Duration
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		d = time.Duration(sec) * time.Second
	} else if t, err := http.ParseTime(s); err == nil {
		d = time.Until(t)
		if d < 0 {
			d = 0
		}
	} else {
		return time.Second
	}
	if d > max {
		return max
	}
	return d
}
