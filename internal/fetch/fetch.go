// Package fetch downloads remote source payloads.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/snapetech/iptvmerge/internal/httpclient"
	"github.com/snapetech/iptvmerge/internal/safeurl"
)

// DefaultMaxBytes caps a single payload.
const DefaultMaxBytes = 64 << 20

// ErrNotHTTP is wrapped by FetchError for URLs with a non-http(s) scheme.
var ErrNotHTTP = errors.New("not an http(s) url")

// ErrTooLarge is wrapped by FetchError when a payload exceeds MaxBytes.
var ErrTooLarge = errors.New("payload exceeds size limit")

// FetchError describes a failed fetch. StatusCode is set when the server
// answered with a non-200 status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher is the fetch(url) -> bytes capability.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTP fetches over an httpclient-built client.
type HTTP struct {
	Client   *http.Client
	Policy   httpclient.RetryPolicy
	MaxBytes int64
}

// NewHTTP returns an HTTP fetcher with the default retry policy.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = httpclient.Default()
	}
	return &HTTP{Client: client, Policy: httpclient.DefaultRetryPolicy, MaxBytes: DefaultMaxBytes}
}

// Fetch GETs url and returns the full body. Every failure is a *FetchError.
func (h *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !safeurl.IsHTTPOrHTTPS(url) {
		return nil, &FetchError{URL: url, Err: ErrNotHTTP}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	resp, err := httpclient.DoWithRetry(ctx, h.Client, req, h.Policy)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	max := h.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > max {
		return nil, &FetchError{URL: url, Err: ErrTooLarge}
	}
	return body, nil
}

// Func adapts a function to Fetcher.
type Func func(ctx context.Context, url string) ([]byte, error)

func (f Func) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }
