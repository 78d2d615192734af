package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	max := 30 * time.Second
	tests := []struct {
		name string
		s    string
		want time.Duration
	}{
		{"empty", "", time.Second},
		{"seconds 5", "5", 5 * time.Second},
		{"seconds 0", "0", 0},
		{"seconds over cap", "120", max},
		{"whitespace", "  10  ", 10 * time.Second},
		{"invalid fallback", "x", time.Second},
		{"past date", "Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.s, max); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestDoWithRetry_429Then200(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.Header.Get("X-Probe") != "1" {
			t.Errorf("retry lost request headers")
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	req.Header.Set("X-Probe", "1")
	resp, err := DoWithRetry(ctx, New(Options{Timeout: 5 * time.Second}), req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if n := attempts.Load(); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestDoWithRetry_5xxRetriedOnce(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	policy := DefaultRetryPolicy
	policy.Backoff5xx = time.Millisecond
	resp, err := DoWithRetry(ctx, nil, req, policy)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if n := attempts.Load(); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestDoWithRetry_4xxNoRetry(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ctx := context.Background()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(ctx, nil, req, DefaultRetryPolicy)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden || attempts.Load() != 1 {
		t.Errorf("status = %d attempts = %d", resp.StatusCode, attempts.Load())
	}
}

func TestDoWithRetry_contextCancelledDuringWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if _, err := DoWithRetry(ctx, nil, req, DefaultRetryPolicy); err == nil {
		t.Fatal("expected context error")
	}
}

type endlessBody struct {
	read   int
	closed bool
}

func (b *endlessBody) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	b.read += len(p)
	return len(p), nil
}

func (b *endlessBody) Close() error {
	b.closed = true
	return nil
}

func TestDrain_boundedRead(t *testing.T) {
	b := &endlessBody{}
	drain(b)
	if b.read > maxDrain {
		t.Errorf("drained %d bytes, want at most %d", b.read, maxDrain)
	}
	if !b.closed {
		t.Error("body not closed")
	}
}
