package httpclient

import (
	"context"
	"io"
	"net/url"
	"sync"
)

// HostSemaphore caps concurrent requests per scheme+host.
//
//	release, err := sem.Acquire(ctx, "http://example.com:8080")
//	if err != nil { ... }
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{
		sems:  make(map[string]chan struct{}),
		limit: concurrency,
	}
}

// Acquire blocks until a slot for host is free or ctx is done. The returned
// release func is safe to call more than once.
func (h *HostSemaphore) Acquire(ctx context.Context, host string) (func(), error) {
	sem := h.semFor(host)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}

// InFlight reports the slots currently held for host.
func (h *HostSemaphore) InFlight(host string) int {
	return len(h.semFor(host))
}

func (h *HostSemaphore) semFor(host string) chan struct{} {
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[host]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[host] = s
	}
	return s
}

type releaseBody struct {
	io.ReadCloser
	release func()
}

func (b *releaseBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
