// Package httpclient builds the HTTP client used for source fetches and
// probes: tuned transport, per-host concurrency cap, request pacing,
// brotli/gzip response decoding and a single retry on 429/5xx.
package httpclient

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 8
	DefaultPerHost         = 4
	DefaultUserAgent       = "PostmanRuntime-ApipostRuntime/1.1.0"
)

// Options configures New. Zero values pick the defaults; Rate 0 disables
// pacing.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Rate is the request rate across all hosts, Burst its bucket size.
	Rate  rate.Limit
	Burst int
	// PerHost caps in-flight requests per scheme+host.
	PerHost int
}

func (o Options) normalized() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Burst < 1 {
		o.Burst = 1
	}
	if o.PerHost < 1 {
		o.PerHost = DefaultPerHost
	}
	return o
}

// New returns a client whose transport applies the user agent, pacing,
// per-host limit and response decoding of opts.
func New(opts Options) *http.Client {
	opts = opts.normalized()
	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(opts.Rate, opts.Burst)
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &limitTransport{
			base:      &decodeTransport{base: baseTransport()},
			userAgent: opts.UserAgent,
			limiter:   limiter,
			hosts:     NewHostSemaphore(opts.PerHost),
		},
	}
}

// Default returns a client with default Options.
func Default() *http.Client {
	return New(Options{})
}

func baseTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = MaxIdleConnsPerHost
	t.IdleConnTimeout = DefaultIdleConnTimeout
	t.TLSHandshakeTimeout = 5 * time.Second
	return t
}

// limitTransport waits for the rate limiter and a per-host slot before
// handing the request on. The slot is held until the body is closed.
type limitTransport struct {
	base      http.RoundTripper
	userAgent string
	limiter   *rate.Limiter
	hosts     *HostSemaphore
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	release, err := t.hosts.Acquire(ctx, req.URL.Scheme+"://"+req.URL.Host)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(ctx)
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		release()
		return nil, err
	}
	resp.Body = &releaseBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}
