// Package probe measures stream responsiveness: time to connect and read the
// first byte. A probe never fails; an unreachable stream gets
// registry.Unknown.
package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snapetech/iptvmerge/internal/httpclient"
	"github.com/snapetech/iptvmerge/internal/registry"
	"github.com/snapetech/iptvmerge/internal/safeurl"
)

const (
	MinTimeout         = 5 * time.Second
	MaxTimeout         = 15 * time.Second
	DefaultConcurrency = 8
)

// Status classifies one probe.
type Status string

const (
	StatusOK        Status = "ok"
	StatusBadStatus Status = "bad_status"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
)

// Result is the outcome of probing one URL.
type Result struct {
	URL        string
	Status     Status
	StatusCode int
	Latency    registry.Latency
}

// Prober probes stream URLs with a bounded per-probe timeout.
type Prober struct {
	Client      *http.Client
	Timeout     time.Duration
	Concurrency int
	dial        func(ctx context.Context, network, addr string) (net.Conn, error)
}

// New returns a Prober with timeout clamped to [MinTimeout, MaxTimeout].
func New(client *http.Client, timeout time.Duration, concurrency int) *Prober {
	if client == nil {
		client = httpclient.New(httpclient.Options{Timeout: MaxTimeout})
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	var d net.Dialer
	return &Prober{Client: client, Timeout: ClampTimeout(timeout), Concurrency: concurrency, dial: d.DialContext}
}

// ClampTimeout bounds d to [MinTimeout, MaxTimeout].
func ClampTimeout(d time.Duration) time.Duration {
	if d < MinTimeout {
		return MinTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// One probes a single URL. http(s) URLs are fetched until the first body
// byte arrives; other streaming schemes measure the TCP connect.
func (p *Prober) One(ctx context.Context, rawURL string) Result {
	if !safeurl.IsStream(rawURL) {
		return Result{URL: rawURL, Status: StatusSkipped, Latency: registry.Unknown}
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	if safeurl.IsHTTPOrHTTPS(rawURL) {
		return p.probeHTTP(ctx, rawURL)
	}
	return p.probeDial(ctx, rawURL)
}

func (p *Prober) probeHTTP(ctx context.Context, rawURL string) Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failed(rawURL, err)
	}
	req.Header.Set("Range", "bytes=0-1023")
	resp, err := p.Client.Do(req)
	if err != nil {
		return failed(rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return Result{URL: rawURL, Status: StatusBadStatus, StatusCode: resp.StatusCode, Latency: registry.Unknown}
	}
	var one [1]byte
	if _, err := io.ReadFull(resp.Body, one[:]); err != nil {
		return failed(rawURL, err)
	}
	return Result{URL: rawURL, Status: StatusOK, StatusCode: resp.StatusCode, Latency: sinceMillis(start)}
}

func (p *Prober) probeDial(ctx context.Context, rawURL string) Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		return failed(rawURL, err)
	}
	port, ok := tcpPort(strings.ToLower(u.Scheme))
	if !ok {
		return Result{URL: rawURL, Status: StatusSkipped, Latency: registry.Unknown}
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), port)
	}
	start := time.Now()
	conn, err := p.dial(ctx, "tcp", host)
	if err != nil {
		return failed(rawURL, err)
	}
	conn.Close()
	return Result{URL: rawURL, Status: StatusOK, Latency: sinceMillis(start)}
}

// All probes urls with at most Concurrency probes in flight. Results are in
// input order.
func (p *Prober) All(ctx context.Context, urls []string) []Result {
	out := make([]Result, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			out[i] = p.One(gctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Rank sorts results OK first by latency, then the rest by URL.
func Rank(results []Result) []Result {
	out := append([]Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		okI, okJ := out[i].Status == StatusOK, out[j].Status == StatusOK
		if okI != okJ {
			return okI
		}
		if okI {
			return out[i].Latency < out[j].Latency
		}
		return out[i].URL < out[j].URL
	})
	return out
}

func failed(rawURL string, err error) Result {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &ne) && ne.Timeout() {
		return Result{URL: rawURL, Status: StatusTimeout, Latency: registry.Unknown}
	}
	return Result{URL: rawURL, Status: StatusError, Latency: registry.Unknown}
}

func sinceMillis(start time.Time) registry.Latency {
	return registry.Latency(float64(time.Since(start).Microseconds()) / 1000)
}

// tcpPort returns the default port of a scheme served over TCP. udp and rtp
// multicast addresses and p3p peers have no connect to time.
func tcpPort(scheme string) (string, bool) {
	switch scheme {
	case "rtmp":
		return "1935", true
	case "rtsp":
		return "554", true
	default:
		return "", false
	}
}
