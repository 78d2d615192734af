// Package health checks that the remote sources of a run answer before the
// run depends on them.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/snapetech/iptvmerge/internal/httpclient"
	"github.com/snapetech/iptvmerge/internal/safeurl"
)

// Report is the outcome of checking one source.
type Report struct {
	URL        string
	StatusCode int
	Err        error
}

// OK reports whether the source answered 200.
func (r Report) OK() bool { return r.Err == nil }

// CheckSource GETs sourceURL and discards the body. Some hosts reject HEAD,
// so a full GET is used. Returns nil if the source answers 200.
func CheckSource(ctx context.Context, client *http.Client, sourceURL string) error {
	_, err := check(ctx, client, sourceURL)
	return err
}

func check(ctx context.Context, client *http.Client, sourceURL string) (int, error) {
	if sourceURL == "" {
		return 0, fmt.Errorf("no source URL")
	}
	if !safeurl.IsHTTPOrHTTPS(sourceURL) {
		return 0, fmt.Errorf("%s: not an http(s) url", sourceURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := httpclient.DoWithRetry(ctx, client, req, httpclient.NoRetry)
	if err != nil {
		return 0, fmt.Errorf("source unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("source returned HTTP %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// CheckSources checks every URL with at most concurrency requests in
// flight. Reports are in input order.
func CheckSources(ctx context.Context, client *http.Client, urls []string, concurrency int) []Report {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]Report, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			code, err := check(gctx, client, u)
			out[i] = Report{URL: u, StatusCode: code, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
