package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

const acceptEncoding = "br, gzip"

// decodeTransport advertises brotli and gzip and decodes the response body
// itself. Setting Accept-Encoding turns off net/http's transparent gzip, so
// both codings are handled here.
type decodeTransport struct {
	base http.RoundTripper
}

func (t *decodeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") != "" || req.Method == http.MethodHead {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("Accept-Encoding", acceptEncoding)
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body = &decodedBody{Reader: zr, raw: resp.Body}
	default:
		return resp, nil
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

type decodedBody struct {
	io.Reader
	raw io.ReadCloser
}

func (b *decodedBody) Close() error { return b.raw.Close() }
