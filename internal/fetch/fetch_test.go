package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snapetech/iptvmerge/internal/httpclient"
)

func TestHTTP_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("CCTV1,http://a\n"))
		case "/big":
			w.Write(make([]byte, 2048))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	h := NewHTTP(httpclient.New(httpclient.Options{}))
	h.Policy = httpclient.NoRetry
	h.MaxBytes = 1024
	ctx := context.Background()

	body, err := h.Fetch(ctx, srv.URL+"/ok")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "CCTV1,http://a\n" {
		t.Errorf("body = %q", body)
	}

	_, err = h.Fetch(ctx, srv.URL+"/missing")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want FetchError 404", err)
	}

	if _, err = h.Fetch(ctx, srv.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	if _, err = h.Fetch(ctx, "file:///etc/passwd"); !errors.Is(err, ErrNotHTTP) {
		t.Errorf("err = %v, want ErrNotHTTP", err)
	}
}

func TestHTTP_FetchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(nil).Fetch(context.Background(), url)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 0 || fe.Err == nil {
		t.Fatalf("err = %#v", err)
	}
	if fe.URL != url {
		t.Errorf("URL = %q", fe.URL)
	}
}
