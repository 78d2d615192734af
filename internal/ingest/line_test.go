package ingest

import (
	"errors"
	"testing"

	"github.com/snapetech/iptvmerge/internal/registry"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		in   string
		want Line
		err  error
	}{
		{"CCTV-1,http://a", Line{"CCTV-1", "http://a", registry.Unknown}, nil},
		{"120ms,CCTV1,http://b", Line{"CCTV1", "http://b", 120}, nil},
		{" 80.5ms,CCTV1,http://c$1080p ", Line{"CCTV1", "http://c$1080p", 80.5}, nil},
		{"CCTV1,http://a#http://b", Line{"CCTV1", "http://a#http://b", registry.Unknown}, nil},
		{"name,http://h/x?a=1,2", Line{"name", "http://h/x?a=1,2", registry.Unknown}, nil},
		{"", Line{}, ErrNotChannel},
		{"央视频道,#genre#", Line{}, ErrNotChannel},
		{"#EXTINF:-1,CCTV1", Line{}, ErrNotChannel},
		{"no separator http://x", Line{}, ErrMalformed},
		{"name,not a url", Line{}, ErrMalformed},
		{"abcms,CCTV1,http://b", Line{}, ErrBadLatency},
		{"-5ms,CCTV1,http://b", Line{}, ErrBadLatency},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.in)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("ParseLine(%q) err = %v, want %v", tt.in, err, tt.err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLine(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLine(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseMeasuredLine(t *testing.T) {
	l, err := ParseMeasuredLine("1999ms,CCTV1,http://a", DefaultFreshness)
	if err != nil || l.Latency != 1999 {
		t.Fatalf("got %+v, %v", l, err)
	}
	if _, err := ParseMeasuredLine("2000ms,CCTV1,http://a", DefaultFreshness); !errors.Is(err, ErrStale) {
		t.Errorf("at threshold: err = %v, want ErrStale", err)
	}
	if _, err := ParseMeasuredLine("CCTV1,http://a", DefaultFreshness); !errors.Is(err, ErrBadLatency) {
		t.Errorf("missing token: err = %v, want ErrBadLatency", err)
	}
	if _, err := ParseMeasuredLine("xms,CCTV1,http://a", DefaultFreshness); !errors.Is(err, ErrBadLatency) {
		t.Errorf("bad token: err = %v, want ErrBadLatency", err)
	}
}

func TestLines(t *testing.T) {
	got := Lines("a\r\nb\n\nc")
	want := []string{"a", "b", "", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
