// Package ingest turns raw source payloads into channel lines: it decodes
// bytes using an ordered list of candidate encodings and parses the
// "name,url" and "123ms,name,url" line shapes.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/snapetech/iptvmerge/internal/registry"
)

var (
	// ErrNotChannel marks blank lines, section headers and playlist
	// directives. Callers skip them without counting.
	ErrNotChannel = errors.New("not a channel line")
	// ErrMalformed marks lines that lack a separator or a URL scheme.
	ErrMalformed = errors.New("malformed channel line")
	// ErrBadLatency marks a latency token whose number cannot be parsed.
	ErrBadLatency = errors.New("unparsable latency token")
	// ErrStale marks a measured line at or above the freshness threshold.
	ErrStale = errors.New("latency above freshness threshold")
)

const (
	genreMarker  = "#genre#"
	latencyUnit  = "ms"
	schemeMarker = "://"

	// DefaultFreshness is the measured-feed cutoff in milliseconds.
	DefaultFreshness registry.Latency = 2000
)

// Line is one parsed channel line. Address may still hold several alternate
// URLs and quality tags; see normalize.SplitAlternates.
type Line struct {
	Name    string
	Address string
	Latency registry.Latency
}

// Measured reports whether the line carried a latency token.
func (l Line) Measured() bool { return !l.Latency.IsUnknown() }

// ParseLine parses "name,url" or "latencyToken,name,url". Lines without a
// latency token get registry.Unknown.
func ParseLine(s string) (Line, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") || strings.Contains(s, genreMarker) {
		return Line{}, ErrNotChannel
	}
	if !strings.Contains(s, ",") || !strings.Contains(s, schemeMarker) {
		return Line{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	if tok, name, addr, ok := splitLatencyShape(s); ok {
		lat, err := parseLatency(tok)
		if err != nil {
			return Line{}, err
		}
		return Line{Name: name, Address: addr, Latency: lat}, nil
	}
	name, addr, _ := strings.Cut(s, ",")
	if !strings.Contains(addr, schemeMarker) {
		return Line{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Line{Name: name, Address: addr, Latency: registry.Unknown}, nil
}

// ParseMeasuredLine parses a line from a pre-measured feed. The latency token
// is mandatory and the line is rejected with ErrStale when its latency is not
// below threshold.
func ParseMeasuredLine(s string, threshold registry.Latency) (Line, error) {
	l, err := ParseLine(s)
	if err != nil {
		return Line{}, err
	}
	if !l.Measured() {
		return Line{}, fmt.Errorf("%w: missing token in %q", ErrBadLatency, strings.TrimSpace(s))
	}
	if l.Latency >= threshold {
		return Line{}, fmt.Errorf("%w: %s", ErrStale, l.Latency)
	}
	return l, nil
}

// splitLatencyShape recognizes "<n>ms,name,url". The url part keeps any
// further commas.
func splitLatencyShape(s string) (tok, name, addr string, ok bool) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	tok = strings.TrimSpace(parts[0])
	if !strings.HasSuffix(tok, latencyUnit) || strings.Contains(parts[1], schemeMarker) || !strings.Contains(parts[2], schemeMarker) {
		return "", "", "", false
	}
	return tok, parts[1], parts[2], true
}

func parseLatency(tok string) (registry.Latency, error) {
	num := strings.TrimSpace(strings.TrimSuffix(tok, latencyUnit))
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadLatency, tok)
	}
	return registry.Latency(v), nil
}

// Lines splits a decoded payload on newlines, dropping carriage returns.
func Lines(text string) []string {
	out := strings.Split(text, "\n")
	for i, l := range out {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}
