// Package safeurl classifies URLs by scheme before they are fetched or
// probed.
package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS reports whether u parses with an http or https scheme and a
// host. file://, ftp:// and other schemes are rejected.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Host == "" {
		return false
	}
	s := strings.ToLower(parsed.Scheme)
	return s == "http" || s == "https"
}

// IsStream reports whether u looks like a playable stream address: a known
// streaming scheme with a host. Used for probe eligibility.
func IsStream(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "rtmp", "rtsp", "rtp", "udp", "p3p":
		return true
	}
	return false
}
