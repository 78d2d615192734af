package normalize

import "strings"

const (
	// QualityDelimiter separates a stream URL from source-appended tags
	// ("http://host/live.m3u8$1080P").
	QualityDelimiter = "$"
	// AlternateSeparator joins alternate URLs for one channel in a single entry.
	AlternateSeparator = "#"
)

// CleanURL truncates rawURL at the last quality delimiter and trims spaces.
func CleanURL(rawURL string) string {
	if i := strings.LastIndex(rawURL, QualityDelimiter); i >= 0 {
		rawURL = rawURL[:i]
	}
	return strings.TrimSpace(rawURL)
}

// SplitAlternates splits an address field that carries several alternate URLs.
// Empty pieces are kept so the caller can count them as rejected candidates.
func SplitAlternates(address string) []string {
	if !strings.Contains(address, AlternateSeparator) {
		return []string{address}
	}
	return strings.Split(address, AlternateSeparator)
}
