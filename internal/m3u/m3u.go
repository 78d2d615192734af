// Package m3u reads extended playlists: format detection, conversion to
// "name,url" lines, and entry parsing with tvg attributes.
package m3u

import (
	"bufio"
	"strings"
)

const (
	maxLineSize = 1 << 20 // 1 MiB per line

	HeaderTag = "#EXTM3U"
	EntryTag  = "#EXTINF"
)

var urlPrefixes = []string{"http", "rtmp", "p3p"}

// Entry is one #EXTINF + URL pair.
type Entry struct {
	Title   string
	TVGName string
	TVGID   string
	Logo    string
	Group   string
	URL     string
}

// IsPlaylist reports whether the first non-empty line of text is the
// extended playlist header.
func IsPlaylist(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.HasPrefix(line, HeaderTag)
	}
	return false
}

// ToLines converts a playlist into "name,url" lines. The name is the text
// after the last comma of the preceding #EXTINF. Plain "name,scheme://url"
// lines embedded in the playlist are kept as they are.
func ToLines(text string) []string {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(nil, maxLineSize)
	var out []string
	var name string
	haveInfo := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "", strings.HasPrefix(line, HeaderTag):
			continue
		case strings.HasPrefix(line, EntryTag):
			name = titleOf(line)
			haveInfo = true
		case hasURLPrefix(line):
			if haveInfo {
				out = append(out, name+","+line)
			}
			haveInfo = false
		case strings.HasPrefix(line, "#"):
			// directives between #EXTINF and its URL keep the pairing
		default:
			if isTextChannel(line) {
				out = append(out, line)
			}
			haveInfo = false
		}
	}
	return out
}

// Parse returns every #EXTINF entry that is followed by a URL line. Comment
// and directive lines between the two are ignored.
func Parse(text string) ([]Entry, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(nil, maxLineSize)
	var entries []Entry
	var extinf string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, EntryTag) {
			extinf = line
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if extinf != "" {
			entries = append(entries, Entry{
				Title:   titleOf(extinf),
				TVGName: attr(extinf, "tvg-name"),
				TVGID:   attr(extinf, "tvg-id"),
				Logo:    attr(extinf, "tvg-logo"),
				Group:   attr(extinf, "group-title"),
				URL:     line,
			})
		}
		extinf = ""
	}
	return entries, sc.Err()
}

// titleOf returns the display title after the last comma. Attribute values
// may contain commas, so the first comma is not reliable.
func titleOf(extinf string) string {
	if i := strings.LastIndex(extinf, ","); i >= 0 {
		return strings.TrimSpace(extinf[i+1:])
	}
	return ""
}

func attr(extinf, key string) string {
	prefix := key + `="`
	i := strings.Index(extinf, prefix)
	if i < 0 {
		return ""
	}
	i += len(prefix)
	j := strings.Index(extinf[i:], `"`)
	if j < 0 {
		return ""
	}
	return extinf[i : i+j]
}

func hasURLPrefix(line string) bool {
	for _, p := range urlPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

// isTextChannel matches "name,scheme://rest" with no whitespace in the URL.
func isTextChannel(line string) bool {
	if strings.Contains(line, "#genre#") {
		return false
	}
	name, u, ok := strings.Cut(line, ",")
	if !ok || name == "" || strings.ContainsAny(u, " \t") {
		return false
	}
	scheme, rest, ok := strings.Cut(u, "://")
	return ok && scheme != "" && rest != ""
}
