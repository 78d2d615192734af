package dedup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ParseBlacklist reads "label,url" lines and returns the url column. Lines
// without a comma are ignored.
func ParseBlacklist(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		parts := strings.Split(sc.Text(), ",")
		if len(parts) < 2 {
			continue
		}
		if u := strings.TrimSpace(parts[1]); u != "" {
			out = append(out, u)
		}
	}
	return out, sc.Err()
}

// LoadBlacklist merges the url columns of every file in paths. A missing file
// is an error; the caller decides whether to continue without it.
func LoadBlacklist(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		f, err := os.Open(filepath.Clean(p))
		if err != nil {
			return out, fmt.Errorf("blacklist: %w", err)
		}
		urls, err := ParseBlacklist(f)
		f.Close()
		if err != nil {
			return out, fmt.Errorf("blacklist %s: %w", p, err)
		}
		out = append(out, urls...)
	}
	return out, nil
}
