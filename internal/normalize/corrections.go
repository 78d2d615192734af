package normalize

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Corrections maps an alias to its canonical channel name.
type Corrections map[string]string

// ParseCorrections reads lines of "canonical,alias1,alias2,...". Blank lines
// are skipped. A later line wins when two lines claim the same alias.
func ParseCorrections(r io.Reader) (Corrections, error) {
	out := make(Corrections)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		canonical := strings.TrimSpace(parts[0])
		if canonical == "" {
			continue
		}
		for _, alias := range parts[1:] {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			out[alias] = canonical
		}
	}
	return out, sc.Err()
}

// LoadCorrections reads the correction table from path.
func LoadCorrections(path string) (Corrections, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("corrections: %w", err)
	}
	defer f.Close()
	c, err := ParseCorrections(f)
	if err != nil {
		return nil, fmt.Errorf("corrections %s: %w", path, err)
	}
	return c, nil
}
