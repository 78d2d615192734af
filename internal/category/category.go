// Package category assigns canonical channel names to output buckets using
// an ordered list of exact and substring rules.
package category

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Category describes one output bucket in section order.
type Category struct {
	Key   string
	Label string
	Lite  bool
	// Order is the ordering hint: exact names in declaration and file order.
	Order []string
	// Zone holds manually curated lines emitted ahead of the bucket.
	Zone []string
}

type compiledRule struct {
	category string
	match    MatchKind
	exact    map[string]struct{}
	keywords []string
}

// Categorizer is immutable after New and safe for concurrent use.
type Categorizer struct {
	rules      []compiledRule
	categories []Category
	index      map[string]int
	unmatched  UnmatchedPolicy
}

// New compiles cfg, reading dictionary and zone files. A file that cannot
// be read contributes nothing; New still returns a usable Categorizer along
// with the joined file errors.
func New(cfg Config) (*Categorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Categorizer{index: make(map[string]int), unmatched: cfg.Unmatched}
	var errs []error
	for _, r := range cfg.Rules {
		names := append([]string(nil), r.Values...)
		if r.File != "" {
			fromFile, err := readNames(r.File)
			if err != nil {
				errs = append(errs, err)
			}
			names = append(names, fromFile...)
		}
		cr := compiledRule{category: r.Category, match: r.Match}
		if r.Match == MatchExact {
			cr.exact = make(map[string]struct{}, len(names))
			for _, n := range names {
				cr.exact[n] = struct{}{}
			}
		} else {
			cr.keywords = names
		}
		c.rules = append(c.rules, cr)

		idx, ok := c.index[r.Category]
		if !ok {
			cat := Category{Key: r.Category, Label: r.Label, Lite: r.Lite}
			if cat.Label == "" {
				cat.Label = r.Category
			}
			if r.Zone != "" {
				zone, err := readNames(r.Zone)
				if err != nil {
					errs = append(errs, err)
				}
				cat.Zone = zone
			}
			idx = len(c.categories)
			c.index[r.Category] = idx
			c.categories = append(c.categories, cat)
		}
		if r.Match == MatchExact {
			c.categories[idx].Order = appendUnique(c.categories[idx].Order, names)
		}
	}
	if cfg.Unmatched == UnmatchedOther {
		c.index[Other] = len(c.categories)
		c.categories = append(c.categories, Category{Key: Other, Label: cfg.OtherLabel})
	}
	return c, errors.Join(errs...)
}

// Categorize returns the category key for name. ok is false only when no
// rule matches and unmatched names are dropped.
func (c *Categorizer) Categorize(name string) (key string, ok bool) {
	for _, r := range c.rules {
		if r.matches(name) {
			return r.category, true
		}
	}
	if c.unmatched == UnmatchedOther {
		return Other, true
	}
	return "", false
}

// Categories returns the buckets in section order; the fallback bucket, if
// any, is last.
func (c *Categorizer) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Category looks up one bucket by key.
func (c *Categorizer) Category(key string) (Category, bool) {
	i, ok := c.index[key]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Unmatched is the configured policy.
func (c *Categorizer) Unmatched() UnmatchedPolicy { return c.unmatched }

func (r compiledRule) matches(name string) bool {
	if r.match == MatchExact {
		_, ok := r.exact[name]
		return ok
	}
	if name == "" {
		return false
	}
	for _, kw := range r.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}

// ReadNames parses a dictionary or zone file body: one entry per line,
// blank lines skipped.
func ReadNames(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			out = append(out, s)
		}
	}
	return out, sc.Err()
}

func readNames(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("category file: %w", err)
	}
	defer f.Close()
	names, err := ReadNames(f)
	if err != nil {
		return nil, fmt.Errorf("category file %s: %w", path, err)
	}
	return names, nil
}
