// Package normalize canonicalizes raw (name, url) pairs collected from
// whitelists and remote sources into the channel identity used as the join
// key everywhere else.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxSteps bounds the fixed-point loop. Only a replacement list whose New
// values regrow their Old values can reach it; the default rules always
// settle well before.
const maxSteps = 4096

// Replacement is one literal substring rewrite, applied in list order.
type Replacement struct {
	Old string
	New string
}

// DefaultRemovals are the noise tokens (quality, network, source tags, emoji,
// spaces) stripped from channel names.
var DefaultRemovals = []string{
	"「IPV4」", "「IPV6」", "[ipv6]", "[ipv4]", "_电信", "电信",
	"（HD）", "[超清]", "高清", "超清", "-HD", "(HK)", "AKtv",
	"@", "IPV6", "🎞️", "🎦", " ", "[BD]", "[VGA]", "[HD]",
	"[SD]", "(1080p)", "(720p)", "(480p)",
}

// DefaultReplacements collapse prefix-dash spellings and the "plus" token.
var DefaultReplacements = []Replacement{
	{"CCTV-", "CCTV"},
	{"CCTV0", "CCTV"},
	{"PLUS", "+"},
	{"NewTV-", "NewTV"},
	{"iHOT-", "iHOT"},
	{"NEW", "New"},
	{"New_", "New"},
}

// Normalizer turns raw names into canonical channel names. The zero value
// applies no rules; use New for the default rule set.
type Normalizer struct {
	Removals     []string
	Replacements []Replacement
	Corrections  Corrections
	Translit     Transliterator
}

// New returns a Normalizer with the default removal and replacement lists.
// corrections and tr may be nil.
func New(corrections Corrections, tr Transliterator) *Normalizer {
	return &Normalizer{
		Removals:     DefaultRemovals,
		Replacements: DefaultReplacements,
		Corrections:  corrections,
		Translit:     tr,
	}
}

// Normalize returns the canonical channel name and the cleaned URL. The URL
// must already be a single alternate (see SplitAlternates). An empty URL in
// the result means the candidate has to be rejected; an empty name does not.
func (n *Normalizer) Normalize(rawName, rawURL string) (name, cleanURL string) {
	return n.Name(rawName), CleanURL(rawURL)
}

// Name canonicalizes a channel name. Each step transliterates, cleans and
// applies corrections; steps repeat until the name stops changing. When a
// correction table sends names around a cycle, the lexicographically smallest
// member of the cycle is the result. Name is idempotent:
// Name(Name(s)) == Name(s).
func (n *Normalizer) Name(raw string) string {
	s := n.step(raw)
	seen := map[string]int{s: 0}
	trail := []string{s}
	for len(trail) < maxSteps {
		next := n.step(s)
		if next == s {
			return s
		}
		if i, ok := seen[next]; ok {
			return smallest(trail[i:])
		}
		seen[next] = len(trail)
		trail = append(trail, next)
		s = next
	}
	return s
}

func (n *Normalizer) step(s string) string {
	if n.Translit != nil {
		s = n.Translit.Transliterate(s)
	}
	s = norm.NFC.String(s)
	return strings.TrimSpace(n.correct(n.clean(s)))
}

func smallest(cycle []string) string {
	best := cycle[0]
	for _, c := range cycle[1:] {
		if c < best {
			best = c
		}
	}
	return best
}

func (n *Normalizer) clean(s string) string {
	for _, tok := range n.Removals {
		if tok == "" {
			continue
		}
		s = strings.ReplaceAll(s, tok, "")
	}
	for _, r := range n.Replacements {
		if r.Old == "" {
			continue
		}
		s = strings.ReplaceAll(s, r.Old, r.New)
	}
	return s
}

func (n *Normalizer) correct(s string) string {
	if canonical, ok := n.Corrections[s]; ok {
		return canonical
	}
	return s
}
