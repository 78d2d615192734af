// Package dedup tracks which stream URLs a run has already accepted and which
// ones are blacklisted. A URL is accepted at most once per run, regardless of
// the channel it was offered for.
package dedup

import "sync"

// Verdict is the outcome of checking a URL against the set.
type Verdict int

const (
	Accepted Verdict = iota
	RejectEmpty
	RejectBlacklisted
	RejectDuplicate
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectEmpty:
		return "empty_url"
	case RejectBlacklisted:
		return "blacklisted"
	case RejectDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Set holds the read-only blacklist and the run-wide seen set.
type Set struct {
	mu        sync.Mutex
	blacklist map[string]struct{}
	seen      map[string]struct{}
}

// New returns a Set seeded with the given blacklisted URLs.
func New(blacklist []string) *Set {
	bl := make(map[string]struct{}, len(blacklist))
	for _, u := range blacklist {
		if u != "" {
			bl[u] = struct{}{}
		}
	}
	return &Set{blacklist: bl, seen: make(map[string]struct{})}
}

// Check records url as seen when it is acceptable and reports why it was not
// otherwise. Rejections leave the set unchanged.
func (s *Set) Check(url string) Verdict {
	if url == "" {
		return RejectEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blacklist[url]; ok {
		return RejectBlacklisted
	}
	if _, ok := s.seen[url]; ok {
		return RejectDuplicate
	}
	s.seen[url] = struct{}{}
	return Accepted
}

// Accept is Check reduced to a boolean.
func (s *Set) Accept(url string) bool { return s.Check(url) == Accepted }

// Blacklisted reports whether url is on the blacklist without recording it.
func (s *Set) Blacklisted(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[url]
	return ok
}

// BlacklistLen is the number of distinct blacklisted URLs.
func (s *Set) BlacklistLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blacklist)
}

// SeenLen is the number of URLs accepted so far.
func (s *Set) SeenLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
