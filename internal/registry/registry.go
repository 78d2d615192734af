// Package registry keeps, per channel name, the best K candidate URLs ranked
// by measured latency.
package registry

import (
	"math"
	"sort"
	"strconv"
	"sync"
)

// DefaultK is the per-channel retention limit.
const DefaultK = 5

// Latency is a response time in milliseconds.
type Latency float64

// Unknown marks a candidate that was never measured. It sorts after every
// measured latency.
var Unknown = Latency(math.Inf(1))

// IsUnknown reports whether l is the Unknown sentinel.
func (l Latency) IsUnknown() bool { return math.IsInf(float64(l), 1) }

func (l Latency) String() string {
	if l.IsUnknown() {
		return "unknown"
	}
	return strconv.FormatFloat(float64(l), 'f', -1, 64) + "ms"
}

// Candidate is one retained stream URL.
type Candidate struct {
	URL     string
	Latency Latency
}

// Registry is safe for concurrent use.
type Registry struct {
	k int

	mu      sync.Mutex
	entries map[string][]Candidate
	order   []string
}

// New returns a Registry retaining at most k candidates per name. k < 1 uses
// DefaultK.
func New(k int) *Registry {
	if k < 1 {
		k = DefaultK
	}
	return &Registry{k: k, entries: make(map[string][]Candidate)}
}

// K is the retention limit.
func (r *Registry) K() int { return r.k }

// Insert offers a candidate for name and reports whether it was retained.
// Entries stay sorted by ascending latency; equal latencies keep insertion
// order. At capacity the candidate must be strictly better than the current
// worst, which is evicted.
func (r *Registry) Insert(name, url string, latency Latency) bool {
	if math.IsNaN(float64(latency)) {
		latency = Unknown
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.entries[name]
	if !ok {
		r.order = append(r.order, name)
	}
	idx := sort.Search(len(list), func(i int) bool { return list[i].Latency > latency })
	if len(list) >= r.k {
		if idx >= r.k {
			return false
		}
		list = list[:r.k-1]
	}
	list = append(list, Candidate{})
	copy(list[idx+1:], list[idx:])
	list[idx] = Candidate{URL: url, Latency: latency}
	r.entries[name] = list
	return true
}

// TopK returns the retained URLs for name in ranking order.
func (r *Registry) TopK(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[name]
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.URL
	}
	return out
}

// Entries returns a copy of the retained candidates for name.
func (r *Registry) Entries(name string) []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.entries[name]
	if len(list) == 0 {
		return nil
	}
	return append([]Candidate(nil), list...)
}

// Names returns channel names in first-insertion order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Len is the number of channel names seen.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Retained is the total number of candidates currently held.
func (r *Registry) Retained() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, list := range r.entries {
		n += len(list)
	}
	return n
}
