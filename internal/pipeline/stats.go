package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/snapetech/iptvmerge/internal/metrics"
)

// SkipReason classifies anything a run dropped without failing.
type SkipReason string

const (
	SkipMalformed   SkipReason = "malformed_line"
	SkipBadLatency  SkipReason = "bad_latency"
	SkipStale       SkipReason = "stale_latency"
	SkipEmptyURL    SkipReason = "empty_url"
	SkipBlacklisted SkipReason = "blacklisted"
	SkipDuplicate   SkipReason = "duplicate"
	SkipRankedOut   SkipReason = "ranked_out"
	SkipNotHTTP     SkipReason = "not_http"
	SkipFetchError  SkipReason = "fetch_error"
	SkipDecodeError SkipReason = "decode_error"
	SkipFileError   SkipReason = "file_error"

	SkipExportError  SkipReason = "export_error"
	SkipPublishError SkipReason = "publish_error"
)

// BucketCount is the number of channel lines written for one category.
type BucketCount struct {
	Key   string
	Label string
	Lines int
}

// Stats summarizes one run.
type Stats struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration

	BlacklistSize   int
	Sources         int
	SourcesFailed   int
	Accepted        int
	Probed          int
	Channels        int
	Retained        int
	DroppedChannels int
	Buckets         []BucketCount
	LiteLines       int
	OthersLines     int
	Outputs         []string
	OutputBytes     int64

	mu    sync.Mutex
	Skips map[SkipReason]int
}

func newStats(runID string, started time.Time) *Stats {
	return &Stats{RunID: runID, Started: started, Skips: make(map[SkipReason]int)}
}

func (s *Stats) skip(reason SkipReason, n int) {
	s.mu.Lock()
	s.Skips[reason] += n
	s.mu.Unlock()
}

// Skipped returns the count for one reason.
func (s *Stats) Skipped(reason SkipReason) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Skips[reason]
}

// TotalLines is the number of channel lines across all buckets.
func (s *Stats) TotalLines() int {
	n := 0
	for _, b := range s.Buckets {
		n += b.Lines
	}
	return n
}

// Summary renders the human-readable run report.
func (s *Stats) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s finished in %s\n", s.RunID, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&sb, "blacklist: %s urls\n", humanize.Comma(int64(s.BlacklistSize)))
	fmt.Fprintf(&sb, "sources: %s fetched, %s failed\n",
		humanize.Comma(int64(s.Sources-s.SourcesFailed)), humanize.Comma(int64(s.SourcesFailed)))
	fmt.Fprintf(&sb, "candidates: %s accepted, %s retained across %s channels (%s probed)\n",
		humanize.Comma(int64(s.Accepted)), humanize.Comma(int64(s.Retained)),
		humanize.Comma(int64(s.Channels)), humanize.Comma(int64(s.Probed)))
	for _, b := range s.Buckets {
		fmt.Fprintf(&sb, "  %-12s %s lines\n", b.Label, humanize.Comma(int64(b.Lines)))
	}
	fmt.Fprintf(&sb, "live: %s lines, lite: %s lines, others: %s lines, dropped channels: %s\n",
		humanize.Comma(int64(s.TotalLines())), humanize.Comma(int64(s.LiteLines)),
		humanize.Comma(int64(s.OthersLines)), humanize.Comma(int64(s.DroppedChannels)))
	if len(s.Skips) > 0 {
		reasons := make([]string, 0, len(s.Skips))
		for r := range s.Skips {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		parts := make([]string, 0, len(reasons))
		for _, r := range reasons {
			parts = append(parts, fmt.Sprintf("%s=%s", r, humanize.Comma(int64(s.Skips[SkipReason(r)]))))
		}
		fmt.Fprintf(&sb, "skipped: %s\n", strings.Join(parts, " "))
	}
	if len(s.Outputs) > 0 {
		fmt.Fprintf(&sb, "wrote %d files (%s)\n", len(s.Outputs), humanize.Bytes(uint64(s.OutputBytes)))
	}
	return sb.String()
}

// Record copies the run counters into m.
func (s *Stats) Record(m *metrics.Run) {
	s.mu.Lock()
	for r, n := range s.Skips {
		m.Skips.WithLabelValues(string(r)).Add(float64(n))
	}
	s.mu.Unlock()
	m.Accepted.Add(float64(s.Accepted))
	m.Channels.Set(float64(s.Channels))
	m.Retained.Set(float64(s.Retained))
	m.Blacklist.Set(float64(s.BlacklistSize))
	for _, b := range s.Buckets {
		m.BucketLines.WithLabelValues(b.Key).Set(float64(b.Lines))
	}
	m.Sources.WithLabelValues("ok").Add(float64(s.Sources - s.SourcesFailed))
	m.Sources.WithLabelValues("failed").Add(float64(s.SourcesFailed))
}
