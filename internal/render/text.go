// Package render serializes ranked, categorized channels into the sectioned
// text playlist and the extended playlist derived from it.
package render

import (
	"sort"
	"strings"
	"time"
)

const (
	// GenreMarker ends a section header line.
	GenreMarker = "#genre#"
	// UpdateLabel heads the leading section that carries the build time.
	UpdateLabel = "更新时间"
	// TimestampLayout is YYYYMMDD HH:MM.
	TimestampLayout = "20060102 15:04"
)

// Zone is the fixed UTC+8 offset timestamps are rendered in, independent of
// the host's local zone.
var Zone = time.FixedZone("UTC+8", 8*60*60)

// Channel is one channel name and its retained URLs in ranking order.
type Channel struct {
	Name string
	URLs []string
}

// Bucket is one category section.
type Bucket struct {
	Key      string
	Label    string
	Zone     []string
	Channels []Channel
}

// Header configures the leading update-time section.
type Header struct {
	Now        time.Time
	VersionURL string
	// About is an optional complete "name,url" line.
	About string
}

// Section is a header label and its body lines.
type Section struct {
	Label string
	Lines []string
}

// Timestamp formats t in the fixed UTC+8 zone.
func Timestamp(t time.Time) string {
	return t.In(Zone).Format(TimestampLayout)
}

// Text renders the update-time section followed by one section per
// non-empty bucket. Channels in a bucket follow ordering[bucket.Key]; names
// missing from the hint keep their given order after the hinted ones.
func Text(buckets []Bucket, ordering map[string][]string, h Header) string {
	stamp := Timestamp(h.Now)
	if h.VersionURL != "" {
		stamp += "," + h.VersionURL
	}
	head := Section{Label: UpdateLabel, Lines: []string{stamp}}
	if h.About != "" {
		head.Lines = append(head.Lines, h.About)
	}
	sections := []Section{head}
	for _, b := range buckets {
		lines := append([]string(nil), b.Zone...)
		for _, ch := range orderChannels(b.Channels, ordering[b.Key]) {
			for _, u := range ch.URLs {
				lines = append(lines, ch.Name+","+u)
			}
		}
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, Section{Label: b.Label, Lines: lines})
	}
	return Sections(sections)
}

// Sections writes "<Label>,#genre#" headers with their lines, separating
// sections with one blank line.
func Sections(sections []Section) string {
	var sb strings.Builder
	for i, s := range sections {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s.Label)
		sb.WriteString("," + GenreMarker + "\n")
		for _, l := range s.Lines {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func orderChannels(chs []Channel, hint []string) []Channel {
	out := append([]Channel(nil), chs...)
	if len(hint) == 0 {
		return out
	}
	rank := make(map[string]int, len(hint))
	for i, n := range hint {
		if _, ok := rank[n]; !ok {
			rank[n] = i
		}
	}
	pos := func(name string) int {
		if r, ok := rank[name]; ok {
			return r
		}
		return len(hint)
	}
	sort.SliceStable(out, func(i, j int) bool { return pos(out[i].Name) < pos(out[j].Name) })
	return out
}
