// Package pipeline runs one merge pass: it loads the local lists, fetches the
// remote sources, ranks every candidate URL per channel and writes the
// categorized playlists.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/snapetech/iptvmerge/internal/category"
	"github.com/snapetech/iptvmerge/internal/dedup"
	"github.com/snapetech/iptvmerge/internal/export"
	"github.com/snapetech/iptvmerge/internal/fetch"
	"github.com/snapetech/iptvmerge/internal/ingest"
	"github.com/snapetech/iptvmerge/internal/log"
	"github.com/snapetech/iptvmerge/internal/m3u"
	"github.com/snapetech/iptvmerge/internal/metrics"
	"github.com/snapetech/iptvmerge/internal/normalize"
	"github.com/snapetech/iptvmerge/internal/output"
	"github.com/snapetech/iptvmerge/internal/probe"
	"github.com/snapetech/iptvmerge/internal/registry"
	"github.com/snapetech/iptvmerge/internal/render"
	"github.com/snapetech/iptvmerge/internal/safeurl"
)

// Origin labels for the local lists in others.txt.
const (
	OriginWhitelist         = "白名单"
	OriginMeasuredWhitelist = "白名单测速"
)

// Options are the inputs and knobs of one run. Empty paths disable the
// corresponding input or output.
type Options struct {
	BlacklistFiles    []string
	WhitelistManual   string
	WhitelistMeasured string
	CorrectionsFile   string
	SourcesFile       string
	Rules             category.Config

	TopK      int
	Freshness registry.Latency
	Encodings []string

	FetchConcurrency int
	Probe            bool

	OthersFile bool
	VersionURL string
	About      string
	Playlist   render.PlaylistOptions

	ExportDB    string
	MetricsFile string
}

// Prober measures candidates that arrive without a latency.
type Prober interface {
	All(ctx context.Context, urls []string) []probe.Result
}

// Publisher uploads the written artifacts.
type Publisher interface {
	Upload(ctx context.Context, files map[string][]byte) ([]string, error)
}

// Pipeline holds the collaborators of a run. Fetcher and Writer are
// required; the rest are optional.
type Pipeline struct {
	Opts      Options
	Fetcher   fetch.Fetcher
	Prober    Prober
	Translit  normalize.Transliterator
	Writer    *output.Writer
	Publisher Publisher
	Now       func() time.Time

	log zerolog.Logger
}

// New returns a Pipeline with defaults filled in.
func New(opts Options, fetcher fetch.Fetcher, writer *output.Writer) *Pipeline {
	if opts.TopK < 1 {
		opts.TopK = registry.DefaultK
	}
	if opts.Freshness <= 0 {
		opts.Freshness = ingest.DefaultFreshness
	}
	if len(opts.Encodings) == 0 {
		opts.Encodings = ingest.DefaultEncodings
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = 4
	}
	return &Pipeline{
		Opts:    opts,
		Fetcher: fetcher,
		Writer:  writer,
		Now:     time.Now,
		log:     log.WithComponent("pipeline"),
	}
}

// candidate is one accepted URL awaiting ranking.
type candidate struct {
	origin  string
	name    string
	url     string
	latency registry.Latency
}

// run is the state of one pass.
type run struct {
	*Pipeline
	ctx   context.Context
	log   zerolog.Logger
	stats *Stats
	norm  *normalize.Normalizer
	set   *dedup.Set
	cands []candidate
}

// Run executes one pass. Bad lines, unreadable inputs and failed sources are
// logged, counted in Stats and skipped. A failed export snapshot or upload is
// counted the same way once the playlists are on disk. Only an invalid rule
// set or failing to write the playlists returns an error.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	if p.Fetcher == nil || p.Writer == nil {
		return nil, errors.New("pipeline: fetcher and writer are required")
	}
	started := p.Now()
	runID := uuid.NewString()
	r := &run{
		Pipeline: p,
		ctx:      ctx,
		log:      p.log.With().Str(log.FieldRunID, runID).Logger(),
		stats:    newStats(runID, started),
	}
	r.log.Info().Msg("run started")
	fail := func(err error) (*Stats, error) {
		r.stats.Elapsed = p.Now().Sub(started)
		return r.stats, err
	}

	r.set = dedup.New(r.loadBlacklist())
	r.stats.BlacklistSize = r.set.BlacklistLen()

	corrections := r.loadCorrections()
	tr := p.Translit
	if tr == nil {
		tr = normalize.Identity{}
	}
	r.norm = normalize.New(corrections, tr)

	cat, err := category.New(p.Opts.Rules)
	if cat == nil {
		return fail(fmt.Errorf("category rules: %w", err))
	}
	if err != nil {
		r.skip(SkipFileError, 1).Err(err).Msg("category files incomplete")
	}

	r.ingestFile(OriginWhitelist, p.Opts.WhitelistManual, false)
	r.ingestFile(OriginMeasuredWhitelist, p.Opts.WhitelistMeasured, true)
	r.ingestSources()
	r.probeUnknown()

	reg := registry.New(p.Opts.TopK)
	for _, c := range r.cands {
		reg.Insert(c.name, c.url, c.latency)
	}
	r.stats.Accepted = len(r.cands)
	r.stats.Channels = reg.Len()
	r.stats.Retained = reg.Retained()
	if out := r.stats.Accepted - r.stats.Retained; out > 0 {
		r.stats.skip(SkipRankedOut, out)
	}

	files, snap := r.assemble(reg, cat)
	written, err := p.Writer.WriteAll(files)
	r.stats.Outputs = written
	for _, name := range written {
		r.stats.OutputBytes += int64(len(files[filepath.Base(name)]))
	}
	if err != nil {
		r.log.Error().Err(err).Msg("write outputs")
		return fail(fmt.Errorf("write outputs: %w", err))
	}

	if p.Opts.ExportDB != "" {
		if err := export.Write(ctx, p.Opts.ExportDB, snap); err != nil {
			r.stats.skip(SkipExportError, 1)
			r.log.Error().Err(err).Str(log.FieldPath, p.Opts.ExportDB).Msg("export snapshot")
		}
	}
	if p.Publisher != nil {
		keys, err := p.Publisher.Upload(ctx, files)
		if err != nil {
			r.stats.skip(SkipPublishError, 1)
			r.log.Error().Err(err).Int("objects", len(keys)).Msg("publish outputs")
		} else {
			r.log.Info().Int("objects", len(keys)).Msg("published outputs")
		}
	}

	finished := p.Now()
	r.stats.Elapsed = finished.Sub(started)
	if p.Opts.MetricsFile != "" {
		m := metrics.NewRun()
		r.stats.Record(m)
		m.Finish(r.stats.Elapsed, finished)
		if err := m.WriteTextfile(p.Opts.MetricsFile); err != nil {
			r.log.Warn().Err(err).Str(log.FieldPath, p.Opts.MetricsFile).Msg("metrics textfile")
		}
	}
	r.log.Info().
		Int("channels", r.stats.Channels).
		Int("retained", r.stats.Retained).
		Int("lines", r.stats.TotalLines()).
		Dur("elapsed", r.stats.Elapsed).
		Msg("run finished")
	return r.stats, nil
}

// skip counts n skips for reason and returns a debug event tagged with it.
func (r *run) skip(reason SkipReason, n int) *zerolog.Event {
	r.stats.skip(reason, n)
	return r.log.Debug().Str(log.FieldReason, string(reason))
}

func (r *run) loadBlacklist() []string {
	var urls []string
	for _, path := range r.Opts.BlacklistFiles {
		got, err := dedup.LoadBlacklist(path)
		if err != nil {
			r.stats.skip(SkipFileError, 1)
			r.log.Warn().Err(err).Str(log.FieldPath, path).Msg("blacklist unreadable")
			continue
		}
		urls = append(urls, got...)
	}
	return urls
}

func (r *run) loadCorrections() normalize.Corrections {
	if r.Opts.CorrectionsFile == "" {
		return nil
	}
	c, err := normalize.LoadCorrections(r.Opts.CorrectionsFile)
	if err != nil {
		r.stats.skip(SkipFileError, 1)
		r.log.Warn().Err(err).Str(log.FieldPath, r.Opts.CorrectionsFile).Msg("corrections unreadable")
		return nil
	}
	return c
}

// readLocal reads a local UTF-8 list.
func readLocal(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	text, _, err := ingest.Decode(data, []string{"utf-8"})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ingest.Lines(text), nil
}

func (r *run) ingestFile(origin, path string, measured bool) {
	if path == "" {
		return
	}
	lines, err := readLocal(path)
	if err != nil {
		r.stats.skip(SkipFileError, 1)
		r.log.Warn().Err(err).Str(log.FieldPath, path).Msg("input unreadable")
		return
	}
	before := len(r.cands)
	r.ingestLines(origin, lines, measured)
	r.log.Info().Str(log.FieldSource, origin).Int("lines", len(lines)).
		Int("accepted", len(r.cands)-before).Msg("list processed")
}

func (r *run) ingestLines(origin string, lines []string, measured bool) {
	for i, raw := range lines {
		var (
			l   ingest.Line
			err error
		)
		if measured {
			l, err = ingest.ParseMeasuredLine(raw, r.Opts.Freshness)
		} else {
			l, err = ingest.ParseLine(raw)
		}
		if err != nil {
			r.lineError(origin, i+1, err)
			continue
		}
		for _, alt := range normalize.SplitAlternates(l.Address) {
			name, u := r.norm.Normalize(l.Name, alt)
			switch r.set.Check(u) {
			case dedup.Accepted:
				r.cands = append(r.cands, candidate{origin: origin, name: name, url: u, latency: l.Latency})
			case dedup.RejectEmpty:
				r.skip(SkipEmptyURL, 1).Str(log.FieldSource, origin).Int(log.FieldLine, i+1).Msg("empty url")
			case dedup.RejectBlacklisted:
				r.skip(SkipBlacklisted, 1).Str(log.FieldURL, u).Msg("blacklisted")
			default:
				r.skip(SkipDuplicate, 1).Str(log.FieldURL, u).Msg("duplicate")
			}
		}
	}
}

func (r *run) lineError(origin string, line int, err error) {
	var reason SkipReason
	switch {
	case errors.Is(err, ingest.ErrNotChannel):
		return
	case errors.Is(err, ingest.ErrStale):
		reason = SkipStale
	case errors.Is(err, ingest.ErrBadLatency):
		reason = SkipBadLatency
	default:
		reason = SkipMalformed
	}
	r.skip(reason, 1).Str(log.FieldSource, origin).Int(log.FieldLine, line).Err(err).Msg("line skipped")
}

// payload is the decoded body of one remote source.
type payload struct {
	url   string
	lines []string
	err   error
	bad   SkipReason
}

func (r *run) ingestSources() {
	if r.Opts.SourcesFile == "" {
		return
	}
	entries, err := readLocal(r.Opts.SourcesFile)
	if err != nil {
		r.stats.skip(SkipFileError, 1)
		r.log.Warn().Err(err).Str(log.FieldPath, r.Opts.SourcesFile).Msg("source list unreadable")
		return
	}
	var urls []string
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || strings.HasPrefix(e, "#") {
			continue
		}
		if !safeurl.IsHTTPOrHTTPS(e) {
			r.skip(SkipNotHTTP, 1).Str(log.FieldURL, e).Msg("source skipped")
			continue
		}
		urls = append(urls, e)
	}
	r.stats.Sources = len(urls)

	payloads := make([]payload, len(urls))
	g, gctx := errgroup.WithContext(r.ctx)
	g.SetLimit(r.Opts.FetchConcurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			payloads[i] = r.load(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	for _, pl := range payloads {
		if pl.err != nil {
			r.stats.SourcesFailed++
			r.stats.skip(pl.bad, 1)
			r.log.Warn().Str(log.FieldURL, pl.url).Str(log.FieldReason, string(pl.bad)).Err(pl.err).Msg("source failed")
			continue
		}
		before := len(r.cands)
		r.ingestLines(pl.url, pl.lines, false)
		r.log.Info().Str(log.FieldSource, pl.url).Int("lines", len(pl.lines)).
			Int("accepted", len(r.cands)-before).Msg("source processed")
	}
}

// load fetches and decodes one source. It runs concurrently and touches no
// shared state.
func (r *run) load(ctx context.Context, u string) payload {
	data, err := r.Fetcher.Fetch(ctx, u)
	if err != nil {
		return payload{url: u, err: err, bad: SkipFetchError}
	}
	text, enc, err := ingest.Decode(data, r.Opts.Encodings)
	if err != nil {
		return payload{url: u, err: err, bad: SkipDecodeError}
	}
	r.log.Debug().Str(log.FieldURL, u).Str(log.FieldEncoding, enc).Int("bytes", len(data)).Msg("source decoded")
	if m3u.IsPlaylist(text) {
		return payload{url: u, lines: m3u.ToLines(text)}
	}
	return payload{url: u, lines: ingest.Lines(text)}
}

func (r *run) probeUnknown() {
	if !r.Opts.Probe || r.Prober == nil {
		return
	}
	var idx []int
	var urls []string
	for i, c := range r.cands {
		if c.latency.IsUnknown() {
			idx = append(idx, i)
			urls = append(urls, c.url)
		}
	}
	if len(urls) == 0 {
		return
	}
	results := r.Prober.All(r.ctx, urls)
	ok := 0
	for j, res := range results {
		if j >= len(idx) {
			break
		}
		if res.Status == probe.StatusOK {
			r.cands[idx[j]].latency = res.Latency
			ok++
			r.log.Debug().Str(log.FieldURL, res.URL).Float64(log.FieldLatency, float64(res.Latency)).Msg("probed")
		}
	}
	r.stats.Probed = len(urls)
	r.log.Info().Int("probed", len(urls)).Int("reachable", ok).Msg("probe finished")
}

// assemble renders every artifact and the export snapshot.
func (r *run) assemble(reg *registry.Registry, cat *category.Categorizer) (map[string][]byte, export.Snapshot) {
	cats := cat.Categories()
	byKey := make(map[string]*render.Bucket, len(cats))
	buckets := make([]render.Bucket, len(cats))
	ordering := make(map[string][]string, len(cats))
	for i, c := range cats {
		buckets[i] = render.Bucket{Key: c.Key, Label: c.Label, Zone: c.Zone}
		ordering[c.Key] = c.Order
	}
	for i := range buckets {
		byKey[buckets[i].Key] = &buckets[i]
	}

	snap := export.Snapshot{RunID: r.stats.RunID, GeneratedAt: r.stats.Started}
	unmatched := make(map[string]bool)
	for _, name := range reg.Names() {
		key, ok := cat.Categorize(name)
		if !ok {
			unmatched[name] = true
			r.stats.DroppedChannels++
			r.log.Debug().Str(log.FieldChannel, name).Msg("channel dropped")
			continue
		}
		if key == category.Other {
			unmatched[name] = true
		}
		b := byKey[key]
		b.Channels = append(b.Channels, render.Channel{Name: name, URLs: reg.TopK(name)})
		snap.Channels = append(snap.Channels, export.Channel{Name: name, Category: key, Candidates: reg.Entries(name)})
	}

	var lite []render.Bucket
	for i, c := range cats {
		b := buckets[i]
		n := len(b.Zone)
		for _, ch := range b.Channels {
			n += len(ch.URLs)
		}
		r.stats.Buckets = append(r.stats.Buckets, BucketCount{Key: b.Key, Label: b.Label, Lines: n})
		r.log.Debug().Str(log.FieldCategory, b.Key).Int("channels", len(b.Channels)).Int("lines", n).Msg("bucket assembled")
		if c.Lite {
			lite = append(lite, b)
			r.stats.LiteLines += n
		}
	}

	h := render.Header{Now: r.stats.Started, VersionURL: r.Opts.VersionURL, About: r.Opts.About}
	live := render.Text(buckets, ordering, h)
	liteText := render.Text(lite, ordering, h)
	files := map[string][]byte{
		output.LiveText:     []byte(live),
		output.LivePlaylist: []byte(render.Playlist(live, r.Opts.Playlist)),
		output.LiteText:     []byte(liteText),
		output.LitePlaylist: []byte(render.Playlist(liteText, r.Opts.Playlist)),
	}
	if r.Opts.OthersFile || cat.Unmatched() == category.UnmatchedOther {
		files[output.OthersText] = []byte(r.others(unmatched))
	}
	return files, snap
}

// others lists the accepted lines of unmatched channels, grouped by origin
// in ingestion order.
func (r *run) others(unmatched map[string]bool) string {
	var sections []render.Section
	index := make(map[string]int)
	for _, c := range r.cands {
		if !unmatched[c.name] {
			continue
		}
		i, ok := index[c.origin]
		if !ok {
			i = len(sections)
			index[c.origin] = i
			sections = append(sections, render.Section{Label: c.origin})
		}
		sections[i].Lines = append(sections[i].Lines, c.name+","+c.url)
		r.stats.OthersLines++
	}
	return render.Sections(sections)
}
