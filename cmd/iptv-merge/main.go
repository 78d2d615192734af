// Command iptv-merge builds categorized IPTV playlists from local lists and
// remote sources.
//
//	run    One pass: load lists, fetch sources, rank, categorize, write outputs
//	m3u    Convert a sectioned text playlist into an extended M3U playlist
//	probe  Probe stream URLs and print them ranked by latency
//	check  Check that every remote source in the source list answers
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/snapetech/iptvmerge/internal/category"
	"github.com/snapetech/iptvmerge/internal/config"
	"github.com/snapetech/iptvmerge/internal/fetch"
	"github.com/snapetech/iptvmerge/internal/health"
	"github.com/snapetech/iptvmerge/internal/httpclient"
	"github.com/snapetech/iptvmerge/internal/ingest"
	"github.com/snapetech/iptvmerge/internal/log"
	"github.com/snapetech/iptvmerge/internal/normalize"
	"github.com/snapetech/iptvmerge/internal/output"
	"github.com/snapetech/iptvmerge/internal/pipeline"
	"github.com/snapetech/iptvmerge/internal/probe"
	"github.com/snapetech/iptvmerge/internal/publish"
	"github.com/snapetech/iptvmerge/internal/registry"
	"github.com/snapetech/iptvmerge/internal/render"
)

func main() {
	_ = config.LoadEnvFile(".env")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runOut := runCmd.String("out", "", "Output directory (default: IPTV_MERGE_OUTPUT_DIR)")
	runRules := runCmd.String("rules", "", "YAML category rules (default: IPTV_MERGE_RULES or built-in rules)")
	runSources := runCmd.String("sources", "", "Source list, one URL per line (default: IPTV_MERGE_SOURCES)")
	runTopK := runCmd.Int("top-k", 0, "URLs kept per channel (default: IPTV_MERGE_TOP_K)")
	runProbe := runCmd.Bool("probe", false, "Probe candidates without a latency (default: IPTV_MERGE_PROBE)")
	runExport := runCmd.String("export-db", "", "Write a SQLite snapshot to this path (default: IPTV_MERGE_EXPORT_DB)")
	runMetrics := runCmd.String("metrics", "", "Write a Prometheus textfile to this path (default: IPTV_MERGE_METRICS_FILE)")
	runNoPublish := runCmd.Bool("no-publish", false, "Skip the S3 upload even when IPTV_MERGE_S3_BUCKET is set")

	m3uCmd := flag.NewFlagSet("m3u", flag.ExitOnError)
	m3uIn := m3uCmd.String("in", "", "Sectioned text playlist to convert (required)")
	m3uOut := m3uCmd.String("out", "", "Output path (default: stdout)")

	probeCmd := flag.NewFlagSet("probe", flag.ExitOnError)
	probeURLs := probeCmd.String("urls", "", "Comma-separated stream URLs to probe")
	probeFile := probeCmd.String("file", "", "Text playlist or URL list to read URLs from")
	probeTimeout := probeCmd.Duration("timeout", 0, "Per-probe timeout, clamped to 5s-15s (default: IPTV_MERGE_PROBE_TIMEOUT)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkSources := checkCmd.String("sources", "", "Source list, one URL per line (default: IPTV_MERGE_SOURCES)")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <run|m3u|probe|check> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  run    Fetch, rank and categorize channels, then write the playlists\n")
		fmt.Fprintf(os.Stderr, "  m3u    Convert a text playlist (-in live.txt) to M3U\n")
		fmt.Fprintf(os.Stderr, "  probe  Probe URLs (-urls a,b or -file list.txt) and print them fastest first\n")
		fmt.Fprintf(os.Stderr, "  check  Report which remote sources answer HTTP 200\n")
		os.Exit(1)
	}

	cfg := config.Load()
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "iptv-merge", Console: cfg.LogConsole})
	logger := log.WithComponent("cli")

	switch os.Args[1] {
	case "run":
		_ = runCmd.Parse(os.Args[2:])
		if *runOut != "" {
			cfg.OutputDir = *runOut
		}
		if *runRules != "" {
			cfg.RulesFile = *runRules
		}
		if *runSources != "" {
			cfg.SourcesFile = *runSources
		}
		if *runTopK > 0 {
			cfg.TopK = *runTopK
		}
		if *runProbe {
			cfg.ProbeEnabled = true
		}
		if *runExport != "" {
			cfg.ExportDB = *runExport
		}
		if *runMetrics != "" {
			cfg.MetricsFile = *runMetrics
		}
		if *runNoPublish {
			cfg.S3Bucket = ""
		}
		if err := cfg.Validate(); err != nil {
			logger.Error().Err(err).Msg("invalid configuration")
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
			defer cancel()
		}
		p, err := newPipeline(ctx, cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("setup failed")
			os.Exit(1)
		}
		stats, err := p.Run(ctx)
		if stats != nil {
			fmt.Print(stats.Summary())
		}
		if err != nil {
			logger.Error().Err(err).Msg("run failed")
			stop()
			os.Exit(1)
		}

	case "m3u":
		_ = m3uCmd.Parse(os.Args[2:])
		if *m3uIn == "" {
			logger.Error().Msg("-in is required")
			os.Exit(1)
		}
		data, err := os.ReadFile(*m3uIn)
		if err != nil {
			logger.Error().Err(err).Msg("read input")
			os.Exit(1)
		}
		text, _, err := ingest.Decode(data, cfg.Encodings)
		if err != nil {
			logger.Error().Err(err).Str(log.FieldPath, *m3uIn).Msg("decode input")
			os.Exit(1)
		}
		pl := render.Playlist(text, playlistOptions(cfg))
		if *m3uOut == "" {
			_, _ = io.WriteString(os.Stdout, pl)
			return
		}
		w := &output.Writer{Dir: ".", Log: logger}
		if err := w.WriteFile(*m3uOut, []byte(pl)); err != nil {
			logger.Error().Err(err).Msg("write playlist")
			os.Exit(1)
		}

	case "probe":
		_ = probeCmd.Parse(os.Args[2:])
		urls := splitList(*probeURLs)
		if *probeFile != "" {
			fromFile, err := urlsFromFile(*probeFile, cfg.Encodings)
			if err != nil {
				logger.Error().Err(err).Msg("read url file")
				os.Exit(1)
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			logger.Error().Msg("no URLs to probe; pass -urls=http://a,http://b or -file=list.txt")
			os.Exit(1)
		}
		timeout := cfg.ProbeTimeout
		if *probeTimeout > 0 {
			timeout = *probeTimeout
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		client := httpclient.New(httpclient.Options{
			Timeout:   probe.ClampTimeout(timeout),
			UserAgent: cfg.UserAgent,
			PerHost:   cfg.FetchPerHost,
		})
		pr := probe.New(client, timeout, cfg.ProbeConcurrency)
		fmt.Fprintf(os.Stderr, "Probing %d URL(s) (timeout %v)...\n", len(urls), pr.Timeout)
		for i, r := range probe.Rank(pr.All(ctx, urls)) {
			code := ""
			if r.StatusCode != 0 {
				code = fmt.Sprintf(" HTTP %d", r.StatusCode)
			}
			fmt.Printf("%3d. %-10s %-9s%s  %s\n", i+1, r.Latency, r.Status, code, r.URL)
		}

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		if *checkSources != "" {
			cfg.SourcesFile = *checkSources
		}
		urls, err := urlsFromFile(cfg.SourcesFile, []string{"utf-8"})
		if err != nil {
			logger.Error().Err(err).Msg("read source list")
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		client := httpclient.New(httpclient.Options{
			Timeout:   cfg.FetchTimeout,
			UserAgent: cfg.UserAgent,
			PerHost:   cfg.FetchPerHost,
		})
		failed := 0
		for _, r := range health.CheckSources(ctx, client, urls, cfg.FetchConcurrency) {
			if r.OK() {
				fmt.Printf("OK    %s\n", r.URL)
				continue
			}
			failed++
			fmt.Printf("FAIL  %s  %v\n", r.URL, r.Err)
		}
		fmt.Printf("--- %d OK  |  %d failed ---\n", len(urls)-failed, failed)
		if failed > 0 {
			stop()
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

// newPipeline wires the run's collaborators from cfg.
func newPipeline(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	rules, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	client := httpclient.New(httpclient.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Rate:      rate.Limit(cfg.FetchRate),
		Burst:     cfg.FetchConcurrency,
		PerHost:   cfg.FetchPerHost,
	})
	opts := pipeline.Options{
		BlacklistFiles:    cfg.BlacklistFiles,
		WhitelistManual:   cfg.WhitelistManual,
		WhitelistMeasured: cfg.WhitelistMeasured,
		CorrectionsFile:   cfg.CorrectionsFile,
		SourcesFile:       cfg.SourcesFile,
		Rules:             rules,
		TopK:              cfg.TopK,
		Freshness:         registry.Latency(cfg.FreshnessMillis()),
		Encodings:         cfg.Encodings,
		FetchConcurrency:  cfg.FetchConcurrency,
		Probe:             cfg.ProbeEnabled,
		OthersFile:        cfg.OthersFile,
		VersionURL:        cfg.VersionURL,
		About:             cfg.AboutLine,
		Playlist:          playlistOptions(cfg),
		ExportDB:          cfg.ExportDB,
		MetricsFile:       cfg.MetricsFile,
	}
	p := pipeline.New(opts, fetch.NewHTTP(client), &output.Writer{Dir: cfg.OutputDir, Log: logger})
	if cfg.ProbeEnabled {
		p.Prober = probe.New(client, cfg.ProbeTimeout, cfg.ProbeConcurrency)
	}
	if cfg.Transliterate {
		cc, err := normalize.NewOpenCC("t2s", log.WithComponent("normalize"))
		if err != nil {
			logger.Warn().Err(err).Msg("t2s conversion unavailable; names are not transliterated")
		} else {
			p.Translit = cc
		}
	}
	if cfg.S3Bucket != "" {
		pub, err := publish.NewS3(ctx, publish.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3Endpoint != "",
		})
		if err != nil {
			return nil, err
		}
		p.Publisher = pub
	}
	return p, nil
}

// loadRules reads the rule file, or the built-in rules, and applies the
// environment overrides for unmatched names.
func loadRules(cfg *config.Config) (category.Config, error) {
	rules := category.DefaultRules()
	if cfg.RulesFile != "" {
		var err error
		if rules, err = category.LoadRules(cfg.RulesFile); err != nil {
			return category.Config{}, err
		}
	}
	if cfg.UnmatchedOther != "" {
		rules.Unmatched = category.UnmatchedPolicy(cfg.UnmatchedOther)
	}
	if cfg.OtherLabel != "" {
		rules.OtherLabel = cfg.OtherLabel
	}
	return rules, nil
}

func playlistOptions(cfg *config.Config) render.PlaylistOptions {
	return render.PlaylistOptions{GuideURL: cfg.GuideURL, LogoTemplate: cfg.LogoTemplate}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// urlsFromFile accepts a plain URL list or a "name,url" playlist; sections
// and comments are skipped.
func urlsFromFile(path string, encodings []string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _, err := ingest.Decode(data, encodings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var out []string
	for _, line := range ingest.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, render.GenreMarker) {
			continue
		}
		if l, err := ingest.ParseLine(line); err == nil {
			for _, alt := range normalize.SplitAlternates(l.Address) {
				if u := normalize.CleanURL(alt); u != "" {
					out = append(out, u)
				}
			}
			continue
		}
		if !strings.Contains(line, ",") {
			out = append(out, line)
		}
	}
	return out, nil
}
