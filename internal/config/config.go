package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting of a merge run.
// Load from env; CLI flags override selected fields.
type Config struct {
	// Inputs
	AssetsDir         string
	BlacklistFiles    []string // "label,url" lines; url column used
	WhitelistManual   string   // "name,url" lines, no latency
	WhitelistMeasured string   // "123ms,name,url" lines, freshness-filtered
	CorrectionsFile   string   // "canonical,alias1,alias2"
	SourcesFile       string   // one remote URL per line
	RulesFile         string   // YAML category rules; "" = built-in rules

	// Outputs
	OutputDir      string
	OthersFile     bool   // write others.txt with unmatched lines per source
	ExportDB       string // SQLite snapshot path; "" = disabled
	MetricsFile    string // Prometheus textfile path; "" = disabled
	GuideURL       string
	LogoTemplate   string // "{name}" is replaced by the channel name
	VersionURL     string // appended to the timestamp line when set
	AboutLine      string // extra "name,url" line in the update-time section
	UnmatchedOther string // "" = use rules file; "other" | "drop"
	OtherLabel     string

	// Ranking
	TopK      int
	Freshness time.Duration // measured-feed cutoff

	// Fetching
	Encodings        []string
	UserAgent        string
	FetchTimeout     time.Duration
	FetchConcurrency int
	FetchRate        float64 // requests/second across hosts; 0 = unpaced
	FetchPerHost     int

	// Probing Unknown-latency candidates
	ProbeEnabled     bool
	ProbeTimeout     time.Duration
	ProbeConcurrency int

	Transliterate bool // traditional -> simplified before cleaning names

	// Publishing
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string

	LogLevel   string
	LogConsole bool
	RunTimeout time.Duration // 0 = no deadline
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load() to use a .env file.
// Relative input paths resolve against AssetsDir.
func Load() *Config {
	assets := getEnv("IPTV_MERGE_ASSETS", "assets")
	lists := filepath.Join(assets, "whitelist-blacklist")
	c := &Config{
		AssetsDir: assets,
		BlacklistFiles: getEnvList("IPTV_MERGE_BLACKLISTS", []string{
			filepath.Join(lists, "blacklist_auto.txt"),
			filepath.Join(lists, "blacklist_manual.txt"),
		}),
		WhitelistManual:   getEnv("IPTV_MERGE_WHITELIST", filepath.Join(lists, "whitelist_manual.txt")),
		WhitelistMeasured: getEnv("IPTV_MERGE_WHITELIST_MEASURED", filepath.Join(lists, "whitelist_auto.txt")),
		CorrectionsFile:   getEnv("IPTV_MERGE_CORRECTIONS", filepath.Join(assets, "corrections_name.txt")),
		SourcesFile:       getEnv("IPTV_MERGE_SOURCES", filepath.Join(assets, "urls.txt")),
		RulesFile:         os.Getenv("IPTV_MERGE_RULES"),

		OutputDir:      getEnv("IPTV_MERGE_OUTPUT_DIR", "."),
		OthersFile:     getEnvBool("IPTV_MERGE_OTHERS_FILE", true),
		ExportDB:       os.Getenv("IPTV_MERGE_EXPORT_DB"),
		MetricsFile:    os.Getenv("IPTV_MERGE_METRICS_FILE"),
		GuideURL:       getEnv("IPTV_MERGE_GUIDE_URL", "https://epg.112114.xyz/pp.xml.gz"),
		LogoTemplate:   getEnv("IPTV_MERGE_LOGO_TEMPLATE", "https://epg.112114.xyz/logo/{name}.png"),
		VersionURL:     os.Getenv("IPTV_MERGE_VERSION_URL"),
		AboutLine:      os.Getenv("IPTV_MERGE_ABOUT"),
		UnmatchedOther: strings.ToLower(strings.TrimSpace(os.Getenv("IPTV_MERGE_UNMATCHED"))),
		OtherLabel:     os.Getenv("IPTV_MERGE_OTHER_LABEL"),

		TopK:      getEnvInt("IPTV_MERGE_TOP_K", 5),
		Freshness: getEnvDuration("IPTV_MERGE_FRESHNESS", 2*time.Second),

		Encodings:        getEnvList("IPTV_MERGE_ENCODINGS", []string{"utf-8", "gbk", "iso-8859-1"}),
		UserAgent:        getEnv("IPTV_MERGE_USER_AGENT", "PostmanRuntime-ApipostRuntime/1.1.0"),
		FetchTimeout:     getEnvDuration("IPTV_MERGE_FETCH_TIMEOUT", 10*time.Second),
		FetchConcurrency: getEnvInt("IPTV_MERGE_FETCH_CONCURRENCY", 4),
		FetchRate:        getEnvFloat("IPTV_MERGE_FETCH_RATE", 0),
		FetchPerHost:     getEnvInt("IPTV_MERGE_FETCH_PER_HOST", 2),

		ProbeEnabled:     getEnvBool("IPTV_MERGE_PROBE", false),
		ProbeTimeout:     getEnvDuration("IPTV_MERGE_PROBE_TIMEOUT", 8*time.Second),
		ProbeConcurrency: getEnvInt("IPTV_MERGE_PROBE_CONCURRENCY", 8),

		Transliterate: getEnvBool("IPTV_MERGE_T2S", true),

		S3Bucket:   os.Getenv("IPTV_MERGE_S3_BUCKET"),
		S3Prefix:   os.Getenv("IPTV_MERGE_S3_PREFIX"),
		S3Region:   os.Getenv("IPTV_MERGE_S3_REGION"),
		S3Endpoint: os.Getenv("IPTV_MERGE_S3_ENDPOINT"),

		LogLevel:   getEnv("IPTV_MERGE_LOG_LEVEL", "info"),
		LogConsole: getEnvBool("IPTV_MERGE_LOG_CONSOLE", false),
		RunTimeout: getEnvDuration("IPTV_MERGE_RUN_TIMEOUT", 0),
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.Freshness <= 0 {
		c.Freshness = 2 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	if c.ProbeConcurrency <= 0 {
		c.ProbeConcurrency = 8
	}
	return c
}

// Validate rejects settings Load cannot repair.
func (c *Config) Validate() error {
	switch c.UnmatchedOther {
	case "", "other", "drop":
	default:
		return fmt.Errorf("IPTV_MERGE_UNMATCHED must be \"other\" or \"drop\", got %q", c.UnmatchedOther)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir is required")
	}
	if c.FetchRate < 0 {
		return fmt.Errorf("IPTV_MERGE_FETCH_RATE must be >= 0")
	}
	return nil
}

// FreshnessMillis is the measured-feed cutoff in milliseconds.
func (c *Config) FreshnessMillis() float64 {
	return float64(c.Freshness) / float64(time.Millisecond)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("2s") or bare milliseconds ("2000").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond))
	}
	return defaultVal
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
