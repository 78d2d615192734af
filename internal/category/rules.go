package category

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchKind selects how a rule tests a channel name.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
)

// UnmatchedPolicy decides what happens to names no rule matches.
type UnmatchedPolicy string

const (
	UnmatchedOther UnmatchedPolicy = "other"
	UnmatchedDrop  UnmatchedPolicy = "drop"
)

// Other is the category key for unmatched names under UnmatchedOther.
const Other = "other"

// DefaultOtherLabel is the section label of the fallback category.
const DefaultOtherLabel = "其他频道"

// Rule is one entry of the ordered rule list. Exact rules match against
// Values plus the names listed in File; substring rules test whether the
// name contains any of them. Rules sharing a Category feed one bucket; the
// first rule for a category sets its Label, Zone and Lite flag.
type Rule struct {
	Category string    `yaml:"category"`
	Label    string    `yaml:"label,omitempty"`
	Match    MatchKind `yaml:"match"`
	Values   []string  `yaml:"values,omitempty"`
	File     string    `yaml:"file,omitempty"`
	Zone     string    `yaml:"zone,omitempty"`
	Lite     bool      `yaml:"lite,omitempty"`
}

// Config is the rule file.
type Config struct {
	Unmatched  UnmatchedPolicy `yaml:"unmatched,omitempty"`
	OtherLabel string          `yaml:"other_label,omitempty"`
	Rules      []Rule          `yaml:"rules"`
}

// ParseRules decodes a rule file strictly: unknown keys and trailing
// documents are errors.
func ParseRules(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, errors.New("rules: empty document")
		}
		return Config{}, fmt.Errorf("rules: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("rules: multiple documents or trailing content")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadRules reads a YAML rule file. Relative File and Zone paths resolve
// against the rule file's directory.
func LoadRules(path string) (Config, error) {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("rules: %w", err)
	}
	cfg, err := ParseRules(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Validate checks rule shape. Empty match values are rejected because a
// substring rule with "" would match every name.
func (c *Config) Validate() error {
	switch c.Unmatched {
	case "":
		c.Unmatched = UnmatchedOther
	case UnmatchedOther, UnmatchedDrop:
	default:
		return fmt.Errorf("rules: unmatched must be %q or %q, got %q", UnmatchedOther, UnmatchedDrop, c.Unmatched)
	}
	if c.OtherLabel == "" {
		c.OtherLabel = DefaultOtherLabel
	}
	if len(c.Rules) == 0 {
		return errors.New("rules: no rules")
	}
	for i, r := range c.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("rules[%d]: category is required", i)
		}
		if r.Category == Other {
			return fmt.Errorf("rules[%d]: category %q is reserved", i, Other)
		}
		if r.Match != MatchExact && r.Match != MatchSubstring {
			return fmt.Errorf("rules[%d] (%s): match must be %q or %q", i, r.Category, MatchExact, MatchSubstring)
		}
		if len(r.Values) == 0 && r.File == "" {
			return fmt.Errorf("rules[%d] (%s): values or file required", i, r.Category)
		}
		for _, v := range r.Values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("rules[%d] (%s): empty match value", i, r.Category)
			}
		}
	}
	return nil
}

func (c *Config) resolve(base string) {
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.File != "" && !filepath.IsAbs(r.File) {
			r.File = filepath.Join(base, r.File)
		}
		if r.Zone != "" && !filepath.IsAbs(r.Zone) {
			r.Zone = filepath.Join(base, r.Zone)
		}
	}
}

// WithBase returns a copy of c whose relative File and Zone paths resolve
// against base.
func (c Config) WithBase(base string) Config {
	c.Rules = append([]Rule(nil), c.Rules...)
	c.resolve(base)
	return c
}

// DefaultRules is the built-in rule set used when no rule file is
// configured. It needs no dictionary files.
func DefaultRules() Config {
	return Config{
		Unmatched:  UnmatchedOther,
		OtherLabel: DefaultOtherLabel,
		Rules: []Rule{
			{Category: "ys", Label: "央视频道", Match: MatchSubstring, Values: []string{"CCTV", "CETV", "CGTN"}, Lite: true},
			{Category: "ws", Label: "卫视频道", Match: MatchSubstring, Values: []string{"卫视"}, Lite: true},
			{Category: "sports", Label: "体育频道", Match: MatchSubstring, Values: []string{"体育", "足球", "篮球", "NBA", "赛事"}},
			{Category: "movie", Label: "电影频道", Match: MatchSubstring, Values: []string{"电影", "影院", "影视"}},
			{Category: "kids", Label: "少儿频道", Match: MatchSubstring, Values: []string{"少儿", "卡通", "动画", "动漫"}},
			{Category: "newtv", Label: "NewTV", Match: MatchSubstring, Values: []string{"NewTV"}},
			{Category: "ihot", Label: "iHOT", Match: MatchSubstring, Values: []string{"iHOT"}},
			{Category: "gat", Label: "港澳台", Match: MatchSubstring, Values: []string{"凤凰", "翡翠", "明珠", "TVB", "澳门", "台视", "华视", "中天", "东森"}},
			{Category: "local", Label: "地方频道", Match: MatchSubstring, Values: []string{"新闻综合", "都市", "公共", "经济", "生活", "综合"}},
		},
	}
}
