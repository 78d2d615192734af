package config

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	t.Setenv("IPTV_MERGE_ASSETS", "")
	c := Load()
	if c.TopK != 5 || c.Freshness != 2*time.Second || c.FetchTimeout != 10*time.Second {
		t.Errorf("ranking/fetch defaults: %+v", c)
	}
	if c.FreshnessMillis() != 2000 {
		t.Errorf("FreshnessMillis = %v", c.FreshnessMillis())
	}
	want := []string{
		filepath.Join("assets", "whitelist-blacklist", "blacklist_auto.txt"),
		filepath.Join("assets", "whitelist-blacklist", "blacklist_manual.txt"),
	}
	if !reflect.DeepEqual(c.BlacklistFiles, want) {
		t.Errorf("BlacklistFiles = %v", c.BlacklistFiles)
	}
	if !reflect.DeepEqual(c.Encodings, []string{"utf-8", "gbk", "iso-8859-1"}) {
		t.Errorf("Encodings = %v", c.Encodings)
	}
	if !c.OthersFile || !c.Transliterate || c.ProbeEnabled {
		t.Errorf("bool defaults: others=%v t2s=%v probe=%v", c.OthersFile, c.Transliterate, c.ProbeEnabled)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_env(t *testing.T) {
	t.Setenv("IPTV_MERGE_ASSETS", "/data")
	t.Setenv("IPTV_MERGE_TOP_K", "3")
	t.Setenv("IPTV_MERGE_FRESHNESS", "1500")
	t.Setenv("IPTV_MERGE_ENCODINGS", "gb18030, utf-8,,")
	t.Setenv("IPTV_MERGE_PROBE", "yes")
	t.Setenv("IPTV_MERGE_FETCH_RATE", "2.5")
	t.Setenv("IPTV_MERGE_UNMATCHED", " DROP ")
	c := Load()
	if c.TopK != 3 || c.Freshness != 1500*time.Millisecond || c.FetchRate != 2.5 || !c.ProbeEnabled {
		t.Errorf("env overrides: %+v", c)
	}
	if c.SourcesFile != filepath.Join("/data", "urls.txt") {
		t.Errorf("SourcesFile = %q", c.SourcesFile)
	}
	if !reflect.DeepEqual(c.Encodings, []string{"gb18030", "utf-8"}) {
		t.Errorf("Encodings = %v", c.Encodings)
	}
	if c.UnmatchedOther != "drop" {
		t.Errorf("UnmatchedOther = %q", c.UnmatchedOther)
	}
}

func TestLoad_clampsNonPositive(t *testing.T) {
	t.Setenv("IPTV_MERGE_TOP_K", "0")
	t.Setenv("IPTV_MERGE_FETCH_CONCURRENCY", "-1")
	t.Setenv("IPTV_MERGE_FRESHNESS", "garbage")
	c := Load()
	if c.TopK != 5 || c.FetchConcurrency != 4 || c.Freshness != 2*time.Second {
		t.Errorf("clamped: k=%d conc=%d fresh=%v", c.TopK, c.FetchConcurrency, c.Freshness)
	}
}

func TestValidate(t *testing.T) {
	c := Load()
	c.UnmatchedOther = "keep"
	if err := c.Validate(); err == nil {
		t.Error("expected error for bad unmatched policy")
	}
	c = Load()
	c.FetchRate = -1
	if err := c.Validate(); err == nil {
		t.Error("expected error for negative rate")
	}
}
