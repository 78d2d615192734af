package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile_missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nonexistent")); err != nil {
		t.Fatalf("missing file should return nil: %v", err)
	}
}

func TestLoadEnvFile_setsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("IPTV_MERGE_T_FOO=bar\n# comment\nIPTV_MERGE_T_QUOTED=\"hello world\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IPTV_MERGE_T_FOO", "")
	os.Unsetenv("IPTV_MERGE_T_FOO")
	t.Setenv("IPTV_MERGE_T_QUOTED", "")
	os.Unsetenv("IPTV_MERGE_T_QUOTED")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("IPTV_MERGE_T_FOO"); got != "bar" {
		t.Errorf("FOO = %q", got)
	}
	if got := os.Getenv("IPTV_MERGE_T_QUOTED"); got != "hello world" {
		t.Errorf("QUOTED = %q", got)
	}
}

func TestLoadEnvFile_existingWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("IPTV_MERGE_T_KEEP=file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("IPTV_MERGE_T_KEEP", "env")
	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("IPTV_MERGE_T_KEEP"); got != "env" {
		t.Errorf("KEEP = %q, want env", got)
	}
}
