package normalize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCorrections(t *testing.T) {
	in := "CCTV1,CCTV1综合,CCTV-1综合\n\n湖南卫视,湖南台, 芒果台 \n,orphan\n"
	c, err := ParseCorrections(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"CCTV1综合":   "CCTV1",
		"CCTV-1综合": "CCTV1",
		"湖南台":      "湖南卫视",
		"芒果台":      "湖南卫视",
	}
	if len(c) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(c), len(want), c)
	}
	for k, v := range want {
		if c[k] != v {
			t.Errorf("c[%q] = %q, want %q", k, c[k], v)
		}
	}
}

func TestLoadCorrections_missing(t *testing.T) {
	if _, err := LoadCorrections(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCorrections_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections_name.txt")
	if err := os.WriteFile(path, []byte("CCTV5+,CCTV5PLUS\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCorrections(path)
	if err != nil {
		t.Fatal(err)
	}
	if c["CCTV5PLUS"] != "CCTV5+" {
		t.Errorf("got %v", c)
	}
}
