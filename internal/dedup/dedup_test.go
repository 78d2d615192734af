package dedup

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSet_Check(t *testing.T) {
	s := New([]string{"http://bad/1", ""})
	tests := []struct {
		url  string
		want Verdict
	}{
		{"", RejectEmpty},
		{"http://bad/1", RejectBlacklisted},
		{"http://ok/1", Accepted},
		{"http://ok/1", RejectDuplicate},
		{"http://ok/2", Accepted},
		{"http://bad/1", RejectBlacklisted},
	}
	for i, tt := range tests {
		if got := s.Check(tt.url); got != tt.want {
			t.Errorf("#%d Check(%q) = %v, want %v", i, tt.url, got, tt.want)
		}
	}
	if s.SeenLen() != 2 {
		t.Errorf("SeenLen = %d, want 2", s.SeenLen())
	}
	if s.BlacklistLen() != 1 {
		t.Errorf("BlacklistLen = %d, want 1", s.BlacklistLen())
	}
}

func TestSet_AcceptSecondTimeFalse(t *testing.T) {
	s := New(nil)
	if !s.Accept("http://x") {
		t.Fatal("first Accept should succeed")
	}
	if s.Accept("http://x") {
		t.Fatal("second Accept should fail")
	}
}

func TestSet_blacklistedNeverSeen(t *testing.T) {
	s := New([]string{"http://bad"})
	s.Accept("http://bad")
	if s.SeenLen() != 0 {
		t.Fatalf("blacklisted URL recorded as seen")
	}
	if !s.Blacklisted("http://bad") || s.Blacklisted("http://good") {
		t.Fatal("Blacklisted mismatch")
	}
}

func TestSet_concurrentAcceptOnce(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Accept("http://same") {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("accepted %d times, want 1", accepted)
	}
}

func TestParseBlacklist(t *testing.T) {
	in := "CCTV1,http://bad/1\nno comma here\n湖南卫视, http://bad/2 ,extra\n,\n"
	got, err := ParseBlacklist(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "http://bad/1" || got[1] != "http://bad/2" {
		t.Fatalf("got %v", got)
	}
}

func TestLoadBlacklist_merge(t *testing.T) {
	dir := t.TempDir()
	auto := filepath.Join(dir, "blacklist_auto.txt")
	manual := filepath.Join(dir, "blacklist_manual.txt")
	if err := os.WriteFile(auto, []byte("a,http://1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(manual, []byte("b,http://2\nc,http://1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	urls, err := LoadBlacklist(auto, manual)
	if err != nil {
		t.Fatal(err)
	}
	if n := New(urls).BlacklistLen(); n != 2 {
		t.Fatalf("BlacklistLen = %d, want 2", n)
	}
	if _, err := LoadBlacklist(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
