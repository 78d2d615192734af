package normalize

import (
	"reflect"
	"testing"
)

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://a/b.m3u8", "http://a/b.m3u8"},
		{"http://a/b.m3u8$1080p", "http://a/b.m3u8"},
		{"http://a/$x/b$tag", "http://a/$x/b"},
		{"$only", ""},
		{"  http://a  ", "http://a"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanURL(tt.in); got != tt.want {
			t.Errorf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitAlternates(t *testing.T) {
	if got := SplitAlternates("http://a"); !reflect.DeepEqual(got, []string{"http://a"}) {
		t.Errorf("single: %v", got)
	}
	got := SplitAlternates("http://a#http://b#")
	want := []string{"http://a", "http://b", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
