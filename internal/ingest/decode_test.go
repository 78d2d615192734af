package ingest

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestDecode_utf8(t *testing.T) {
	text, enc, err := Decode([]byte("\xEF\xBB\xBFCCTV1,http://a\n湖南卫视,http://b"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if enc != "utf-8" || text != "CCTV1,http://a\n湖南卫视,http://b" {
		t.Errorf("got (%q, %q)", text, enc)
	}
}

func TestDecode_gbkFallback(t *testing.T) {
	raw, err := simplifiedchinese.GBK.NewEncoder().String("湖南卫视,http://b")
	if err != nil {
		t.Fatal(err)
	}
	text, enc, err := Decode([]byte(raw), DefaultEncodings)
	if err != nil {
		t.Fatal(err)
	}
	if enc != "gbk" || text != "湖南卫视,http://b" {
		t.Errorf("got (%q, %q)", text, enc)
	}
}

func TestDecode_latin1AcceptsAnything(t *testing.T) {
	// 0xFF is a lone lead byte: invalid UTF-8 and an incomplete GBK sequence
	text, enc, err := Decode([]byte{'a', 0xFF}, DefaultEncodings)
	if err != nil {
		t.Fatal(err)
	}
	if enc != "iso-8859-1" || text != "aÿ" {
		t.Errorf("got (%q, %q)", text, enc)
	}
}

func TestDecode_undecodable(t *testing.T) {
	_, _, err := Decode([]byte{0xFF, 0xFE, 0xFD}, []string{"utf-8", "no-such-charset"})
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("err = %v, want ErrUndecodable", err)
	}
}

func TestDecode_charsetLabel(t *testing.T) {
	// windows-1251 is only reachable through the HTML charset table
	text, enc, err := Decode([]byte{0xCF, 0xE5, 0xF0, 0xE2, 0xFB, 0xE9}, []string{"utf-8", "windows-1251"})
	if err != nil {
		t.Fatal(err)
	}
	if enc != "windows-1251" || text != "Первый" {
		t.Errorf("got (%q, %q)", text, enc)
	}
}
