package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrUndecodable is returned when no candidate encoding decodes a payload.
var ErrUndecodable = errors.New("no candidate encoding decodes payload")

// DefaultEncodings is the order payload encodings are tried in.
var DefaultEncodings = []string{"utf-8", "gbk", "iso-8859-1"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns data as text using the first encoding in encodings that
// decodes it without errors, plus the label that succeeded. Unknown labels
// are skipped.
func Decode(data []byte, encodings []string) (string, string, error) {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	for _, label := range encodings {
		label = strings.ToLower(strings.TrimSpace(label))
		if isUTF8Label(label) {
			if utf8.Valid(data) {
				return string(bytes.TrimPrefix(data, utf8BOM)), label, nil
			}
			continue
		}
		enc := lookup(label)
		if enc == nil {
			continue
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), label, nil
	}
	return "", "", fmt.Errorf("%w (tried %s)", ErrUndecodable, strings.Join(encodings, ","))
}

func isUTF8Label(label string) bool {
	return label == "utf-8" || label == "utf8"
}

// lookup pins the labels whose WHATWG aliases differ from their strict
// meaning (browsers treat iso-8859-1 as windows-1252 and gbk as gb18030) and
// resolves everything else through the HTML charset table.
func lookup(label string) encoding.Encoding {
	switch label {
	case "gbk", "cp936":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1
	}
	enc, _ := charset.Lookup(label)
	return enc
}
