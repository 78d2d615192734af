package normalize

import (
	"github.com/liuzl/gocc"
	"github.com/rs/zerolog"
)

// Transliterator rewrites text between script variants (traditional ->
// simplified Chinese). Implementations must never fail; on error they return
// the input unchanged.
type Transliterator interface {
	Transliterate(text string) string
}

// Identity is a Transliterator that returns its input.
type Identity struct{}

func (Identity) Transliterate(text string) string { return text }

// OpenCC adapts a gocc converter.
type OpenCC struct {
	cc  *gocc.OpenCC
	log zerolog.Logger
}

// NewOpenCC loads the named OpenCC conversion (e.g. "t2s").
func NewOpenCC(conversion string, log zerolog.Logger) (*OpenCC, error) {
	cc, err := gocc.New(conversion)
	if err != nil {
		return nil, err
	}
	return &OpenCC{cc: cc, log: log}, nil
}

func (o *OpenCC) Transliterate(text string) string {
	out, err := o.cc.Convert(text)
	if err != nil {
		o.log.Debug().Err(err).Str("text", text).Msg("transliterate failed; keeping input")
		return text
	}
	return out
}
