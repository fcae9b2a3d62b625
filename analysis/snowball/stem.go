// Package snowball stems tokens with the Snowball stemmers.
package snowball

import (
	"strings"

	"github.com/kljensen/snowball"
	"github.com/op/go-logging"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/util"
)

var log = logging.MustGetLogger("analysis")

// Algorithms maps the accepted algorithm names to stemmer languages.
var Algorithms = map[string]string{
	"english":   "english",
	"porter":    "english",
	"french":    "french",
	"hungarian": "hungarian",
	"norwegian": "norwegian",
	"russian":   "russian",
	"spanish":   "spanish",
	"swedish":   "swedish",
}

// Charsets maps the accepted charset names to their encodings. UTF_8
// needs none.
var Charsets = map[string]encoding.Encoding{
	"UTF_8":      nil,
	"ISO_8859_1": charmap.ISO8859_1,
	"KOI8_R":     charmap.KOI8R,
}

/*
StemFilter replaces the text of every token by its stem. Token text is
expected in the filter's charset and the stem is written back in it.
*/
type StemFilter struct {
	*TokenFilter
	algorithm string
	charset   string
	language  string
	enc       encoding.Encoding
}

/*
Creates a stemmer for algorithm, such as "english", over text encoded in
charset, such as "UTF-8". Names are matched ignoring case, and '-' and
'_' are the same in charsets. An unknown pair is an error matching
util.ErrArgument.
*/
func NewStemFilter(in TokenStream, algorithm, charset string) (*StemFilter, error) {
	algorithm = strings.ToLower(algorithm)
	charset = strings.ReplaceAll(strings.ToUpper(charset), "-", "_")
	if charset == "" {
		charset = "UTF_8"
	}
	language, ok := Algorithms[algorithm]
	if !ok {
		return nil, util.Errorf(util.ErrArgument,
			"no stemmer for algorithm %q with charset %q", algorithm, charset)
	}
	enc, ok := Charsets[charset]
	if !ok {
		return nil, util.Errorf(util.ErrArgument,
			"no stemmer for algorithm %q with charset %q", algorithm, charset)
	}
	return &StemFilter{
		TokenFilter: NewTokenFilter(in),
		algorithm:   algorithm,
		charset:     charset,
		language:    language,
		enc:         enc,
	}, nil
}

func (f *StemFilter) Next() (*Token, error) {
	tk, err := f.Input.Next()
	if tk == nil || err != nil {
		return nil, err
	}
	word := tk.Text
	if f.enc != nil {
		if word, err = f.enc.NewDecoder().Bytes(word); err != nil {
			log.Warningf("Couldn't decode %q from %v, leaving it unstemmed: %v", tk.Text, f.charset, err)
			return tk, nil
		}
	}
	stem, err := snowball.Stem(string(word), f.language, true)
	if err != nil {
		return nil, util.WrapError(util.ErrArgument, err, "stemming %q", word)
	}
	out := []byte(stem)
	if f.enc != nil {
		if out, err = f.enc.NewEncoder().Bytes(out); err != nil {
			log.Warningf("Couldn't encode stem %q of %q to %v, leaving it unstemmed: %v", stem, word, f.charset, err)
			return tk, nil
		}
	}
	tk.SetText(out)
	return tk, nil
}

func (f *StemFilter) Clone() TokenStream {
	return &StemFilter{
		TokenFilter: NewTokenFilter(f.Input.Clone()),
		algorithm:   f.algorithm,
		charset:     f.charset,
		language:    f.language,
		enc:         f.enc,
	}
}
