/*
Package standard holds the general purpose tokenizers: StandardTokenizer,
which follows the word boundary rules of Unicode Standard Annex #29, and
LegacyTokenizer, a hand-written recognizer for e-mail addresses, URLs,
acronyms, company names and numbers.
*/
package standard

import (
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/op/go-logging"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/util"
)

var log = logging.MustGetLogger("analysis")

type span struct {
	start, end int
}

/*
A grammar-based tokenizer over UTF-8 text. Text is split at the word
boundaries of UAX #29 and every segment holding a letter or a digit
becomes a token. Words joined by a single '-', '@' or '&', as in
"e-mail", "me@example.com" or "AT&T", stay one token.

Text that is not valid UTF-8 is rejected by Reset with an error matching
util.ErrUnsupportedOperation.
*/
type StandardTokenizer struct {
	*Tokenizer
	segments []span
	next     int
}

func NewStandardTokenizer() *StandardTokenizer {
	return &StandardTokenizer{Tokenizer: NewTokenizer()}
}

func (t *StandardTokenizer) Reset(text string) error {
	t.segments = t.segments[:0]
	t.next = 0
	if !utf8.ValidString(text) {
		t.Tokenizer.Reset("")
		return util.Errorf(util.ErrUnsupportedOperation, "standard tokenizer only handles UTF-8 text")
	}
	t.Tokenizer.Reset(text)
	// segments partition the text, so offsets are running lengths
	pos := 0
	segs := words.FromString(text)
	for segs.Next() {
		n := len(segs.Value())
		t.segments = append(t.segments, span{pos, pos + n})
		pos += n
	}
	return nil
}

func (t *StandardTokenizer) isWord(i int) bool {
	if i >= len(t.segments) {
		return false
	}
	for _, r := range t.Text[t.segments[i].start:t.segments[i].end] {
		if DefaultClassifier.IsAlnum(r) {
			return true
		}
	}
	return false
}

func (t *StandardTokenizer) isJoiner(i int) bool {
	if i >= len(t.segments) {
		return false
	}
	s := t.segments[i]
	if s.end-s.start != 1 {
		return false
	}
	switch t.Text[s.start] {
	case '-', '@', '&':
		return true
	}
	return false
}

func (t *StandardTokenizer) Next() (*Token, error) {
	for t.next < len(t.segments) && !t.isWord(t.next) {
		t.next++
	}
	if t.next >= len(t.segments) {
		return nil, nil
	}
	first := t.next
	last := first
	for t.isJoiner(last+1) && t.isWord(last+2) {
		last += 2
	}
	t.next = last + 1
	start, end := t.segments[first].start, t.segments[last].end
	t.Pos = end
	return t.Emit(start, end), nil
}

func (t *StandardTokenizer) Clone() TokenStream {
	return &StandardTokenizer{
		Tokenizer: t.CloneTokenizer(),
		segments:  append([]span(nil), t.segments...),
		next:      t.next,
	}
}
