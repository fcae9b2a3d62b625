package core

import (
	"unicode/utf8"

	. "github.com/balzaczyy/segstore/analysis"
)

/*
CharTokenizer emits maximal runs of characters accepted by isTokenChar,
optionally folding them to lower case as it goes.
*/
type CharTokenizer struct {
	*Tokenizer
	isTokenChar func(r rune) bool
	lower       bool
	buf         []byte
}

func newCharTokenizer(isTokenChar func(r rune) bool, lower bool) *CharTokenizer {
	return &CharTokenizer{
		Tokenizer:   NewTokenizer(),
		isTokenChar: isTokenChar,
		lower:       lower,
	}
}

// Splits on runs of white space.
func NewWhitespaceTokenizer(lower bool) *CharTokenizer {
	return newCharTokenizer(func(r rune) bool {
		return !DefaultClassifier.IsSpace(r)
	}, lower)
}

// Splits on runs of anything but letters.
func NewLetterTokenizer(lower bool) *CharTokenizer {
	return newCharTokenizer(DefaultClassifier.IsLetter, lower)
}

func (t *CharTokenizer) Next() (*Token, error) {
	text := t.Text
	pos := t.Pos
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if t.isTokenChar(r) {
			break
		}
		pos += size
	}
	if pos >= len(text) {
		t.Pos = pos
		return nil, nil
	}
	start := pos
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !t.isTokenChar(r) {
			break
		}
		pos += size
	}
	t.Pos = pos
	if !t.lower {
		return t.Emit(start, pos), nil
	}
	t.buf = DefaultClassifier.AppendLower(t.buf[:0], []byte(text[start:pos]))
	return t.Token.Set(t.buf, start, pos, 1), nil
}

func (t *CharTokenizer) Clone() TokenStream {
	return &CharTokenizer{
		Tokenizer:   t.CloneTokenizer(),
		isTokenChar: t.isTokenChar,
		lower:       t.lower,
	}
}

// NonTokenizer emits the whole text as one token.
type NonTokenizer struct {
	*Tokenizer
}

func NewNonTokenizer() *NonTokenizer {
	return &NonTokenizer{NewTokenizer()}
}

func (t *NonTokenizer) Next() (*Token, error) {
	if t.Pos > 0 || len(t.Text) == 0 {
		return nil, nil
	}
	t.Pos = len(t.Text)
	return t.Emit(0, len(t.Text)), nil
}

func (t *NonTokenizer) Clone() TokenStream {
	return &NonTokenizer{t.CloneTokenizer()}
}
