package core

import (
	"unicode/utf8"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/util/mapper"
)

// Normalizes token text to lower case.
type LowerCaseFilter struct {
	*TokenFilter
	buf []byte
}

func NewLowerCaseFilter(in TokenStream) *LowerCaseFilter {
	return &LowerCaseFilter{TokenFilter: NewTokenFilter(in)}
}

func (f *LowerCaseFilter) Next() (*Token, error) {
	tk, err := f.Input.Next()
	if tk == nil || err != nil {
		return nil, err
	}
	f.buf = DefaultClassifier.AppendLower(f.buf[:0], tk.Text)
	tk.SetText(f.buf)
	return tk, nil
}

func (f *LowerCaseFilter) Clone() TokenStream {
	return NewLowerCaseFilter(f.Input.Clone())
}

// An unmodifiable set containing some common English words that are not
// usually useful for searching.
var EnglishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by",
	"for", "if", "in", "into", "is", "it",
	"no", "not", "of", "on", "or", "s", "such",
	"t", "that", "the", "their", "then", "there", "these",
	"they", "this", "to", "was", "will", "with",
}

/*
Removes stop words from a token stream. The position increments of
removed tokens are added to the next token kept, so phrase distances
across a removed word are preserved.
*/
type StopFilter struct {
	*TokenFilter
	stopWords map[string]bool
}

func NewStopFilter(in TokenStream, stopWords []string) *StopFilter {
	set := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		set[w] = true
	}
	return &StopFilter{TokenFilter: NewTokenFilter(in), stopWords: set}
}

func (f *StopFilter) Next() (*Token, error) {
	skippedPositions := 0
	for {
		tk, err := f.Input.Next()
		if tk == nil || err != nil {
			return nil, err
		}
		if !f.stopWords[string(tk.Text)] {
			tk.PosInc += skippedPositions
			return tk, nil
		}
		skippedPositions += tk.PosInc
	}
}

// Clones share the stop word set, which is never modified.
func (f *StopFilter) Clone() TokenStream {
	return &StopFilter{TokenFilter: NewTokenFilter(f.Input.Clone()), stopWords: f.stopWords}
}

/*
MappingFilter rewrites the text of every token through a MultiMapper, for
example to fold accented letters to plain ones. Mapped text is cut to the
maximum token size.
*/
type MappingFilter struct {
	*TokenFilter
	mapper *mapper.MultiMapper
	buf    [MaxWordSize - 1]byte
}

// NewMappingFilter creates a filter over m, or over a new empty mapper if
// m is nil.
func NewMappingFilter(in TokenStream, m *mapper.MultiMapper) *MappingFilter {
	if m == nil {
		m = mapper.New()
	}
	return &MappingFilter{TokenFilter: NewTokenFilter(in), mapper: m}
}

// Add adds a rule to the filter's mapper, which clones share.
func (f *MappingFilter) Add(pattern, replacement string) error {
	return f.mapper.Add(pattern, replacement)
}

func (f *MappingFilter) Mapper() *mapper.MultiMapper {
	return f.mapper
}

func (f *MappingFilter) Next() (*Token, error) {
	tk, err := f.Input.Next()
	if tk == nil || err != nil {
		return nil, err
	}
	n := f.mapper.Map(f.buf[:], tk.Text)
	text := f.buf[:n]
	// a replacement cut at the limit may end mid rune
	for len(text) > 0 && !utf8.FullRune(tailRune(text)) {
		text = text[:len(text)-1]
	}
	tk.SetText(text)
	return tk, nil
}

// The bytes of text from the start of its last rune.
func tailRune(text []byte) []byte {
	i := len(text) - 1
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return text[i:]
}

func (f *MappingFilter) Clone() TokenStream {
	return &MappingFilter{TokenFilter: NewTokenFilter(f.Input.Clone()), mapper: f.mapper}
}

/*
HyphenFilter indexes hyphenated words both whole and in parts. A token of
letters joined by hyphens, such as "set-up", is emitted first with the
hyphens removed ("setup") and then once per part ("set", "up"). The
first part has a position increment of 0 so it shares the position of
the joined form; later parts follow at increment 1. Empty parts are
skipped.
*/
type HyphenFilter struct {
	*TokenFilter
	tk     *Token
	parts  []byte // the original text, parts still to emit
	start  int    // offset of the original token
	pos    int    // offset of the next part within parts
	first  bool   // no part emitted yet
	joined []byte
}

func NewHyphenFilter(in TokenStream) *HyphenFilter {
	return &HyphenFilter{TokenFilter: NewTokenFilter(in)}
}

func (f *HyphenFilter) Reset(text string) error {
	f.parts = f.parts[:0]
	f.pos = 0
	return f.TokenFilter.Reset(text)
}

func (f *HyphenFilter) Next() (*Token, error) {
	for f.pos < len(f.parts) {
		pos := f.pos
		end := pos
		for end < len(f.parts) && f.parts[end] != '-' {
			end++
		}
		f.pos = end + 1
		if end == pos {
			continue
		}
		posInc := 1
		if f.first {
			posInc, f.first = 0, false
		}
		return f.tk.Set(f.parts[pos:end], f.start+pos, f.start+end, posInc), nil
	}
	f.parts = f.parts[:0]

	tk, err := f.Input.Next()
	if tk == nil || err != nil {
		return nil, err
	}
	if !isHyphenated(tk.Text) {
		return tk, nil
	}
	f.tk = tk
	f.parts = append(f.parts[:0], tk.Text...)
	f.start = tk.Start
	f.pos = 0
	f.first = true
	f.joined = f.joined[:0]
	for _, c := range f.parts {
		if c != '-' {
			f.joined = append(f.joined, c)
		}
	}
	tk.SetText(f.joined)
	return tk, nil
}

// Reports whether text is letters and hyphens with at least one hyphen
// after the first character.
func isHyphenated(text []byte) bool {
	_, size := utf8.DecodeRune(text)
	seenHyphen := false
	for i := size; i < len(text); {
		r, n := utf8.DecodeRune(text[i:])
		if r == '-' {
			seenHyphen = true
		} else if !DefaultClassifier.IsLetter(r) {
			return false
		}
		i += n
	}
	return seenHyphen
}

// The clone resumes with the parts of the current word still to emit.
func (f *HyphenFilter) Clone() TokenStream {
	ans := NewHyphenFilter(f.Input.Clone())
	if f.pos < len(f.parts) {
		ans.tk = new(Token)
		ans.parts = append([]byte(nil), f.parts...)
		ans.start, ans.pos, ans.first = f.start, f.pos, f.first
	}
	return ans
}
