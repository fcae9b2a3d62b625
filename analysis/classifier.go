package analysis

import (
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

/*
CharClassifier decides which characters tokenizers treat as spaces,
letters and digits, and how text is folded to lower case.
*/
type CharClassifier interface {
	IsSpace(r rune) bool
	IsLetter(r rune) bool
	IsDigit(r rune) bool
	IsAlnum(r rune) bool
	// Appends the lower case form of UTF-8 text to dst.
	AppendLower(dst, text []byte) []byte
}

// The classifier used by the tokenizers and filters of this module.
var DefaultClassifier CharClassifier = unicodeClassifier{}

var lowerPool = sync.Pool{
	New: func() interface{} {
		c := cases.Lower(language.Und)
		return &c
	},
}

type unicodeClassifier struct{}

func (unicodeClassifier) IsSpace(r rune) bool  { return unicode.IsSpace(r) }
func (unicodeClassifier) IsLetter(r rune) bool { return unicode.IsLetter(r) }
func (unicodeClassifier) IsDigit(r rune) bool  { return unicode.IsDigit(r) }

func (unicodeClassifier) IsAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (unicodeClassifier) AppendLower(dst, text []byte) []byte {
	ascii := true
	for _, c := range text {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		for _, c := range text {
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			dst = append(dst, c)
		}
		return dst
	}
	caser := lowerPool.Get().(*cases.Caser)
	defer lowerPool.Put(caser)
	caser.Reset()
	return append(dst, caser.Bytes(text)...)
}
