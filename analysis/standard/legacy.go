package standard

import (
	. "github.com/balzaczyy/segstore/analysis"
)

func isAlpha(r rune) bool {
	return r != 0 && DefaultClassifier.IsLetter(r)
}

func isDigit(r rune) bool {
	return r != 0 && DefaultClassifier.IsDigit(r)
}

func isAlnum(r rune) bool {
	return r != 0 && DefaultClassifier.IsAlnum(r)
}

func isNumPunc(r rune) bool {
	switch r {
	case '.', ',', '\\', '/', '_', '-':
		return true
	}
	return false
}

func isURLPunc(r rune) bool {
	switch r {
	case '.', '/', '-', '_':
		return true
	}
	return false
}

func isURLChar(r rune) bool {
	return isURLPunc(r) || isAlnum(r)
}

func isURLXAtPunc(r rune) bool {
	return isURLPunc(r) || r == '@' || r == '&'
}

func isURLXAtChar(r rune) bool {
	return isURLXAtPunc(r) || isAlnum(r)
}

// Characters that may continue a token past its leading alnum run.
func isTokChar(r rune) bool {
	switch r {
	case '&', '@', '\'', ':':
		return true
	}
	return isAlnum(r) || isNumPunc(r)
}

var knownSchemes = map[string]bool{
	"ftp":   true,
	"http":  true,
	"https": true,
	"file":  true,
}

/*
LegacyTokenizer recognizes, in order of precedence at each token start:

 1. a plain run of letters and digits;
 2. a word with apostrophes, with a trailing "'s" or "'" left out of the
    text (but not the offsets), so "Dave's" gives "Dave";
 3. a company name such as "AT&T" or "Excite@Home";
 4. a number such as "3.14" or "123-1235-ASD-1234": alnum groups joined
    by single punctuation characters, with a digit at most two groups
    back;
 5. a URL with a known scheme, emitted without "scheme://";
 6. a host name, path, e-mail address or acronym. Acronyms such as
    "U.S.A." are emitted without their dots.

Trailing punctuation is never part of a token.
*/
type LegacyTokenizer struct {
	*Tokenizer
	runes []rune
	offs  []int // byte offset of each rune, then len(Text)
	at    int   // rune index of the scan
	buf   []rune
}

func NewLegacyTokenizer() *LegacyTokenizer {
	return &LegacyTokenizer{Tokenizer: NewTokenizer()}
}

func (t *LegacyTokenizer) Reset(text string) error {
	t.Tokenizer.Reset(text)
	t.runes, t.offs = t.runes[:0], t.offs[:0]
	for i, r := range text {
		t.runes = append(t.runes, r)
		t.offs = append(t.offs, i)
	}
	t.offs = append(t.offs, len(text))
	t.at = 0
	return nil
}

// The rune at i, or 0 outside the text.
func (t *LegacyTokenizer) c(i int) rune {
	if i < 0 || i >= len(t.runes) {
		return 0
	}
	return t.runes[i]
}

func (t *LegacyTokenizer) advanceToStart() bool {
	i := t.at
	for i < len(t.runes) && !isAlnum(t.runes[i]) {
		if isNumPunc(t.runes[i]) && isDigit(t.c(i+1)) {
			break
		}
		i++
	}
	t.at = i
	return i < len(t.runes)
}

// Sets the token to the runes [from, to) at offsets [start, end).
func (t *LegacyTokenizer) emit(from, to, start, end int) *Token {
	t.Pos = t.offs[end]
	return t.Token.SetString(t.Text[t.offs[from]:t.offs[to]], t.offs[start], t.offs[end], 1)
}

func (t *LegacyTokenizer) Next() (*Token, error) {
	for t.advanceToStart() {
		if tk := t.scan(); tk != nil {
			return tk, nil
		}
	}
	t.Pos = len(t.Text)
	return nil, nil
}

func (t *LegacyTokenizer) scan() *Token {
	start := t.at
	i := start
	for isAlnum(t.c(i)) {
		i++
	}
	alnumEnd := i

	if !isTokChar(t.c(i)) {
		t.at = i
		return t.emit(start, i, start, i)
	}

	if t.c(i) == '\'' {
		for isAlpha(t.c(i)) || t.c(i) == '\'' {
			i++
		}
		t.at = i
		switch {
		case (t.c(i-1) == 's' || t.c(i-1) == 'S') && t.c(i-2) == '\'':
			return t.emit(start, i-2, start, i)
		case t.c(i-1) == '\'':
			return t.emit(start, i-1, start, i)
		}
		return t.emit(start, i, start, i)
	}

	if t.c(i) == '&' {
		for isAlpha(t.c(i)) || t.c(i) == '@' || t.c(i) == '&' {
			i++
		}
		for t.c(i-1) == '@' || t.c(i-1) == '&' {
			i--
		}
		t.at = i
		return t.emit(start, i, start, i)
	}

	numEnd := -1
	if r := t.c(start); isDigit(r) || isNumPunc(r) {
		if n := t.number(start); n > 0 {
			numEnd = start + n
			if !isTokChar(t.c(numEnd)) {
				t.at = numEnd
				return t.emit(start, numEnd, start, numEnd)
			}
		}
	}

	if t.c(i) == ':' && t.c(i+1) == '/' && t.c(i+2) == '/' {
		scheme := string(t.runes[start:alnumEnd])
		i += 3
		for t.c(i) == '/' {
			i++
		}
		from := start
		if isAlpha(t.c(i)) && knownSchemes[scheme] {
			from = i
		}
		end, next := t.url(from, i)
		t.at = next
		return t.emit(from, end, start, next)
	}

	isAcronym := true
	seenAt := false
	for isURLXAtChar(t.c(i)) {
		r := t.c(i)
		if isAcronym && !isAlpha(r) && r != '.' {
			isAcronym = false
		}
		if isURLXAtPunc(r) && isURLXAtPunc(t.c(i-1)) {
			break
		}
		if r == '@' {
			if seenAt {
				break
			}
			seenAt = true
		}
		i++
	}
	for i > start && isURLXAtPunc(t.c(i-1)) {
		i--
	}

	if i <= start && numEnd < 0 {
		log.Warningf("Encoding error at offset %v; check that the input is UTF-8", t.offs[start])
		t.at = start + 1
		return nil
	}
	if numEnd >= 0 && i <= numEnd {
		t.at = numEnd
		return t.emit(start, numEnd, start, numEnd)
	}

	t.at = i
	if isAcronym {
		for s := start; s < i-1; s++ {
			if isAlpha(t.c(s)) && t.c(s+1) != '.' {
				isAcronym = false
				break
			}
		}
	}
	if !isAcronym {
		return t.emit(start, i, start, i)
	}
	t.buf = append(t.buf[:0], t.runes[start:alnumEnd]...)
	for s := alnumEnd; s < i; s++ {
		if t.runes[s] != '.' {
			t.buf = append(t.buf, t.runes[s])
		}
	}
	t.Pos = t.offs[i]
	return t.Token.SetString(string(t.buf), t.offs[start], t.offs[i], 1)
}

/*
Scans a URL from rune i, whose text starts at from. Two punctuation
characters in a row end it. Returns the end of the text, with trailing
punctuation and a bare "scheme:" colon stripped, and the end of the scan.
*/
func (t *LegacyTokenizer) url(from, i int) (end, next int) {
	for isURLChar(t.c(i)) {
		if isURLPunc(t.c(i)) && isURLPunc(t.c(i-1)) {
			break
		}
		i++
	}
	next = i
	for i > from && (isURLPunc(t.c(i-1)) || t.c(i-1) == ':') {
		i--
	}
	return i, next
}

/*
Returns the length in runes of the number starting at rune start: alnum
groups separated by single numeric punctuation characters, where every
group is at most two groups after one holding a digit. Returns 0 if
there is no digit at all.
*/
func (t *LegacyTokenizer) number(start int) int {
	i := start
	count := 0
	lastSeenDigit := 2
	seenDigit := false
	for lastSeenDigit >= 0 {
		for isAlnum(t.c(i)) {
			if isDigit(t.c(i)) {
				lastSeenDigit = 2
				seenDigit = true
			}
			i++
		}
		lastSeenDigit--
		if !isNumPunc(t.c(i)) || !isAlnum(t.c(i+1)) {
			if lastSeenDigit >= 0 {
				count = i - start
			}
			break
		}
		count = i - start
		i++
	}
	if !seenDigit {
		return 0
	}
	return count
}

func (t *LegacyTokenizer) Clone() TokenStream {
	return &LegacyTokenizer{
		Tokenizer: t.CloneTokenizer(),
		runes:     append([]rune(nil), t.runes...),
		offs:      append([]int(nil), t.offs...),
		at:        t.at,
	}
}
