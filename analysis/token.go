package analysis

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Longest token text plus one. Longer text is cut to MaxWordSize-1 bytes.
const MaxWordSize = 255

/*
Token is a term produced by a TokenStream: its text, the byte offsets of
the span it came from in the source text, and its position increment,
the gap to the previous token. Streams own one Token and mutate it on
every call to Next, so a consumer that keeps a token must copy it.
*/
type Token struct {
	Text   []byte
	Start  int
	End    int
	PosInc int
}

func NewToken(text string, start, end, posInc int) *Token {
	tk := new(Token)
	tk.SetString(text, start, end, posInc)
	return tk
}

// Set copies text into the token, truncating it at a rune boundary if it
// does not fit.
func (tk *Token) Set(text []byte, start, end, posInc int) *Token {
	tk.Text = append(tk.Text[:0], Truncate(text)...)
	tk.Start, tk.End, tk.PosInc = start, end, posInc
	return tk
}

func (tk *Token) SetString(text string, start, end, posInc int) *Token {
	if len(text) >= MaxWordSize {
		text = string(Truncate([]byte(text)))
	}
	tk.Text = append(tk.Text[:0], text...)
	tk.Start, tk.End, tk.PosInc = start, end, posInc
	return tk
}

// SetText replaces the text only, keeping offsets and increment.
func (tk *Token) SetText(text []byte) {
	tk.Text = append(tk.Text[:0], Truncate(text)...)
}

/*
Truncate returns the longest prefix of text that is shorter than
MaxWordSize and does not split a UTF-8 sequence.
*/
func Truncate(text []byte) []byte {
	if len(text) < MaxWordSize {
		return text
	}
	n := MaxWordSize - 1
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// Compare orders tokens by start offset, then end offset, then text.
func (tk *Token) Compare(other *Token) int {
	switch {
	case tk.Start < other.Start:
		return -1
	case tk.Start > other.Start:
		return 1
	case tk.End < other.End:
		return -1
	case tk.End > other.End:
		return 1
	}
	return bytes.Compare(tk.Text, other.Text)
}

func (tk *Token) Equals(other *Token) bool {
	return tk.Compare(other) == 0
}

// Copy returns a token that does not share text with tk.
func (tk *Token) Copy() *Token {
	return &Token{
		Text:   append([]byte(nil), tk.Text...),
		Start:  tk.Start,
		End:    tk.End,
		PosInc: tk.PosInc,
	}
}

func (tk *Token) String() string {
	return fmt.Sprintf("%s:%v->%v:%v", tk.Text, tk.Start, tk.End, tk.PosInc)
}
