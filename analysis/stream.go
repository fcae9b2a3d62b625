/*
Package analysis turns text into streams of tokens for indexing.

A TokenStream is either a tokenizer, which reads the text given to Reset,
or a filter, which wraps exactly one other stream and rewrites or drops
its tokens. Analyzers put the two together behind a per-field factory.

Typical use might look like:

	ts, err := analyzer.TokenStream("body", text)
	if err != nil {
		return err
	}
	defer ts.Close()
	for {
		tk, err := ts.Next()
		if err != nil {
			return err
		}
		if tk == nil {
			break
		}
		// consume tk
	}

Streams are not safe for concurrent use; every consumer takes its own
Clone. Analyzers are, since each call clones a fresh stream.
*/
package analysis

import (
	"sync/atomic"
)

type TokenStream interface {
	// Starts the stream over on text. A filter resets its input.
	Reset(text string) error
	// Returns the next token, or nil when the text is exhausted. The
	// returned token is owned by the stream and overwritten by the next
	// call.
	Next() (*Token, error)
	// Returns an independent copy of the stream. Cloning a filter clones
	// its input too.
	Clone() TokenStream
	// Takes another reference on the stream.
	Retain()
	// Drops a reference; the last one releases the stream and, for a
	// filter, its input.
	Close() error
}

type refCount struct {
	n int32
}

func newRefCount() refCount {
	return refCount{n: 1}
}

func (r *refCount) retain() {
	atomic.AddInt32(&r.n, 1)
}

// Reports whether this was the last reference.
func (r *refCount) release() bool {
	return atomic.AddInt32(&r.n, -1) == 0
}

/*
Tokenizer is the common part of streams reading text directly: the text,
the byte position of the scan and the reusable token.
*/
type Tokenizer struct {
	refs  refCount
	Text  string
	Pos   int
	Token Token
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{refs: newRefCount()}
}

func (t *Tokenizer) Reset(text string) error {
	t.Text, t.Pos = text, 0
	return nil
}

func (t *Tokenizer) Retain() {
	t.refs.retain()
}

func (t *Tokenizer) Close() error {
	if t.refs.release() {
		t.Text, t.Pos = "", 0
	}
	return nil
}

// CloneTokenizer copies the scan state into a fresh base with its own
// token and one reference.
func (t *Tokenizer) CloneTokenizer() *Tokenizer {
	return &Tokenizer{refs: newRefCount(), Text: t.Text, Pos: t.Pos}
}

// Emit sets the token to text[start:end] and returns it.
func (t *Tokenizer) Emit(start, end int) *Token {
	return t.Token.SetString(t.Text[start:end], start, end, 1)
}

/*
A TokenFilter is a TokenStream whose input is another TokenStream.
Concrete filters embed it and implement Next and Clone.
*/
type TokenFilter struct {
	refs  refCount
	Input TokenStream
}

// Construct a token stream filtering the given input.
func NewTokenFilter(input TokenStream) *TokenFilter {
	return &TokenFilter{refs: newRefCount(), Input: input}
}

func (f *TokenFilter) Reset(text string) error {
	return f.Input.Reset(text)
}

func (f *TokenFilter) Retain() {
	f.refs.retain()
}

func (f *TokenFilter) Close() error {
	if f.refs.release() {
		return f.Input.Close()
	}
	return nil
}

// Collect drains ts into copies of its tokens.
func Collect(ts TokenStream) ([]*Token, error) {
	var ans []*Token
	for {
		tk, err := ts.Next()
		if err != nil {
			return ans, err
		}
		if tk == nil {
			return ans, nil
		}
		ans = append(ans, tk.Copy())
	}
}
