package standard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/util"
)

func tokens(t *testing.T, ts TokenStream, text string) []*Token {
	require.NoError(t, ts.Reset(text))
	ans, err := Collect(ts)
	require.NoError(t, err)
	return ans
}

func texts(tks []*Token) []string {
	ans := make([]string, len(tks))
	for i, tk := range tks {
		ans[i] = string(tk.Text)
	}
	return ans
}

func assertTokens(t *testing.T, expected []*Token, actual []*Token) {
	require.Equal(t, len(expected), len(actual), "tokens: %v", actual)
	for i, tk := range expected {
		assert.Equal(t, tk.String(), actual[i].String(), "token %v", i)
	}
}

const sample = "DBalmain@gmail.com is My e-mail 52   #$ Address. 23#!$ " +
	"http://www.google.com/results/ T.N.T. 123-1235-ASD-1234"

func TestLegacyTokenizer(t *testing.T) {
	assertTokens(t, []*Token{
		NewToken("DBalmain@gmail.com", 0, 18, 1),
		NewToken("is", 19, 21, 1),
		NewToken("My", 22, 24, 1),
		NewToken("e-mail", 25, 31, 1),
		NewToken("52", 32, 34, 1),
		NewToken("Address", 40, 47, 1),
		NewToken("23", 49, 51, 1),
		NewToken("www.google.com/results", 55, 85, 1),
		NewToken("TNT", 86, 91, 1),
		NewToken("123-1235-ASD-1234", 93, 110, 1),
	}, tokens(t, NewLegacyTokenizer(), sample))
}

func TestLegacyTokenizerRules(t *testing.T) {
	text := "Dave's cats' AT&T Excite@Home 3.14 U.S.A. .5 O'Reilly's ftp://ftp.x.org/ foo://bar"
	assertTokens(t, []*Token{
		NewToken("Dave", 0, 6, 1),
		NewToken("cats", 7, 12, 1),
		NewToken("AT&T", 13, 17, 1),
		NewToken("Excite@Home", 18, 29, 1),
		NewToken("3.14", 30, 34, 1),
		NewToken("USA", 35, 40, 1),
		NewToken(".5", 42, 44, 1),
		NewToken("O'Reilly", 45, 55, 1),
		NewToken("ftp.x.org", 56, 72, 1),
		NewToken("foo://bar", 73, 82, 1),
	}, tokens(t, NewLegacyTokenizer(), text))

	t.Run("one at sign", func(t *testing.T) {
		assert.Equal(t, []string{"a@b.com", "c"}, texts(tokens(t, NewLegacyTokenizer(), "a@b.com@c")))
	})

	t.Run("trailing punctuation", func(t *testing.T) {
		assertTokens(t, []*Token{
			NewToken("http", 0, 7, 1),
			NewToken("a", 8, 9, 1),
			NewToken("AT&T", 11, 15, 1),
			NewToken("b", 18, 19, 1),
		}, tokens(t, NewLegacyTokenizer(), "http:// a& AT&T@& b&@"))
	})

	t.Run("double punctuation", func(t *testing.T) {
		assert.Equal(t, []string{"www.x", "y"}, texts(tokens(t, NewLegacyTokenizer(), "www.x..y")))
	})

	t.Run("multi-byte offsets", func(t *testing.T) {
		text := "ÁÄGÇ®ÊËÌ déjà-vu"
		assertTokens(t, []*Token{
			NewToken("ÁÄGÇ", 0, 7, 1),
			NewToken("ÊËÌ", 9, 15, 1),
			NewToken("déjà-vu", 16, 25, 1),
		}, tokens(t, NewLegacyTokenizer(), text))
	})

	t.Run("long words are truncated", func(t *testing.T) {
		long := strings.Repeat("a", 300)
		tks := tokens(t, NewLegacyTokenizer(), long+" b")
		require.Len(t, tks, 2)
		assert.Equal(t, MaxWordSize-1, len(tks[0].Text))
		assert.Equal(t, 300, tks[0].End)
	})
}

func TestStandardTokenizer(t *testing.T) {
	assertTokens(t, []*Token{
		NewToken("Hello", 0, 5, 1),
		NewToken("e-mail", 7, 13, 1),
		NewToken("me@example.com", 14, 28, 1),
		NewToken("AT&T", 29, 33, 1),
		NewToken("don't", 34, 39, 1),
		NewToken("52", 40, 42, 1),
	}, tokens(t, NewStandardTokenizer(), "Hello, e-mail me@example.com AT&T don't 52 -- !"))

	t.Run("multi-byte offsets", func(t *testing.T) {
		assertTokens(t, []*Token{
			NewToken("déjà", 0, 6, 1),
			NewToken("vu", 7, 9, 1),
		}, tokens(t, NewStandardTokenizer(), "déjà vu"))
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		ts := NewStandardTokenizer()
		err := ts.Reset("abc\xff")
		assert.ErrorIs(t, err, util.ErrUnsupportedOperation)
		tk, err := ts.Next()
		require.NoError(t, err)
		assert.Nil(t, tk)
	})
}

func TestStandardClone(t *testing.T) {
	ts := NewStandardTokenizer()
	require.NoError(t, ts.Reset("one two three"))
	_, err := ts.Next()
	require.NoError(t, err)
	clone := ts.Clone()
	defer clone.Close()
	require.NoError(t, ts.Reset("other text"))

	rest, err := Collect(clone)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "three"}, texts(rest))
}

func TestAnalyzers(t *testing.T) {
	text := "The long-hyph-en-at-ed-word and a DBalmain@gmail.com"
	t.Run("standard", func(t *testing.T) {
		a := NewStandardAnalyzer(nil, true)
		defer a.Close()
		ts, err := a.TokenStream("body", text)
		require.NoError(t, err)
		defer ts.Close()
		tks, err := Collect(ts)
		require.NoError(t, err)
		assertTokens(t, []*Token{
			NewToken("longhyphenatedword", 4, 27, 2),
			NewToken("long", 4, 8, 0),
			NewToken("hyph", 9, 13, 1),
			NewToken("en", 14, 16, 1),
			NewToken("at", 17, 19, 1),
			NewToken("ed", 20, 22, 1),
			NewToken("word", 23, 27, 1),
			NewToken("dbalmain@gmail.com", 34, 52, 3),
		}, tks)
	})

	t.Run("legacy keeps case", func(t *testing.T) {
		a := NewLegacyAnalyzer([]string{}, false)
		defer a.Close()
		ts, err := a.TokenStream("body", "The T.N.T. Address")
		require.NoError(t, err)
		defer ts.Close()
		tks, err := Collect(ts)
		require.NoError(t, err)
		assert.Equal(t, []string{"The", "TNT", "Address"}, texts(tks))
	})
}
