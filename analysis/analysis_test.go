package analysis

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenTruncate(t *testing.T) {
	tk := NewToken(strings.Repeat("a", 300), 0, 300, 1)
	assert.Equal(t, MaxWordSize-1, len(tk.Text))
	assert.Equal(t, 300, tk.End)

	// never splits a rune
	text := "a" + strings.Repeat("€", 100)
	tk.SetString(text, 0, len(text), 1)
	assert.Equal(t, 253, len(tk.Text))
	assert.Equal(t, text[:253], string(tk.Text))

	tk.SetText([]byte("short"))
	assert.Equal(t, "short", string(tk.Text))
	assert.Equal(t, len(text), tk.End)
}

func TestTokenCompare(t *testing.T) {
	tks := []*Token{
		NewToken("b", 2, 3, 1),
		NewToken("b", 0, 2, 1),
		NewToken("a", 0, 2, 1),
		NewToken("a", 0, 1, 1),
	}
	sort.Slice(tks, func(i, j int) bool { return tks[i].Compare(tks[j]) < 0 })
	assert.Equal(t, "a:0->1:1", tks[0].String())
	assert.Equal(t, "a:0->2:1", tks[1].String())
	assert.Equal(t, "b:0->2:1", tks[2].String())
	assert.Equal(t, "b:2->3:1", tks[3].String())

	assert.True(t, NewToken("x", 1, 2, 1).Equals(NewToken("x", 1, 2, 5)))
	assert.False(t, NewToken("x", 1, 2, 1).Equals(NewToken("y", 1, 2, 1)))
}

// Splits on single spaces, tagging tokens with prefix.
type splitTokenizer struct {
	*Tokenizer
	prefix string
	closed *int
}

func newSplitTokenizer(prefix string, closed *int) *splitTokenizer {
	return &splitTokenizer{NewTokenizer(), prefix, closed}
}

func (t *splitTokenizer) Next() (*Token, error) {
	if t.Pos >= len(t.Text) {
		return nil, nil
	}
	start := t.Pos
	end := strings.IndexByte(t.Text[start:], ' ')
	if end < 0 {
		end = len(t.Text)
	} else {
		end += start
	}
	t.Pos = end + 1
	return t.Token.SetString(t.prefix+t.Text[start:end], start, end, 1), nil
}

func (t *splitTokenizer) Clone() TokenStream {
	return &splitTokenizer{t.CloneTokenizer(), t.prefix, t.closed}
}

func (t *splitTokenizer) Close() error {
	*t.closed++
	return t.Tokenizer.Close()
}

func analyze(t *testing.T, a Analyzer, field, text string) []string {
	ts, err := a.TokenStream(field, text)
	require.NoError(t, err)
	defer ts.Close()
	tks, err := Collect(ts)
	require.NoError(t, err)
	var ans []string
	for _, tk := range tks {
		ans = append(ans, string(tk.Text))
	}
	return ans
}

func TestAnalyzerClonesPerCall(t *testing.T) {
	closed := 0
	a := NewAnalyzer(newSplitTokenizer("", &closed))
	ts1, err := a.TokenStream("f", "a b")
	require.NoError(t, err)
	ts2, err := a.TokenStream("f", "c d")
	require.NoError(t, err)

	tk, err := ts1.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(tk.Text))
	tk, err = ts2.Next()
	require.NoError(t, err)
	assert.Equal(t, "c", string(tk.Text))
	ts1.Close()
	ts2.Close()
	assert.Equal(t, 2, closed)

	a.Retain()
	require.NoError(t, a.Close())
	assert.Equal(t, 2, closed)
	require.NoError(t, a.Close())
	assert.Equal(t, 3, closed)
}

func TestPerFieldAnalyzer(t *testing.T) {
	closed := 0
	a := NewPerFieldAnalyzer(NewAnalyzer(newSplitTokenizer("def:", &closed)))
	require.NoError(t, a.Add("title", NewAnalyzer(newSplitTokenizer("title:", &closed))))

	assert.Equal(t, []string{"def:x", "def:y"}, analyze(t, a, "body", "x y"))
	assert.Equal(t, []string{"title:x"}, analyze(t, a, "title", "x"))
	closed = 0

	t.Run("later registration replaces", func(t *testing.T) {
		require.NoError(t, a.Add("title", NewAnalyzer(newSplitTokenizer("new:", &closed))))
		assert.Equal(t, 1, closed)
		assert.Equal(t, []string{"new:x"}, analyze(t, a, "title", "x"))
	})

	t.Run("shared analyzer", func(t *testing.T) {
		shared := NewAnalyzer(newSplitTokenizer("shared:", &closed))
		shared.Retain()
		require.NoError(t, a.Add("a", shared))
		require.NoError(t, a.Add("b", shared))
		assert.Equal(t, []string{"shared:x"}, analyze(t, a, "b", "x"))
	})

	closed = 0
	require.NoError(t, a.Close())
	// default, title and the shared analyzer's prototype
	assert.Equal(t, 3, closed)
}
