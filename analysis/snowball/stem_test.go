package snowball

import (
	"errors"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/analysis/core"
	"github.com/balzaczyy/segstore/util"
)

func stems(t *testing.T, ts TokenStream, text string) []string {
	require.NoError(t, ts.Reset(text))
	tks, err := Collect(ts)
	require.NoError(t, err)
	var ans []string
	for _, tk := range tks {
		ans = append(ans, string(tk.Text))
	}
	return ans
}

func TestStemFilter(t *testing.T) {
	for _, algorithm := range []string{"english", "English", "porter"} {
		t.Run(algorithm, func(t *testing.T) {
			ts, err := NewStemFilter(core.NewWhitespaceTokenizer(true), algorithm, "UTF-8")
			require.NoError(t, err)
			defer ts.Close()
			assert.Equal(t, []string{"run", "cat", "stem"}, stems(t, ts, "running cats stemming"))
		})
	}

	t.Run("offsets are kept", func(t *testing.T) {
		ts, err := NewStemFilter(core.NewWhitespaceTokenizer(false), "english", "")
		require.NoError(t, err)
		require.NoError(t, ts.Reset("a running"))
		_, err = ts.Next()
		require.NoError(t, err)
		tk, err := ts.Next()
		require.NoError(t, err)
		assert.Equal(t, "run:2->9:1", tk.String())
	})
}

func TestStemFilterCharset(t *testing.T) {
	ts, err := NewStemFilter(core.NewNonTokenizer(), "russian", "koi8-r")
	require.NoError(t, err)
	word, err := charmap.KOI8R.NewEncoder().String("машины")
	require.NoError(t, err)

	out := stems(t, ts, word)
	require.Len(t, out, 1)
	stem, err := charmap.KOI8R.NewDecoder().String(out[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix("машины", stem), stem)
	assert.Less(t, len(out[0]), len(word))
}

func TestStemFilterUnknown(t *testing.T) {
	for _, c := range [][2]string{
		{"klingon", "UTF-8"},
		{"english", "EBCDIC"},
	} {
		_, err := NewStemFilter(core.NewNonTokenizer(), c[0], c[1])
		assert.ErrorIs(t, err, util.ErrArgument, "%v", c)
	}
}

func TestStemFilterClone(t *testing.T) {
	ts, err := NewStemFilter(core.NewLetterTokenizer(true), "english", "UTF_8")
	require.NoError(t, err)
	clone := ts.Clone()
	defer clone.Close()
	assert.Equal(t, []string{"jump"}, stems(t, clone, "Jumping!"))
}

type failingTransformer struct{ transform.NopResetter }

func (failingTransformer) Transform(dst, src []byte, atEOF bool) (int, int, error) {
	return 0, 0, errors.New("unmappable")
}

// A charset that fails to decode or encode.
type brokenCharset struct{ decode bool }

func (c brokenCharset) NewDecoder() *encoding.Decoder {
	if c.decode {
		return &encoding.Decoder{Transformer: failingTransformer{}}
	}
	return encoding.Nop.NewDecoder()
}

func (c brokenCharset) NewEncoder() *encoding.Encoder {
	if c.decode {
		return encoding.Nop.NewEncoder()
	}
	return &encoding.Encoder{Transformer: failingTransformer{}}
}

func TestStemFilterCharsetErrors(t *testing.T) {
	for _, c := range []struct {
		name    string
		decode  bool
		message string
	}{
		{"decode", true, "Couldn't decode"},
		{"encode", false, "Couldn't encode"},
	} {
		t.Run(c.name, func(t *testing.T) {
			Charsets["BROKEN"] = brokenCharset{c.decode}
			defer delete(Charsets, "BROKEN")
			logs := logging.InitForTesting(logging.WARNING)

			ts, err := NewStemFilter(core.NewWhitespaceTokenizer(false), "english", "broken")
			require.NoError(t, err)
			defer ts.Close()
			assert.Equal(t, []string{"running", "cats"}, stems(t, ts, "running cats"))

			var messages []string
			for n := logs.Head(); n != nil; n = n.Next() {
				messages = append(messages, n.Record.Message())
			}
			require.Len(t, messages, 2)
			for _, m := range messages {
				assert.Contains(t, m, c.message)
			}
		})
	}
}
