package mapper

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

func TestEmptyPattern(t *testing.T) {
	m := New()
	assert.ErrorIs(t, m.Add("", "x"), util.ErrArgument)
	assert.Equal(t, 0, m.Len())
}

func TestNoMappings(t *testing.T) {
	m := New()
	assert.Equal(t, "unchanged text", m.MapString("unchanged text"))
	assert.Equal(t, 1, m.Size())
}

func TestMapString(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("ne", "hello"))
	require.NoError(t, m.Add("four", "4"))
	for _, tc := range []struct{ in, out string }{
		{"one", "ohello"},
		{"nine", "nihello"},
		{"seven", "seven"},
		{"four fours", "4 4s"},
		{"fou", "fou"},
		{"", ""},
		{"nenene", "hellohellohello"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.out, m.MapString(tc.in))
		})
	}
}

func TestLongestMatchWins(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("c", "[c]"))
	require.NoError(t, m.Add("bc", "[bc]"))
	require.NoError(t, m.Add("abc", "[abc]"))
	assert.Equal(t, "[abc]", m.MapString("abc"))
	assert.Equal(t, "x[bc]", m.MapString("xbc"))
	assert.Equal(t, "a[c]", m.MapString("ac"))
}

func TestMappingRemovesAndExpands(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("ä", "ae"))
	require.NoError(t, m.Add("ß", "ss"))
	require.NoError(t, m.Add("-", ""))
	assert.Equal(t, "strassenbaeume", m.MapString("straßen-bäume"))
}

func TestBoundedMap(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("four", "a much longer replacement"))
	dst := make([]byte, 10)
	n := m.Map(dst, []byte("xfour"))
	assert.Equal(t, 10, n)
	assert.Equal(t, "xa much lo", string(dst[:n]))

	n = m.Map(dst, []byte("abcdefghijklmnop"))
	assert.Equal(t, "abcdefghij", string(dst[:n]))

	big := make([]byte, 64)
	n = m.Map(big, []byte("four!"))
	assert.Equal(t, "a much longer replacement!", string(big[:n]))
}

func TestRecompileAfterAdd(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("cat", "dog"))
	before := testutil.ToFloat64(metrics.MapperCompiles)
	assert.Equal(t, "dog food", m.MapString("cat food"))
	assert.Equal(t, "dog food", m.MapString("cat food"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MapperCompiles))

	require.NoError(t, m.Add("food", "bowl"))
	assert.Equal(t, "dog bowl", m.MapString("cat food"))
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.MapperCompiles))
}

func TestLaterRuleOverrides(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("x", "1"))
	require.NoError(t, m.Add("x", "2"))
	assert.Equal(t, "2", m.MapString("x"))
	assert.Equal(t, []string{"x", "x"}, m.Patterns())
}

func TestStateSharing(t *testing.T) {
	m := New()
	require.NoError(t, m.Add("ab", "1"))
	require.NoError(t, m.Add("cb", "2"))
	m.Compile()
	// {root}, {root,a}, {root,c}, {root,ab}, {root,cb}
	assert.Equal(t, 5, m.Size())

	words := strings.Repeat("ab cb ", 3)
	assert.Equal(t, strings.Repeat("1 2 ", 3), m.MapString(words))
}
