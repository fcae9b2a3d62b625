package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/index"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

func writeConfig(t *testing.T, text string) string {
	path := filepath.Join(t.TempDir(), "segstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func terms(t *testing.T, an Analyzer, field, text string) []string {
	ts, err := an.TokenStream(field, text)
	require.NoError(t, err)
	defer ts.Close()
	var ans []string
	for {
		tk, err := ts.Next()
		require.NoError(t, err)
		if tk == nil {
			return ans
		}
		ans = append(ans, string(tk.Text))
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fs", cfg.Store.Type)
	assert.Equal(t, index.DEFAULT_INDEX_INTERVAL, cfg.Terms.IndexInterval)
	assert.Equal(t, index.DEFAULT_SKIP_INTERVAL, cfg.Terms.SkipInterval)
	assert.Equal(t, "standard", cfg.Analysis.Analyzer)
	assert.True(t, cfg.Analysis.Lowercase)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
store:
  type: ram
  lock_prefix: test-
  lock_retry_interval: 5ms
  ram_limit: 65536
terms:
  index_interval: 32
analysis:
  analyzer: whitespace
  lowercase: false
  per_field:
    title:
      analyzer: standard
      lowercase: true
      stem:
        algorithm: english
fields:
  compression: zstd
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ram", cfg.Store.Type)
	assert.Equal(t, "test-", cfg.Store.LockPrefix)
	assert.Equal(t, 5*time.Millisecond, cfg.Store.LockRetryInterval)
	assert.Equal(t, 32, cfg.Terms.IndexInterval)
	assert.Equal(t, index.DEFAULT_SKIP_INTERVAL, cfg.Terms.SkipInterval)
	assert.Equal(t, "whitespace", cfg.Analysis.Analyzer)
	assert.False(t, cfg.Analysis.Lowercase)
	require.Contains(t, cfg.Analysis.PerField, "title")
	assert.Equal(t, "english", cfg.Analysis.PerField["title"].Stem.Algorithm)

	an, err := cfg.BuildAnalyzer()
	require.NoError(t, err)
	defer an.Close()
	assert.Equal(t, []string{"The", "Running", "dogs"}, terms(t, an, "body", "The Running dogs"))
	assert.Equal(t, []string{"run", "dog"}, terms(t, an, "title", "The Running dogs"))

	fis, err := cfg.FieldInfos()
	require.NoError(t, err)
	fi := fis.GetOrAdd("body")
	assert.True(t, fi.IsCompressed())
	assert.Equal(t, codec.ZSTD, fi.Compression())

	s, err := cfg.OpenStore(store.NewStoreRegistry())
	require.NoError(t, err)
	defer s.Close()
	lock, err := s.OpenLock("write")
	require.NoError(t, err)
	ok, err := lock.Obtain()
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Release()
	assert.Equal(t, "test-write"+util.LOCK_EXT, lock.Name())

	out, err := s.NewOutput("big")
	require.NoError(t, err)
	err = out.WriteBytes(make([]byte, 100000))
	if err == nil {
		err = out.Close()
	} else {
		out.Close()
	}
	assert.ErrorIs(t, err, util.ErrMemory)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, util.ErrFileNotFound)

	for _, text := range []string{
		"store: [",
		"store: {type: s3}",
		"store: {type: fs, path: ''}",
		"store: {type: ram, ram_limit: -1}",
		"terms: {index_interval: 0}",
		"terms: {skip_interval: -1}",
		"analysis: {analyzer: keyword}",
		"analysis: {stem: {algorithm: klingon}}",
		"analysis: {per_field: {title: {analyzer: nope}}}",
		"analysis: {mappings: [{from: '', to: x}]}",
		"fields: {compression: brotli}",
	} {
		_, err := Load(writeConfig(t, text))
		assert.ErrorIs(t, err, util.ErrArgument, text)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SEGSTORE_STORE_PATH", dir)
	t.Setenv("SEGSTORE_TERMS_INDEX_INTERVAL", "64")
	t.Setenv("SEGSTORE_ANALYSIS_ANALYZER", "letter")
	t.Setenv("SEGSTORE_ANALYSIS_LOWERCASE", "false")
	t.Setenv("SEGSTORE_FIELDS_COMPRESSION", "lz4")

	cfg, err := Load(writeConfig(t, "terms: {index_interval: 8, skip_interval: 4}"))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Store.Path)
	assert.Equal(t, 64, cfg.Terms.IndexInterval)
	assert.Equal(t, 4, cfg.Terms.SkipInterval)
	assert.Equal(t, "letter", cfg.Analysis.Analyzer)
	assert.False(t, cfg.Analysis.Lowercase)
	assert.Equal(t, "lz4", cfg.Fields.Compression)

	reg := store.NewStoreRegistry()
	s, err := cfg.OpenStore(reg)
	require.NoError(t, err)
	assert.IsType(t, &store.FSStore{}, s)
	assert.Equal(t, 1, reg.Len())
	require.NoError(t, s.Close())

	t.Setenv("SEGSTORE_TERMS_SKIP_INTERVAL", "many")
	_, err = Load("")
	assert.ErrorIs(t, err, util.ErrArgument)
}

func TestBuildAnalyzer(t *testing.T) {
	for _, c := range []struct {
		ac   AnalyzerConfig
		text string
		want []string
	}{
		{AnalyzerConfig{Analyzer: "standard", Lowercase: true}, "The e-mail of Bob", []string{"email", "e", "mail", "bob"}},
		{AnalyzerConfig{Analyzer: "standard", StopWords: []string{}}, "The Fox", []string{"The", "Fox"}},
		{AnalyzerConfig{Analyzer: "whitespace", Lowercase: true}, "A b-C", []string{"a", "b-c"}},
		{AnalyzerConfig{Analyzer: "letter"}, "it's 42x", []string{"it", "s", "x"}},
		{AnalyzerConfig{Analyzer: "stop", Lowercase: true}, "The Cat is", []string{"cat"}},
		{AnalyzerConfig{Analyzer: "non", Lowercase: true}, "Keep ME", []string{"keep me"}},
		{AnalyzerConfig{Analyzer: "whitespace", Mappings: []Mapping{{"colour", "color"}}}, "colours", []string{"colors"}},
		{AnalyzerConfig{Analyzer: "whitespace", Stem: &StemConfig{Algorithm: "porter"}}, "jumping", []string{"jump"}},
	} {
		an, err := c.ac.Build()
		require.NoError(t, err, "%+v", c.ac)
		assert.Equal(t, c.want, terms(t, an, "f", c.text), "%+v", c.ac)
		require.NoError(t, an.Close())
	}

	_, err := (&AnalyzerConfig{Analyzer: "whitespace", Stem: &StemConfig{Algorithm: "english", Charset: "EBCDIC"}}).Build()
	assert.ErrorIs(t, err, util.ErrArgument)
	_, err = (&AnalyzerConfig{Analyzer: "keyword"}).Build()
	assert.ErrorIs(t, err, util.ErrArgument)
}
