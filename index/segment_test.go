package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balzaczyy/segstore/analysis/core"
	"github.com/balzaczyy/segstore/analysis/standard"
	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

var segmentDocs = []map[string]string{
	{"id": "doc-0", "body": "The quick brown fox"},
	{"id": "doc-1", "body": "the lazy dog and the quick cat"},
	{"id": "doc-2", "body": "brown dogs"},
}

func buildSegment(t *testing.T, s store.Store, segment string) *SegmentWriter {
	fis, err := NewFieldInfos(STORE_YES, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)
	id, err := NewFieldInfo("id", STORE_YES, INDEX_UNTOKENIZED, TERM_VECTOR_NO)
	require.NoError(t, err)
	require.NoError(t, fis.Add(id))
	body, err := NewFieldInfo("body", STORE_COMPRESS, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)
	body.SetCompression(codec.S2)
	require.NoError(t, fis.Add(body))

	an := core.NewWhitespaceAnalyzer(true)
	defer an.Close()
	w, err := NewSegmentWriter(s, segment, fis, an, 2, 2)
	require.NoError(t, err)
	for i, fields := range segmentDocs {
		doc := NewDocument()
		require.NoError(t, doc.Add(NewDocField("id", fields["id"])))
		require.NoError(t, doc.Add(NewDocField("body", fields["body"])))
		n, err := w.AddDocument(doc)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	require.NoError(t, w.Close())
	return w
}

func checkSegment(t *testing.T, r *SegmentReader) {
	assert.Equal(t, len(segmentDocs), r.NumDocs())
	for i, fields := range segmentDocs {
		doc, err := r.Document(i)
		require.NoError(t, err)
		assert.Equal(t, fields["body"], string(doc.Get("body").Data[0]))
		assert.Equal(t, fields["id"], string(doc.Get("id").Data[0]))
	}

	ti, err := r.TermInfo("body", "the")
	require.NoError(t, err)
	require.NotNil(t, ti)
	assert.Equal(t, 2, ti.DocFreq)

	td, err := r.TermDocs("body", "the")
	require.NoError(t, err)
	defer td.Close()
	ok, err := td.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, td.Doc())
	assert.Equal(t, 1, td.Freq())
	ok, err = td.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, td.Doc())
	positions, err := td.Positions()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, positions)

	td2, err := r.TermDocs("id", "doc-2")
	require.NoError(t, err)
	require.NotNil(t, td2)
	defer td2.Close()
	ok, err = td2.SkipTo(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, td2.Doc())

	for _, c := range [][2]string{{"body", "The"}, {"body", "zebra"}, {"missing", "the"}, {"id", "doc"}} {
		ti, err := r.TermInfo(c[0], c[1])
		require.NoError(t, err)
		assert.Nil(t, ti, "%v", c)
		td, err := r.TermDocs(c[0], c[1])
		require.NoError(t, err)
		assert.Nil(t, td, "%v", c)
	}

	e, err := r.TermEnum("body")
	require.NoError(t, err)
	defer e.Close()
	var terms []string
	for {
		term, err := e.Next()
		require.NoError(t, err)
		if term == nil {
			break
		}
		terms = append(terms, string(term))
	}
	assert.Equal(t, []string{"and", "brown", "cat", "dog", "dogs", "fox", "lazy", "quick", "the"}, terms)
	_, err = r.TermEnum("missing")
	assert.ErrorIs(t, err, util.ErrArgument)
}

func TestSegmentRoundTrip(t *testing.T) {
	s := store.NewRAMStore()
	defer s.Close()
	w := buildSegment(t, s, "_0")
	for _, name := range w.Files() {
		ok, err := s.Exists(name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	r, err := OpenSegmentReader(s, "_0")
	require.NoError(t, err)
	defer r.Close()
	checkSegment(t, r)

	lazy, err := r.LazyDocument(1)
	require.NoError(t, err)
	defer lazy.Close()
	v, err := lazy.Field("body").String(0)
	require.NoError(t, err)
	assert.Equal(t, segmentDocs[1]["body"], v)
}

func TestCompoundSegment(t *testing.T) {
	reg := store.NewStoreRegistry()
	s, err := reg.OpenFS(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	w := buildSegment(t, s, "_1")
	require.NoError(t, CreateCompoundFile(s, "_1", w.Files()))
	for _, name := range w.Files() {
		ok, err := s.Exists(name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := OpenSegmentReader(s, "_1")
	require.NoError(t, err)
	defer r.Close()
	checkSegment(t, r)
}

func TestStoredFieldsPerGoroutine(t *testing.T) {
	s := store.NewRAMStore()
	defer s.Close()
	buildSegment(t, s, "_0")
	r, err := OpenSegmentReader(s, "_0")
	require.NoError(t, err)
	defer r.Close()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for g := range errs {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			fr := r.StoredFields()
			defer fr.Close()
			for i := 0; i < 50; i++ {
				n := (g + i) % len(segmentDocs)
				doc, err := fr.Document(n)
				if err != nil {
					errs[g] = err
					return
				}
				if got := string(doc.Get("id").Data[0]); got != segmentDocs[n]["id"] {
					errs[g] = fmt.Errorf("document %v: got id %v", n, got)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	// the shared reader is unaffected by the closed copies
	checkSegment(t, r)
}

func TestFailedSegmentRemovesFiles(t *testing.T) {
	s := store.NewRAMStore(store.WithRAMLimit(2 * store.RAM_BLOCK_SIZE))
	defer s.Close()
	fis, err := NewFieldInfos(STORE_YES, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)
	an := core.NewWhitespaceAnalyzer(true)
	defer an.Close()
	w, err := NewSegmentWriter(s, "_0", fis, an, 2, 2)
	require.NoError(t, err)
	for _, fields := range segmentDocs {
		doc := NewDocument()
		require.NoError(t, doc.Add(NewDocField("body", fields["body"])))
		_, err = w.AddDocument(doc)
		require.NoError(t, err)
	}
	assert.ErrorIs(t, w.Close(), util.ErrMemory)
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFailedCompoundRemovesFile(t *testing.T) {
	s := store.NewRAMStore()
	defer s.Close()
	w := buildSegment(t, s, "_0")
	err := CreateCompoundFile(s, "_0", append(w.Files(), "_0.missing"))
	assert.ErrorIs(t, err, util.ErrFileNotFound)
	ok, err := s.Exists("_0.cfs")
	require.NoError(t, err)
	assert.False(t, ok)
	for _, name := range w.Files() {
		ok, err := s.Exists(name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}
}

func TestSegmentStandardAnalyzer(t *testing.T) {
	s := store.NewRAMStore()
	defer s.Close()
	fis, err := NewFieldInfos(STORE_NO, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)
	an := standard.NewStandardAnalyzer(nil, true)
	defer an.Close()
	w, err := NewSegmentWriter(s, "_2", fis, an, DEFAULT_INDEX_INTERVAL, DEFAULT_SKIP_INTERVAL)
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		doc := NewDocument()
		require.NoError(t, doc.Add(NewDocField("text", fmt.Sprintf("the e-mail of number %v", i%5))))
		_, err := w.AddDocument(doc)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := OpenSegmentReader(s, "_2")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 40, r.NumDocs())

	// stop words are dropped, hyphenated words are joined and split
	for _, c := range []struct {
		term string
		df   int
	}{
		{"the", 0},
		{"of", 0},
		{"e-mail", 0},
		{"e", 40},
		{"email", 40},
		{"mail", 40},
		{"number", 40},
		{"3", 8},
	} {
		ti, err := r.TermInfo("text", c.term)
		require.NoError(t, err)
		if c.df == 0 {
			assert.Nil(t, ti, c.term)
			continue
		}
		require.NotNil(t, ti, c.term)
		assert.Equal(t, c.df, ti.DocFreq, c.term)
	}

	td, err := r.TermDocs("text", "3")
	require.NoError(t, err)
	defer td.Close()
	ok, err := td.SkipTo(20)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 23, td.Doc())
}
