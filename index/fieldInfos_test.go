package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

func TestFieldInfoBits(t *testing.T) {
	for _, c := range []struct {
		st   StoreOption
		idx  IndexOption
		tv   TermVectorOption
		bits uint32
	}{
		{STORE_YES, INDEX_NO, TERM_VECTOR_NO, FI_IS_STORED},
		{STORE_COMPRESS, INDEX_NO, TERM_VECTOR_NO, FI_IS_STORED | FI_IS_COMPRESSED},
		{STORE_NO, INDEX_UNTOKENIZED, TERM_VECTOR_NO, FI_IS_INDEXED},
		{STORE_NO, INDEX_YES, TERM_VECTOR_YES, FI_IS_INDEXED | FI_IS_TOKENIZED | FI_STORE_TERM_VECTOR},
		{STORE_NO, INDEX_UNTOKENIZED_OMIT_NORMS, TERM_VECTOR_NO, FI_IS_INDEXED | FI_OMIT_NORMS},
		{STORE_YES, INDEX_YES_OMIT_NORMS, TERM_VECTOR_WITH_POSITIONS_OFFSETS,
			FI_IS_STORED | FI_IS_INDEXED | FI_IS_TOKENIZED | FI_OMIT_NORMS |
				FI_STORE_TERM_VECTOR | FI_STORE_POSITIONS | FI_STORE_OFFSETS},
		{STORE_NO, INDEX_YES, TERM_VECTOR_WITH_OFFSETS, FI_IS_INDEXED | FI_IS_TOKENIZED | FI_STORE_TERM_VECTOR | FI_STORE_OFFSETS},
	} {
		fi, err := NewFieldInfo("f", c.st, c.idx, c.tv)
		require.NoError(t, err)
		assert.Equal(t, c.bits, fi.Bits(), fi.String())
	}

	fi, err := NewFieldInfo("f", STORE_YES, INDEX_YES, TERM_VECTOR_WITH_POSITIONS)
	require.NoError(t, err)
	assert.True(t, fi.IsStored())
	assert.False(t, fi.IsCompressed())
	assert.True(t, fi.IsIndexed())
	assert.True(t, fi.IsTokenized())
	assert.False(t, fi.OmitNorms())
	assert.True(t, fi.StoreTermVector())
	assert.True(t, fi.StorePositions())
	assert.False(t, fi.StoreOffsets())
	assert.Equal(t, float32(1), fi.Boost)
}

func TestFieldInfoInvalid(t *testing.T) {
	for _, c := range []struct {
		st  StoreOption
		idx IndexOption
		tv  TermVectorOption
	}{
		{STORE_NO, INDEX_NO, TERM_VECTOR_NO},
		{STORE_YES, INDEX_NO, TERM_VECTOR_YES},
		{StoreOption(7), INDEX_YES, TERM_VECTOR_NO},
		{STORE_YES, IndexOption(-1), TERM_VECTOR_NO},
		{STORE_YES, INDEX_YES, TermVectorOption(9)},
	} {
		_, err := NewFieldInfo("f", c.st, c.idx, c.tv)
		assert.ErrorIs(t, err, util.ErrArgument, "%+v", c)
		_, err = NewFieldInfos(c.st, c.idx, c.tv)
		assert.ErrorIs(t, err, util.ErrArgument, "%+v", c)
	}
}

func TestFieldInfoCompression(t *testing.T) {
	fi, err := NewFieldInfo("body", STORE_COMPRESS, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)
	assert.Equal(t, codec.NONE, fi.Compression())
	for tag := codec.NONE; tag <= codec.S2; tag++ {
		fi.SetCompression(tag)
		assert.Equal(t, tag, fi.Compression())
		assert.True(t, fi.IsCompressed())
		assert.True(t, fi.IsTokenized())
	}
}

func TestFieldInfos(t *testing.T) {
	fis, err := NewFieldInfos(STORE_YES, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)

	title, err := fis.AddField("title")
	require.NoError(t, err)
	assert.Equal(t, 0, title.Number)
	assert.True(t, title.IsStored())
	assert.True(t, title.IsTokenized())

	id, err := NewFieldInfo("id", STORE_YES, INDEX_UNTOKENIZED, TERM_VECTOR_NO)
	require.NoError(t, err)
	require.NoError(t, fis.Add(id))
	assert.Equal(t, 1, id.Number)

	dup, err := NewFieldInfo("id", STORE_NO, INDEX_YES, TERM_VECTOR_NO)
	require.NoError(t, err)
	assert.ErrorIs(t, fis.Add(dup), util.ErrArgument)
	_, err = fis.AddField("title")
	assert.ErrorIs(t, err, util.ErrArgument)

	assert.Same(t, title, fis.GetOrAdd("title"))
	body := fis.GetOrAdd("body")
	assert.Equal(t, 2, body.Number)
	assert.Equal(t, 3, fis.Size())

	assert.Same(t, id, fis.ByName("id"))
	assert.Same(t, body, fis.ByNumber(2))
	assert.Nil(t, fis.ByName("missing"))
	assert.Nil(t, fis.ByNumber(3))
	assert.Nil(t, fis.ByNumber(-1))
	assert.True(t, fis.HasStored())
}

func TestFieldInfosRoundTrip(t *testing.T) {
	fis, err := NewFieldInfos(STORE_NO, INDEX_YES_OMIT_NORMS, TERM_VECTOR_WITH_POSITIONS)
	require.NoError(t, err)
	fis.SetDefaultCompression(codec.ZSTD)

	a := fis.GetOrAdd("a")
	a.Boost = 2.5
	b, err := NewFieldInfo("b", STORE_COMPRESS, INDEX_NO, TERM_VECTOR_NO)
	require.NoError(t, err)
	b.SetCompression(codec.LZ4)
	b.Boost = 0.125
	require.NoError(t, fis.Add(b))
	fis.GetOrAdd("c")

	s := store.NewRAMStore()
	defer s.Close()
	require.NoError(t, fis.WriteTo(s, "_0"))

	read, err := OpenFieldInfos(s, "_0")
	require.NoError(t, err)
	assert.Equal(t, fis.DefaultBits(), read.DefaultBits())
	require.Equal(t, fis.Size(), read.Size())
	for i, want := range fis.Fields() {
		got := read.ByNumber(i)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Number, got.Number)
		assert.Equal(t, want.Bits(), got.Bits())
		assert.Equal(t, want.Boost, got.Boost)
	}
	assert.Equal(t, codec.LZ4, read.ByName("b").Compression())
	assert.Equal(t, fis.String(), read.String())

	// new fields take the persisted defaults
	d := read.GetOrAdd("d")
	assert.Equal(t, fis.DefaultBits(), d.Bits())
}

func TestReadFieldInfosCorrupt(t *testing.T) {
	s := store.NewRAMStore()
	defer s.Close()
	out, err := s.NewOutput("_0.fnm")
	require.NoError(t, err)
	require.NoError(t, codec.WriteHeader(out, CODEC_FIELD_INFOS, VERSION_CURRENT))
	require.NoError(t, out.WriteUInt(0)) // neither stored nor indexed
	require.NoError(t, out.Close())

	_, err = OpenFieldInfos(s, "_0")
	assert.ErrorIs(t, err, util.ErrIO)
}
