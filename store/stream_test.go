package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balzaczyy/segstore/util"
)

func TestStreamRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		out, err := s.NewOutput("_0.frq")
		require.NoError(t, err)
		for i := 0; i < 3000; i++ {
			require.NoError(t, out.WriteVInt(uint32(i*131)))
		}
		require.NoError(t, out.WriteULong(math.MaxUint64))
		require.NoError(t, out.WriteString("tail ✓"))
		require.NoError(t, out.WriteVOff(1<<40))
		size := out.FilePointer()
		require.NoError(t, out.Close())

		length, err := s.Length("_0.frq")
		require.NoError(t, err)
		assert.Equal(t, size, length)

		in, err := s.OpenInput("_0.frq")
		require.NoError(t, err)
		defer in.Close()
		for i := 0; i < 3000; i++ {
			n, err := in.ReadVInt()
			require.NoError(t, err)
			require.Equal(t, uint32(i*131), n)
		}
		u, err := in.ReadULong()
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), u)
		str, err := in.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "tail ✓", str)
		off, err := in.ReadVOff()
		require.NoError(t, err)
		assert.Equal(t, int64(1<<40), off)
		assert.Equal(t, size, in.FilePointer())

		_, err = in.ReadByte()
		assert.ErrorIs(t, err, util.ErrEOF)
	})
}

func TestLargeReadsAndWrites(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		data := pattern(10*BUFFER_SIZE + 17)
		out, err := s.NewOutput("big")
		require.NoError(t, err)
		require.NoError(t, out.WriteBytes(data[:5]))
		require.NoError(t, out.WriteBytes(data[5:3000]))
		require.NoError(t, out.WriteBytes(data[3000:]))
		require.NoError(t, out.Close())

		in, err := s.OpenInput("big")
		require.NoError(t, err)
		defer in.Close()
		got := make([]byte, len(data))
		require.NoError(t, in.ReadBytes(got[:10]))
		require.NoError(t, in.ReadBytes(got[10:4000]))
		require.NoError(t, in.ReadBytes(got[4000:]))
		assert.Equal(t, data, got)

		require.NoError(t, in.Seek(int64(len(data)-3)))
		assert.ErrorIs(t, in.ReadBytes(make([]byte, 4)), util.ErrEOF)
	})
}

func TestSeek(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		data := pattern(5000)
		writeFile(t, s, "seek", data)
		in, err := s.OpenInput("seek")
		require.NoError(t, err)
		defer in.Close()

		for _, pos := range []int64{4999, 0, 1023, 1024, 10, 2500, 2501} {
			require.NoError(t, in.Seek(pos))
			assert.Equal(t, pos, in.FilePointer())
			b, err := in.ReadByte()
			require.NoError(t, err)
			assert.Equal(t, data[pos], b, "at %d", pos)
		}
	})
}

func TestOutputSeekBackpatch(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		out, err := s.NewOutput("patch")
		require.NoError(t, err)
		require.NoError(t, out.WriteUInt(0))
		require.NoError(t, out.WriteBytes(pattern(3000)))
		require.NoError(t, out.Seek(0))
		require.NoError(t, out.WriteUInt(0xCAFEBABE))
		length, err := out.Length()
		require.NoError(t, err)
		assert.Equal(t, int64(3004), length)
		require.NoError(t, out.Close())

		in, err := s.OpenInput("patch")
		require.NoError(t, err)
		defer in.Close()
		assert.Equal(t, int64(3004), in.Length())
		u, err := in.ReadUInt()
		require.NoError(t, err)
		assert.Equal(t, uint32(0xCAFEBABE), u)
	})
}

func TestCloneSharesHandle(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		data := pattern(3000)
		writeFile(t, s, "clone", data)
		in, err := s.OpenInput("clone")
		require.NoError(t, err)
		require.NoError(t, in.Seek(1500))

		clone := in.Clone()
		assert.Equal(t, int64(1500), clone.FilePointer())
		require.NoError(t, in.Close())

		// the clone keeps reading after the original is closed
		buf := make([]byte, 1500)
		require.NoError(t, clone.ReadBytes(buf))
		assert.Equal(t, data[1500:], buf)

		again := clone.Clone()
		require.NoError(t, clone.Close())
		require.NoError(t, again.Seek(0))
		b, err := again.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, data[0], b)
		require.NoError(t, again.Close())
	})
}

func TestFileHandleRefCount(t *testing.T) {
	released := 0
	h := newFileHandle("test", func() error {
		released++
		return nil
	})
	h.incRef()
	require.NoError(t, h.decRef())
	assert.Equal(t, 0, released)
	require.NoError(t, h.decRef())
	assert.Equal(t, 1, released)
}

func TestRAMRemoveWhileOpen(t *testing.T) {
	s := NewRAMStore()
	data := pattern(2100)
	writeFile(t, s, "open", data)
	in, err := s.OpenInput("open")
	require.NoError(t, err)
	require.NoError(t, s.Remove("open"))

	buf := make([]byte, len(data))
	require.NoError(t, in.ReadBytes(buf))
	assert.Equal(t, data, buf)
	require.NoError(t, in.Close())
}

func TestRAMLimit(t *testing.T) {
	s := NewRAMStore(WithRAMLimit(4 * RAM_BLOCK_SIZE))
	defer s.Close()
	writeFile(t, s, "a", pattern(3*RAM_BLOCK_SIZE-10))
	assert.Equal(t, int64(3*RAM_BLOCK_SIZE), s.Allocated())

	out, err := s.NewOutput("b")
	require.NoError(t, err)
	err = out.WriteBytes(pattern(2 * RAM_BLOCK_SIZE))
	if err == nil {
		err = out.Close()
	} else {
		out.Close()
	}
	assert.ErrorIs(t, err, util.ErrMemory)

	// removing a file gives its blocks back
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Remove("b"))
	assert.Zero(t, s.Allocated())
	writeFile(t, s, "c", pattern(4*RAM_BLOCK_SIZE))
	assert.Equal(t, int64(4*RAM_BLOCK_SIZE), s.Allocated())
}
