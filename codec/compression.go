package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/balzaczyy/segstore/util"
)

// Compression identifies a compression algorithm by the tag persisted in
// field infos.
type Compression uint8

const (
	NONE Compression = iota
	FLATE
	ZSTD
	LZ4
	S2
)

var compressionNames = []string{"none", "flate", "zstd", "lz4", "s2"}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression returns the algorithm named name, ignoring case. The
// empty name is NONE.
func ParseCompression(name string) (Compression, error) {
	if name == "" {
		return NONE, nil
	}
	for i, n := range compressionNames {
		if strings.EqualFold(n, name) {
			return Compression(i), nil
		}
	}
	return NONE, util.Errorf(util.ErrArgument, "unknown compression %q", name)
}

/*
Compressor compresses whole values. Both methods append their result to
dst and return it. Implementations are safe for concurrent use.
*/
type Compressor interface {
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte) ([]byte, error)
	Tag() Compression
}

// ForTag returns the compressor for tag.
func ForTag(tag Compression) (Compressor, error) {
	switch tag {
	case NONE:
		return noneCompressor{}, nil
	case FLATE:
		return flateCompressor{}, nil
	case ZSTD:
		return zstdCompressor{}, nil
	case LZ4:
		return lz4Compressor{}, nil
	case S2:
		return s2Compressor{}, nil
	}
	return nil, util.Errorf(util.ErrArgument, "unknown compression tag %v", uint8(tag))
}

func corrupt(tag Compression, err error) error {
	return util.WrapError(util.ErrIO, err, "corrupt %v data", tag)
}

type noneCompressor struct{}

func (noneCompressor) Tag() Compression { return NONE }

func (noneCompressor) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (noneCompressor) Decompress(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

type flateCompressor struct{}

func (flateCompressor) Tag() Compression { return FLATE }

func (flateCompressor) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	w, err := flate.NewWriter(buf, flate.BestSpeed)
	if err != nil {
		return nil, util.WrapError(util.ErrIO, err, "cannot create flate writer")
	}
	if _, err = w.Write(src); err != nil {
		return nil, util.WrapError(util.ErrIO, err, "flate compression failed")
	}
	if err = w.Close(); err != nil {
		return nil, util.WrapError(util.ErrIO, err, "flate compression failed")
	}
	return buf.Bytes(), nil
}

func (flateCompressor) Decompress(dst, src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, corrupt(FLATE, err)
	}
	return buf.Bytes(), nil
}

// Encoders and decoders are goroutine-safe for EncodeAll and DecodeAll.
var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCoders() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		if zstdEncoder, zstdErr = zstd.NewWriter(nil); zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	if zstdErr != nil {
		return nil, nil, util.WrapError(util.ErrIO, zstdErr, "cannot create zstd coders")
	}
	return zstdEncoder, zstdDecoder, nil
}

type zstdCompressor struct{}

func (zstdCompressor) Tag() Compression { return ZSTD }

func (zstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	enc, _, err := zstdCoders()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, dst), nil
}

func (zstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	_, dec, err := zstdCoders()
	if err != nil {
		return nil, err
	}
	ans, err := dec.DecodeAll(src, dst)
	if err != nil {
		return nil, corrupt(ZSTD, err)
	}
	return ans, nil
}

type lz4Compressor struct{}

func (lz4Compressor) Tag() Compression { return LZ4 }

func (lz4Compressor) Compress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	w := lz4.NewWriter(buf)
	if _, err := w.Write(src); err != nil {
		return nil, util.WrapError(util.ErrIO, err, "lz4 compression failed")
	}
	if err := w.Close(); err != nil {
		return nil, util.WrapError(util.ErrIO, err, "lz4 compression failed")
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(dst, src []byte) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, lz4.NewReader(bytes.NewReader(src))); err != nil {
		return nil, corrupt(LZ4, err)
	}
	return buf.Bytes(), nil
}

type s2Compressor struct{}

func (s2Compressor) Tag() Compression { return S2 }

func (s2Compressor) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, s2.Encode(nil, src)...), nil
}

func (s2Compressor) Decompress(dst, src []byte) ([]byte, error) {
	ans, err := s2.Decode(nil, src)
	if err != nil {
		return nil, corrupt(S2, err)
	}
	return append(dst, ans...), nil
}
