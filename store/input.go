package store

import (
	"fmt"
	"io"
	"sync"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

/*
IndexInput is a random-access input stream over a store file.

An IndexInput may only be used by one goroutine. Clone() returns a new
input positioned independently over the same physical file; the file is
released only once the original and every clone are closed.
*/
type IndexInput interface {
	util.DataInput
	io.Closer
	// Current position in this file, where the next read occurs.
	FilePointer() int64
	// Sets the current position in this file.
	Seek(pos int64) error
	// The number of bytes in the file.
	Length() int64
	Clone() IndexInput
}

/*
SeekReader is the backend behind a BufferedIndexInput. Reads are
positional, so clones share one reader without sharing a position.
*/
type SeekReader interface {
	readInternal(pos int64, buf []byte) error
	length() int64
	// Returns a reader over the same physical file. Close must be called
	// on both.
	clone() SeekReader
	close() error
}

// Size of the read buffer of every BufferedIndexInput.
const BUFFER_SIZE = 1024

// Base implementation for a buffered IndexInput.
type BufferedIndexInput struct {
	*util.DataInputImpl
	spi            SeekReader
	desc           string
	backend        string
	buffer         []byte
	bufferStart    int64
	bufferLength   int
	bufferPosition int
	closed         bool
}

func newBufferedIndexInput(spi SeekReader, desc, backend string) *BufferedIndexInput {
	ans := &BufferedIndexInput{spi: spi, desc: desc, backend: backend}
	ans.DataInputImpl = util.NewDataInput(ans)
	return ans
}

func (in *BufferedIndexInput) ReadByte() (b byte, err error) {
	if in.bufferPosition >= in.bufferLength {
		if err = in.refill(); err != nil {
			return 0, err
		}
	}
	b = in.buffer[in.bufferPosition]
	in.bufferPosition++
	return
}

func (in *BufferedIndexInput) ReadBytes(buf []byte) error {
	if in.closed {
		return util.Errorf(util.ErrIO, "input is closed: %v", in)
	}
	available := in.bufferLength - in.bufferPosition
	if length := len(buf); length <= available {
		// the buffer contains enough data to satisfy this request
		copy(buf, in.buffer[in.bufferPosition:in.bufferPosition+length])
		in.bufferPosition += length
		return nil
	}
	// serve all we've got first
	if available > 0 {
		copy(buf, in.buffer[in.bufferPosition:in.bufferLength])
		buf = buf[available:]
		in.bufferPosition += available
	}
	if length := len(buf); length < BUFFER_SIZE {
		if err := in.refill(); err != nil {
			return err
		}
		if in.bufferLength < length {
			copy(buf, in.buffer[:in.bufferLength])
			in.bufferPosition = in.bufferLength
			return util.Errorf(util.ErrEOF, "read past EOF: %v", in)
		}
		copy(buf, in.buffer[:length])
		in.bufferPosition += length
		return nil
	}
	// larger than the buffer: read it all at once, no need to reread what we
	// had buffered
	start := in.bufferStart + int64(in.bufferPosition)
	after := start + int64(len(buf))
	if after > in.spi.length() {
		return util.Errorf(util.ErrEOF, "read past EOF: %v", in)
	}
	if err := in.spi.readInternal(start, buf); err != nil {
		return err
	}
	metrics.StoreBytesRead.WithLabelValues(in.backend).Add(float64(len(buf)))
	in.bufferStart = after
	in.bufferPosition = 0
	in.bufferLength = 0 // trigger refill() on read
	return nil
}

func (in *BufferedIndexInput) ReadVInt() (n uint32, err error) {
	if 5 <= in.bufferLength-in.bufferPosition {
		var shift uint
		for i := 0; i < 5; i++ {
			b := in.buffer[in.bufferPosition]
			in.bufferPosition++
			n |= uint32(b&0x7F) << shift
			if b < 0x80 {
				if i == 4 && b > 0x0F {
					break
				}
				return n, nil
			}
			shift += 7
		}
		return 0, util.Errorf(util.ErrIO, "invalid vint detected (too many bits): %v", in)
	}
	return in.DataInputImpl.ReadVInt()
}

func (in *BufferedIndexInput) ReadVLong() (n uint64, err error) {
	if 10 <= in.bufferLength-in.bufferPosition {
		var shift uint
		for i := 0; i < 10; i++ {
			b := in.buffer[in.bufferPosition]
			in.bufferPosition++
			n |= uint64(b&0x7F) << shift
			if b < 0x80 {
				if i == 9 && b > 0x01 {
					break
				}
				return n, nil
			}
			shift += 7
		}
		return 0, util.Errorf(util.ErrIO, "invalid vlong detected (too many bits): %v", in)
	}
	return in.DataInputImpl.ReadVLong()
}

func (in *BufferedIndexInput) refill() error {
	if in.closed {
		return util.Errorf(util.ErrIO, "input is closed: %v", in)
	}
	start := in.bufferStart + int64(in.bufferPosition)
	end := start + BUFFER_SIZE
	if n := in.spi.length(); end > n { // don't read past EOF
		end = n
	}
	newLength := int(end - start)
	if newLength <= 0 {
		return util.Errorf(util.ErrEOF, "read past EOF: %v", in)
	}
	if in.buffer == nil {
		in.buffer = make([]byte, BUFFER_SIZE) // allocate buffer lazily
	}
	if err := in.spi.readInternal(start, in.buffer[:newLength]); err != nil {
		return err
	}
	metrics.StoreBytesRead.WithLabelValues(in.backend).Add(float64(newLength))
	in.bufferLength = newLength
	in.bufferStart = start
	in.bufferPosition = 0
	return nil
}

func (in *BufferedIndexInput) FilePointer() int64 {
	return in.bufferStart + int64(in.bufferPosition)
}

func (in *BufferedIndexInput) Seek(pos int64) error {
	if pos < 0 {
		return util.Errorf(util.ErrArgument, "negative seek position %v: %v", pos, in)
	}
	if pos >= in.bufferStart && pos < in.bufferStart+int64(in.bufferLength) {
		in.bufferPosition = int(pos - in.bufferStart) // seek within buffer
		return nil
	}
	in.bufferStart = pos
	in.bufferPosition = 0
	in.bufferLength = 0 // trigger refill() on read()
	return nil
}

func (in *BufferedIndexInput) Length() int64 {
	return in.spi.length()
}

func (in *BufferedIndexInput) Clone() IndexInput {
	ans := newBufferedIndexInput(in.spi.clone(), in.desc, in.backend)
	ans.bufferStart = in.FilePointer()
	return ans
}

func (in *BufferedIndexInput) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	in.bufferStart += int64(in.bufferPosition)
	in.buffer, in.bufferLength, in.bufferPosition = nil, 0, 0
	return in.spi.close()
}

func (in *BufferedIndexInput) String() string {
	return in.desc
}

/*
fileHandle counts the inputs sharing one physical file. The release
function runs when the last one closes.
*/
type fileHandle struct {
	sync.Mutex
	refs    int
	backend string
	release func() error
}

func newFileHandle(backend string, release func() error) *fileHandle {
	metrics.StoreOpenFiles.WithLabelValues(backend).Inc()
	return &fileHandle{refs: 1, backend: backend, release: release}
}

func (h *fileHandle) incRef() {
	h.Lock()
	defer h.Unlock()
	h.refs++
}

func (h *fileHandle) decRef() error {
	h.Lock()
	defer h.Unlock()
	h.refs--
	if h.refs > 0 {
		return nil
	}
	if h.refs < 0 {
		panic(fmt.Sprintf("file handle released too many times (%v)", h.refs))
	}
	metrics.StoreOpenFiles.WithLabelValues(h.backend).Dec()
	return h.release()
}
