package store

import (
	"io"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

// IndexOutput is a random-access output stream over a store file.
type IndexOutput interface {
	util.DataOutput
	io.Closer
	// Forces any buffered output to be written.
	Flush() error
	// Current position in this file, where the next write occurs.
	FilePointer() int64
	// Sets the current position in this file. Buffered bytes are flushed
	// first.
	Seek(pos int64) error
	// The number of bytes in the file.
	Length() (int64, error)
}

// SeekWriter is the backend behind a BufferedIndexOutput.
type SeekWriter interface {
	writeInternal(pos int64, buf []byte) error
	length() (int64, error)
	close() error
}

type BufferedIndexOutput struct {
	*util.DataOutputImpl
	spi            SeekWriter
	desc           string
	backend        string
	buffer         []byte
	bufferStart    int64 // position in file of buffer
	bufferPosition int   // position in buffer
	closed         bool
}

func newBufferedIndexOutput(spi SeekWriter, desc, backend string) *BufferedIndexOutput {
	ans := &BufferedIndexOutput{
		spi:     spi,
		desc:    desc,
		backend: backend,
		buffer:  make([]byte, BUFFER_SIZE),
	}
	ans.DataOutputImpl = util.NewDataOutput(ans)
	return ans
}

func (out *BufferedIndexOutput) WriteByte(b byte) error {
	if out.bufferPosition >= BUFFER_SIZE {
		if err := out.Flush(); err != nil {
			return err
		}
	}
	out.buffer[out.bufferPosition] = b
	out.bufferPosition++
	return nil
}

func (out *BufferedIndexOutput) WriteBytes(buf []byte) error {
	bytesLeft := BUFFER_SIZE - out.bufferPosition
	if len(buf) <= bytesLeft {
		copy(out.buffer[out.bufferPosition:], buf)
		out.bufferPosition += len(buf)
		return nil
	}
	if len(buf) > BUFFER_SIZE {
		// too large to buffer: flush and write directly
		if err := out.Flush(); err != nil {
			return err
		}
		if err := out.write(out.bufferStart, buf); err != nil {
			return err
		}
		out.bufferStart += int64(len(buf))
		return nil
	}
	// fill the buffer, flush it, and buffer the rest
	copy(out.buffer[out.bufferPosition:], buf[:bytesLeft])
	out.bufferPosition = BUFFER_SIZE
	if err := out.Flush(); err != nil {
		return err
	}
	n := copy(out.buffer, buf[bytesLeft:])
	out.bufferPosition = n
	return nil
}

func (out *BufferedIndexOutput) write(pos int64, buf []byte) error {
	if out.closed {
		return util.Errorf(util.ErrIO, "output is closed: %v", out)
	}
	if err := out.spi.writeInternal(pos, buf); err != nil {
		return err
	}
	metrics.StoreBytesWritten.WithLabelValues(out.backend).Add(float64(len(buf)))
	return nil
}

func (out *BufferedIndexOutput) Flush() error {
	if out.bufferPosition == 0 {
		return nil
	}
	if err := out.write(out.bufferStart, out.buffer[:out.bufferPosition]); err != nil {
		return err
	}
	out.bufferStart += int64(out.bufferPosition)
	out.bufferPosition = 0
	return nil
}

func (out *BufferedIndexOutput) FilePointer() int64 {
	return out.bufferStart + int64(out.bufferPosition)
}

func (out *BufferedIndexOutput) Seek(pos int64) error {
	if pos < 0 {
		return util.Errorf(util.ErrArgument, "negative seek position %v: %v", pos, out)
	}
	if err := out.Flush(); err != nil {
		return err
	}
	out.bufferStart = pos
	return nil
}

func (out *BufferedIndexOutput) Length() (int64, error) {
	n, err := out.spi.length()
	if err != nil {
		return 0, err
	}
	if end := out.FilePointer(); end > n {
		return end, nil
	}
	return n, nil
}

func (out *BufferedIndexOutput) Close() error {
	if out.closed {
		return nil
	}
	err := out.Flush()
	out.closed = true
	return util.CloseWhileHandlingError(err, closerFunc(out.spi.close))
}

func (out *BufferedIndexOutput) String() string {
	return out.desc
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
