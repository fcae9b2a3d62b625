package util

/*
DataOutput writes the low-level data types read back by DataInput.

A DataOutput keeps a file position and may only be used by one goroutine
at a time.
*/
type DataOutput interface {
	DataWriter
	WriteInt(i int32) error
	WriteUInt(i uint32) error
	WriteLong(i int64) error
	WriteULong(i uint64) error
	WriteVInt(i uint32) error
	WriteVLong(i uint64) error
	WriteVOff(i int64) error
	WriteString(s string) error
	CopyBytes(input DataInput, numBytes int64) error
}

type DataWriter interface {
	WriteByte(b byte) error
	WriteBytes(buf []byte) error
}

type DataOutputImpl struct {
	Writer     DataWriter
	copyBuffer []byte
}

func NewDataOutput(part DataWriter) *DataOutputImpl {
	assert1(part != nil)
	return &DataOutputImpl{Writer: part}
}

// Writes a 32-bit integer as four bytes, high-order bytes first.
func (out *DataOutputImpl) WriteUInt(i uint32) error {
	return out.Writer.WriteBytes([]byte{byte(i >> 24), byte(i >> 16), byte(i >> 8), byte(i)})
}

func (out *DataOutputImpl) WriteInt(i int32) error {
	return out.WriteUInt(uint32(i))
}

// Writes a 64-bit integer as eight bytes, high-order bytes first.
func (out *DataOutputImpl) WriteULong(i uint64) error {
	err := out.WriteUInt(uint32(i >> 32))
	if err == nil {
		err = out.WriteUInt(uint32(i))
	}
	return err
}

func (out *DataOutputImpl) WriteLong(i int64) error {
	return out.WriteULong(uint64(i))
}

/*
Writes an unsigned 32-bit integer in a variable-length format, between
one and five bytes. Smaller values take fewer bytes.

	| Value   | Byte 1   | Byte 2   | Byte 3   |
	| 0       | 00000000 |
	| 127     | 01111111 |
	| 128     | 10000000 | 00000001 |
	| 16,383  | 11111111 | 01111111 |
	| 16,384  | 10000000 | 10000000 | 00000001 |
*/
func (out *DataOutputImpl) WriteVInt(i uint32) error {
	var buf [maxVIntBytes]byte
	n := 0
	for i >= 0x80 {
		buf[n] = byte(i) | 0x80
		i >>= 7
		n++
	}
	buf[n] = byte(i)
	return out.Writer.WriteBytes(buf[:n+1])
}

// Same encoding as WriteVInt, between one and ten bytes.
func (out *DataOutputImpl) WriteVLong(i uint64) error {
	var buf [maxVLongBytes]byte
	n := 0
	for i >= 0x80 {
		buf[n] = byte(i) | 0x80
		i >>= 7
		n++
	}
	buf[n] = byte(i)
	return out.Writer.WriteBytes(buf[:n+1])
}

// Writes a file offset. Offsets are never negative in a valid file, so the
// value is written as an unsigned VLong.
func (out *DataOutputImpl) WriteVOff(i int64) error {
	return out.WriteVLong(uint64(i))
}

func (out *DataOutputImpl) WriteString(s string) error {
	err := out.WriteVInt(uint32(len(s)))
	if err == nil {
		err = out.Writer.WriteBytes([]byte(s))
	}
	return err
}

const DATA_OUTPUT_COPY_BUFFER_SIZE = 16384

// CopyBytes copies numBytes bytes from input to this output.
func (out *DataOutputImpl) CopyBytes(input DataInput, numBytes int64) error {
	assert1(numBytes >= 0)
	if out.copyBuffer == nil {
		out.copyBuffer = make([]byte, DATA_OUTPUT_COPY_BUFFER_SIZE)
	}
	for left := numBytes; left > 0; {
		toCopy := int64(len(out.copyBuffer))
		if left < toCopy {
			toCopy = left
		}
		if err := input.ReadBytes(out.copyBuffer[:toCopy]); err != nil {
			return err
		}
		if err := out.Writer.WriteBytes(out.copyBuffer[:toCopy]); err != nil {
			return err
		}
		left -= toCopy
	}
	return nil
}

// VIntLength returns the number of bytes WriteVLong needs for n.
func VIntLength(n uint64) int {
	size := 1
	for n >= 0x80 {
		n >>= 7
		size++
	}
	return size
}
