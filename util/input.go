package util

/*
DataInput reads the low-level data types of the segment file formats.

Fixed width integers are big-endian. Variable length integers are
little-endian base-128: seven data bits per byte, high bit set on every
byte but the last. Strings are a VInt byte count followed by the raw
bytes.

A DataInput keeps a file position and may only be used by one goroutine
at a time; clone it for each consumer.
*/
type DataInput interface {
	ReadByte() (b byte, err error)
	ReadBytes(buf []byte) error
	ReadInt() (n int32, err error)
	ReadUInt() (n uint32, err error)
	ReadLong() (n int64, err error)
	ReadULong() (n uint64, err error)
	ReadVInt() (n uint32, err error)
	ReadVLong() (n uint64, err error)
	ReadVOff() (n int64, err error)
	ReadString() (s string, err error)
}

// DataReader is the minimal byte source a DataInputImpl decodes from.
type DataReader interface {
	ReadByte() (b byte, err error)
	ReadBytes(buf []byte) error
}

const (
	maxVIntBytes  = 5
	maxVLongBytes = 10
)

type DataInputImpl struct {
	Reader DataReader
}

func NewDataInput(spi DataReader) *DataInputImpl {
	return &DataInputImpl{Reader: spi}
}

func (in *DataInputImpl) ReadUInt() (n uint32, err error) {
	var buf [4]byte
	if err = in.Reader.ReadBytes(buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

func (in *DataInputImpl) ReadInt() (n int32, err error) {
	u, err := in.ReadUInt()
	return int32(u), err
}

func (in *DataInputImpl) ReadULong() (n uint64, err error) {
	hi, err := in.ReadUInt()
	if err != nil {
		return 0, err
	}
	lo, err := in.ReadUInt()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (in *DataInputImpl) ReadLong() (n int64, err error) {
	u, err := in.ReadULong()
	return int64(u), err
}

func (in *DataInputImpl) ReadVInt() (n uint32, err error) {
	var shift uint
	for i := 0; i < maxVIntBytes; i++ {
		b, err := in.Reader.ReadByte()
		if err != nil {
			return 0, err
		}
		n |= uint32(b&0x7F) << shift
		if b < 0x80 {
			if i == maxVIntBytes-1 && b > 0x0F {
				break
			}
			return n, nil
		}
		shift += 7
	}
	return 0, Errorf(ErrIO, "invalid vint detected (too many bits)")
}

func (in *DataInputImpl) ReadVLong() (n uint64, err error) {
	var shift uint
	for i := 0; i < maxVLongBytes; i++ {
		b, err := in.Reader.ReadByte()
		if err != nil {
			return 0, err
		}
		n |= uint64(b&0x7F) << shift
		if b < 0x80 {
			if i == maxVLongBytes-1 && b > 0x01 {
				break
			}
			return n, nil
		}
		shift += 7
	}
	return 0, Errorf(ErrIO, "invalid vlong detected (too many bits)")
}

// ReadVOff reads a file offset written with WriteVOff.
func (in *DataInputImpl) ReadVOff() (n int64, err error) {
	u, err := in.ReadVLong()
	return int64(u), err
}

func (in *DataInputImpl) ReadString() (s string, err error) {
	length, err := in.ReadVInt()
	if err != nil {
		return "", err
	}
	bytes := make([]byte, length)
	if err = in.Reader.ReadBytes(bytes); err != nil {
		return "", err
	}
	return string(bytes), nil
}
