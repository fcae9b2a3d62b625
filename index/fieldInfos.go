package index

import (
	"fmt"
	"math"
	"strings"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

// Field info bits.
const (
	FI_IS_STORED         = 0x001
	FI_IS_COMPRESSED     = 0x002
	FI_IS_INDEXED        = 0x004
	FI_IS_TOKENIZED      = 0x008
	FI_OMIT_NORMS        = 0x010
	FI_STORE_TERM_VECTOR = 0x020
	FI_STORE_POSITIONS   = 0x040
	FI_STORE_OFFSETS     = 0x080

	FI_COMPRESSION_SHIFT = 8
	FI_COMPRESSION_MASK  = 0xf << FI_COMPRESSION_SHIFT

	fiAllBits = 0xff | FI_COMPRESSION_MASK
)

type StoreOption int

const (
	STORE_NO StoreOption = iota
	STORE_YES
	STORE_COMPRESS
)

type IndexOption int

const (
	INDEX_NO IndexOption = iota
	INDEX_UNTOKENIZED
	INDEX_YES
	INDEX_UNTOKENIZED_OMIT_NORMS
	INDEX_YES_OMIT_NORMS
)

type TermVectorOption int

const (
	TERM_VECTOR_NO TermVectorOption = iota
	TERM_VECTOR_YES
	TERM_VECTOR_WITH_POSITIONS
	TERM_VECTOR_WITH_OFFSETS
	TERM_VECTOR_WITH_POSITIONS_OFFSETS
)

// Packs the options into field info bits. A field must be stored or
// indexed, and only indexed fields may have term vectors.
func fieldBits(st StoreOption, idx IndexOption, tv TermVectorOption) (uint32, error) {
	var bits uint32
	switch st {
	case STORE_NO:
	case STORE_YES:
		bits |= FI_IS_STORED
	case STORE_COMPRESS:
		bits |= FI_IS_STORED | FI_IS_COMPRESSED
	default:
		return 0, util.Errorf(util.ErrArgument, "unknown store option %v", st)
	}
	switch idx {
	case INDEX_NO:
	case INDEX_UNTOKENIZED:
		bits |= FI_IS_INDEXED
	case INDEX_YES:
		bits |= FI_IS_INDEXED | FI_IS_TOKENIZED
	case INDEX_UNTOKENIZED_OMIT_NORMS:
		bits |= FI_IS_INDEXED | FI_OMIT_NORMS
	case INDEX_YES_OMIT_NORMS:
		bits |= FI_IS_INDEXED | FI_IS_TOKENIZED | FI_OMIT_NORMS
	default:
		return 0, util.Errorf(util.ErrArgument, "unknown index option %v", idx)
	}
	switch tv {
	case TERM_VECTOR_NO:
	case TERM_VECTOR_YES:
		bits |= FI_STORE_TERM_VECTOR
	case TERM_VECTOR_WITH_POSITIONS:
		bits |= FI_STORE_TERM_VECTOR | FI_STORE_POSITIONS
	case TERM_VECTOR_WITH_OFFSETS:
		bits |= FI_STORE_TERM_VECTOR | FI_STORE_OFFSETS
	case TERM_VECTOR_WITH_POSITIONS_OFFSETS:
		bits |= FI_STORE_TERM_VECTOR | FI_STORE_POSITIONS | FI_STORE_OFFSETS
	default:
		return 0, util.Errorf(util.ErrArgument, "unknown term vector option %v", tv)
	}
	return bits, checkBits(bits)
}

func checkBits(bits uint32) error {
	if bits&^fiAllBits != 0 {
		return util.Errorf(util.ErrArgument, "unknown field info bits %#x", bits&^fiAllBits)
	}
	if bits&(FI_IS_STORED|FI_IS_INDEXED) == 0 {
		return util.Errorf(util.ErrArgument, "field must be stored or indexed")
	}
	if bits&FI_STORE_TERM_VECTOR != 0 && bits&FI_IS_INDEXED == 0 {
		return util.Errorf(util.ErrArgument, "term vectors require an indexed field")
	}
	if bits&FI_IS_COMPRESSED != 0 && bits&FI_IS_STORED == 0 {
		return util.Errorf(util.ErrArgument, "compressed field must be stored")
	}
	return nil
}

// FieldInfo describes how one field is stored and indexed.
type FieldInfo struct {
	Name   string
	Number int
	Boost  float32
	bits   uint32
}

func NewFieldInfo(name string, st StoreOption, idx IndexOption, tv TermVectorOption) (*FieldInfo, error) {
	bits, err := fieldBits(st, idx, tv)
	if err != nil {
		return nil, util.WrapError(util.ErrArgument, err, "field %v", name)
	}
	return &FieldInfo{Name: name, Boost: 1, bits: bits}, nil
}

func (fi *FieldInfo) Bits() uint32          { return fi.bits }
func (fi *FieldInfo) IsStored() bool        { return fi.bits&FI_IS_STORED != 0 }
func (fi *FieldInfo) IsCompressed() bool    { return fi.bits&FI_IS_COMPRESSED != 0 }
func (fi *FieldInfo) IsIndexed() bool       { return fi.bits&FI_IS_INDEXED != 0 }
func (fi *FieldInfo) IsTokenized() bool     { return fi.bits&FI_IS_TOKENIZED != 0 }
func (fi *FieldInfo) OmitNorms() bool       { return fi.bits&FI_OMIT_NORMS != 0 }
func (fi *FieldInfo) StoreTermVector() bool { return fi.bits&FI_STORE_TERM_VECTOR != 0 }
func (fi *FieldInfo) StorePositions() bool  { return fi.bits&FI_STORE_POSITIONS != 0 }
func (fi *FieldInfo) StoreOffsets() bool    { return fi.bits&FI_STORE_OFFSETS != 0 }

// Algorithm compressing the stored values of the field. Only meaningful
// for compressed fields.
func (fi *FieldInfo) Compression() codec.Compression {
	return codec.Compression((fi.bits & FI_COMPRESSION_MASK) >> FI_COMPRESSION_SHIFT)
}

func (fi *FieldInfo) SetCompression(c codec.Compression) {
	fi.bits = fi.bits&^FI_COMPRESSION_MASK | uint32(c)<<FI_COMPRESSION_SHIFT&FI_COMPRESSION_MASK
}

func (fi *FieldInfo) String() string {
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{fi.IsStored(), "stored"},
		{fi.IsCompressed(), "compressed:" + fi.Compression().String()},
		{fi.IsIndexed(), "indexed"},
		{fi.IsTokenized(), "tokenized"},
		{fi.OmitNorms(), "omit_norms"},
		{fi.StoreTermVector(), "term_vector"},
		{fi.StorePositions(), "positions"},
		{fi.StoreOffsets(), "offsets"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	return fmt.Sprintf("%v#%v(%v boost=%v)", fi.Name, fi.Number, strings.Join(flags, ","), fi.Boost)
}

/*
FieldInfos is the set of fields of a segment, numbered in the order they
were added. Fields added by name alone take the collection's default
bits.
*/
type FieldInfos struct {
	defaults uint32
	byNumber []*FieldInfo
	byName   map[string]*FieldInfo
}

func NewFieldInfos(st StoreOption, idx IndexOption, tv TermVectorOption) (*FieldInfos, error) {
	bits, err := fieldBits(st, idx, tv)
	if err != nil {
		return nil, err
	}
	return newFieldInfos(bits), nil
}

func newFieldInfos(defaults uint32) *FieldInfos {
	return &FieldInfos{defaults: defaults, byName: make(map[string]*FieldInfo)}
}

// Sets the compression of fields added by name from now on.
func (fis *FieldInfos) SetDefaultCompression(c codec.Compression) {
	fi := FieldInfo{bits: fis.defaults}
	fi.SetCompression(c)
	fis.defaults = fi.bits
}

func (fis *FieldInfos) DefaultBits() uint32 {
	return fis.defaults
}

// Adds fi, assigning it the next field number.
func (fis *FieldInfos) Add(fi *FieldInfo) error {
	if _, ok := fis.byName[fi.Name]; ok {
		return util.Errorf(util.ErrArgument, "field %v already exists", fi.Name)
	}
	fi.Number = len(fis.byNumber)
	fis.byNumber = append(fis.byNumber, fi)
	fis.byName[fi.Name] = fi
	return nil
}

// Adds a field with the default settings.
func (fis *FieldInfos) AddField(name string) (*FieldInfo, error) {
	fi := &FieldInfo{Name: name, Boost: 1, bits: fis.defaults}
	if err := fis.Add(fi); err != nil {
		return nil, err
	}
	return fi, nil
}

// Returns the field named name, adding it with the default settings if
// missing.
func (fis *FieldInfos) GetOrAdd(name string) *FieldInfo {
	if fi, ok := fis.byName[name]; ok {
		return fi
	}
	fi, _ := fis.AddField(name)
	return fi
}

func (fis *FieldInfos) ByName(name string) *FieldInfo {
	return fis.byName[name]
}

func (fis *FieldInfos) ByNumber(number int) *FieldInfo {
	if number < 0 || number >= len(fis.byNumber) {
		return nil
	}
	return fis.byNumber[number]
}

func (fis *FieldInfos) Size() int {
	return len(fis.byNumber)
}

func (fis *FieldInfos) Fields() []*FieldInfo {
	return fis.byNumber
}

func (fis *FieldInfos) HasStored() bool {
	for _, fi := range fis.byNumber {
		if fi.IsStored() {
			return true
		}
	}
	return false
}

func (fis *FieldInfos) String() string {
	var b strings.Builder
	for i, fi := range fis.byNumber {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fi.String())
	}
	return b.String()
}

/*
Field infos file (.fnm):

	Header, DefaultBits, FieldCount, <FieldName, FieldBits, Boost>^FieldCount
	DefaultBits, FieldBits, Boost --> UInt32
	FieldCount --> VInt
	FieldName --> String

Boost is the IEEE 754 bit pattern of the float32 boost.
*/
func (fis *FieldInfos) Write(out util.DataOutput) error {
	err := codec.WriteHeader(out, CODEC_FIELD_INFOS, VERSION_CURRENT)
	if err == nil {
		err = out.WriteUInt(fis.defaults)
		if err == nil {
			err = out.WriteVInt(uint32(len(fis.byNumber)))
		}
	}
	for _, fi := range fis.byNumber {
		if err != nil {
			break
		}
		err = out.WriteString(fi.Name)
		if err == nil {
			err = out.WriteUInt(fi.bits)
			if err == nil {
				err = out.WriteUInt(math.Float32bits(fi.Boost))
			}
		}
	}
	return err
}

func ReadFieldInfos(in util.DataInput) (*FieldInfos, error) {
	if _, err := codec.CheckHeader(in, CODEC_FIELD_INFOS, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	defaults, err := in.ReadUInt()
	if err != nil {
		return nil, err
	}
	if err = checkBits(defaults); err != nil {
		return nil, util.WrapError(util.ErrIO, err, "corrupt default field bits")
	}
	count, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	fis := newFieldInfos(defaults)
	for i := uint32(0); i < count; i++ {
		name, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		bits, err := in.ReadUInt()
		if err != nil {
			return nil, err
		}
		if err = checkBits(bits); err != nil {
			return nil, util.WrapError(util.ErrIO, err, "corrupt bits of field %v", name)
		}
		boost, err := in.ReadUInt()
		if err != nil {
			return nil, err
		}
		fi := &FieldInfo{Name: name, Boost: math.Float32frombits(boost), bits: bits}
		if err = fis.Add(fi); err != nil {
			return nil, util.WrapError(util.ErrIO, err, "corrupt field infos")
		}
	}
	return fis, nil
}

// Writes the field infos of segment to s.
func (fis *FieldInfos) WriteTo(s store.Store, segment string) (err error) {
	out, err := s.NewOutput(util.SegmentFileName(segment, "", FIELD_INFOS_EXTENSION))
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()
	return fis.Write(out)
}

func OpenFieldInfos(s store.Store, segment string) (fis *FieldInfos, err error) {
	in, err := s.OpenInput(util.SegmentFileName(segment, "", FIELD_INFOS_EXTENSION))
	if err != nil {
		return nil, err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	return ReadFieldInfos(in)
}
