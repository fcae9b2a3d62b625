package index

import (
	"io"
	"sync"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

/*
Stored fields are kept in two files. The index (.fdx) is a header and
then one ULong per document pointing at its data in .fdt:

	Document   --> FieldCount, <Field>^FieldCount
	Field      --> FieldNum, Flags, ValueCount, <Length>^ValueCount, <Bytes>^ValueCount
	FieldCount, FieldNum, ValueCount, Length --> VInt
	Flags      --> Byte

Values of a compressed field are stored compressed, and Length is the
compressed length.
*/
const (
	fieldFlagBinary = 0x1

	fdxHeaderLength = 9 + len(CODEC_FIELDS_IDX)
)

// FieldsWriter appends the stored fields of documents to a segment.
type FieldsWriter struct {
	fis      *FieldInfos
	fdt, fdx store.IndexOutput
	docs     int
	buf      []byte
}

func NewFieldsWriter(s store.Store, segment string, fis *FieldInfos) (*FieldsWriter, error) {
	w := &FieldsWriter{fis: fis}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(w.closers()...)
		}
	}()

	var err error
	if w.fdt, err = s.NewOutput(util.SegmentFileName(segment, "", FIELDS_EXTENSION)); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.fdt, CODEC_FIELDS_DATA, VERSION_CURRENT); err != nil {
		return nil, err
	}
	if w.fdx, err = s.NewOutput(util.SegmentFileName(segment, "", FIELDS_INDEX_EXTENSION)); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.fdx, CODEC_FIELDS_IDX, VERSION_CURRENT); err != nil {
		return nil, err
	}
	success = true
	return w, nil
}

func (w *FieldsWriter) closers() []io.Closer {
	var ans []io.Closer
	if w.fdt != nil {
		ans = append(ans, w.fdt)
	}
	if w.fdx != nil {
		ans = append(ans, w.fdx)
	}
	return ans
}

// Writes the stored fields of doc. Every field of doc must be known to
// the writer's field infos.
func (w *FieldsWriter) AddDocument(doc *Document) error {
	var stored []*DocField
	var infos []*FieldInfo
	for _, df := range doc.Fields {
		fi := w.fis.ByName(df.Name)
		if fi == nil {
			return util.Errorf(util.ErrArgument, "unknown field %v", df.Name)
		}
		if fi.IsStored() {
			stored = append(stored, df)
			infos = append(infos, fi)
		}
	}

	if err := w.fdx.WriteULong(uint64(w.fdt.FilePointer())); err != nil {
		return err
	}
	if err := w.fdt.WriteVInt(uint32(len(stored))); err != nil {
		return err
	}
	for i, df := range stored {
		if err := w.writeField(infos[i], df); err != nil {
			return err
		}
	}
	w.docs++
	return nil
}

func (w *FieldsWriter) writeField(fi *FieldInfo, df *DocField) error {
	values := df.Data
	if fi.IsCompressed() {
		c, err := codec.ForTag(fi.Compression())
		if err != nil {
			return err
		}
		values = make([][]byte, len(df.Data))
		for i, v := range df.Data {
			start := len(w.buf)
			if w.buf, err = c.Compress(w.buf, v); err != nil {
				return err
			}
			values[i] = w.buf[start:]
		}
		defer func() { w.buf = w.buf[:0] }()
	}

	var flags byte
	if df.Binary {
		flags |= fieldFlagBinary
	}
	err := w.fdt.WriteVInt(uint32(fi.Number))
	if err == nil {
		err = w.fdt.WriteByte(flags)
		if err == nil {
			err = w.fdt.WriteVInt(uint32(len(values)))
		}
	}
	for _, v := range values {
		if err != nil {
			return err
		}
		err = w.fdt.WriteVInt(uint32(len(v)))
	}
	for _, v := range values {
		if err != nil {
			return err
		}
		err = w.fdt.WriteBytes(v)
	}
	return err
}

// Number of documents written.
func (w *FieldsWriter) Size() int {
	return w.docs
}

func (w *FieldsWriter) Close() error {
	return util.Close(w.closers()...)
}

/*
FieldsReader reads stored fields back by document number. It is not
safe for concurrent use; Clone it for each goroutine.
*/
type FieldsReader struct {
	fis      *FieldInfos
	fdt, fdx store.IndexInput
	size     int
}

func OpenFieldsReader(s store.Store, segment string, fis *FieldInfos) (*FieldsReader, error) {
	r := &FieldsReader{fis: fis}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(r.closers()...)
		}
	}()

	var err error
	if r.fdt, err = s.OpenInput(util.SegmentFileName(segment, "", FIELDS_EXTENSION)); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(r.fdt, CODEC_FIELDS_DATA, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	if r.fdx, err = s.OpenInput(util.SegmentFileName(segment, "", FIELDS_INDEX_EXTENSION)); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(r.fdx, CODEC_FIELDS_IDX, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	n := r.fdx.Length() - int64(fdxHeaderLength)
	if n%8 != 0 {
		return nil, util.Errorf(util.ErrIO, "corrupt fields index %v: length %v", r.fdx, r.fdx.Length())
	}
	r.size = int(n / 8)
	success = true
	return r, nil
}

func (r *FieldsReader) closers() []io.Closer {
	var ans []io.Closer
	if r.fdt != nil {
		ans = append(ans, r.fdt)
	}
	if r.fdx != nil {
		ans = append(ans, r.fdx)
	}
	return ans
}

// Number of documents.
func (r *FieldsReader) Size() int {
	return r.size
}

type storedField struct {
	fi      *FieldInfo
	binary  bool
	lengths []int
	start   int64
}

// Positions fdt at document n and returns its stored field count.
func (r *FieldsReader) seekDoc(n int) (int, error) {
	if n < 0 || n >= r.size {
		return 0, util.Errorf(util.ErrArgument, "document %v out of range [0, %v)", n, r.size)
	}
	if err := r.fdx.Seek(int64(fdxHeaderLength) + 8*int64(n)); err != nil {
		return 0, err
	}
	ptr, err := r.fdx.ReadULong()
	if err != nil {
		return 0, err
	}
	if err = r.fdt.Seek(int64(ptr)); err != nil {
		return 0, err
	}
	count, err := r.fdt.ReadVInt()
	return int(count), err
}

// Reads the header of the next field; fdt is left at its first value.
func (r *FieldsReader) readFieldHeader() (*storedField, error) {
	number, err := r.fdt.ReadVInt()
	if err != nil {
		return nil, err
	}
	fi := r.fis.ByNumber(int(number))
	if fi == nil {
		return nil, util.Errorf(util.ErrIO, "corrupt stored field: unknown field number %v", number)
	}
	flags, err := r.fdt.ReadByte()
	if err != nil {
		return nil, err
	}
	count, err := r.fdt.ReadVInt()
	if err != nil {
		return nil, err
	}
	sf := &storedField{fi: fi, binary: flags&fieldFlagBinary != 0, lengths: make([]int, count)}
	for i := range sf.lengths {
		length, err := r.fdt.ReadVInt()
		if err != nil {
			return nil, err
		}
		sf.lengths[i] = int(length)
	}
	sf.start = r.fdt.FilePointer()
	return sf, nil
}

func (sf *storedField) dataLength() int64 {
	var n int64
	for _, l := range sf.lengths {
		n += int64(l)
	}
	return n
}

func decompress(fi *FieldInfo, data []byte) ([]byte, error) {
	if !fi.IsCompressed() {
		return data, nil
	}
	c, err := codec.ForTag(fi.Compression())
	if err != nil {
		return nil, util.WrapError(util.ErrIO, err, "field %v", fi.Name)
	}
	return c.Decompress(make([]byte, 0, len(data)), data)
}

// Loads every stored field of document n.
func (r *FieldsReader) Document(n int) (*Document, error) {
	count, err := r.seekDoc(n)
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	for i := 0; i < count; i++ {
		sf, err := r.readFieldHeader()
		if err != nil {
			return nil, err
		}
		df := &DocField{Name: sf.fi.Name, Boost: 1, Binary: sf.binary, Data: make([][]byte, len(sf.lengths))}
		for j, length := range sf.lengths {
			data := make([]byte, length)
			if err = r.fdt.ReadBytes(data); err != nil {
				return nil, err
			}
			if df.Data[j], err = decompress(sf.fi, data); err != nil {
				return nil, err
			}
		}
		doc.Fields = append(doc.Fields, df)
	}
	return doc, nil
}

/*
Returns document n with its values left on disk. Each value is read the
first time it is asked for. The LazyDocument holds its own input and
must be closed.
*/
func (r *FieldsReader) LazyDocument(n int) (*LazyDocument, error) {
	count, err := r.seekDoc(n)
	if err != nil {
		return nil, err
	}
	doc := &LazyDocument{Number: n}
	for i := 0; i < count; i++ {
		sf, err := r.readFieldHeader()
		if err != nil {
			return nil, err
		}
		doc.Fields = append(doc.Fields, &LazyField{
			Name:   sf.fi.Name,
			Binary: sf.binary,
			doc:    doc,
			field:  sf,
			cache:  make([][]byte, len(sf.lengths)),
		})
		if err = r.fdt.Seek(sf.start + sf.dataLength()); err != nil {
			return nil, err
		}
	}
	doc.fdt = r.fdt.Clone()
	return doc, nil
}

// Returns a reader over the same files that moves independently.
func (r *FieldsReader) Clone() *FieldsReader {
	return &FieldsReader{
		fis:  r.fis,
		fdt:  r.fdt.Clone(),
		fdx:  r.fdx.Clone(),
		size: r.size,
	}
}

func (r *FieldsReader) Close() error {
	return util.Close(r.closers()...)
}

// LazyDocument is a stored document whose values load on demand.
type LazyDocument struct {
	Number int
	Fields []*LazyField

	lock sync.Mutex
	fdt  store.IndexInput
}

func (doc *LazyDocument) Field(name string) *LazyField {
	for _, lf := range doc.Fields {
		if lf.Name == name {
			return lf
		}
	}
	return nil
}

// Loads every value.
func (doc *LazyDocument) Load() (*Document, error) {
	ans := NewDocument()
	for _, lf := range doc.Fields {
		df := &DocField{Name: lf.Name, Boost: 1, Binary: lf.Binary}
		for i := 0; i < lf.Len(); i++ {
			v, err := lf.Value(i)
			if err != nil {
				return nil, err
			}
			df.Data = append(df.Data, v)
		}
		ans.Fields = append(ans.Fields, df)
	}
	return ans, nil
}

func (doc *LazyDocument) Close() error {
	doc.lock.Lock()
	defer doc.lock.Unlock()
	return doc.fdt.Close()
}

type LazyField struct {
	Name   string
	Binary bool

	doc   *LazyDocument
	field *storedField
	cache [][]byte
}

// Number of values.
func (lf *LazyField) Len() int {
	return len(lf.field.lengths)
}

// Returns value i, reading and decompressing it on first access.
func (lf *LazyField) Value(i int) ([]byte, error) {
	if i < 0 || i >= lf.Len() {
		return nil, util.Errorf(util.ErrArgument, "value %v of field %v out of range [0, %v)", i, lf.Name, lf.Len())
	}
	lf.doc.lock.Lock()
	defer lf.doc.lock.Unlock()
	if lf.cache[i] != nil {
		return lf.cache[i], nil
	}

	pos := lf.field.start
	for _, l := range lf.field.lengths[:i] {
		pos += int64(l)
	}
	if err := lf.doc.fdt.Seek(pos); err != nil {
		return nil, err
	}
	data := make([]byte, lf.field.lengths[i])
	if err := lf.doc.fdt.ReadBytes(data); err != nil {
		return nil, err
	}
	data, err := decompress(lf.field.fi, data)
	if err != nil {
		return nil, err
	}
	lf.cache[i] = data
	return data, nil
}

func (lf *LazyField) String(i int) (string, error) {
	v, err := lf.Value(i)
	return string(v), err
}
