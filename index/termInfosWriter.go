package index

import (
	"io"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

/*
TermInfosWriter writes the term dictionary of a segment: the term infos
(.tis), their checkpoints (.tix) and, on Close, the per-field index
(.tfx).

Fields are started in increasing number order, and the terms of a field
are added in strictly increasing byte order. Before every
indexInterval-th term of a field, the previous term, its TermInfo and the
.tis position are recorded as a checkpoint, so checkpoint i restores the
state just before term i*indexInterval.

The .tfx file is:

	Header, IndexInterval, SkipInterval, FieldCount, <Field>^FieldCount
	Field --> FieldNum, IndexPtr, Ptr, IndexCnt, Size
	IndexInterval, SkipInterval, FieldCount, FieldNum, IndexCnt, Size --> VInt
	IndexPtr, Ptr --> VLong

Each checkpoint in .tix is a Term and a TermInfo coded against the
previous checkpoint, then the VLong distance from the previous
checkpoint's .tis position.
*/
type TermInfosWriter struct {
	segment       string
	store         store.Store
	indexInterval int
	skipInterval  int

	tis, tix store.IndexOutput
	fields   []*FieldDict
	field    *FieldDict

	lastTerm      []byte
	lastTi        TermInfo
	lastIndexTerm []byte
	lastIndexTi   TermInfo
	lastIndexPtr  int64
}

func NewTermInfosWriter(s store.Store, segment string, indexInterval, skipInterval int) (*TermInfosWriter, error) {
	if indexInterval <= 0 {
		return nil, util.Errorf(util.ErrArgument, "indexInterval must be positive (got %v)", indexInterval)
	}
	if skipInterval <= 0 {
		return nil, util.Errorf(util.ErrArgument, "skipInterval must be positive (got %v)", skipInterval)
	}
	w := &TermInfosWriter{
		segment:       segment,
		store:         s,
		indexInterval: indexInterval,
		skipInterval:  skipInterval,
	}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(w.closers()...)
		}
	}()

	var err error
	if w.tis, err = s.NewOutput(util.SegmentFileName(segment, "", TERM_INFOS_EXTENSION)); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.tis, CODEC_TERM_INFOS, VERSION_CURRENT); err != nil {
		return nil, err
	}
	if w.tix, err = s.NewOutput(util.SegmentFileName(segment, "", TERM_INDEX_EXTENSION)); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.tix, CODEC_TERM_INDEX, VERSION_CURRENT); err != nil {
		return nil, err
	}
	success = true
	return w, nil
}

func (w *TermInfosWriter) closers() []io.Closer {
	var ans []io.Closer
	if w.tis != nil {
		ans = append(ans, w.tis)
	}
	if w.tix != nil {
		ans = append(ans, w.tix)
	}
	return ans
}

// Starts the term run of field number. Numbers must increase.
func (w *TermInfosWriter) StartField(number int) error {
	if number < 0 {
		return util.Errorf(util.ErrArgument, "negative field number %v", number)
	}
	if w.field != nil && number <= w.field.Number {
		return util.Errorf(util.ErrArgument,
			"field %v started after field %v", number, w.field.Number)
	}
	w.field = &FieldDict{
		Number:   number,
		Ptr:      w.tis.FilePointer(),
		IndexPtr: w.tix.FilePointer(),
	}
	w.fields = append(w.fields, w.field)
	w.lastTerm = w.lastTerm[:0]
	w.lastTi.Clear()
	w.lastIndexTerm = w.lastIndexTerm[:0]
	w.lastIndexTi.Clear()
	w.lastIndexPtr = w.field.Ptr
	return nil
}

// Adds term to the current field. The term must be greater than the
// previous term of the field.
func (w *TermInfosWriter) Add(term []byte, ti *TermInfo) error {
	if w.field == nil {
		return util.Errorf(util.ErrArgument, "term %q added before any field", term)
	}
	if w.field.Size > 0 && compareTerms(w.lastTerm, term) >= 0 {
		return util.Errorf(util.ErrArgument,
			"terms out of order in field %v: %q after %q", w.field.Number, term, w.lastTerm)
	}
	if ti.DocFreq < 0 {
		return util.Errorf(util.ErrArgument, "negative docFreq %v for term %q", ti.DocFreq, term)
	}

	if w.field.Size%w.indexInterval == 0 {
		if err := w.checkpoint(); err != nil {
			return err
		}
	}
	err := writeTerm(w.tis, w.lastTerm, term)
	if err == nil {
		err = writeTermInfo(w.tis, &w.lastTi, ti, w.skipInterval)
	}
	if err != nil {
		return err
	}
	w.lastTerm = append(w.lastTerm[:0], term...)
	w.lastTi = *ti
	w.field.Size++
	return nil
}

func (w *TermInfosWriter) checkpoint() error {
	ptr := w.tis.FilePointer()
	err := writeTerm(w.tix, w.lastIndexTerm, w.lastTerm)
	if err == nil {
		err = writeTermInfo(w.tix, &w.lastIndexTi, &w.lastTi, w.skipInterval)
		if err == nil {
			err = w.tix.WriteVLong(uint64(ptr - w.lastIndexPtr))
		}
	}
	if err != nil {
		return err
	}
	w.lastIndexTerm = append(w.lastIndexTerm[:0], w.lastTerm...)
	w.lastIndexTi = w.lastTi
	w.lastIndexPtr = ptr
	w.field.IndexCnt++
	return nil
}

// Writes the field index and closes every file.
func (w *TermInfosWriter) Close() (err error) {
	var tfx store.IndexOutput
	defer func() {
		closers := w.closers()
		if tfx != nil {
			closers = append(closers, tfx)
		}
		err = util.CloseWhileHandlingError(err, closers...)
	}()

	if tfx, err = w.store.NewOutput(util.SegmentFileName(w.segment, "", FIELD_INDEX_EXTENSION)); err != nil {
		return err
	}
	if err = codec.WriteHeader(tfx, CODEC_FIELD_INDEX, VERSION_CURRENT); err != nil {
		return err
	}
	if err = tfx.WriteVInt(uint32(w.indexInterval)); err != nil {
		return err
	}
	if err = tfx.WriteVInt(uint32(w.skipInterval)); err != nil {
		return err
	}
	if err = tfx.WriteVInt(uint32(len(w.fields))); err != nil {
		return err
	}
	for _, fd := range w.fields {
		if err = fd.write(tfx); err != nil {
			return err
		}
	}
	log.Debugf("Wrote term dictionary of segment %v: %v fields", w.segment, len(w.fields))
	return nil
}
