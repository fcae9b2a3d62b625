package index

import (
	"bytes"
	"io"
	"sync"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

// Idle enums a TermInfosReader keeps for reuse.
const MAX_IDLE_ENUMS = 8

/*
TermInfosReader answers term lookups against the term dictionary of a
segment. It is safe for concurrent use: each lookup borrows a private
TermEnum, taken from a bounded list of idle clones or cloned afresh.
*/
type TermInfosReader struct {
	segment string
	sfi     *SegmentFieldIndex
	tis     store.IndexInput

	lock   sync.Mutex // guards idle and closed
	idle   []*TermEnum
	closed bool
}

func OpenTermInfosReader(s store.Store, segment string) (*TermInfosReader, error) {
	r := &TermInfosReader{segment: segment}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(r.closers()...)
		}
	}()

	var err error
	if r.sfi, err = OpenSegmentFieldIndex(s, segment); err != nil {
		return nil, err
	}
	if r.tis, err = s.OpenInput(util.SegmentFileName(segment, "", TERM_INFOS_EXTENSION)); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(r.tis, CODEC_TERM_INFOS, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	success = true
	return r, nil
}

func (r *TermInfosReader) closers() []io.Closer {
	var ans []io.Closer
	for _, e := range r.idle {
		ans = append(ans, e)
	}
	if r.tis != nil {
		ans = append(ans, r.tis)
	}
	if r.sfi != nil {
		ans = append(ans, r.sfi)
	}
	return ans
}

func (r *TermInfosReader) FieldIndex() *SegmentFieldIndex {
	return r.sfi
}

// Returns the number of terms of field number.
func (r *TermInfosReader) Size(field int) int {
	if fd := r.sfi.Field(field); fd != nil {
		return fd.Size
	}
	return 0
}

func (r *TermInfosReader) borrow(field int) (*TermEnum, error) {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return nil, util.Errorf(util.ErrIO, "term dictionary of segment %v is closed", r.segment)
	}
	var e *TermEnum
	if n := len(r.idle); n > 0 {
		e, r.idle = r.idle[n-1], r.idle[:n-1]
	} else {
		e = newTermEnum(r.sfi, r.tis.Clone())
	}
	r.lock.Unlock()

	if err := e.SetField(field); err != nil {
		r.release(e)
		return nil, err
	}
	return e, nil
}

// Returns e to the idle list, or closes it when the list is full.
func (r *TermInfosReader) release(e *TermEnum) {
	r.lock.Lock()
	if !r.closed && len(r.idle) < MAX_IDLE_ENUMS {
		r.idle = append(r.idle, e)
		e = nil
	}
	r.lock.Unlock()
	if e != nil {
		if err := e.Close(); err != nil {
			log.Warningf("Couldn't close term enum of segment %v: %v", r.segment, err)
		}
	}
}

// Returns the TermInfo of term in field, or nil if the term is absent.
func (r *TermInfosReader) GetTermInfo(field int, term []byte) (*TermInfo, error) {
	if r.sfi.Field(field) == nil {
		return nil, nil
	}
	e, err := r.borrow(field)
	if err != nil {
		return nil, err
	}
	defer r.release(e)

	found, err := e.SkipTo(term)
	if err != nil || found == nil || !bytes.Equal(found, term) {
		return nil, err
	}
	ti := *e.TermInfo()
	return &ti, nil
}

// Returns the term at ordinal ord of field, or nil if out of range.
func (r *TermInfosReader) GetTerm(field, ord int) ([]byte, error) {
	if r.sfi.Field(field) == nil {
		return nil, nil
	}
	e, err := r.borrow(field)
	if err != nil {
		return nil, err
	}
	defer r.release(e)

	t, err := e.GetTerm(ord)
	if t == nil || err != nil {
		return nil, err
	}
	return bytes.Clone(t), nil
}

// Returns a new enum positioned before the first term of field. The
// caller closes it.
func (r *TermInfosReader) Enum(field int) (*TermEnum, error) {
	e := newTermEnum(r.sfi, r.tis.Clone())
	if err := e.SetField(field); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (r *TermInfosReader) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	log.Debugf("Closing term dictionary of segment %v (%v idle enums)", r.segment, len(r.idle))
	err := util.Close(r.closers()...)
	r.idle = nil
	return err
}
