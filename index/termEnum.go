package index

import (
	"bytes"
	"sort"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

/*
TermEnum is a cursor over the terms of one field. It starts before the
first term; Next walks forward and SkipTo or GetTerm jump through the
field's checkpoints.

Term slices returned by a TermEnum are only valid until it moves. A
TermEnum is not safe for concurrent use; Clone it for each goroutine.
*/
type TermEnum struct {
	sfi   *SegmentFieldIndex
	in    store.IndexInput
	field *FieldDict
	pos   int
	term  []byte
	ti    TermInfo
}

func newTermEnum(sfi *SegmentFieldIndex, in store.IndexInput) *TermEnum {
	return &TermEnum{sfi: sfi, in: in, pos: -1}
}

// Positions the enum before the first term of field number.
func (e *TermEnum) SetField(number int) error {
	fd := e.sfi.Field(number)
	if fd == nil {
		return util.Errorf(util.ErrArgument, "no terms for field %v", number)
	}
	if err := e.in.Seek(fd.Ptr); err != nil {
		return err
	}
	e.field = fd
	e.pos = -1
	e.term = e.term[:0]
	e.ti.Clear()
	return nil
}

func (e *TermEnum) Field() *FieldDict {
	return e.field
}

// Ordinal of the current term within its field; -1 before the first
// term, and the field size once exhausted.
func (e *TermEnum) Pos() int {
	return e.pos
}

// The current term, or nil when not positioned on one.
func (e *TermEnum) Term() []byte {
	if e.field == nil || e.pos < 0 || e.pos >= e.field.Size {
		return nil
	}
	return e.term
}

// The TermInfo of the current term.
func (e *TermEnum) TermInfo() *TermInfo {
	return &e.ti
}

// Advances to the next term and returns it, or nil at the end of the
// field.
func (e *TermEnum) Next() ([]byte, error) {
	if e.field == nil {
		return nil, util.Errorf(util.ErrArgument, "no field set")
	}
	if e.pos+1 >= e.field.Size {
		e.pos = e.field.Size
		return nil, nil
	}
	var err error
	if e.term, err = readTerm(e.in, e.term); err != nil {
		return nil, err
	}
	if err = readTermInfo(e.in, &e.ti, e.sfi.SkipInterval); err != nil {
		return nil, err
	}
	e.pos++
	return e.term, nil
}

func (e *TermEnum) indexSeek(cps []checkpoint, idx int) error {
	cp := &cps[idx]
	if err := e.in.Seek(cp.ptr); err != nil {
		return err
	}
	e.pos = idx*e.sfi.IndexInterval - 1
	e.term = append(e.term[:0], cp.term...)
	e.ti = cp.ti
	metrics.TermSeeks.WithLabelValues("index").Inc()
	return nil
}

/*
Moves to the smallest term greater than or equal to target and returns
it, or nil if every term of the field is smaller. The enum jumps to the
last checkpoint before target unless it is already positioned between
that checkpoint and target, then scans forward.
*/
func (e *TermEnum) SkipTo(target []byte) ([]byte, error) {
	if e.field == nil {
		return nil, util.Errorf(util.ErrArgument, "no field set")
	}
	if e.field.Size == 0 {
		e.pos = 0
		return nil, nil
	}
	cps, err := e.sfi.checkpoints(e.field)
	if err != nil {
		return nil, err
	}
	// checkpoint 0 is the start of the field
	idx := sort.Search(len(cps), func(i int) bool {
		return i > 0 && compareTerms(cps[i].term, target) >= 0
	}) - 1

	if e.pos >= idx*e.sfi.IndexInterval-1 && e.pos < e.field.Size &&
		(e.pos < 0 || compareTerms(e.term, target) < 0) {
		metrics.TermSeeks.WithLabelValues("scan").Inc()
	} else if err = e.indexSeek(cps, idx); err != nil {
		return nil, err
	}

	for e.pos < 0 || compareTerms(e.term, target) < 0 {
		t, err := e.Next()
		if t == nil || err != nil {
			return nil, err
		}
	}
	return e.term, nil
}

// Moves to the term at ordinal ord of the field and returns it, or nil
// if ord is out of range.
func (e *TermEnum) GetTerm(ord int) ([]byte, error) {
	if e.field == nil {
		return nil, util.Errorf(util.ErrArgument, "no field set")
	}
	if ord < 0 || ord >= e.field.Size {
		return nil, nil
	}
	if ord == e.pos {
		return e.term, nil
	}
	cps, err := e.sfi.checkpoints(e.field)
	if err != nil {
		return nil, err
	}
	idx := (ord + 1) / e.sfi.IndexInterval
	if idx >= len(cps) {
		idx = len(cps) - 1
	}
	if e.pos < ord && e.pos >= idx*e.sfi.IndexInterval-1 {
		metrics.TermSeeks.WithLabelValues("scan").Inc()
	} else if err = e.indexSeek(cps, idx); err != nil {
		return nil, err
	}
	for e.pos < ord {
		t, err := e.Next()
		if t == nil || err != nil {
			return nil, err
		}
	}
	return e.term, nil
}

// Returns an enum at the same position that moves independently.
func (e *TermEnum) Clone() *TermEnum {
	return &TermEnum{
		sfi:   e.sfi,
		in:    e.in.Clone(),
		field: e.field,
		pos:   e.pos,
		term:  bytes.Clone(e.term),
		ti:    e.ti,
	}
}

func (e *TermEnum) Close() error {
	return e.in.Close()
}
