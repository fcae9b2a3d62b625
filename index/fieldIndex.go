package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

// FieldDict describes the term run of one field of a segment.
type FieldDict struct {
	Number   int   // field number
	Size     int   // number of terms
	Ptr      int64 // start of the field's terms in .tis
	IndexPtr int64 // start of the field's checkpoints in .tix
	IndexCnt int   // number of checkpoints

	once        sync.Once
	checkpoints []checkpoint
	err         error
}

func (fd *FieldDict) String() string {
	return fmt.Sprintf("field %v: %v terms, %v checkpoints, ptr=%v, indexPtr=%v",
		fd.Number, fd.Size, fd.IndexCnt, fd.Ptr, fd.IndexPtr)
}

func (fd *FieldDict) write(out util.DataOutput) error {
	err := out.WriteVInt(uint32(fd.Number))
	if err == nil {
		err = out.WriteVLong(uint64(fd.IndexPtr))
		if err == nil {
			err = out.WriteVLong(uint64(fd.Ptr))
			if err == nil {
				err = out.WriteVInt(uint32(fd.IndexCnt))
				if err == nil {
					err = out.WriteVInt(uint32(fd.Size))
				}
			}
		}
	}
	return err
}

func readFieldDict(in util.DataInput) (*FieldDict, error) {
	number, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	indexPtr, err := in.ReadVLong()
	if err != nil {
		return nil, err
	}
	ptr, err := in.ReadVLong()
	if err != nil {
		return nil, err
	}
	indexCnt, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	size, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	return &FieldDict{
		Number:   int(number),
		Size:     int(size),
		Ptr:      int64(ptr),
		IndexPtr: int64(indexPtr),
		IndexCnt: int(indexCnt),
	}, nil
}

// Enumerator state restored by a checkpoint: the term before ordinal
// i*indexInterval, its TermInfo and the .tis position after it.
type checkpoint struct {
	term []byte
	ti   TermInfo
	ptr  int64
}

/*
SegmentFieldIndex is the in-memory field index of a segment's term
dictionary, read from .tfx. The checkpoints of a field are read from .tix
the first time the field is searched.

It is safe for concurrent use.
*/
type SegmentFieldIndex struct {
	IndexInterval int
	SkipInterval  int

	segment string
	fields  []*FieldDict // by increasing number
	tix     store.IndexInput
	tixLock sync.Mutex
}

func OpenSegmentFieldIndex(s store.Store, segment string) (sfi *SegmentFieldIndex, err error) {
	var tfx store.IndexInput
	if tfx, err = s.OpenInput(util.SegmentFileName(segment, "", FIELD_INDEX_EXTENSION)); err != nil {
		return nil, err
	}
	defer func() {
		if err = util.CloseWhileHandlingError(err, tfx); err != nil && sfi != nil {
			sfi.Close()
			sfi = nil
		}
	}()

	if _, err = codec.CheckHeader(tfx, CODEC_FIELD_INDEX, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	ans := &SegmentFieldIndex{segment: segment}
	indexInterval, err := tfx.ReadVInt()
	if err != nil {
		return nil, err
	}
	skipInterval, err := tfx.ReadVInt()
	if err != nil {
		return nil, err
	}
	if indexInterval == 0 || skipInterval == 0 {
		return nil, util.Errorf(util.ErrIO, "corrupt field index %v: zero interval", tfx)
	}
	ans.IndexInterval, ans.SkipInterval = int(indexInterval), int(skipInterval)

	count, err := tfx.ReadVInt()
	if err != nil {
		return nil, err
	}
	ans.fields = make([]*FieldDict, 0, count)
	for i := 0; i < int(count); i++ {
		fd, err := readFieldDict(tfx)
		if err != nil {
			return nil, err
		}
		if n := len(ans.fields); n > 0 && ans.fields[n-1].Number >= fd.Number {
			return nil, util.Errorf(util.ErrIO, "corrupt field index %v: field %v after %v",
				tfx, fd.Number, ans.fields[n-1].Number)
		}
		ans.fields = append(ans.fields, fd)
	}

	if ans.tix, err = s.OpenInput(util.SegmentFileName(segment, "", TERM_INDEX_EXTENSION)); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(ans.tix, CODEC_TERM_INDEX, VERSION_START, VERSION_CURRENT); err != nil {
		ans.tix.Close()
		return nil, err
	}
	log.Debugf("Opened field index of segment %v: %v fields", segment, count)
	return ans, nil
}

// Returns the dictionary of field number, or nil if the field has no
// terms in this segment.
func (sfi *SegmentFieldIndex) Field(number int) *FieldDict {
	i := sort.Search(len(sfi.fields), func(i int) bool {
		return sfi.fields[i].Number >= number
	})
	if i < len(sfi.fields) && sfi.fields[i].Number == number {
		return sfi.fields[i]
	}
	return nil
}

func (sfi *SegmentFieldIndex) Fields() []*FieldDict {
	return sfi.fields
}

func (sfi *SegmentFieldIndex) checkpoints(fd *FieldDict) ([]checkpoint, error) {
	fd.once.Do(func() {
		fd.checkpoints, fd.err = sfi.loadCheckpoints(fd)
	})
	return fd.checkpoints, fd.err
}

func (sfi *SegmentFieldIndex) loadCheckpoints(fd *FieldDict) ([]checkpoint, error) {
	sfi.tixLock.Lock()
	in := sfi.tix.Clone()
	sfi.tixLock.Unlock()
	defer in.Close()

	if err := in.Seek(fd.IndexPtr); err != nil {
		return nil, err
	}
	ans := make([]checkpoint, fd.IndexCnt)
	var term []byte
	var ti TermInfo
	ptr := fd.Ptr
	for i := range ans {
		var err error
		if term, err = readTerm(in, term); err != nil {
			return nil, err
		}
		if err = readTermInfo(in, &ti, sfi.SkipInterval); err != nil {
			return nil, err
		}
		delta, err := in.ReadVLong()
		if err != nil {
			return nil, err
		}
		ptr += int64(delta)
		ans[i] = checkpoint{term: append([]byte(nil), term...), ti: ti, ptr: ptr}
	}
	log.Debugf("Loaded %v checkpoints of field %v in segment %v", len(ans), fd.Number, sfi.segment)
	return ans, nil
}

func (sfi *SegmentFieldIndex) Close() error {
	return sfi.tix.Close()
}
