/*
Package index reads and writes the files of a segment: the term
dictionary, field infos, stored fields and postings.
*/
package index

import (
	"bytes"
	"fmt"

	"github.com/op/go-logging"

	"github.com/balzaczyy/segstore/util"
)

var log = logging.MustGetLogger("index")

// File extensions of a segment.
const (
	FIELD_INFOS_EXTENSION  = "fnm"
	FIELDS_EXTENSION       = "fdt"
	FIELDS_INDEX_EXTENSION = "fdx"
	TERM_INFOS_EXTENSION   = "tis"
	TERM_INDEX_EXTENSION   = "tix"
	FIELD_INDEX_EXTENSION  = "tfx"
	FREQ_EXTENSION         = "frq"
	PROX_EXTENSION         = "prx"
)

// Codec names and versions written in file headers.
const (
	CODEC_TERM_INFOS  = "SegmentTermInfos"
	CODEC_TERM_INDEX  = "SegmentTermIndex"
	CODEC_FIELD_INDEX = "SegmentFieldIndex"
	CODEC_FIELD_INFOS = "FieldInfos"
	CODEC_FIELDS_DATA = "FieldsData"
	CODEC_FIELDS_IDX  = "FieldsIndex"
	CODEC_FREQ        = "Frequencies"
	CODEC_PROX        = "Positions"

	VERSION_START   = 0
	VERSION_CURRENT = VERSION_START
)

const (
	DEFAULT_INDEX_INTERVAL = 128
	DEFAULT_SKIP_INTERVAL  = 16
)

/*
TermInfo locates the postings of a term: the number of documents holding
it and where its frequencies and positions start. SkipOffset, the
distance from FreqPtr to the term's skip data, is only meaningful when
DocFreq reaches the skip interval.
*/
type TermInfo struct {
	DocFreq    int
	FreqPtr    int64
	ProxPtr    int64
	SkipOffset int64
}

func (ti *TermInfo) Set(other *TermInfo) {
	*ti = *other
}

func (ti *TermInfo) Clear() {
	*ti = TermInfo{}
}

func (ti *TermInfo) Equals(other *TermInfo) bool {
	return *ti == *other
}

func (ti *TermInfo) String() string {
	return fmt.Sprintf("TermInfo(df=%v, frq=%v, prx=%v, skip=%v)",
		ti.DocFreq, ti.FreqPtr, ti.ProxPtr, ti.SkipOffset)
}

/*
Terms and term infos are delta coded against the previous entry of the
same file:

	Term      --> PrefixLength, SuffixLength, Suffix
	TermInfo  --> DocFreq, FreqDelta, ProxDelta, SkipOffset?
	PrefixLength, SuffixLength, DocFreq --> VInt
	FreqDelta, ProxDelta, SkipOffset    --> VOff

SkipOffset is present only if DocFreq >= the skip interval.
*/
func writeTerm(out util.DataOutput, prev, term []byte) error {
	prefix := commonPrefix(prev, term)
	err := out.WriteVInt(uint32(prefix))
	if err == nil {
		err = out.WriteVInt(uint32(len(term) - prefix))
		if err == nil {
			err = out.WriteBytes(term[prefix:])
		}
	}
	return err
}

// Reads a term coded against prev into prev's storage.
func readTerm(in util.DataInput, prev []byte) ([]byte, error) {
	prefix, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	suffix, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	if int(prefix) > len(prev) {
		return nil, util.Errorf(util.ErrIO, "corrupt term: prefix %v longer than previous term %q", prefix, prev)
	}
	term := append(prev[:prefix], make([]byte, suffix)...)
	if err = in.ReadBytes(term[prefix:]); err != nil {
		return nil, err
	}
	return term, nil
}

func commonPrefix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func writeTermInfo(out util.DataOutput, prev, ti *TermInfo, skipInterval int) error {
	err := out.WriteVInt(uint32(ti.DocFreq))
	if err == nil {
		err = out.WriteVOff(ti.FreqPtr - prev.FreqPtr)
		if err == nil {
			err = out.WriteVOff(ti.ProxPtr - prev.ProxPtr)
			if err == nil && ti.DocFreq >= skipInterval {
				err = out.WriteVOff(ti.SkipOffset)
			}
		}
	}
	return err
}

// Reads a term info coded against ti, replacing it.
func readTermInfo(in util.DataInput, ti *TermInfo, skipInterval int) error {
	docFreq, err := in.ReadVInt()
	if err != nil {
		return err
	}
	freqDelta, err := in.ReadVOff()
	if err != nil {
		return err
	}
	proxDelta, err := in.ReadVOff()
	if err != nil {
		return err
	}
	ti.DocFreq = int(docFreq)
	ti.FreqPtr += freqDelta
	ti.ProxPtr += proxDelta
	ti.SkipOffset = 0
	if ti.DocFreq >= skipInterval {
		if ti.SkipOffset, err = in.ReadVOff(); err != nil {
			return err
		}
	}
	return nil
}

// Compares terms as unsigned bytes.
func compareTerms(a, b []byte) int {
	return bytes.Compare(a, b)
}
