package index

import (
	"io"

	"github.com/balzaczyy/segstore/codec"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

// Posting lists the positions of a term in one document.
type Posting struct {
	Doc       int
	Positions []int
}

/*
PostingsWriter writes the postings of terms to .frq and .prx. Terms are
written one after another, and AddTerm returns the TermInfo locating the
postings just written.

	FreqFile   --> Header, <TermFreqs, SkipData?>^TermCount
	TermFreqs  --> <DocCode, Freq?>^DocFreq
	SkipData   --> <DocDelta, FreqDelta, ProxDelta>^((DocFreq-1)/SkipInterval)
	ProxFile   --> Header, <<PositionDelta>^Freq>^DocFreq

DocCode is the document number delta shifted left by one; the low bit
is set when Freq is one and Freq is then omitted. A skip entry follows
every SkipInterval-th document but the last, holding the document and
the .frq and .prx positions after it, each relative to the previous
entry. SkipData is present when DocFreq >= SkipInterval, at
FreqPtr+SkipOffset.
*/
type PostingsWriter struct {
	skipInterval int
	frq, prx     store.IndexOutput
	skips        []skipEntry
}

type skipEntry struct {
	doc     int
	count   int
	freqPtr int64
	proxPtr int64
}

func NewPostingsWriter(s store.Store, segment string, skipInterval int) (*PostingsWriter, error) {
	if skipInterval <= 0 {
		return nil, util.Errorf(util.ErrArgument, "skipInterval must be positive (got %v)", skipInterval)
	}
	w := &PostingsWriter{skipInterval: skipInterval}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(w.closers()...)
		}
	}()

	var err error
	if w.frq, err = s.NewOutput(util.SegmentFileName(segment, "", FREQ_EXTENSION)); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.frq, CODEC_FREQ, VERSION_CURRENT); err != nil {
		return nil, err
	}
	if w.prx, err = s.NewOutput(util.SegmentFileName(segment, "", PROX_EXTENSION)); err != nil {
		return nil, err
	}
	if err = codec.WriteHeader(w.prx, CODEC_PROX, VERSION_CURRENT); err != nil {
		return nil, err
	}
	success = true
	return w, nil
}

func (w *PostingsWriter) closers() []io.Closer {
	var ans []io.Closer
	if w.frq != nil {
		ans = append(ans, w.frq)
	}
	if w.prx != nil {
		ans = append(ans, w.prx)
	}
	return ans
}

func checkPostings(postings []Posting) error {
	if len(postings) == 0 {
		return util.Errorf(util.ErrArgument, "empty postings")
	}
	last := -1
	for _, p := range postings {
		if p.Doc <= last {
			return util.Errorf(util.ErrArgument, "document %v after %v", p.Doc, last)
		}
		last = p.Doc
		if len(p.Positions) == 0 {
			return util.Errorf(util.ErrArgument, "no positions in document %v", p.Doc)
		}
		lastPos := 0
		for _, pos := range p.Positions {
			if pos < lastPos {
				return util.Errorf(util.ErrArgument, "position %v after %v in document %v", pos, lastPos, p.Doc)
			}
			lastPos = pos
		}
	}
	return nil
}

// Writes the postings of the next term. Documents must increase and
// every document needs at least one position.
func (w *PostingsWriter) AddTerm(postings []Posting) (*TermInfo, error) {
	if err := checkPostings(postings); err != nil {
		return nil, err
	}
	ti := &TermInfo{
		DocFreq: len(postings),
		FreqPtr: w.frq.FilePointer(),
		ProxPtr: w.prx.FilePointer(),
	}
	w.skips = w.skips[:0]
	lastDoc := 0
	for i, p := range postings {
		if err := w.writeDoc(p, p.Doc-lastDoc); err != nil {
			return nil, err
		}
		lastDoc = p.Doc
		if n := i + 1; n%w.skipInterval == 0 && n < len(postings) {
			w.skips = append(w.skips, skipEntry{
				doc:     p.Doc,
				count:   n,
				freqPtr: w.frq.FilePointer(),
				proxPtr: w.prx.FilePointer(),
			})
		}
	}

	if ti.DocFreq >= w.skipInterval {
		ti.SkipOffset = w.frq.FilePointer() - ti.FreqPtr
		if err := w.writeSkips(ti); err != nil {
			return nil, err
		}
	}
	return ti, nil
}

func (w *PostingsWriter) writeDoc(p Posting, delta int) error {
	freq := len(p.Positions)
	var err error
	if freq == 1 {
		err = w.frq.WriteVInt(uint32(delta)<<1 | 1)
	} else {
		err = w.frq.WriteVInt(uint32(delta) << 1)
		if err == nil {
			err = w.frq.WriteVInt(uint32(freq))
		}
	}
	lastPos := 0
	for _, pos := range p.Positions {
		if err != nil {
			return err
		}
		err = w.prx.WriteVInt(uint32(pos - lastPos))
		lastPos = pos
	}
	return err
}

func (w *PostingsWriter) writeSkips(ti *TermInfo) error {
	last := skipEntry{freqPtr: ti.FreqPtr, proxPtr: ti.ProxPtr}
	for _, e := range w.skips {
		err := w.frq.WriteVInt(uint32(e.doc - last.doc))
		if err == nil {
			err = w.frq.WriteVLong(uint64(e.freqPtr - last.freqPtr))
			if err == nil {
				err = w.frq.WriteVLong(uint64(e.proxPtr - last.proxPtr))
			}
		}
		if err != nil {
			return err
		}
		last = e
	}
	return nil
}

func (w *PostingsWriter) Close() error {
	return util.Close(w.closers()...)
}

// PostingsReader opens TermDocs over the postings of a segment.
type PostingsReader struct {
	skipInterval int
	frq, prx     store.IndexInput
}

func OpenPostingsReader(s store.Store, segment string, skipInterval int) (*PostingsReader, error) {
	if skipInterval <= 0 {
		return nil, util.Errorf(util.ErrArgument, "skipInterval must be positive (got %v)", skipInterval)
	}
	r := &PostingsReader{skipInterval: skipInterval}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(r.closers()...)
		}
	}()

	var err error
	if r.frq, err = s.OpenInput(util.SegmentFileName(segment, "", FREQ_EXTENSION)); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(r.frq, CODEC_FREQ, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	if r.prx, err = s.OpenInput(util.SegmentFileName(segment, "", PROX_EXTENSION)); err != nil {
		return nil, err
	}
	if _, err = codec.CheckHeader(r.prx, CODEC_PROX, VERSION_START, VERSION_CURRENT); err != nil {
		return nil, err
	}
	success = true
	return r, nil
}

func (r *PostingsReader) closers() []io.Closer {
	var ans []io.Closer
	if r.frq != nil {
		ans = append(ans, r.frq)
	}
	if r.prx != nil {
		ans = append(ans, r.prx)
	}
	return ans
}

// Returns a new unpositioned TermDocs. The caller closes it.
func (r *PostingsReader) TermDocs() *TermDocs {
	return &TermDocs{
		skipInterval: r.skipInterval,
		frq:          r.frq.Clone(),
		prx:          r.prx.Clone(),
	}
}

func (r *PostingsReader) Close() error {
	return util.Close(r.closers()...)
}

/*
TermDocs iterates the documents of one term at a time. Seek positions it
before the first document of a term; Next and SkipTo advance it.
Positions of the current document are read on request.

A TermDocs is not safe for concurrent use.
*/
type TermDocs struct {
	skipInterval int
	frq, prx     store.IndexInput

	ti      TermInfo
	count   int // documents read
	doc     int
	freq    int
	pending int // positions of doc not yet read

	skips       []skipEntry
	skipsLoaded bool
}

// Positions the enumerator before the first document of the term
// described by ti.
func (td *TermDocs) Seek(ti *TermInfo) error {
	if err := td.frq.Seek(ti.FreqPtr); err != nil {
		return err
	}
	if err := td.prx.Seek(ti.ProxPtr); err != nil {
		return err
	}
	td.ti = *ti
	td.count, td.doc, td.freq, td.pending = 0, 0, 0, 0
	td.skips = td.skips[:0]
	td.skipsLoaded = false
	return nil
}

func (td *TermDocs) Doc() int  { return td.doc }
func (td *TermDocs) Freq() int { return td.freq }

// Advances to the next document, returning false past the last one.
func (td *TermDocs) Next() (bool, error) {
	if td.count >= td.ti.DocFreq {
		return false, nil
	}
	if err := td.skipPositions(); err != nil {
		return false, err
	}
	code, err := td.frq.ReadVInt()
	if err != nil {
		return false, err
	}
	td.doc += int(code >> 1)
	if code&1 != 0 {
		td.freq = 1
	} else {
		freq, err := td.frq.ReadVInt()
		if err != nil {
			return false, err
		}
		td.freq = int(freq)
	}
	td.pending = td.freq
	td.count++
	return true, nil
}

func (td *TermDocs) skipPositions() error {
	for ; td.pending > 0; td.pending-- {
		if _, err := td.prx.ReadVInt(); err != nil {
			return err
		}
	}
	return nil
}

// Reads the positions of the current document. Only valid once per
// document.
func (td *TermDocs) Positions() ([]int, error) {
	if td.pending != td.freq {
		return nil, util.Errorf(util.ErrUnsupportedOperation, "positions of document %v already read", td.doc)
	}
	ans := make([]int, td.freq)
	pos := 0
	for i := range ans {
		delta, err := td.prx.ReadVInt()
		if err != nil {
			return nil, err
		}
		pos += int(delta)
		ans[i] = pos
	}
	td.pending = 0
	return ans, nil
}

func (td *TermDocs) loadSkips() error {
	td.skipsLoaded = true
	if td.ti.DocFreq < td.skipInterval {
		return nil
	}
	in := td.frq.Clone()
	defer in.Close()
	if err := in.Seek(td.ti.FreqPtr + td.ti.SkipOffset); err != nil {
		return err
	}
	last := skipEntry{freqPtr: td.ti.FreqPtr, proxPtr: td.ti.ProxPtr}
	for i := 1; i <= (td.ti.DocFreq-1)/td.skipInterval; i++ {
		docDelta, err := in.ReadVInt()
		if err != nil {
			return err
		}
		freqDelta, err := in.ReadVLong()
		if err != nil {
			return err
		}
		proxDelta, err := in.ReadVLong()
		if err != nil {
			return err
		}
		last = skipEntry{
			doc:     last.doc + int(docDelta),
			count:   i * td.skipInterval,
			freqPtr: last.freqPtr + int64(freqDelta),
			proxPtr: last.proxPtr + int64(proxDelta),
		}
		td.skips = append(td.skips, last)
	}
	return nil
}

/*
Advances to the first document greater than or equal to target and
returns false if there is none. Skip data, when present, lets the
enumerator jump over whole runs of documents below target.
*/
func (td *TermDocs) SkipTo(target int) (bool, error) {
	if !td.skipsLoaded {
		if err := td.loadSkips(); err != nil {
			return false, err
		}
	}
	// last entry whose document is before target
	var jump *skipEntry
	for i := range td.skips {
		if td.skips[i].doc >= target {
			break
		}
		jump = &td.skips[i]
	}
	if jump != nil && jump.count > td.count {
		if err := td.frq.Seek(jump.freqPtr); err != nil {
			return false, err
		}
		if err := td.prx.Seek(jump.proxPtr); err != nil {
			return false, err
		}
		td.count, td.doc, td.freq, td.pending = jump.count, jump.doc, 0, 0
	}
	for td.count == 0 || td.doc < target {
		ok, err := td.Next()
		if !ok || err != nil {
			return false, err
		}
	}
	return true, nil
}

func (td *TermDocs) Close() error {
	return util.Close(td.frq, td.prx)
}
