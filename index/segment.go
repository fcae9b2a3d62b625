package index

import (
	"io"
	"sort"
	"sync"

	. "github.com/balzaczyy/segstore/analysis"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

const COMPOUND_EXTENSION = "cfs"

/*
SegmentWriter builds a segment in memory from documents and writes it
on Close. Stored values go to the fields file as documents are added;
indexed values are analyzed and their postings kept until Close writes
the term dictionary.
*/
type SegmentWriter struct {
	segment       string
	store         store.Store
	fis           *FieldInfos
	analyzer      Analyzer
	indexInterval int
	skipInterval  int

	fields   *FieldsWriter
	docs     int
	postings map[int]map[string][]Posting
	closed   bool
}

func NewSegmentWriter(s store.Store, segment string, fis *FieldInfos, analyzer Analyzer,
	indexInterval, skipInterval int) (*SegmentWriter, error) {

	if indexInterval <= 0 || skipInterval <= 0 {
		return nil, util.Errorf(util.ErrArgument,
			"intervals must be positive (index %v, skip %v)", indexInterval, skipInterval)
	}
	fields, err := NewFieldsWriter(s, segment, fis)
	if err != nil {
		return nil, err
	}
	analyzer.Retain()
	return &SegmentWriter{
		segment:       segment,
		store:         s,
		fis:           fis,
		analyzer:      analyzer,
		indexInterval: indexInterval,
		skipInterval:  skipInterval,
		fields:        fields,
		postings:      make(map[int]map[string][]Posting),
	}, nil
}

// Adds doc as the next document and returns its number. Fields missing
// from the field infos are added with the default settings.
func (w *SegmentWriter) AddDocument(doc *Document) (int, error) {
	if w.closed {
		return 0, util.Errorf(util.ErrIO, "segment writer %v is closed", w.segment)
	}
	for _, df := range doc.Fields {
		w.fis.GetOrAdd(df.Name)
	}
	if err := w.fields.AddDocument(doc); err != nil {
		return 0, err
	}
	n := w.docs
	w.docs++
	for _, df := range doc.Fields {
		fi := w.fis.ByName(df.Name)
		if !fi.IsIndexed() || df.Binary {
			continue
		}
		if err := w.invert(n, fi, df); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (w *SegmentWriter) invert(doc int, fi *FieldInfo, df *DocField) error {
	terms := w.postings[fi.Number]
	if terms == nil {
		terms = make(map[string][]Posting)
		w.postings[fi.Number] = terms
	}
	add := func(term string, pos int) {
		list := terms[term]
		if n := len(list); n > 0 && list[n-1].Doc == doc {
			list[n-1].Positions = append(list[n-1].Positions, pos)
			return
		}
		terms[term] = append(list, Posting{Doc: doc, Positions: []int{pos}})
	}

	pos := -1
	for _, value := range df.Data {
		if !fi.IsTokenized() {
			pos++
			add(string(value), pos)
			continue
		}
		ts, err := w.analyzer.TokenStream(df.Name, string(value))
		if err != nil {
			return err
		}
		for {
			tk, err := ts.Next()
			if err != nil {
				ts.Close()
				return err
			}
			if tk == nil {
				break
			}
			if pos += tk.PosInc; pos < 0 {
				pos = 0
			}
			add(string(tk.Text), pos)
		}
		if err = ts.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Number of documents added.
func (w *SegmentWriter) NumDocs() int {
	return w.docs
}

// Names of the files the segment is written to.
func (w *SegmentWriter) Files() []string {
	var ans []string
	for _, ext := range []string{
		FIELD_INFOS_EXTENSION, FIELDS_EXTENSION, FIELDS_INDEX_EXTENSION,
		TERM_INFOS_EXTENSION, TERM_INDEX_EXTENSION, FIELD_INDEX_EXTENSION,
		FREQ_EXTENSION, PROX_EXTENSION,
	} {
		ans = append(ans, util.SegmentFileName(w.segment, "", ext))
	}
	return ans
}

// Writes the field infos, term dictionary and postings, and closes the
// fields file. On failure the partial segment files are removed.
func (w *SegmentWriter) Close() (err error) {
	if w.closed {
		return nil
	}
	w.closed = true
	defer func() {
		if err != nil {
			log.Warningf("Writing segment %v failed, removing its files: %v", w.segment, err)
			util.RemoveFilesIgnoringErrors(w.store, w.Files()...)
		}
	}()
	defer func() {
		err = util.CloseWhileHandlingError(err, w.fields, w.analyzer)
	}()
	if err = w.fis.WriteTo(w.store, w.segment); err != nil {
		return err
	}

	pw, err := NewPostingsWriter(w.store, w.segment, w.skipInterval)
	if err != nil {
		return err
	}
	tw, err := NewTermInfosWriter(w.store, w.segment, w.indexInterval, w.skipInterval)
	if err != nil {
		pw.Close()
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, pw, tw)
	}()

	numbers := make([]int, 0, len(w.postings))
	for number := range w.postings {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)
	for _, number := range numbers {
		if err = tw.StartField(number); err != nil {
			return err
		}
		terms := w.postings[number]
		texts := make([]string, 0, len(terms))
		for text := range terms {
			texts = append(texts, text)
		}
		sort.Strings(texts)
		for _, text := range texts {
			ti, err := pw.AddTerm(terms[text])
			if err != nil {
				return err
			}
			if err = tw.Add([]byte(text), ti); err != nil {
				return err
			}
		}
	}
	log.Infof("Flushed segment %v: %v docs, %v indexed fields", w.segment, w.docs, len(numbers))
	return nil
}

/*
Packs files into the compound file of segment and removes them from s.
*/
func CreateCompoundFile(s store.Store, segment string, files []string) error {
	name := util.SegmentFileName(segment, "", COMPOUND_EXTENSION)
	cw := store.NewCompoundWriter(s, name)
	var err error
	for _, file := range files {
		if err = cw.AddFile(file); err != nil {
			return err
		}
	}
	if err = cw.Close(); err != nil {
		util.RemoveFilesIgnoringErrors(s, name)
		return err
	}
	for _, name := range files {
		if err := s.Remove(name); err != nil {
			return err
		}
	}
	return nil
}

/*
SegmentReader gives access to a segment written by SegmentWriter, either
as loose files or packed into a compound file.
*/
type SegmentReader struct {
	Segment string

	cfs      *store.CompoundStore
	fis      *FieldInfos
	fields   *FieldsReader
	lock     sync.Mutex // guards fields
	terms    *TermInfosReader
	postings *PostingsReader
}

func OpenSegmentReader(s store.Store, segment string) (*SegmentReader, error) {
	r := &SegmentReader{Segment: segment}
	success := false
	defer func() {
		if !success {
			util.CloseWhileSuppressingError(r.closers()...)
		}
	}()

	dir := s
	ok, err := s.Exists(util.SegmentFileName(segment, "", COMPOUND_EXTENSION))
	if err != nil {
		return nil, err
	}
	if ok {
		if r.cfs, err = store.OpenCompoundStore(s, util.SegmentFileName(segment, "", COMPOUND_EXTENSION)); err != nil {
			return nil, err
		}
		dir = r.cfs
	}
	if r.fis, err = OpenFieldInfos(dir, segment); err != nil {
		return nil, err
	}
	if r.fields, err = OpenFieldsReader(dir, segment, r.fis); err != nil {
		return nil, err
	}
	if r.terms, err = OpenTermInfosReader(dir, segment); err != nil {
		return nil, err
	}
	if r.postings, err = OpenPostingsReader(dir, segment, r.terms.FieldIndex().SkipInterval); err != nil {
		return nil, err
	}
	success = true
	return r, nil
}

func (r *SegmentReader) closers() []io.Closer {
	var ans []io.Closer
	if r.postings != nil {
		ans = append(ans, r.postings)
	}
	if r.terms != nil {
		ans = append(ans, r.terms)
	}
	if r.fields != nil {
		ans = append(ans, r.fields)
	}
	if r.cfs != nil {
		ans = append(ans, r.cfs)
	}
	return ans
}

func (r *SegmentReader) FieldInfos() *FieldInfos {
	return r.fis
}

func (r *SegmentReader) NumDocs() int {
	return r.fields.Size()
}

func (r *SegmentReader) Document(n int) (*Document, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.fields.Document(n)
}

/*
Returns a stored fields reader of its own, for a goroutine that reads many
documents without contending on the shared one. The caller closes it.
*/
func (r *SegmentReader) StoredFields() *FieldsReader {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.fields.Clone()
}

func (r *SegmentReader) LazyDocument(n int) (*LazyDocument, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.fields.LazyDocument(n)
}

func (r *SegmentReader) Terms() *TermInfosReader {
	return r.terms
}

// Returns the TermInfo of term in the named field, or nil.
func (r *SegmentReader) TermInfo(field, term string) (*TermInfo, error) {
	fi := r.fis.ByName(field)
	if fi == nil {
		return nil, nil
	}
	return r.terms.GetTermInfo(fi.Number, []byte(term))
}

// Returns an enum over the terms of the named field. The caller closes
// it.
func (r *SegmentReader) TermEnum(field string) (*TermEnum, error) {
	fi := r.fis.ByName(field)
	if fi == nil {
		return nil, util.Errorf(util.ErrArgument, "unknown field %v", field)
	}
	return r.terms.Enum(fi.Number)
}

// Returns the documents holding term in the named field, or nil if
// there are none. The caller closes the TermDocs.
func (r *SegmentReader) TermDocs(field, term string) (*TermDocs, error) {
	ti, err := r.TermInfo(field, term)
	if ti == nil || err != nil {
		return nil, err
	}
	td := r.postings.TermDocs()
	if err = td.Seek(ti); err != nil {
		td.Close()
		return nil, err
	}
	return td, nil
}

func (r *SegmentReader) Close() error {
	return util.Close(r.closers()...)
}
