package analysis

import (
	"io"
	"sync"

	"github.com/balzaczyy/segstore/util"
)

/*
An Analyzer builds TokenStreams, which analyze text. It thus represents a
policy for extracting index terms from text.

Analyzers are reference counted: Retain takes a reference and Close drops
one. Streams already handed out stay usable after the analyzer is closed.
*/
type Analyzer interface {
	// Returns a fresh stream, already reset on text.
	TokenStream(field, text string) (TokenStream, error)
	Retain()
	Close() error
}

// AnalyzerImpl serves clones of one prototype stream for every field.
type AnalyzerImpl struct {
	refs   refCount
	stream TokenStream
}

// NewAnalyzer takes ownership of stream.
func NewAnalyzer(stream TokenStream) *AnalyzerImpl {
	return &AnalyzerImpl{refs: newRefCount(), stream: stream}
}

func (a *AnalyzerImpl) TokenStream(field, text string) (TokenStream, error) {
	ts := a.stream.Clone()
	if err := ts.Reset(text); err != nil {
		ts.Close()
		return nil, err
	}
	return ts, nil
}

func (a *AnalyzerImpl) Retain() {
	a.refs.retain()
}

func (a *AnalyzerImpl) Close() error {
	if a.refs.release() {
		return a.stream.Close()
	}
	return nil
}

/*
PerFieldAnalyzer dispatches on the field name, falling back to a default
analyzer for fields without an entry. It owns one reference to every
analyzer given to it; to register one analyzer for several fields, Retain
it once per extra registration.
*/
type PerFieldAnalyzer struct {
	refs   refCount
	mu     sync.RWMutex
	def    Analyzer
	fields map[string]Analyzer
}

func NewPerFieldAnalyzer(def Analyzer) *PerFieldAnalyzer {
	return &PerFieldAnalyzer{
		refs:   newRefCount(),
		def:    def,
		fields: make(map[string]Analyzer),
	}
}

// Add registers a for field. An analyzer already registered for the field
// is replaced and closed.
func (a *PerFieldAnalyzer) Add(field string, an Analyzer) error {
	a.mu.Lock()
	old, ok := a.fields[field]
	a.fields[field] = an
	a.mu.Unlock()
	if ok && old != an {
		return old.Close()
	}
	return nil
}

// Get returns the analyzer used for field.
func (a *PerFieldAnalyzer) Get(field string) Analyzer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if an, ok := a.fields[field]; ok {
		return an
	}
	return a.def
}

func (a *PerFieldAnalyzer) TokenStream(field, text string) (TokenStream, error) {
	return a.Get(field).TokenStream(field, text)
}

func (a *PerFieldAnalyzer) Retain() {
	a.refs.retain()
}

func (a *PerFieldAnalyzer) Close() error {
	if !a.refs.release() {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	closers := []io.Closer{a.def}
	for field, an := range a.fields {
		closers = append(closers, an)
		delete(a.fields, field)
	}
	return util.Close(closers...)
}
