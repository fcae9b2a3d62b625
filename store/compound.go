package store

import (
	"fmt"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

const COMPOUND_FILE_EXTENSION = "cfs"

// FileSlice locates one entry inside a compound file.
type FileSlice struct {
	Offset, Length int64
}

/*
CompoundStore is a read-only Store over a compound file: a directory of
entries followed by the entries' bytes, concatenated.

	Compound  --> Count, <Offset, Name>^Count, <Data>^Count
	Count     --> VInt
	Offset    --> ULong, the position of the entry's data
	Name      --> String

An entry's length is the next entry's offset minus its own; the last
entry runs to the end of the file.

Every operation that would modify the store returns an error matching
util.ErrNotImplemented.
*/
type CompoundStore struct {
	*StoreImpl
	parent   Store
	fileName string
	handle   IndexInput
	entries  map[string]FileSlice
	names    []string // in directory order
}

/*
Opens the compound file name in parent. The compound store holds its own
handle on the file; closing it does not close parent.
*/
func OpenCompoundStore(parent Store, name string) (cs *CompoundStore, err error) {
	handle, err := parent.OpenInput(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			util.CloseWhileSuppressingError(handle)
		}
	}()
	entries, names, err := readCompoundEntries(handle)
	if err != nil {
		return nil, util.WrapError(util.ErrIO, err, "couldn't read compound directory of %v", name)
	}
	cs = &CompoundStore{
		parent:   parent,
		fileName: name,
		handle:   handle,
		entries:  entries,
		names:    names,
	}
	cs.StoreImpl = newStoreImpl(cs)
	log.Debugf("Opened compound file %v with %v entries", name, len(names))
	return cs, nil
}

func readCompoundEntries(in IndexInput) (map[string]FileSlice, []string, error) {
	count, err := in.ReadVInt()
	if err != nil {
		return nil, nil, err
	}
	entries := make(map[string]FileSlice, count)
	names := make([]string, 0, count)
	var prev string
	for i := uint32(0); i < count; i++ {
		offset, err := in.ReadULong()
		if err != nil {
			return nil, nil, err
		}
		name, err := in.ReadString()
		if err != nil {
			return nil, nil, err
		}
		if _, ok := entries[name]; ok {
			return nil, nil, util.Errorf(util.ErrIO, "duplicate compound entry %v", name)
		}
		if i > 0 {
			slice := entries[prev]
			slice.Length = int64(offset) - slice.Offset
			entries[prev] = slice
		}
		entries[name] = FileSlice{Offset: int64(offset)}
		names = append(names, name)
		prev = name
	}
	if count > 0 {
		slice := entries[prev]
		slice.Length = in.Length() - slice.Offset
		entries[prev] = slice
	}
	for _, name := range names {
		if slice := entries[name]; slice.Length < 0 || slice.Offset+slice.Length > in.Length() {
			return nil, nil, util.Errorf(util.ErrIO, "compound entry %v out of bounds (%+v)", name, slice)
		}
	}
	return entries, names, nil
}

func (cs *CompoundStore) String() string {
	return fmt.Sprintf("CompoundStore(%v in %v)", cs.fileName, cs.parent)
}

func (cs *CompoundStore) listAll() ([]string, error) {
	return append([]string(nil), cs.names...), nil
}

// Entries returns the entry slices keyed by name.
func (cs *CompoundStore) Entries() map[string]FileSlice {
	ans := make(map[string]FileSlice, len(cs.entries))
	for k, v := range cs.entries {
		ans[k] = v
	}
	return ans
}

func (cs *CompoundStore) notImplemented(op string) error {
	return util.Errorf(util.ErrNotImplemented, "%v is not supported by %v", op, cs)
}

// Touch is forwarded to the store holding the compound file.
func (cs *CompoundStore) Touch(name string) error {
	return cs.parent.Touch(name)
}

func (cs *CompoundStore) Exists(name string) (bool, error) {
	if err := cs.ensureOpen(); err != nil {
		return false, err
	}
	_, ok := cs.entries[name]
	return ok, nil
}

func (cs *CompoundStore) remove(name string) error {
	return cs.notImplemented("remove")
}

func (cs *CompoundStore) Remove(name string) error {
	return cs.notImplemented("remove")
}

func (cs *CompoundStore) Rename(from, to string) error {
	return cs.notImplemented("rename")
}

func (cs *CompoundStore) Count() (int, error) {
	if err := cs.ensureOpen(); err != nil {
		return 0, err
	}
	return len(cs.names), nil
}

func (cs *CompoundStore) Clear() error {
	return cs.notImplemented("clear")
}

func (cs *CompoundStore) ClearAll() error {
	return cs.notImplemented("clear_all")
}

func (cs *CompoundStore) ClearLocks() error {
	return cs.notImplemented("clear_locks")
}

func (cs *CompoundStore) Length(name string) (int64, error) {
	if err := cs.ensureOpen(); err != nil {
		return 0, err
	}
	slice, ok := cs.entries[name]
	if !ok {
		return 0, fileNotFound(cs, name)
	}
	return slice.Length, nil
}

func (cs *CompoundStore) NewOutput(name string) (IndexOutput, error) {
	return nil, cs.notImplemented("new_output")
}

func (cs *CompoundStore) OpenLock(name string) (Lock, error) {
	return nil, cs.notImplemented("open_lock")
}

// Returns an input over the entry's byte range of the compound file.
func (cs *CompoundStore) OpenInput(name string) (IndexInput, error) {
	if err := cs.ensureOpen(); err != nil {
		return nil, err
	}
	slice, ok := cs.entries[name]
	if !ok {
		return nil, fileNotFound(cs, name)
	}
	reader := &sliceReader{base: cs.handle.Clone(), name: name, offset: slice.Offset, size: slice.Length}
	return newBufferedIndexInput(reader, fmt.Sprintf("CompoundInput(%v in %v)", name, cs.fileName), metrics.BackendCompound), nil
}

func (cs *CompoundStore) Close() error {
	if !cs.decRef() {
		return nil
	}
	return cs.handle.Close()
}

// sliceReader reads [offset, offset+size) of a cloned input.
type sliceReader struct {
	base   IndexInput
	name   string
	offset int64
	size   int64
}

func (r *sliceReader) readInternal(pos int64, buf []byte) error {
	if pos+int64(len(buf)) > r.size {
		return util.Errorf(util.ErrEOF, "read past EOF of compound entry %v", r.name)
	}
	if err := r.base.Seek(r.offset + pos); err != nil {
		return err
	}
	return r.base.ReadBytes(buf)
}

func (r *sliceReader) length() int64 {
	return r.size
}

func (r *sliceReader) clone() SeekReader {
	return &sliceReader{base: r.base.Clone(), name: r.name, offset: r.offset, size: r.size}
}

func (r *sliceReader) close() error {
	return r.base.Close()
}

/*
CompoundWriter packs files of a store into one compound file. Files are
added with AddFile and written, in the order added, by Close. The
source files are left in place.
*/
type CompoundWriter struct {
	store  Store
	name   string
	ids    []string
	seen   map[string]bool
	closed bool
}

func NewCompoundWriter(store Store, name string) *CompoundWriter {
	return &CompoundWriter{store: store, name: name, seen: make(map[string]bool)}
}

func (w *CompoundWriter) AddFile(id string) error {
	if w.closed {
		return util.Errorf(util.ErrIO, "compound writer %v is closed", w.name)
	}
	if w.seen[id] {
		return util.Errorf(util.ErrArgument, "file %v already added to %v", id, w.name)
	}
	w.seen[id] = true
	w.ids = append(w.ids, id)
	return nil
}

// Names of the files added so far, in order.
func (w *CompoundWriter) Files() []string {
	return append([]string(nil), w.ids...)
}

/*
Writes the compound file: a directory with placeholder offsets, then
each file's bytes, then the real offsets patched into the directory.
*/
func (w *CompoundWriter) Close() (err error) {
	if w.closed {
		return nil
	}
	w.closed = true
	if len(w.ids) == 0 {
		return util.Errorf(util.ErrArgument, "no entries to write to compound file %v", w.name)
	}

	out, err := w.store.NewOutput(w.name)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, out)
	}()

	if err = out.WriteVInt(uint32(len(w.ids))); err != nil {
		return err
	}
	directoryOffsets := make([]int64, len(w.ids))
	for i, id := range w.ids {
		directoryOffsets[i] = out.FilePointer()
		if err = out.WriteULong(0); err != nil { // placeholder
			return err
		}
		if err = out.WriteString(id); err != nil {
			return err
		}
	}

	dataOffsets := make([]int64, len(w.ids))
	for i, id := range w.ids {
		dataOffsets[i] = out.FilePointer()
		if err = w.copyFile(out, id); err != nil {
			return err
		}
	}

	for i := range w.ids {
		if err = out.Seek(directoryOffsets[i]); err != nil {
			return err
		}
		if err = out.WriteULong(uint64(dataOffsets[i])); err != nil {
			return err
		}
	}
	return nil
}

func (w *CompoundWriter) copyFile(out IndexOutput, id string) (err error) {
	in, err := w.store.OpenInput(id)
	if err != nil {
		return err
	}
	defer func() {
		err = util.CloseWhileHandlingError(err, in)
	}()
	start := out.FilePointer()
	length := in.Length()
	if err = out.CopyBytes(in, length); err != nil {
		return err
	}
	if n := out.FilePointer() - start; n != length {
		return util.Errorf(util.ErrIO, "copied %v bytes of %v but expected %v", n, id, length)
	}
	return nil
}

// Names returns the entry names in directory order.
func (cs *CompoundStore) Names() []string {
	return append([]string(nil), cs.names...)
}
