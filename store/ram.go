package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

// Size of each block in a RAM file.
const RAM_BLOCK_SIZE = 1024

/*
A memory-resident Store. Files are chains of fixed-size blocks grown one
block at a time. It is intended for tests and small transient segments.

With WithRAMLimit, growing a file past the limit fails with
util.ErrMemory.
*/
type RAMStore struct {
	*StoreImpl

	sync.RWMutex // guards files and locks
	files        map[string]*ramFile
	locks        map[string]bool

	allocated atomic.Int64 // bytes held by live blocks
}

// WithRAMLimit caps the bytes a RAMStore allocates for file blocks. Other
// backends ignore it.
func WithRAMLimit(bytes int64) StoreOption {
	return func(s *StoreImpl) {
		s.ramLimit = bytes
	}
}

func NewRAMStore(opts ...StoreOption) *RAMStore {
	ans := &RAMStore{
		files: make(map[string]*ramFile),
		locks: make(map[string]bool),
	}
	ans.StoreImpl = newStoreImpl(ans, opts...)
	return ans
}

func (rs *RAMStore) String() string {
	return fmt.Sprintf("RAMStore@%p", rs)
}

// Bytes held by file blocks.
func (rs *RAMStore) Allocated() int64 {
	return rs.allocated.Load()
}

func (rs *RAMStore) reserve(n int64) error {
	for {
		used := rs.allocated.Load()
		if limit := rs.ramLimit; limit > 0 && used+n > limit {
			return util.Errorf(util.ErrMemory,
				"%v: allocating %v bytes would exceed the limit of %v (%v in use)", rs, n, limit, used)
		}
		if rs.allocated.CompareAndSwap(used, used+n) {
			return nil
		}
	}
}

func (rs *RAMStore) listAll() ([]string, error) {
	rs.RLock()
	defer rs.RUnlock()
	names := make([]string, 0, len(rs.files)+len(rs.locks))
	for name := range rs.files {
		names = append(names, name)
	}
	for name := range rs.locks {
		names = append(names, name)
	}
	return names, nil
}

func (rs *RAMStore) Touch(name string) error {
	if err := rs.ensureOpen(); err != nil {
		return err
	}
	rs.Lock()
	defer rs.Unlock()
	if f, ok := rs.files[name]; ok {
		f.touch()
	} else {
		rs.files[name] = newRAMFile(rs, name)
	}
	return nil
}

func (rs *RAMStore) Exists(name string) (bool, error) {
	if err := rs.ensureOpen(); err != nil {
		return false, err
	}
	rs.RLock()
	defer rs.RUnlock()
	_, ok := rs.files[name]
	return ok || rs.locks[name], nil
}

func (rs *RAMStore) Remove(name string) error {
	if err := rs.ensureOpen(); err != nil {
		return err
	}
	return rs.remove(name)
}

func (rs *RAMStore) remove(name string) error {
	rs.Lock()
	defer rs.Unlock()
	if rs.locks[name] {
		delete(rs.locks, name)
		return nil
	}
	f, ok := rs.files[name]
	if !ok {
		return fileNotFound(rs, name)
	}
	delete(rs.files, name)
	f.decRef()
	return nil
}

func (rs *RAMStore) Rename(from, to string) error {
	if err := rs.ensureOpen(); err != nil {
		return err
	}
	rs.Lock()
	defer rs.Unlock()
	f, ok := rs.files[from]
	if !ok {
		return fileNotFound(rs, from)
	}
	if from == to {
		return nil
	}
	// evict the destination first so its blocks are released
	if old, ok := rs.files[to]; ok {
		delete(rs.files, to)
		old.decRef()
	}
	delete(rs.files, from)
	f.name = to
	rs.files[to] = f
	return nil
}

// Count is kept by the file map.
func (rs *RAMStore) Count() (int, error) {
	if err := rs.ensureOpen(); err != nil {
		return 0, err
	}
	rs.RLock()
	defer rs.RUnlock()
	return len(rs.files), nil
}

func (rs *RAMStore) Length(name string) (int64, error) {
	if err := rs.ensureOpen(); err != nil {
		return 0, err
	}
	rs.RLock()
	defer rs.RUnlock()
	f, ok := rs.files[name]
	if !ok {
		return 0, fileNotFound(rs, name)
	}
	return f.size(), nil
}

func (rs *RAMStore) NewOutput(name string) (IndexOutput, error) {
	if err := rs.ensureOpen(); err != nil {
		return nil, err
	}
	f := newRAMFile(rs, name)
	rs.Lock()
	if old, ok := rs.files[name]; ok {
		old.decRef()
	}
	rs.files[name] = f
	rs.Unlock()
	f.incRef()
	return newBufferedIndexOutput(&ramWriter{file: f}, fmt.Sprintf("RAMOutput(%v)", name), metrics.BackendRAM), nil
}

func (rs *RAMStore) OpenInput(name string) (IndexInput, error) {
	if err := rs.ensureOpen(); err != nil {
		return nil, err
	}
	rs.RLock()
	f, ok := rs.files[name]
	if ok {
		f.incRef()
	}
	rs.RUnlock()
	if !ok {
		return nil, fileNotFound(rs, name)
	}
	handle := newFileHandle(metrics.BackendRAM, func() error {
		f.decRef()
		return nil
	})
	return newBufferedIndexInput(&ramReader{file: f, handle: handle}, fmt.Sprintf("RAMInput(%v)", name), metrics.BackendRAM), nil
}

func (rs *RAMStore) OpenLock(name string) (Lock, error) {
	if err := rs.ensureOpen(); err != nil {
		return nil, err
	}
	ans := &ramLock{store: rs, fileName: rs.LockFileName(name)}
	ans.LockImpl = newLockImpl(ans, ans.fileName, rs.StoreImpl)
	return ans, nil
}

// Releases one reference; the last one drops every file.
func (rs *RAMStore) Close() error {
	if !rs.decRef() {
		return nil
	}
	rs.Lock()
	defer rs.Unlock()
	for _, f := range rs.files {
		f.decRef()
	}
	rs.files = make(map[string]*ramFile)
	rs.locks = make(map[string]bool)
	return nil
}

/*
ramFile is a list of blocks. It starts with one reference held by the
store; every open stream takes another. When the count drops to zero the
blocks are dropped.
*/
type ramFile struct {
	sync.RWMutex
	store   *RAMStore
	name    string
	blocks  [][]byte
	length  int64
	modTime time.Time
	refs    int
}

func newRAMFile(store *RAMStore, name string) *ramFile {
	return &ramFile{store: store, name: name, refs: 1, modTime: time.Now()}
}

func (f *ramFile) touch() {
	f.Lock()
	defer f.Unlock()
	f.modTime = time.Now()
}

func (f *ramFile) size() int64 {
	f.RLock()
	defer f.RUnlock()
	return f.length
}

func (f *ramFile) incRef() {
	f.Lock()
	defer f.Unlock()
	f.refs++
}

func (f *ramFile) decRef() {
	f.Lock()
	defer f.Unlock()
	f.refs--
	if f.refs <= 0 && f.blocks != nil {
		f.store.allocated.Add(-int64(len(f.blocks)) * RAM_BLOCK_SIZE)
		f.blocks = nil
	}
}

func (f *ramFile) readAt(pos int64, buf []byte) error {
	f.RLock()
	defer f.RUnlock()
	if pos+int64(len(buf)) > f.length {
		return util.Errorf(util.ErrEOF, "read past EOF: %v", f.name)
	}
	for len(buf) > 0 {
		block := f.blocks[pos/RAM_BLOCK_SIZE]
		n := copy(buf, block[pos%RAM_BLOCK_SIZE:])
		buf = buf[n:]
		pos += int64(n)
	}
	return nil
}

func (f *ramFile) writeAt(pos int64, buf []byte) error {
	f.Lock()
	defer f.Unlock()
	end := pos + int64(len(buf))
	if grow := (end+RAM_BLOCK_SIZE-1)/RAM_BLOCK_SIZE - int64(len(f.blocks)); grow > 0 {
		if err := f.store.reserve(grow * RAM_BLOCK_SIZE); err != nil {
			return err
		}
		for ; grow > 0; grow-- {
			f.blocks = append(f.blocks, make([]byte, RAM_BLOCK_SIZE))
		}
	}
	for len(buf) > 0 {
		block := f.blocks[pos/RAM_BLOCK_SIZE]
		n := copy(block[pos%RAM_BLOCK_SIZE:], buf)
		buf = buf[n:]
		pos += int64(n)
	}
	if end > f.length {
		f.length = end
	}
	f.modTime = time.Now()
	return nil
}

type ramReader struct {
	file   *ramFile
	handle *fileHandle
}

func (r *ramReader) readInternal(pos int64, buf []byte) error {
	return r.file.readAt(pos, buf)
}

func (r *ramReader) length() int64 {
	return r.file.size()
}

func (r *ramReader) clone() SeekReader {
	r.handle.incRef()
	return &ramReader{file: r.file, handle: r.handle}
}

func (r *ramReader) close() error {
	return r.handle.decRef()
}

type ramWriter struct {
	file *ramFile
}

func (w *ramWriter) writeInternal(pos int64, buf []byte) error {
	return w.file.writeAt(pos, buf)
}

func (w *ramWriter) length() (int64, error) {
	return w.file.size(), nil
}

func (w *ramWriter) close() error {
	w.file.decRef()
	return nil
}

type ramLock struct {
	*LockImpl
	store    *RAMStore
	fileName string
}

func (l *ramLock) TryObtain() (bool, error) {
	l.store.Lock()
	defer l.store.Unlock()
	if l.store.locks[l.fileName] {
		return false, nil
	}
	l.store.locks[l.fileName] = true
	return true, nil
}

func (l *ramLock) IsLocked() (bool, error) {
	l.store.RLock()
	defer l.store.RUnlock()
	return l.store.locks[l.fileName], nil
}

func (l *ramLock) Release() error {
	l.store.Lock()
	defer l.store.Unlock()
	delete(l.store.locks, l.fileName)
	return nil
}
