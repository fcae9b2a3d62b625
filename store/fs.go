package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

/*
StoreRegistry shares filesystem stores between callers: opening the same
directory twice, through any path that resolves to it, returns the same
FSStore with its reference count raised.
*/
type StoreRegistry struct {
	sync.Mutex
	stores map[string]*FSStore
}

func NewStoreRegistry() *StoreRegistry {
	return &StoreRegistry{stores: make(map[string]*FSStore)}
}

// The registry used by OpenFSStore.
var DefaultRegistry = NewStoreRegistry()

// Opens the directory at path through DefaultRegistry.
func OpenFSStore(path string, opts ...StoreOption) (*FSStore, error) {
	return DefaultRegistry.OpenFS(path, opts...)
}

/*
Opens the directory at path, creating it if needed. Options only apply
when this call creates the store; an already open store is returned as
is.
*/
func (r *StoreRegistry) OpenFS(path string, opts ...StoreOption) (*FSStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, util.WrapError(util.ErrIO, err, "cannot create directory %v", path)
	}
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	r.Lock()
	defer r.Unlock()
	if s, ok := r.stores[canonical]; ok {
		s.IncRef()
		log.Debugf("Reusing open store %v", canonical)
		return s, nil
	}
	s, err := newFSStore(r, canonical, opts...)
	if err != nil {
		return nil, err
	}
	r.stores[canonical] = s
	log.Infof("Opened store %v", canonical)
	return s, nil
}

// Number of stores currently open through this registry.
func (r *StoreRegistry) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.stores)
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", util.WrapError(util.ErrIO, err, "cannot resolve %v", path)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", util.WrapError(util.ErrIO, err, "cannot resolve %v", path)
	}
	return real, nil
}

/*
A Store over one filesystem directory. Files are created with the
group read and write permissions of the directory.
*/
type FSStore struct {
	*StoreImpl
	registry *StoreRegistry
	path     string
	filePerm os.FileMode
}

func newFSStore(registry *StoreRegistry, path string, opts ...StoreOption) (*FSStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, util.WrapError(util.ErrIO, err, "cannot stat %v", path)
	}
	if !info.IsDir() {
		return nil, util.Errorf(util.ErrIO, "%v is not a directory", path)
	}
	ans := &FSStore{
		registry: registry,
		path:     path,
		filePerm: 0644 | (info.Mode().Perm() & 0060),
	}
	ans.StoreImpl = newStoreImpl(ans, opts...)
	return ans, nil
}

func (s *FSStore) String() string {
	return fmt.Sprintf("FSStore@%v", s.path)
}

// The canonical path of the directory.
func (s *FSStore) Path() string {
	return s.path
}

func (s *FSStore) fullPath(name string) string {
	return filepath.Join(s.path, name)
}

func ioError(err error, format string, args ...interface{}) error {
	if errors.Is(err, fs.ErrNotExist) {
		return util.WrapError(util.ErrFileNotFound, err, format, args...)
	}
	return util.WrapError(util.ErrIO, err, format, args...)
}

func (s *FSStore) listAll() ([]string, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, ioError(err, "cannot list %v", s.path)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *FSStore) Touch(name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	path := s.fullPath(name)
	if _, err := os.Stat(path); err == nil {
		now := time.Now()
		return ioError(os.Chtimes(path, now, now), "couldn't touch %v", name)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, s.filePerm)
	if err != nil {
		return ioError(err, "couldn't create %v", name)
	}
	if err = f.Chmod(s.filePerm); err != nil {
		log.Warningf("Couldn't set permissions of %v: %v", name, err)
	}
	return ioError(f.Close(), "couldn't close %v", name)
}

func (s *FSStore) Exists(name string) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.fullPath(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, ioError(err, "couldn't stat %v", name)
}

func (s *FSStore) Remove(name string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.remove(name)
}

func (s *FSStore) remove(name string) error {
	return ioError(os.Remove(s.fullPath(name)), "couldn't remove %v", name)
}

func (s *FSStore) Rename(from, to string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return ioError(os.Rename(s.fullPath(from), s.fullPath(to)), "couldn't rename %v to %v", from, to)
}

func (s *FSStore) Length(name string) (int64, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.fullPath(name))
	if err != nil {
		return 0, ioError(err, "couldn't stat %v", name)
	}
	return info.Size(), nil
}

func (s *FSStore) NewOutput(name string) (IndexOutput, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.fullPath(name), os.O_CREATE|os.O_TRUNC|os.O_RDWR, s.filePerm)
	if err != nil {
		return nil, ioError(err, "couldn't create %v", name)
	}
	if err = f.Chmod(s.filePerm); err != nil {
		log.Warningf("Couldn't set permissions of %v: %v", name, err)
	}
	metrics.StoreOpenFiles.WithLabelValues(metrics.BackendFS).Inc()
	return newBufferedIndexOutput(&fsWriter{file: f}, fmt.Sprintf("FSOutput(path=%v)", f.Name()), metrics.BackendFS), nil
}

func (s *FSStore) OpenInput(name string) (IndexInput, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.fullPath(name))
	if err != nil {
		return nil, ioError(err, "couldn't open %v", name)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ioError(err, "couldn't stat %v", name)
	}
	reader := &fsReader{
		file:   f,
		size:   info.Size(),
		handle: newFileHandle(metrics.BackendFS, f.Close),
	}
	return newBufferedIndexInput(reader, fmt.Sprintf("FSInput(path=%v)", f.Name()), metrics.BackendFS), nil
}

func (s *FSStore) OpenLock(name string) (Lock, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	ans := &fsLock{path: s.fullPath(s.LockFileName(name)), perm: s.filePerm}
	ans.LockImpl = newLockImpl(ans, s.LockFileName(name), s.StoreImpl)
	return ans, nil
}

/*
Releases one reference. When the last reference goes the store leaves
its registry and stale lock files are removed; failures to remove them
are logged and otherwise ignored.
*/
func (s *FSStore) Close() error {
	s.registry.Lock()
	defer s.registry.Unlock()
	if !s.decRef() {
		return nil
	}
	delete(s.registry.stores, s.path)
	if err := s.sweep(util.IsLockFile); err != nil {
		log.Warningf("Couldn't clear locks of %v: %v", s.path, err)
	}
	log.Infof("Closed store %v", s.path)
	return nil
}

type fsReader struct {
	file   *os.File
	size   int64
	handle *fileHandle
}

func (r *fsReader) readInternal(pos int64, buf []byte) error {
	if pos+int64(len(buf)) > r.size {
		return util.Errorf(util.ErrEOF, "read past EOF: %v", r.file.Name())
	}
	if _, err := r.file.ReadAt(buf, pos); err != nil {
		return ioError(err, "couldn't read %v", r.file.Name())
	}
	return nil
}

func (r *fsReader) length() int64 {
	return r.size
}

func (r *fsReader) clone() SeekReader {
	r.handle.incRef()
	return &fsReader{file: r.file, size: r.size, handle: r.handle}
}

func (r *fsReader) close() error {
	return ioError(r.handle.decRef(), "couldn't close %v", r.file.Name())
}

type fsWriter struct {
	file *os.File
}

func (w *fsWriter) writeInternal(pos int64, buf []byte) error {
	if _, err := w.file.WriteAt(buf, pos); err != nil {
		return ioError(err, "couldn't write %v", w.file.Name())
	}
	return nil
}

func (w *fsWriter) length() (int64, error) {
	info, err := w.file.Stat()
	if err != nil {
		return 0, ioError(err, "couldn't stat %v", w.file.Name())
	}
	return info.Size(), nil
}

func (w *fsWriter) close() error {
	metrics.StoreOpenFiles.WithLabelValues(metrics.BackendFS).Dec()
	return ioError(w.file.Close(), "couldn't close %v", w.file.Name())
}

type fsLock struct {
	*LockImpl
	path string
	perm os.FileMode
}

func (l *fsLock) TryObtain() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, l.perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, ioError(err, "couldn't create lock %v", l.path)
	}
	return true, ioError(f.Close(), "couldn't close lock %v", l.path)
}

func (l *fsLock) IsLocked() (bool, error) {
	_, err := os.Stat(l.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, ioError(err, "couldn't stat lock %v", l.path)
}

func (l *fsLock) Release() error {
	err := os.Remove(l.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError(err, "couldn't release lock %v", l.path)
	}
	return nil
}
