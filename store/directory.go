package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/op/go-logging"

	"github.com/balzaczyy/segstore/util"
)

var log = logging.MustGetLogger("store")

/*
A Store is a flat list of files. Files may be written once, when they
are created. Once a file is created it may only be opened for read, or
removed. Random access is permitted both when reading and writing.

Each and Count only see regular files; lock files are managed through
OpenLock and ClearLocks.

Stores are reference counted: Close releases one reference, and the
store is torn down when the last reference goes.
*/
type Store interface {
	// Creates the named file if it does not exist, otherwise updates its
	// modification time.
	Touch(name string) error
	Exists(name string) (bool, error)
	Remove(name string) error
	// Renames from to to, replacing to if it exists.
	Rename(from, to string) error
	// Number of files, lock files excluded.
	Count() (int, error)
	// Calls fn with the name of every file, lock files excluded, stopping at
	// the first error fn returns.
	Each(fn func(name string) error) error
	// Removes the index files, leaving locks and foreign files alone.
	Clear() error
	// Removes the index files and the lock files.
	ClearAll() error
	ClearLocks() error
	Length(name string) (int64, error)
	NewOutput(name string) (IndexOutput, error)
	OpenInput(name string) (IndexInput, error)
	OpenLock(name string) (Lock, error)
	Close() error
}

// The pieces a backend supplies to StoreImpl.
type storeSPI interface {
	// Every file, including lock files.
	listAll() ([]string, error)
	remove(name string) error
}

// Defaults for lock acquisition.
const (
	DEFAULT_LOCK_PREFIX         = "segstore-"
	DEFAULT_LOCK_RETRIES        = 5
	DEFAULT_LOCK_RETRY_INTERVAL = 10 * time.Millisecond
)

/*
StoreImpl holds what every backend shares: the reference count, lock
settings, and the file sweeping operations built on listAll and remove.
*/
type StoreImpl struct {
	spi storeSPI

	mu       sync.Mutex // guards refCount and isOpen
	refCount int
	isOpen   bool

	lockPrefix        string
	lockRetries       int
	lockRetryInterval time.Duration
	ramLimit          int64 // RAMStore only; 0 means unlimited
}

// A StoreOption adjusts a store when it is opened.
type StoreOption func(s *StoreImpl)

func WithLockPrefix(prefix string) StoreOption {
	return func(s *StoreImpl) {
		s.lockPrefix = prefix
	}
}

// WithLockRetries sets how many times Lock.Obtain retries, and how long it
// sleeps between tries.
func WithLockRetries(retries int, interval time.Duration) StoreOption {
	return func(s *StoreImpl) {
		if retries >= 0 {
			s.lockRetries = retries
		}
		if interval > 0 {
			s.lockRetryInterval = interval
		}
	}
}

func newStoreImpl(spi storeSPI, opts ...StoreOption) *StoreImpl {
	ans := &StoreImpl{
		spi:               spi,
		refCount:          1,
		isOpen:            true,
		lockPrefix:        DEFAULT_LOCK_PREFIX,
		lockRetries:       DEFAULT_LOCK_RETRIES,
		lockRetryInterval: DEFAULT_LOCK_RETRY_INTERVAL,
	}
	for _, opt := range opts {
		opt(ans)
	}
	return ans
}

func (s *StoreImpl) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isOpen {
		return util.Errorf(util.ErrIO, "this store is closed")
	}
	return nil
}

// Adds a reference; the store stays open until a matching Close.
func (s *StoreImpl) IncRef() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refCount++
}

// Drops one reference and reports whether it was the last one.
func (s *StoreImpl) decRef() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refCount--
	if s.refCount == 0 {
		s.isOpen = false
		return true
	}
	return false
}

// Returns the name of the lock file guarding name.
func (s *StoreImpl) LockFileName(name string) string {
	return s.lockPrefix + name + util.LOCK_EXT
}

func (s *StoreImpl) names(filter func(string) bool) ([]string, error) {
	all, err := s.spi.listAll()
	if err != nil {
		return nil, err
	}
	ans := make([]string, 0, len(all))
	for _, name := range all {
		if filter(name) {
			ans = append(ans, name)
		}
	}
	sort.Strings(ans)
	return ans, nil
}

func isRegularFile(name string) bool {
	return !util.IsLockFile(name)
}

func (s *StoreImpl) Each(fn func(name string) error) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	names, err := s.names(isRegularFile)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err = fn(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreImpl) Count() (int, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	names, err := s.names(isRegularFile)
	return len(names), err
}

func (s *StoreImpl) removeAll(filter func(string) bool) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	return s.sweep(filter)
}

// Removes every file matching filter without checking the store is open.
func (s *StoreImpl) sweep(filter func(string) bool) error {
	names, err := s.names(filter)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err = s.spi.remove(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreImpl) Clear() error {
	return s.removeAll(func(name string) bool {
		return util.IsIndexFile(name, false)
	})
}

func (s *StoreImpl) ClearAll() error {
	return s.removeAll(func(name string) bool {
		return util.IsIndexFile(name, true)
	})
}

func (s *StoreImpl) ClearLocks() error {
	return s.removeAll(util.IsLockFile)
}

/*
Obtains the lock called name in store, runs body, and releases the lock
whatever body returns. If the lock cannot be obtained body is not run
and an error matching util.ErrLock is returned.
*/
func WithLockName(store Store, name string, body func() error) error {
	lock, err := store.OpenLock(name)
	if err != nil {
		return err
	}
	return WithLock(lock, body)
}

func fileNotFound(store fmt.Stringer, name string) error {
	return util.Errorf(util.ErrFileNotFound, "%v not found in %v", name, store)
}
