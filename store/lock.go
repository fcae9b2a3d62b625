package store

import (
	"fmt"
	"time"

	"github.com/balzaczyy/segstore/metrics"
	"github.com/balzaczyy/segstore/util"
)

/*
An advisory inter-process lock, held by the presence of a lock file.

Typical use might look like:

	err := WithLockName(store, "write", func() error {
		// code to execute while locked
	})
*/
type Lock interface {
	// Attempts to obtain exclusive access, retrying a bounded number of
	// times with a short sleep in between. Returns false if the lock is
	// still held by someone else after the last try.
	Obtain() (ok bool, err error)
	// Makes a single attempt to obtain exclusive access.
	TryObtain() (ok bool, err error)
	// Attempts to obtain exclusive access, polling until timeout passes.
	ObtainWithin(timeout time.Duration) (ok bool, err error)
	// Reports whether the lock file exists. Note that one must still call
	// Obtain() before using the resource.
	IsLocked() (bool, error)
	// Releases exclusive access by removing the lock file.
	Release() error
	Name() string
}

/*
LockImpl implements the retry policy on top of a backend's TryObtain.
*/
type LockImpl struct {
	self          Lock
	name          string
	retries       int
	retryInterval time.Duration
}

func newLockImpl(self Lock, name string, store *StoreImpl) *LockImpl {
	return &LockImpl{
		self:          self,
		name:          name,
		retries:       store.lockRetries,
		retryInterval: store.lockRetryInterval,
	}
}

func (lock *LockImpl) Name() string {
	return lock.name
}

func (lock *LockImpl) Obtain() (locked bool, err error) {
	for try := 0; ; try++ {
		if locked, err = lock.self.TryObtain(); err != nil || locked {
			break
		}
		if try >= lock.retries {
			break
		}
		time.Sleep(lock.retryInterval)
	}
	recordObtain(locked, err)
	return
}

func (lock *LockImpl) ObtainWithin(timeout time.Duration) (locked bool, err error) {
	deadline := time.Now().Add(timeout)
	for {
		if locked, err = lock.self.TryObtain(); err != nil || locked {
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(lock.retryInterval)
	}
	recordObtain(locked, err)
	return
}

func recordObtain(locked bool, err error) {
	switch {
	case err != nil:
		metrics.LockObtains.WithLabelValues("error").Inc()
	case locked:
		metrics.LockObtains.WithLabelValues("obtained").Inc()
	default:
		metrics.LockObtains.WithLabelValues("timeout").Inc()
	}
}

func (lock *LockImpl) String() string {
	return fmt.Sprintf("Lock@%v", lock.name)
}

/*
Utility to execute code with exclusive access. The lock is released on
every path out of body. If the lock cannot be obtained body is not run
and an error matching util.ErrLock is returned.
*/
func WithLock(lock Lock, body func() error) (err error) {
	locked, err := lock.Obtain()
	if err != nil {
		return util.WrapError(util.ErrLock, err, "failed to obtain lock %v", lock.Name())
	}
	if !locked {
		return util.Errorf(util.ErrLock, "lock obtain timed out: %v", lock.Name())
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return body()
}
