// Package lock implements exclusive leases backed by advisory file locks.
// Locks are held on the open file, so they're released by the kernel if the
// holder dies without calling Release.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// ErrLocked is returned by TryAcquire when another holder owns the lease.
var ErrLocked = errors.New("lock is held by another process")

// Held takes a shared lock while it inspects a lease. TryAcquire retries
// while only such locks are in the way.
const (
	sharedRetries  = 10
	sharedRetryGap = 10 * time.Millisecond
)

// Lease is an exclusive lock on a file.
type Lease struct {
	path string
	file *os.File
}

// TryAcquire takes the lock at path without waiting. It fails with ErrLocked
// if the lock is already held.
func TryAcquire(path string) (*Lease, error) {
	return acquire(path, unix.LOCK_EX|unix.LOCK_NB)
}

// Acquire takes the lock at path, waiting for the current holder to release
// it if necessary.
func Acquire(path string) (*Lease, error) {
	return acquire(path, unix.LOCK_EX)
}

// Held returns whether a lease is currently held on path. Unlike TryAcquire,
// it never creates or removes the lock file, so it doesn't disturb a holder
// that is starting concurrently.
func Held(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithContext(err, "open lock file")
	}
	defer f.Close()

	switch err := flock(f, unix.LOCK_SH|unix.LOCK_NB); err {
	case nil:
		return false, nil
	case unix.EWOULDBLOCK:
		return true, nil
	default:
		return false, errors.WithContext(err, "flock")
	}
}

func acquire(path string, how int) (*Lease, error) {
	retries := 0
	for {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
		if err != nil {
			return nil, errors.WithContext(err, "open lock file")
		}

		if err := flock(f, how); err != nil {
			if err != unix.EWOULDBLOCK {
				f.Close()
				return nil, errors.WithContext(err, "flock")
			}

			// A shared lock can be taken only if no lease is held, in which
			// case the file is being inspected by Held.
			inspected := flock(f, unix.LOCK_SH|unix.LOCK_NB) == nil
			f.Close()
			if !inspected || retries == sharedRetries {
				return nil, ErrLocked
			}
			retries++
			time.Sleep(sharedRetryGap)
			continue
		}

		// The previous holder may have unlinked the file while we were
		// waiting on it. Retry so the lock is taken on the file that's
		// currently at path.
		if !sameFile(f, path) {
			f.Close()
			continue
		}

		// The pid is informational. The flock is what guarantees exclusivity.
		if err := f.Truncate(0); err == nil {
			fmt.Fprintln(f, strconv.Itoa(os.Getpid()))
		}
		return &Lease{path: path, file: f}, nil
	}
}

func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

func sameFile(f *os.File, path string) bool {
	opened, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(opened, current)
}

// Path returns the path of the lock file.
func (l *Lease) Path() string {
	return l.path
}

// Release unlocks the lease and removes the lock file. It's safe to call
// Release multiple times.
func (l *Lease) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	// Remove the file before unlocking so that a new holder never locks a
	// file that is about to be unlinked.
	removeErr := os.Remove(l.path)
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	switch {
	case removeErr != nil && !os.IsNotExist(removeErr):
		return errors.WithContext(removeErr, "remove lock file")
	case unlockErr != nil:
		return errors.WithContext(unlockErr, "unlock")
	case closeErr != nil:
		return errors.WithContext(closeErr, "close lock file")
	}
	return nil
}
