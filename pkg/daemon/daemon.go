// Package daemon runs long-lived per-device operations, making sure that
// only one instance of each kind runs for a device at a time.
package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/lock"
)

// KindSync is the daemon that keeps a device's replications running.
const KindSync = "sync"

// WorkDirs locates the working directory of devices.
type WorkDirs interface {
	WorkDir(name string) string
}

// Guard hands out the daemon leases of devices.
type Guard struct {
	dirs WorkDirs
}

// NewGuard creates a guard that keeps leases in the devices' working
// directories.
func NewGuard(dirs WorkDirs) Guard {
	return Guard{dirs: dirs}
}

// LeasePath returns the path of the lease file for the given daemon.
func (g Guard) LeasePath(device, kind string) string {
	return filepath.Join(g.dirs.WorkDir(device), kind+".pid")
}

// Acquire takes the lease for the given daemon. It doesn't wait: if
// another process holds the lease, it fails with DaemonAlreadyRunning.
func (g Guard) Acquire(device, kind string) (*lock.Lease, error) {
	if err := os.MkdirAll(g.dirs.WorkDir(device), 0700); err != nil {
		return nil, errors.WithContext(err, "create working directory")
	}

	lease, err := lock.TryAcquire(g.LeasePath(device, kind))
	if err == lock.ErrLocked {
		return nil, errors.DaemonAlreadyRunning{Device: device, Kind: kind}
	}
	return lease, err
}

// Running returns whether a process currently holds the lease for the
// given daemon.
func (g Guard) Running(device, kind string) bool {
	held, err := lock.Held(g.LeasePath(device, kind))
	if err != nil {
		log.WithError(err).WithField("device", device).Debug("Failed to check daemon lease")
		return false
	}
	return held
}

// Task is a daemon running in the background of this process.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	errLock sync.Mutex
	err     error
}

// Start runs fn in the background while holding the lease for the given
// daemon. The context passed to fn is cancelled by Stop, or when ctx is
// cancelled. The lease is released once fn returns, even if it panics.
func Start(ctx context.Context, guard Guard, device, kind string,
	fn func(context.Context) error) (*Task, error) {

	lease, err := guard.Acquire(device, kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}
	logger := log.WithField("device", device).WithField("daemon", kind)

	go func() {
		defer close(task.done)
		defer func() {
			if err := lease.Release(); err != nil {
				logger.WithError(err).Warn("Failed to release daemon lease")
			}
		}()
		defer func() {
			if r := recover(); r != nil {
				task.setErr(errors.New("%s daemon panicked: %v", kind, r))
			}
		}()
		defer cancel()

		logger.Debug("Daemon started")
		task.setErr(fn(ctx))
		logger.Debug("Daemon stopped")
	}()
	return task, nil
}

// Run is like Start, but blocks until fn returns.
func Run(ctx context.Context, guard Guard, device, kind string,
	fn func(context.Context) error) error {

	task, err := Start(ctx, guard, device, kind, fn)
	if err != nil {
		return err
	}
	return task.Wait()
}

// Stop cancels the daemon and waits for it to exit.
func (t *Task) Stop() error {
	t.cancel()
	return t.Wait()
}

// Wait blocks until the daemon exits, and returns its error. The lease has
// been released by the time Wait returns.
func (t *Task) Wait() error {
	<-t.done

	t.errLock.Lock()
	defer t.errLock.Unlock()
	return t.err
}

func (t *Task) setErr(err error) {
	t.errLock.Lock()
	t.err = err
	t.errLock.Unlock()
}
