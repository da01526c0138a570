package replication

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/couch"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

// DefaultCheckInterval is how often the supervisor checks that both
// continuous replications are still running.
const DefaultCheckInterval = 30 * time.Second

// TaskLister lists the tasks running in the local replication engine.
type TaskLister interface {
	ActiveTasks(ctx context.Context) ([]couch.Task, error)
}

// Supervisor keeps both continuous replications of a device running.
type Supervisor struct {
	Replicator Replicator
	Tasks      TaskLister
	Params     Params

	// LocalURL is the URL of the local database as seen by the replication
	// engine.
	LocalURL string

	Interval time.Duration
	Clock    clockwork.Clock
	Log      log.FieldLogger
}

var (
	pull = Options{ToLocal: true, Continuous: true, Deleted: true}
	push = Options{ToLocal: false, Continuous: true, Deleted: true}
)

// Run activates both continuous replications, and then re-activates
// whichever stops running until ctx is cancelled. Cancellation isn't an
// error.
func (s Supervisor) Run(ctx context.Context) error {
	s.setDefaults()

	for _, opts := range []Options{pull, push} {
		if err := s.Replicator.Replicate(ctx, s.Params, opts); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.WithContext(err, "activate "+directionName(opts))
		}
	}
	s.Log.Info("Continuous replications activated")

	for {
		select {
		case <-ctx.Done():
			s.Log.Info("Stopping sync")
			return nil
		case <-s.Clock.After(s.Interval):
		}

		if err := s.check(ctx); err != nil && ctx.Err() == nil {
			s.Log.WithError(err).Warn("Failed to check replications")
		}
	}
}

// check re-activates the continuous replications that aren't running.
func (s Supervisor) check(ctx context.Context) error {
	tasks, err := s.Tasks.ActiveTasks(ctx)
	if err != nil {
		return err
	}

	remoteURL, err := RemoteURL(s.Params)
	if err != nil {
		return err
	}

	running := map[bool]bool{}
	for _, task := range tasks {
		if task.Type != "replication" || !task.Continuous {
			continue
		}
		switch {
		case sameDatabase(task.Source, remoteURL) && sameDatabase(task.Target, s.LocalURL):
			running[true] = true
		case sameDatabase(task.Source, s.LocalURL) && sameDatabase(task.Target, remoteURL):
			running[false] = true
		}
	}

	for _, opts := range []Options{pull, push} {
		if running[opts.ToLocal] {
			continue
		}

		s.Log.WithField("direction", directionName(opts)).Warn(
			"Replication stopped. Restarting it.")
		if err := s.Replicator.Replicate(ctx, s.Params, opts); err != nil {
			return errors.WithContext(err, "restart "+directionName(opts))
		}
	}
	return nil
}

func (s *Supervisor) setDefaults() {
	if s.Interval == 0 {
		s.Interval = DefaultCheckInterval
	}
	if s.Clock == nil {
		s.Clock = clockwork.NewRealClock()
	}
	if s.Log == nil {
		s.Log = log.WithField("device", s.Params.Device)
	}
}

// sameDatabase compares database endpoints as reported by the replication
// engine. The engine redacts credentials and may report local databases by
// name only.
func sameDatabase(a, b string) bool {
	aURL, errA := url.Parse(a)
	bURL, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}

	aPath := strings.TrimRight(aURL.Path, "/")
	bPath := strings.TrimRight(bURL.Path, "/")
	if aURL.Host == "" || bURL.Host == "" {
		return path.Base(aPath) == path.Base(bPath)
	}
	return aURL.Host == bURL.Host && aPath == bPath
}

func directionName(opts Options) string {
	if opts.ToLocal {
		return "pull"
	}
	return "push"
}
