// Package saga runs multi-step operations whose completed steps are undone
// when a later step fails.
package saga

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// Step is one action of a saga.
type Step struct {
	Name string
	Run  func(ctx context.Context) error

	// Compensate undoes the effects of the step, and of the partial effects
	// of the steps that follow it. It's only called if Run succeeded and a
	// later step failed. It may be nil if there's nothing to undo.
	Compensate func(ctx context.Context) error
}

// Rollback describes how much of a failed saga was undone.
type Rollback int

const (
	// RollbackSkipped means that no step needed to be compensated.
	RollbackSkipped Rollback = iota

	// RollbackCompleted means that every compensation succeeded.
	RollbackCompleted

	// RollbackPartial means that at least one compensation failed.
	RollbackPartial
)

func (r Rollback) String() string {
	switch r {
	case RollbackSkipped:
		return "skipped"
	case RollbackCompleted:
		return "completed"
	case RollbackPartial:
		return "partially completed"
	default:
		return fmt.Sprintf("Rollback(%d)", int(r))
	}
}

// Error is returned when a step fails. It unwraps to the error returned by
// the failed step, so callers can still check for specific failures.
type Error struct {
	Step  string
	Index int
	Cause error

	Rollback     Rollback
	RollbackErrs []error
}

func (err *Error) Error() string {
	msg := fmt.Sprintf("step %d (%s) failed: %s. Rollback %s",
		err.Index+1, err.Step, err.Cause, err.Rollback)
	if len(err.RollbackErrs) == 0 {
		return msg
	}

	var rollbackMsgs []string
	for _, rollbackErr := range err.RollbackErrs {
		rollbackMsgs = append(rollbackMsgs, rollbackErr.Error())
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(rollbackMsgs, "; "))
}

func (err *Error) Unwrap() error {
	return err.Cause
}

// FriendlyMessage describes which step failed, and how much of the saga was
// undone.
func (err *Error) FriendlyMessage() string {
	msg := fmt.Sprintf("Step %d (%s) failed: %s\nRollback %s.",
		err.Index+1, err.Step, errors.GetPrintableMessage(err.Cause), err.Rollback)
	for _, rollbackErr := range err.RollbackErrs {
		msg += "\n  " + errors.GetPrintableMessage(rollbackErr)
	}
	return msg
}

// handledError marks an error whose consequences were already compensated.
type handledError struct {
	err error
}

func (err handledError) Error() string {
	return err.err.Error()
}

func (err handledError) Unwrap() error {
	return err.err
}

// Handled marks err as already compensated. When a step fails with a
// handled error, Run doesn't compensate again.
func Handled(err error) error {
	if err == nil || IsHandled(err) {
		return err
	}
	return handledError{err}
}

// IsHandled returns whether err, or an error it wraps, was marked with
// Handled.
func IsHandled(err error) bool {
	var handled handledError
	return errors.As(err, &handled)
}

// Run runs the steps in order. If a step fails, or ctx is cancelled before
// a step starts, the compensations of the completed steps are run in
// reverse order. Compensations run even if ctx is cancelled.
func Run(ctx context.Context, log logrus.FieldLogger, steps []Step) error {
	for i, step := range steps {
		stepLog := log.WithField("step", step.Name)

		err := ctx.Err()
		if err == nil {
			stepLog.Debug("Running step")
			err = step.Run(ctx)
		}
		if err == nil {
			continue
		}

		sagaErr := &Error{Step: step.Name, Index: i, Cause: err}
		if IsHandled(err) {
			stepLog.WithError(err).Debug("Step failed after its own rollback")
			sagaErr.Rollback = RollbackSkipped
			return sagaErr
		}

		stepLog.WithError(err).Warn("Step failed. Rolling back.")
		sagaErr.Rollback, sagaErr.RollbackErrs = compensate(log, steps[:i])
		return sagaErr
	}
	return nil
}

func compensate(log logrus.FieldLogger, completed []Step) (Rollback, []error) {
	// The compensations must run even if the saga was interrupted.
	ctx := context.Background()

	rollback := RollbackSkipped
	var errs []error
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}

		if rollback == RollbackSkipped {
			rollback = RollbackCompleted
		}
		stepLog := log.WithField("step", step.Name)
		stepLog.Debug("Compensating step")
		if err := step.Compensate(ctx); err != nil {
			stepLog.WithError(err).Warn("Compensation failed")
			rollback = RollbackPartial
			errs = append(errs, Handled(errors.WithContext(err, "undo "+step.Name)))
		}
	}
	return rollback, errs
}
