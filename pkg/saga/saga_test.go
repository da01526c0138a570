package saga

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// recorder builds steps that log their calls.
type recorder struct {
	calls []string
}

func (r *recorder) step(name string, runErr, compensateErr error) Step {
	return Step{
		Name: name,
		Run: func(context.Context) error {
			r.calls = append(r.calls, "run "+name)
			return runErr
		},
		Compensate: func(context.Context) error {
			r.calls = append(r.calls, "undo "+name)
			return compensateErr
		},
	}
}

func TestRunSuccess(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &recorder{}

	err := Run(context.Background(), log, []Step{
		r.step("a", nil, nil),
		r.step("b", nil, nil),
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"run a", "run b"}, r.calls)
}

func TestRunCompensatesInReverse(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &recorder{}

	noCompensation := r.step("a", nil, nil)
	noCompensation.Compensate = nil

	err := Run(context.Background(), log, []Step{
		noCompensation,
		r.step("b", nil, nil),
		r.step("c", nil, nil),
		r.step("d", assert.AnError, nil),
		r.step("e", nil, nil),
	})
	assert.Equal(t, []string{"run a", "run b", "run c", "run d", "undo c", "undo b"}, r.calls)

	var sagaErr *Error
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, "d", sagaErr.Step)
	assert.Equal(t, 3, sagaErr.Index)
	assert.Equal(t, RollbackCompleted, sagaErr.Rollback)
	assert.Empty(t, sagaErr.RollbackErrs)
	assert.True(t, errors.Is(err, assert.AnError))
}

func TestRunFirstStepFails(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &recorder{}

	err := Run(context.Background(), log, []Step{
		r.step("a", errors.WrongPassword{}, nil),
		r.step("b", nil, nil),
	})
	assert.Equal(t, []string{"run a"}, r.calls)
	assert.Equal(t, &Error{Step: "a", Index: 0, Cause: errors.WrongPassword{},
		Rollback: RollbackSkipped}, err)

	// The cause keeps its kind.
	assert.Equal(t, errors.KindWrongPassword, errors.KindOf(err))
}

func TestRunPartialRollback(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := &recorder{}

	compensateErr := errors.New("compensation failed")
	err := Run(context.Background(), log, []Step{
		r.step("a", nil, nil),
		r.step("b", nil, compensateErr),
		r.step("c", assert.AnError, nil),
	})

	// Compensation continues past a failure.
	assert.Equal(t, []string{"run a", "run b", "run c", "undo b", "undo a"}, r.calls)

	var sagaErr *Error
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, RollbackPartial, sagaErr.Rollback)
	require.Len(t, sagaErr.RollbackErrs, 1)
	assert.True(t, IsHandled(sagaErr.RollbackErrs[0]))
	assert.EqualError(t, sagaErr.RollbackErrs[0], "undo b: compensation failed")
	assert.EqualError(t, err, "step 3 (c) failed: "+assert.AnError.Error()+
		". Rollback partially completed: undo b: compensation failed")
	assert.NotEmpty(t, hook.AllEntries())
}

func TestRunHandledErrorIsNotCompensatedAgain(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &recorder{}

	err := Run(context.Background(), log, []Step{
		r.step("a", nil, nil),
		r.step("b", Handled(assert.AnError), nil),
	})
	assert.Equal(t, []string{"run a", "run b"}, r.calls)

	var sagaErr *Error
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, RollbackSkipped, sagaErr.Rollback)
}

func TestNestedSaga(t *testing.T) {
	log, _ := test.NewNullLogger()
	inner := &recorder{}
	outer := &recorder{}

	err := Run(context.Background(), log, []Step{
		outer.step("a", nil, nil),
		{
			Name: "nested",
			Run: func(ctx context.Context) error {
				return Run(ctx, log, []Step{
					inner.step("x", nil, nil),
					inner.step("y", assert.AnError, nil),
				})
			},
		},
	})
	assert.Equal(t, []string{"run x", "run y", "undo x"}, inner.calls)
	assert.Equal(t, []string{"run a", "undo a"}, outer.calls)
	assert.True(t, errors.Is(err, assert.AnError))

	// The nested rollback can be declared sufficient for the enclosing saga.
	inner.calls, outer.calls = nil, nil
	err = Run(context.Background(), log, []Step{
		outer.step("a", nil, nil),
		{
			Name: "nested",
			Run: func(ctx context.Context) error {
				return Handled(Run(ctx, log, []Step{
					inner.step("x", nil, nil),
					inner.step("y", assert.AnError, nil),
				}))
			},
		},
	})
	assert.Equal(t, []string{"run x", "run y", "undo x"}, inner.calls)
	assert.Equal(t, []string{"run a"}, outer.calls)
	assert.True(t, errors.Is(err, assert.AnError))
}

func TestRunCancelled(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	var compensateCtxErr error
	err := Run(ctx, log, []Step{
		{
			Name: "a",
			Run: func(context.Context) error {
				cancel()
				return nil
			},
			Compensate: func(ctx context.Context) error {
				compensateCtxErr = ctx.Err()
				return nil
			},
		},
		r.step("b", nil, nil),
	})

	// Step b never runs, and a is undone with a live context.
	assert.Empty(t, r.calls)
	assert.NoError(t, compensateCtxErr)

	var sagaErr *Error
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, "b", sagaErr.Step)
	assert.Equal(t, context.Canceled, sagaErr.Cause)
	assert.Equal(t, RollbackCompleted, sagaErr.Rollback)
	assert.Equal(t, errors.KindFatal, errors.KindOf(err))
}

func TestHandled(t *testing.T) {
	assert.Nil(t, Handled(nil))
	assert.False(t, IsHandled(assert.AnError))

	handled := Handled(assert.AnError)
	assert.True(t, IsHandled(handled))
	assert.True(t, IsHandled(errors.WithContext(handled, "context")))
	assert.Equal(t, handled, Handled(handled))
	assert.True(t, errors.Is(handled, assert.AnError))
}

func TestFriendlyMessage(t *testing.T) {
	err := &Error{
		Step:         "register",
		Index:        2,
		Cause:        errors.WithContext(errors.WrongPassword{}, "register device"),
		Rollback:     RollbackPartial,
		RollbackErrs: []error{errors.New("undo add: disk full")},
	}
	assert.Equal(t, "Step 3 (register) failed: "+errors.WrongPassword{}.FriendlyMessage()+
		"\nRollback partially completed.\n  undo add: disk full",
		errors.GetPrintableMessage(err))
}
