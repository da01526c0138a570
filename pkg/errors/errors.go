package errors

import (
	goerrors "errors"
	"fmt"
)

// New creates a new error. The arguments are handled in the manner of
// fmt.Sprintf.
func New(format string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(format)
	}
	return goerrors.New(fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// contextError annotates an error with a short description of what was
// being attempted when the error occurred.
type contextError struct {
	context string
	err     error
}

// WithContext wraps err with a description of the operation that failed.
// If err is nil, WithContext returns nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is meant to be shown to users
// as-is, without any of the context that was added while it propagated.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	msg string
}

// NewFriendlyError creates an error with a message that's suitable for
// displaying directly to users.
func NewFriendlyError(format string, args ...interface{}) error {
	return friendlyError{fmt.Sprintf(format, args...)}
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}

// RootCause returns the innermost error by stripping all the context that
// was added with WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// GetPrintableMessage returns the friendly message of the first friendly
// error in err's chain. Otherwise, it returns the full error message.
func GetPrintableMessage(err error) string {
	var friendly FriendlyError
	if As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}
