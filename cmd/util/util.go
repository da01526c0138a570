package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// Mocked for unit testing.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// ExitCode returns the status the CLI exits with for err. Each error kind
// gets its own code so that scripts can tell failures apart.
func ExitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindLocalNameCollision:
		return 3
	case errors.KindRemoteNameCollision:
		return 4
	case errors.KindWrongPassword:
		return 5
	case errors.KindUnreachableRemote:
		return 6
	case errors.KindNoRegistryFound:
		return 7
	case errors.KindDeviceNotFound:
		return 8
	case errors.KindDaemonAlreadyRunning:
		return 9
	default:
		return 1
	}
}

// HandleFatalError prints the friendly version of err and exits.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(ExitCode(err))
}

// HandlePanic logs the stack trace of a panic before exiting. It must be
// deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Debug("Panic stack trace")
		fmt.Fprintf(stderr, "cozy-fuse crashed unexpectedly: %v\n", r)
		exit(1)
	}
}
