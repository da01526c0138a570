package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// Mockable for unit testing.
var (
	startCommand = (*exec.Cmd).Start
	executable   = os.Executable
)

// Detach re-executes the current binary with args in a new session, so
// that it keeps running after the calling terminal exits. The output of the
// new process is appended to logPath. It returns the pid of the new
// process.
func Detach(args []string, logPath string) (int, error) {
	self, err := executable()
	if err != nil {
		return 0, errors.WithContext(err, "find executable")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return 0, errors.WithContext(err, "create log directory")
	}

	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return 0, errors.WithContext(err, "open log file")
	}
	defer logFile.Close()

	cmd := exec.Command(self, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := startCommand(cmd); err != nil {
		return 0, errors.WithContext(err, "start daemon")
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return 0, errors.WithContext(err, "release daemon")
	}
	return pid, nil
}
