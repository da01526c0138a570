package mount

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

//go:generate mockery -name Mounter

// Mounter exposes a device's files as a local folder.
type Mounter interface {
	// Mount mounts the named device at path. Mounting an already mounted
	// path is a no-op.
	Mount(ctx context.Context, name, path string) error

	// Unmount unmounts path. Unmounting a path that isn't mounted, or that
	// doesn't exist, is a no-op.
	Unmount(ctx context.Context, path string) error
}

// Mockable for unit testing.
var (
	combinedOutput = (*exec.Cmd).CombinedOutput
	isMountPoint   = mountPoint
	goos           = runtime.GOOS
)

// Helper mounts devices by running an external FUSE helper.
type Helper struct {
	// Command is the program that mounts a device. It's invoked as
	// `<command> <name> <path>` and must return once the mount is ready.
	Command string
}

// NewHelper returns a Mounter that runs command to mount devices.
func NewHelper(command string) Helper {
	return Helper{Command: command}
}

func (h Helper) Mount(ctx context.Context, name, path string) error {
	mounted, err := isMountPoint(path)
	if err != nil {
		return errors.WithContext(err, "check mount point")
	}
	if mounted {
		log.WithField("path", path).Debug("Already mounted")
		return nil
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.WithContext(err, "create mount point")
	}

	cmd := exec.CommandContext(ctx, h.Command, name, path)
	if out, err := combinedOutput(cmd); err != nil {
		return errors.WithContext(commandError(err, out), "run mount helper")
	}
	log.WithField("path", path).Info("Mounted device")
	return nil
}

func (h Helper) Unmount(ctx context.Context, path string) error {
	mounted, err := isMountPoint(path)
	if err != nil {
		return errors.WithContext(err, "check mount point")
	}
	if !mounted {
		return nil
	}

	cmd := exec.CommandContext(ctx, "fusermount", "-u", path)
	if goos == "darwin" {
		cmd = exec.CommandContext(ctx, "umount", path)
	}
	if out, err := combinedOutput(cmd); err != nil {
		return errors.WithContext(commandError(err, out), "unmount")
	}
	log.WithField("path", path).Info("Unmounted device")
	return nil
}

func commandError(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return err
	}
	return errors.New("%s: %s", err, msg)
}

// mountPoint returns whether path is the root of a mounted filesystem. A
// missing path isn't a mount point.
func mountPoint(path string) (bool, error) {
	var st, parent unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		// FUSE mounts whose server died fail with ENOTCONN, but still need
		// to be unmounted.
		if err == unix.ENOTCONN {
			return true, nil
		}
		return false, err
	}

	if err := unix.Stat(filepath.Dir(filepath.Clean(path)), &parent); err != nil {
		return false, err
	}
	return st.Dev != parent.Dev || st.Ino == parent.Ino, nil
}
