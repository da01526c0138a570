package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/config"
	"github.com/sidkik/cozyfuse/pkg/daemon"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

// LogFile is the name of the sync daemon's log in the device's working
// directory.
const LogFile = "sync.log"

const detachedFlag = "detached"

type syncer interface {
	StartSync(ctx context.Context, name string) error
}

// workspace is the subset of the device registry used to locate and check a
// device before detaching.
type workspace interface {
	Get(name string) (config.Device, error)
	WorkDir(name string) string
}

// Mocked for unit testing.
var (
	stdout       io.Writer = os.Stdout
	detach                 = daemon.Detach
	newSyncer              = newSyncerImpl
	newWorkspace           = newWorkspaceImpl
)

// New creates a new `sync` command.
func New() *cobra.Command {
	var name string
	var background, detached bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep a device in sync with its Cozy",
		Long: "Replicate changes between a device's local database and its Cozy " +
			"in both directions until interrupted.\n" +
			"Only one sync may run for a device at a time.",
		Run: func(_ *cobra.Command, _ []string) {
			var err error
			if background {
				err = runDetached(name)
			} else {
				err = run(name, detached)
			}
			if err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "The name of the device")
	cmd.Flags().BoolVar(&background, "daemon", false,
		"Run the sync in the background, logging to the device's "+LogFile)
	cmd.Flags().BoolVar(&detached, detachedFlag, false, "")
	cmd.Flags().MarkHidden(detachedFlag)
	return cmd
}

func run(name string, detached bool) error {
	if name == "" {
		return errors.MissingFieldError{Field: "name"}
	}

	if detached {
		// The output of detached syncs goes to a log file.
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	}

	s, err := newSyncer()
	if err != nil {
		return err
	}

	ctx, stop := util.InterruptibleContext()
	defer stop()

	log.WithField("device", name).Info("Starting sync")
	return s.StartSync(ctx, name)
}

// runDetached starts the sync in a new process that outlives the terminal.
// The device is checked first so that obvious failures are reported to the
// user rather than to the log.
func runDetached(name string) error {
	if name == "" {
		return errors.MissingFieldError{Field: "name"}
	}

	ws, running, err := newWorkspace()
	if err != nil {
		return err
	}

	device, err := ws.Get(name)
	if err != nil {
		return err
	}
	if !device.IsRegistered() {
		return errors.NewFriendlyError("Device %q isn't registered on its Cozy. "+
			"Remove it and configure it again.", name)
	}
	if running(name) {
		return errors.DaemonAlreadyRunning{Device: name, Kind: daemon.KindSync}
	}

	logPath := filepath.Join(ws.WorkDir(name), LogFile)
	pid, err := detach([]string{"sync", "-n", name, "--" + detachedFlag}, logPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Started sync for %q (pid %d). Logs are in %s\n", name, pid, logPath)
	return nil
}

func newSyncerImpl() (syncer, error) {
	clients, err := util.GetClients()
	if err != nil {
		return nil, err
	}
	return clients.Manager, nil
}

func newWorkspaceImpl() (workspace, func(string) bool, error) {
	dir, err := config.GetDir()
	if err != nil {
		return nil, nil, errors.WithContext(err, "get config directory")
	}

	registry := config.NewRegistry(dir)
	guard := daemon.NewGuard(registry)
	running := func(name string) bool {
		return guard.Running(name, daemon.KindSync)
	}
	return registry, running, nil
}
