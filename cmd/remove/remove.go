package remove

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/config"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

type tearer interface {
	Get(name string) (config.Device, error)
	Teardown(ctx context.Context, name, password string) error
}

// Mocked for unit testing.
var (
	stdout      io.Writer = os.Stdout
	getPassword           = util.GetPassword
	newTearer             = func() (tearer, error) {
		clients, err := util.GetClients()
		if err != nil {
			return nil, err
		}
		return clients.Manager, nil
	}
)

// New creates a new `remove` command.
func New() *cobra.Command {
	var name, password string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a device from its Cozy and delete its local data",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(name, password); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "The name of the device")
	cmd.Flags().StringVar(&password, "password", "",
		"The Cozy's password. If not set, it's prompted for.")
	return cmd
}

func run(name, password string) error {
	if name == "" {
		return errors.MissingFieldError{Field: "name"}
	}

	t, err := newTearer()
	if err != nil {
		return err
	}

	// Teardown is a no-op for unknown devices, so they're reported before
	// prompting.
	if _, err := t.Get(name); err != nil {
		return err
	}

	password, err = getPassword(password)
	if err != nil {
		return err
	}

	ctx, stop := util.InterruptibleContext()
	defer stop()

	if err := t.Teardown(ctx, name, password); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed device %q.\n", name)
	return nil
}
