package mount

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

type mounter interface {
	Mount(ctx context.Context, name string) error
	Unmount(ctx context.Context, name string) error
}

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	newMounter           = func() (mounter, error) {
		clients, err := util.GetClients()
		if err != nil {
			return nil, err
		}
		return clients.Manager, nil
	}
)

// New creates a new `mount` command.
func New() *cobra.Command {
	return newCommand("mount", "Mount a device's files onto its folder",
		func(ctx context.Context, m mounter, name string) error {
			if err := m.Mount(ctx, name); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Mounted device %q.\n", name)
			return nil
		})
}

// NewUnmount creates a new `unmount` command.
func NewUnmount() *cobra.Command {
	return newCommand("unmount", "Unmount a device's folder",
		func(ctx context.Context, m mounter, name string) error {
			if err := m.Unmount(ctx, name); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Unmounted device %q.\n", name)
			return nil
		})
}

func newCommand(use, short string, fn func(context.Context, mounter, string) error) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(name, fn); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "The name of the device")
	return cmd
}

func run(name string, fn func(context.Context, mounter, string) error) error {
	if name == "" {
		return errors.MissingFieldError{Field: "name"}
	}

	m, err := newMounter()
	if err != nil {
		return err
	}

	ctx, stop := util.InterruptibleContext()
	defer stop()
	return fn(ctx, m, name)
}
