package reset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/device"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

type resetter interface {
	ResetAll(ctx context.Context, password string) (device.ResetReport, error)
}

// Mocked for unit testing.
var (
	stdout        io.Writer = os.Stdout
	getPassword             = util.GetPassword
	promptYesOrNo           = util.PromptYesOrNo
	newResetter             = func() (resetter, error) {
		clients, err := util.GetClients()
		if err != nil {
			return nil, err
		}
		return clients.Manager, nil
	}
)

// New creates a new `reset` command.
func New() *cobra.Command {
	var password string
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every configured device",
		Long: "Remove every configured device from its Cozy, delete the local " +
			"databases, and delete the device registry.\n" +
			"Devices that fail to be removed are reported, and don't stop " +
			"the others from being removed.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(password, yes); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&password, "password", "",
		"The Cozies' password. If not set, it's prompted for.")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Don't ask for confirmation")
	return cmd
}

func run(password string, yes bool) error {
	if !yes {
		confirmed, err := promptYesOrNo("Remove every configured device?")
		if err != nil {
			return errors.WithContext(err, "prompt")
		}
		if !confirmed {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	password, err := getPassword(password)
	if err != nil {
		return err
	}

	r, err := newResetter()
	if err != nil {
		return err
	}

	ctx, stop := util.InterruptibleContext()
	defer stop()

	report, err := r.ResetAll(ctx, password)
	if err != nil {
		return err
	}

	for _, result := range report.Results {
		if result.Err == nil {
			fmt.Fprintf(stdout, "%s %s\n", goterm.Color("Removed", goterm.GREEN), result.Device)
			continue
		}
		fmt.Fprintf(stdout, "%s %s: %s\n", goterm.Color("Failed", goterm.RED), result.Device,
			errors.GetPrintableMessage(result.Err))
	}

	if failed := report.Failed(); len(failed) != 0 {
		return errors.NewFriendlyError("%d of %d devices couldn't be removed.",
			len(failed), len(report.Results))
	}
	return nil
}
