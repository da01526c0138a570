package killreplications

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

type killer interface {
	KillRunningReplications(ctx context.Context) ([]device.CancelResult, error)
}

// Mocked for unit testing.
var (
	stdout    io.Writer = os.Stdout
	newKiller           = func() (killer, error) {
		clients, err := util.GetClients()
		if err != nil {
			return nil, err
		}
		return clients.Manager, nil
	}
)

// New creates a new `kill-replications` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "kill-replications",
		Short: "Cancel every replication running in the local CouchDB",
		Long: "Cancel every replication running in the local CouchDB.\n" +
			"This cleans up replications left behind by crashed syncs. " +
			"Running syncs restart their replications on their next check.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	k, err := newKiller()
	if err != nil {
		return err
	}

	ctx, stop := util.InterruptibleContext()
	defer stop()

	results, err := k.KillRunningReplications(ctx)
	if err != nil {
		return errors.WithContext(err, "list replications")
	}

	if len(results) == 0 {
		fmt.Fprintln(stdout, "No replications are running.")
		return nil
	}

	var failed int
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Fprintf(stdout, "%s %s: %s\n", goterm.Color("Failed", goterm.RED),
				result.ReplicationID, errors.GetPrintableMessage(result.Err))
			continue
		}
		fmt.Fprintf(stdout, "%s %s\n", goterm.Color("Cancelled", goterm.GREEN),
			result.ReplicationID)
	}

	if failed != 0 {
		return errors.NewFriendlyError("%d of %d replications couldn't be cancelled.",
			failed, len(results))
	}
	return nil
}
