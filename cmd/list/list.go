package list

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/device"
)

type lister interface {
	List() ([]device.Status, error)
}

// Mocked for unit testing.
var (
	stdout    io.Writer = os.Stdout
	newLister           = func() (lister, error) {
		clients, err := util.GetClients()
		if err != nil {
			return nil, err
		}
		return clients.Manager, nil
	}
)

// New creates a new `list` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured devices",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	l, err := newLister()
	if err != nil {
		return err
	}

	statuses, err := l.List()
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Fprintln(stdout, "No devices are configured.")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tCOZY\tFOLDER\tSTATUS")
	for _, status := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", status.Name, status.URL, status.Path,
			statusString(status))
	}
	return w.Flush()
}

func statusString(status device.Status) string {
	switch {
	case !status.IsRegistered():
		return goterm.Color("Unregistered", goterm.RED)
	case status.Syncing:
		return goterm.Color("Syncing", goterm.GREEN)
	default:
		return goterm.Color("Stopped", goterm.YELLOW)
	}
}
