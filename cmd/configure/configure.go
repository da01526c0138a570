package configure

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/buger/goterm"
	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

type provisioner interface {
	Provision(ctx context.Context, name, cozyURL, path, password string) error
}

// Mocked for unit testing.
var (
	stdout         io.Writer = os.Stdout
	getPassword              = util.GetPassword
	absPath                  = filepath.Abs
	newProvisioner           = newProvisionerImpl
)

// New creates a new `configure` command.
func New() *cobra.Command {
	var name, cozyURL, path, password string
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Register a new device on a Cozy and sync it to a local folder",
		Long: "Register a new device on a Cozy, create its local database, " +
			"and run the initial replication.\n" +
			"If any step fails, everything done so far is undone.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(name, cozyURL, path, password); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "The name of the device")
	cmd.Flags().StringVarP(&cozyURL, "url", "u", "", "The URL of the Cozy")
	cmd.Flags().StringVarP(&path, "path", "p", "", "The local folder to sync the device to")
	cmd.Flags().StringVar(&password, "password", "",
		"The Cozy's password. If not set, it's prompted for.")
	return cmd
}

func run(name, cozyURL, path, password string) error {
	required := []struct{ field, value string }{
		{"name", name},
		{"url", cozyURL},
		{"path", path},
	}
	for _, flag := range required {
		if flag.value == "" {
			return errors.MissingFieldError{Field: flag.field}
		}
	}

	path, err := absPath(path)
	if err != nil {
		return errors.WithContext(err, "resolve path")
	}

	password, err = getPassword(password)
	if err != nil {
		return err
	}

	ctx, stop := util.InterruptibleContext()
	defer stop()

	p, err := newProvisioner(ctx)
	if err != nil {
		return err
	}

	pp := util.NewProgressPrinter(stdout, fmt.Sprintf("Configuring device %q", name))
	go pp.Run()
	err = p.Provision(ctx, name, cozyURL, path, password)
	pp.Stop()
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, goterm.Color(fmt.Sprintf("Device %q is ready.", name), goterm.GREEN))
	fmt.Fprintf(stdout, "Run `cozy-fuse sync -n %s` to keep it in sync.\n", name)
	return nil
}

func newProvisionerImpl(ctx context.Context) (provisioner, error) {
	clients, err := util.GetClients()
	if err != nil {
		return nil, err
	}

	if err := clients.Couch.CheckServerVersion(ctx); err != nil {
		return nil, errors.WithContext(err, "check CouchDB")
	}
	return clients.Manager, nil
}
