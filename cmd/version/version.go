package version

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/version"
)

const couchTimeout = 5 * time.Second

// Mocked for unit testing.
var (
	stdout          io.Writer = os.Stdout
	getCouchVersion           = getCouchVersionImpl
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of cozy-fuse and of the local CouchDB.",
		Run: func(_ *cobra.Command, args []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	fmt.Fprintf(stdout, "local version:   %s\n", version.Version)

	couchVersion, err := getCouchVersion()
	if err != nil {
		log.WithError(err).Debug("Failed to get CouchDB version")
		return errors.WithContext(err, "get CouchDB version")
	}

	fmt.Fprintf(stdout, "CouchDB version: %s\n", couchVersion)
	return nil
}

func getCouchVersionImpl() (string, error) {
	clients, err := util.GetClients()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), couchTimeout)
	defer cancel()
	return clients.Couch.ServerVersion(ctx)
}
