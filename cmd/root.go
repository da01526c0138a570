package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/cozyfuse/cmd/config"
	"github.com/sidkik/cozyfuse/cmd/configure"
	"github.com/sidkik/cozyfuse/cmd/killreplications"
	"github.com/sidkik/cozyfuse/cmd/list"
	mountCmd "github.com/sidkik/cozyfuse/cmd/mount"
	"github.com/sidkik/cozyfuse/cmd/remove"
	"github.com/sidkik/cozyfuse/cmd/reset"
	syncCmd "github.com/sidkik/cozyfuse/cmd/sync"
	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "COZYFUSE_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "cozy-fuse",
		Short:        "Sync the files of a Cozy to local folders",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		configure.New(),
		killreplications.New(),
		list.New(),
		mountCmd.New(),
		mountCmd.NewUnmount(),
		remove.New(),
		reset.New(),
		syncCmd.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
