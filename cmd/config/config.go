package config

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/cozyfuse/cmd/util"
	"github.com/sidkik/cozyfuse/pkg/config"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout         io.Writer = os.Stdout
	stdin          io.Reader = os.Stdin
	getDir                   = config.GetDir
	parseSettings            = config.ParseSettings
	writeSettings            = config.WriteSettings
	lookPath                 = exec.LookPath
	promptPassword           = util.PromptPassword
)

// New creates a new `config` command.
func New() *cobra.Command {
	var cliOpts config.Settings
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup how cozy-fuse reaches the local CouchDB and mount helper",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s",
					errors.GetPrintableMessage(err))
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&cliOpts.CouchURL, "couch-url", "",
		"Set the URL of the local CouchDB. "+
			"Optional: If not set, `cozy-fuse config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.CouchAdmin, "couch-admin", "",
		"Set the CouchDB admin user. "+
			"Optional: If not set, `cozy-fuse config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.CouchPassword, "couch-password", "",
		"Set the CouchDB admin password. "+
			"Optional: If not set, the current password is kept, or prompted for.")
	cmd.Flags().StringVar(&cliOpts.MountCommand, "mount-command", "",
		"Set the helper used to mount devices. "+
			"Optional: If not set, `cozy-fuse config` will interactively prompt.")
	cmd.Flags().BoolVar(&cliOpts.Insecure, "insecure", false,
		"Skip TLS certificate verification when talking to Cozies.")

	// Setup the commands for querying the contents of the settings.
	type getterSpec struct {
		use, short string
		fn         func(config.Settings) string
	}

	getters := []getterSpec{
		{
			use:   "get-couch-url",
			short: "Get the currently configured CouchDB URL",
			fn:    func(cfg config.Settings) string { return cfg.CouchURL },
		},
		{
			use:   "get-mount-command",
			short: "Get the currently configured mount helper",
			fn:    func(cfg config.Settings) string { return cfg.MountCommand },
		},
		{
			use:   "get-insecure",
			short: "Get whether TLS verification is disabled for Cozies",
			fn:    func(cfg config.Settings) string { return strconv.FormatBool(cfg.Insecure) },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := readSettings()
				if err != nil {
					err = errors.WithContext(err, "read settings")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig prompts for the settings that weren't passed on the command
// line, and writes the result to the settings file.
func SetupConfig(cliOpts config.Settings) error {
	dir, err := getDir()
	if err != nil {
		return errors.WithContext(err, "get config directory")
	}

	cfg, err := generateConfig(dir, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeSettings(dir, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s/%s\n", dir, config.SettingsFile)
	return nil
}

func readSettings() (config.Settings, error) {
	dir, err := getDir()
	if err != nil {
		return config.Settings{}, errors.WithContext(err, "get config directory")
	}
	return parseSettings(dir)
}

func couchURLValidationFn(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "The CouchDB URL must look like http://localhost:5984. " +
			"Please enter another URL.", false
	}
	if parsed.User != nil {
		return "The CouchDB URL must not contain credentials. " +
			"The admin user is configured separately.", false
	}
	return "", true
}

func notEmptyValidationFn(resp string) (string, bool) {
	if resp == "" {
		return "This field is required.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the desired
// settings are. Values passed on the command line aren't prompted for.
func generateConfig(dir string, cliOpts config.Settings) (config.Settings, error) {
	currConfig, err := parseSettings(dir)
	if err != nil {
		currConfig = config.Settings{}
		log.WithError(err).Debug("Failed to read current settings")
	}

	cfg := cliOpts
	cfg.Insecure = cliOpts.Insecure || currConfig.Insecure

	var prompts []prompt
	if cliOpts.CouchURL == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the URL of the local CouchDB.\n" +
				"The databases of your devices are stored there.",
			prompt:        "CouchDB URL",
			defaultAnswer: config.DefaultCouchURL,
			currAnswer:    currConfig.CouchURL,
			field:         &cfg.CouchURL,
			validationFn:  couchURLValidationFn,
		})
	}

	if cliOpts.CouchAdmin == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the CouchDB admin user.\n" +
				"It's used to create a database and a user for each device.",
			prompt:       "CouchDB admin",
			currAnswer:   currConfig.CouchAdmin,
			field:        &cfg.CouchAdmin,
			validationFn: notEmptyValidationFn,
		})
	}

	if cliOpts.MountCommand == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the helper that mounts a device's files.\n" +
				"It's invoked as `<helper> <device> <folder>`.",
			prompt:        "Mount helper",
			defaultAnswer: guessMountCommand(),
			currAnswer:    currConfig.MountCommand,
			field:         &cfg.MountCommand,
			validationFn:  notEmptyValidationFn,
		})
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Settings{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	if cfg.CouchPassword == "" {
		cfg.CouchPassword = currConfig.CouchPassword
	}
	if cfg.CouchPassword == "" {
		cfg.CouchPassword, err = promptPassword("CouchDB admin password")
		if err != nil {
			return config.Settings{}, errors.WithContext(err, "read password")
		}
	}

	return cfg, nil
}

// guessMountCommand returns the full path to the default mount helper if
// it's installed.
func guessMountCommand() string {
	path, err := lookPath(config.DefaultMountCommand)
	if err != nil {
		log.WithError(err).Debug("Failed to find mount helper")
		return config.DefaultMountCommand
	}
	return path
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimSpace(choiceStr)

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp), nil
}
