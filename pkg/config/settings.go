package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

const (
	// SettingsFile is the name of the optional settings file in the
	// cozy-fuse directory.
	SettingsFile = "settings.yaml"

	// InitialSettingsVersion is the version assumed for settings files that
	// don't specify one.
	InitialSettingsVersion = "v1alpha1"

	// SupportedSettingsVersion is the settings version understood by this
	// binary.
	SupportedSettingsVersion = "v1alpha1"

	// DefaultCouchURL is where the local CouchDB is expected to listen.
	DefaultCouchURL = "http://localhost:5984"

	// DefaultMountCommand is the helper that exposes a device database as a
	// FUSE filesystem.
	DefaultMountCommand = "couchmount"
)

// Environment variables that override the settings file.
const (
	CouchURLEnvKey      = "COZYFUSE_COUCH_URL"
	CouchAdminEnvKey    = "COZYFUSE_COUCH_ADMIN"
	CouchPasswordEnvKey = "COZYFUSE_COUCH_PASSWORD"
	MountCommandEnvKey  = "COZYFUSE_MOUNT_COMMAND"
	InsecureEnvKey      = "COZYFUSE_INSECURE"
)

// Settings describes how cozy-fuse reaches its local collaborators.
type Settings struct {
	Version       string `json:"version,omitempty"`
	CouchURL      string `json:"couchURL,omitempty"`
	CouchAdmin    string `json:"couchAdmin,omitempty"`
	CouchPassword string `json:"couchPassword,omitempty"`
	MountCommand  string `json:"mountCommand,omitempty"`

	// Insecure disables TLS certificate verification when talking to the
	// remote Cozy. Self-hosted Cozies commonly use self-signed certificates.
	Insecure bool `json:"insecure,omitempty"`
}

func (s Settings) getVersion() string {
	return s.Version
}

// Mocked for unit testing.
var lookupEnv = os.LookupEnv

// ParseSettings reads the settings file in dir, if it exists, and applies
// environment overrides and defaults.
func ParseSettings(dir string) (Settings, error) {
	path := filepath.Join(dir, SettingsFile)
	settings := Settings{Version: InitialSettingsVersion}
	if err := parseConfig(path, &settings, SupportedSettingsVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); !ok {
			return Settings{}, errors.WithContext(err, "parse")
		}
		settings = Settings{Version: SupportedSettingsVersion}
	}

	if v, ok := lookupEnv(CouchURLEnvKey); ok {
		settings.CouchURL = v
	}
	if v, ok := lookupEnv(CouchAdminEnvKey); ok {
		settings.CouchAdmin = v
	}
	if v, ok := lookupEnv(CouchPasswordEnvKey); ok {
		settings.CouchPassword = v
	}
	if v, ok := lookupEnv(MountCommandEnvKey); ok {
		settings.MountCommand = v
	}
	if v, ok := lookupEnv(InsecureEnvKey); ok {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return Settings{}, errors.NewFriendlyError(
				"%s must be a boolean, got %q", InsecureEnvKey, v)
		}
		settings.Insecure = insecure
	}

	if settings.CouchURL == "" {
		settings.CouchURL = DefaultCouchURL
	}
	if settings.MountCommand == "" {
		settings.MountCommand = DefaultMountCommand
	}
	return settings, nil
}

// WriteSettings writes the given settings to dir.
func WriteSettings(dir string, settings Settings) error {
	settings.Version = SupportedSettingsVersion
	yamlBytes, err := yaml.Marshal(settings)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := fs.MkdirAll(dir, 0700); err != nil {
		return errors.WithContext(err, "create config directory")
	}

	// The settings may contain the CouchDB admin password.
	if err := afero.WriteFile(fs, filepath.Join(dir, SettingsFile), yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}
