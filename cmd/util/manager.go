package util

import (
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/config"
	"github.com/sidkik/cozyfuse/pkg/couch"
	"github.com/sidkik/cozyfuse/pkg/device"
	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/mount"
	"github.com/sidkik/cozyfuse/pkg/remote"
	"github.com/sidkik/cozyfuse/pkg/replication"
)

// Clients holds the collaborators the commands are built from.
type Clients struct {
	Settings config.Settings
	Registry *config.Registry
	Couch    *couch.Client
	Manager  device.Manager
}

// GetClients reads the settings and connects to the local CouchDB and the
// remote Cozies accordingly.
func GetClients() (Clients, error) {
	dir, err := config.GetDir()
	if err != nil {
		return Clients{}, errors.WithContext(err, "get config directory")
	}

	settings, err := config.ParseSettings(dir)
	if err != nil {
		return Clients{}, errors.WithContext(err, "parse settings")
	}

	couchClient, err := couch.New(settings.CouchURL, settings.CouchAdmin, settings.CouchPassword)
	if err != nil {
		return Clients{}, err
	}

	registry := config.NewRegistry(dir)
	manager := device.New(registry,
		remote.New(settings.Insecure),
		couchClient,
		replication.NewCouch(couchClient),
		mount.NewHelper(settings.MountCommand),
		log.StandardLogger())

	return Clients{
		Settings: settings,
		Registry: registry,
		Couch:    couchClient,
		Manager:  manager,
	}, nil
}
