package replication

import (
	"context"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/couch"
	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/remote"
)

//go:generate mockery -name Replicator

// RemoteDatabase is the path of the replicated database on a Cozy.
const RemoteDatabase = "cozy"

// Params identifies the two ends of a device's replication.
type Params struct {
	Device    string
	RemoteURL string
	Database  string

	// DeviceID and RemotePassword form the identity issued by the Cozy when
	// the device was registered.
	DeviceID       string
	RemotePassword string

	DBLogin    string
	DBPassword string
}

// Options configures the direction and lifetime of a replication.
type Options struct {
	// ToLocal replicates from the Cozy into the local database.
	ToLocal bool

	// Continuous replications keep running after catching up.
	Continuous bool

	// Deleted controls whether deleted documents are replicated.
	Deleted bool
}

// Replicator runs replications between the local database and a Cozy.
// Running the same replication twice is harmless: CouchDB deduplicates
// identical continuous replications.
type Replicator interface {
	Replicate(ctx context.Context, params Params, opts Options) error
}

// Engine is the subset of the CouchDB client used to run replications.
type Engine interface {
	Replicate(ctx context.Context, req couch.ReplicationRequest) error
	DatabaseURL(database, login, password string) string
}

// Couch runs replications through the local CouchDB's replicator.
type Couch struct {
	engine Engine
}

// NewCouch creates a Replicator that schedules replications on engine.
func NewCouch(engine Engine) Couch {
	return Couch{engine: engine}
}

// Replicate runs the replication described by params and opts. One-shot
// replications return once they're complete.
func (c Couch) Replicate(ctx context.Context, params Params, opts Options) error {
	remoteURL, err := RemoteURL(params)
	if err != nil {
		return err
	}
	localURL := c.engine.DatabaseURL(params.Database, params.DBLogin, params.DBPassword)

	req := couch.ReplicationRequest{
		Source:     localURL,
		Target:     remoteURL,
		Continuous: opts.Continuous,
	}
	if opts.ToLocal {
		req.Source, req.Target = remoteURL, localURL
	}
	if !opts.Deleted {
		req.Selector = map[string]interface{}{
			"_deleted": map[string]interface{}{"$exists": false},
		}
	}

	log.WithFields(log.Fields{
		"device":     params.Device,
		"toLocal":    opts.ToLocal,
		"continuous": opts.Continuous,
	}).Debug("Starting replication")
	return c.engine.Replicate(ctx, req)
}

// RemoteURL returns the URL of the device's database on the Cozy,
// authenticated with the device identity.
func RemoteURL(params Params) (string, error) {
	if params.DeviceID == "" || params.RemotePassword == "" {
		return "", errors.NewFriendlyError(
			"Device %q isn't registered on its Cozy yet.", params.Device)
	}

	parsed, err := url.Parse(remote.NormalizeURL(params.RemoteURL))
	if err != nil {
		return "", errors.WithContext(err, "parse remote URL")
	}
	parsed.User = url.UserPassword(params.DeviceID, params.RemotePassword)
	parsed.Path = parsed.Path + "/" + RemoteDatabase
	return parsed.String(), nil
}
