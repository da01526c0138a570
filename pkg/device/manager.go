// Package device provisions, tears down and syncs the devices configured on
// this machine.
package device

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/config"
	"github.com/sidkik/cozyfuse/pkg/couch"
	"github.com/sidkik/cozyfuse/pkg/daemon"
	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/mount"
	"github.com/sidkik/cozyfuse/pkg/remote"
	"github.com/sidkik/cozyfuse/pkg/replication"
)

//go:generate mockery -name Registry
//go:generate mockery -name Remote
//go:generate mockery -name Storage

// Registry stores the devices configured on this machine.
type Registry interface {
	Load() (map[string]config.Device, error)
	Get(name string) (config.Device, error)
	Add(device config.Device) error
	SetRemoteIdentity(name, deviceID, devicePassword string) error
	Remove(name string) error
	Clear() error
	WorkDir(name string) string
}

// Remote registers devices on Cozies.
type Remote interface {
	Register(ctx context.Context, name, cozyURL, path, password string) (remote.Identity, error)
	Deregister(ctx context.Context, cozyURL, deviceID, password string) error
}

// Storage manages the local databases of devices, and the replications
// running on them.
type Storage interface {
	CreateDatabaseAndUser(ctx context.Context, name string) (login, password string, err error)
	DestroyDatabase(ctx context.Context, name string) error
	DestroyUser(ctx context.Context, name string) error
	WriteDeviceMarker(ctx context.Context, name, cozyURL, path, password, deviceID string) error
	DatabaseURL(database, login, password string) string
	ActiveTasks(ctx context.Context) ([]couch.Task, error)
	CancelReplication(ctx context.Context, replicationID string) error
}

// Manager runs the device operations. It's safe to use from multiple
// goroutines, but the operations on a single device must not overlap.
type Manager struct {
	registry   Registry
	remote     Remote
	storage    Storage
	replicator replication.Replicator
	mounter    mount.Mounter
	guard      daemon.Guard
	log        logrus.FieldLogger

	clock         clockwork.Clock
	checkInterval time.Duration
}

// New creates a Manager. The daemon leases are kept in the devices'
// working directories.
func New(registry Registry, remote Remote, storage Storage,
	replicator replication.Replicator, mounter mount.Mounter,
	log logrus.FieldLogger) Manager {

	return Manager{
		registry:      registry,
		remote:        remote,
		storage:       storage,
		replicator:    replicator,
		mounter:       mounter,
		guard:         daemon.NewGuard(registry),
		log:           log,
		clock:         clockwork.NewRealClock(),
		checkInterval: replication.DefaultCheckInterval,
	}
}

// Status describes a configured device.
type Status struct {
	config.Device

	// Syncing is true when a sync daemon is running for the device.
	Syncing bool
}

// List returns the configured devices, sorted by name.
func (m Manager) List() ([]Status, error) {
	devices, err := m.registry.Load()
	if err != nil {
		return nil, err
	}

	var statuses []Status
	for _, name := range sortedNames(devices) {
		statuses = append(statuses, Status{
			Device:  devices[name],
			Syncing: m.guard.Running(name, daemon.KindSync),
		})
	}
	return statuses, nil
}

// Get returns the configured device with the given name.
func (m Manager) Get(name string) (config.Device, error) {
	return m.registry.Get(name)
}

// Mount mounts the device's folder. An existing mount is replaced.
func (m Manager) Mount(ctx context.Context, name string) error {
	device, err := m.registry.Get(name)
	if err != nil {
		return err
	}

	if err := m.mounter.Unmount(ctx, device.Path); err != nil {
		return errors.WithContext(err, "unmount previous mount")
	}
	return m.mounter.Mount(ctx, name, device.Path)
}

// Unmount unmounts the device's folder.
func (m Manager) Unmount(ctx context.Context, name string) error {
	device, err := m.registry.Get(name)
	if err != nil {
		return err
	}
	return m.mounter.Unmount(ctx, device.Path)
}

func (m Manager) replicationParams(device config.Device) replication.Params {
	return replication.Params{
		Device:         device.Name,
		RemoteURL:      device.URL,
		Database:       device.Name,
		DeviceID:       device.DeviceID,
		RemotePassword: device.DevicePassword,
		DBLogin:        device.DBLogin,
		DBPassword:     device.DBPassword,
	}
}

func sortedNames(devices map[string]config.Device) []string {
	var names []string
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isMissing(err error) bool {
	var noRegistry errors.NoRegistryFound
	var noDevice errors.DeviceNotFound
	return errors.As(err, &noRegistry) || errors.As(err, &noDevice)
}
