package device

import (
	"context"

	"github.com/sidkik/cozyfuse/pkg/config"
	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/replication"
	"github.com/sidkik/cozyfuse/pkg/saga"
)

// Provision configures a new device that syncs the folder at path with the
// Cozy at cozyURL. password is the password of the Cozy's owner.
//
// If any step fails, the completed steps are undone and the returned error
// is a *saga.Error describing the failed step and the rollback. The error
// is marked as handled, and still matches the error of the failed step.
func (m Manager) Provision(ctx context.Context, name, cozyURL, path, password string) error {
	log := m.log.WithField("device", name)
	device := config.Device{Name: name, URL: cozyURL, Path: path}

	replicate := func(opts replication.Options) func(context.Context) error {
		return func(ctx context.Context) error {
			return m.replicator.Replicate(ctx, m.replicationParams(device), opts)
		}
	}

	steps := []saga.Step{
		{
			Name: "create local database",
			Run: func(ctx context.Context) (err error) {
				// The local registry is checked before anything is created,
				// so a name that's taken locally is never reported as a
				// remote collision.
				if err := m.checkNameAvailable(name); err != nil {
					return err
				}
				device.DBLogin, device.DBPassword, err = m.storage.CreateDatabaseAndUser(ctx, name)
				return err
			},
		},
		{
			Name:       "save device",
			Run:        func(context.Context) error { return m.registry.Add(device) },
			Compensate: func(context.Context) error { return m.forget(name) },
		},
		{
			Name: "register device remotely",
			Run: func(ctx context.Context) error {
				identity, err := m.remote.Register(ctx, name, cozyURL, path, password)
				if err != nil {
					return err
				}

				err = m.registry.SetRemoteIdentity(name, identity.DeviceID, identity.DevicePassword)
				if err != nil {
					// The identity is only known to this call, so the remote
					// device has to be removed now.
					deregErr := m.remote.Deregister(context.Background(),
						cozyURL, identity.DeviceID, password)
					if deregErr != nil {
						log.WithError(deregErr).Warn("Failed to remove the device " +
							"from the Cozy after failing to save its identity")
					}
					return errors.WithContext(err, "save remote identity")
				}

				device.DeviceID = identity.DeviceID
				device.DevicePassword = identity.DevicePassword
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return newTeardownError(name, m.release(ctx, name, password))
			},
		},
		{
			Name: "initial pull",
			Run:  replicate(replication.Options{ToLocal: true, Continuous: false, Deleted: false}),
		},
		{
			Name: "write device document",
			Run: func(ctx context.Context) error {
				return m.storage.WriteDeviceMarker(ctx, name, cozyURL, path,
					device.DevicePassword, device.DeviceID)
			},
		},
		{
			Name: "initial push",
			Run:  replicate(replication.Options{ToLocal: false, Continuous: false, Deleted: true}),
		},
		{
			Name: "start continuous pull",
			Run:  replicate(replication.Options{ToLocal: true, Continuous: true, Deleted: true}),
		},
		{
			Name: "start continuous push",
			Run:  replicate(replication.Options{ToLocal: false, Continuous: true, Deleted: true}),
		},
	}

	log.Info("Provisioning device")
	if err := saga.Run(ctx, log, steps); err != nil {
		return saga.Handled(err)
	}
	log.Info("Device provisioned")
	return nil
}

func (m Manager) checkNameAvailable(name string) error {
	_, err := m.registry.Get(name)
	switch {
	case err == nil:
		return errors.LocalNameCollision{Name: name}
	case isMissing(err):
		return nil
	default:
		return errors.WithContext(err, "check registry")
	}
}
