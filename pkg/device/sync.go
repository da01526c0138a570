package device

import (
	"context"

	"github.com/sidkik/cozyfuse/pkg/daemon"
	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/replication"
)

// StartSync keeps both continuous replications of the device running until
// ctx is cancelled. Only one sync may run for a device at a time, otherwise
// DaemonAlreadyRunning is returned. Stopping the sync doesn't affect the
// device's configuration.
func (m Manager) StartSync(ctx context.Context, name string) error {
	device, err := m.registry.Get(name)
	if err != nil {
		return err
	}
	if !device.IsRegistered() {
		return errors.NewFriendlyError("Device %q isn't registered on its Cozy. "+
			"Remove it and configure it again.", name)
	}

	supervisor := replication.Supervisor{
		Replicator: m.replicator,
		Tasks:      m.storage,
		Params:     m.replicationParams(device),
		LocalURL:   m.storage.DatabaseURL(name, device.DBLogin, device.DBPassword),
		Interval:   m.checkInterval,
		Clock:      m.clock,
		Log:        m.log.WithField("device", name),
	}
	return daemon.Run(ctx, m.guard, name, daemon.KindSync, supervisor.Run)
}

// CancelResult is the outcome of cancelling one replication.
type CancelResult struct {
	ReplicationID string
	Err           error
}

// KillRunningReplications cancels every replication running in the local
// database server. It's meant to clean up replications that are stuck.
// Failing to cancel a replication doesn't prevent the others from being
// cancelled: the per-replication outcomes are returned.
func (m Manager) KillRunningReplications(ctx context.Context) ([]CancelResult, error) {
	tasks, err := m.storage.ActiveTasks(ctx)
	if err != nil {
		return nil, err
	}

	var results []CancelResult
	for _, task := range tasks {
		if task.Type != "replication" || task.ReplicationID == "" {
			continue
		}

		err := m.storage.CancelReplication(ctx, task.ReplicationID)
		if err != nil {
			m.log.WithError(err).WithField("replication", task.ReplicationID).Warn(
				"Failed to cancel replication")
		}
		results = append(results, CancelResult{ReplicationID: task.ReplicationID, Err: err})
	}
	return results, nil
}
