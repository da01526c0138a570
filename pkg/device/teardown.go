package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// TeardownError lists the failed steps of a teardown. The device is removed
// from the registry even when other steps fail, so TeardownError means that
// some external state may have been left behind.
type TeardownError struct {
	Device   string
	Failures []error
}

func newTeardownError(name string, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &TeardownError{Device: name, Failures: failures}
}

func (err *TeardownError) Error() string {
	var msgs []string
	for _, failure := range err.Failures {
		msgs = append(msgs, failure.Error())
	}
	return fmt.Sprintf("teardown of %s incomplete: %s", err.Device, strings.Join(msgs, "; "))
}

// Unwrap returns the first failure.
func (err *TeardownError) Unwrap() error {
	return err.Failures[0]
}

// Causes returns every failure. errors.KindOf uses it to classify the
// teardown by its first failure of a known kind.
func (err *TeardownError) Causes() []error {
	return err.Failures
}

func (err *TeardownError) FriendlyMessage() string {
	msg := fmt.Sprintf("Failed to completely remove %q:", err.Device)
	for _, failure := range err.Failures {
		msg += "\n  " + errors.GetPrintableMessage(failure)
	}
	return msg
}

// Teardown removes the device from this machine and from its Cozy:
//  1. The device's folder is unmounted.
//  2. The device is removed from its Cozy, if it was registered.
//  3. The local database and its user are destroyed.
//  4. The device is removed from the registry, along with its working
//     directory.
// A failed step doesn't prevent the following ones from running. Removing a
// device that isn't configured is a no-op.
func (m Manager) Teardown(ctx context.Context, name, password string) error {
	failures := m.release(ctx, name, password)
	if err := m.forget(name); err != nil {
		failures = append(failures, err)
	}

	if err := newTeardownError(name, failures); err != nil {
		return err
	}
	m.log.WithField("device", name).Info("Device removed")
	return nil
}

// release runs the steps of the teardown that undo external state, and
// returns the failed ones.
func (m Manager) release(ctx context.Context, name, password string) []error {
	log := m.log.WithField("device", name)

	device, err := m.registry.Get(name)
	if err != nil {
		if isMissing(err) {
			log.Debug("Device isn't configured. Nothing to release.")
			return nil
		}
		return []error{errors.WithContext(err, "get device")}
	}

	var failures []error
	fail := func(err error, step string) {
		log.WithError(err).WithField("step", step).Warn("Teardown step failed")
		failures = append(failures, errors.WithContext(err, step))
	}

	if err := m.mounter.Unmount(ctx, device.Path); err != nil {
		fail(err, "unmount")
	}

	if device.IsRegistered() {
		err := m.remote.Deregister(ctx, device.URL, device.DeviceID, password)
		if err != nil {
			fail(err, "deregister device")
		}
	} else {
		log.Debug("Device was never registered remotely. Skipping deregistration.")
	}

	if err := m.storage.DestroyDatabase(ctx, name); err != nil {
		fail(err, "destroy database")
	}
	if err := m.storage.DestroyUser(ctx, name); err != nil {
		fail(err, "destroy database user")
	}
	return failures
}

// forget removes the device from the registry. It's the last step of every
// teardown.
func (m Manager) forget(name string) error {
	if err := m.registry.Remove(name); err != nil {
		return errors.WithContext(err, "remove device from registry")
	}
	return nil
}

// DeviceResult is the outcome of the teardown of one device during a reset.
type DeviceResult struct {
	Device string
	Err    error
}

// ResetReport lists the outcome of the teardown of every device.
type ResetReport struct {
	Results []DeviceResult
}

// Failed returns the devices whose teardown failed.
func (report ResetReport) Failed() []DeviceResult {
	var failed []DeviceResult
	for _, result := range report.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// ResetAll tears down every configured device, and then deletes the
// registry. Devices are torn down one at a time, and a failed teardown
// doesn't stop the others. If there's no registry, NoRegistryFound is
// returned.
func (m Manager) ResetAll(ctx context.Context, password string) (ResetReport, error) {
	devices, err := m.registry.Load()
	if err != nil {
		return ResetReport{}, err
	}

	var report ResetReport
	for _, name := range sortedNames(devices) {
		m.log.WithField("device", name).Info("Removing device")
		report.Results = append(report.Results, DeviceResult{
			Device: name,
			Err:    m.Teardown(ctx, name, password),
		})
	}

	if err := m.registry.Clear(); err != nil {
		return report, errors.WithContext(err, "delete registry")
	}
	return report, nil
}
