package errors

import (
	"context"
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// LocalNameCollision occurs when a device with the same name is already in
// the local registry.
type LocalNameCollision struct {
	Name string
}

func (err LocalNameCollision) Error() string {
	return fmt.Sprintf("device %q is already configured locally", err.Name)
}

func (err LocalNameCollision) FriendlyMessage() string {
	return fmt.Sprintf("A configuration already exists locally for the device %q.\n"+
		"Pick another name, or remove it with `cozy-fuse remove -n %s`.", err.Name, err.Name)
}

// RemoteNameCollision occurs when the remote Cozy already has a device with
// the same name.
type RemoteNameCollision struct {
	Name string
}

func (err RemoteNameCollision) Error() string {
	return fmt.Sprintf("remote already has a device named %q", err.Name)
}

func (err RemoteNameCollision) FriendlyMessage() string {
	return fmt.Sprintf("Your Cozy already has a device named %q. "+
		"Please pick another name.", err.Name)
}

// WrongPassword occurs when the remote Cozy rejects the owner password.
type WrongPassword struct{}

func (err WrongPassword) Error() string {
	return "the password doesn't match"
}

func (err WrongPassword) FriendlyMessage() string {
	return "The URL and the Cozy's password don't match."
}

// UnreachableRemote occurs when a request couldn't reach the remote Cozy.
type UnreachableRemote struct {
	URL    string
	Reason string
}

func (err UnreachableRemote) Error() string {
	if err.Reason == "" {
		return fmt.Sprintf("%s is unreachable", err.URL)
	}
	return fmt.Sprintf("%s is unreachable (%s)", err.URL, err.Reason)
}

func (err UnreachableRemote) FriendlyMessage() string {
	return fmt.Sprintf("Your Cozy at %s cannot be reached. Are you sure it's up?", err.URL)
}

// RegistrationFailed is the generic error for a device registration that
// the remote refused for an unclassified reason.
type RegistrationFailed struct {
	Name   string
	Reason string
}

func (err RegistrationFailed) Error() string {
	return fmt.Sprintf("registering device %q failed: %s", err.Name, err.Reason)
}

// DeregistrationFailed occurs when the remote refuses to delete a device
// for a reason other than authentication or connectivity. This includes
// deleting a device that no longer exists remotely.
type DeregistrationFailed struct {
	DeviceID string
	Status   int
}

func (err DeregistrationFailed) Error() string {
	return fmt.Sprintf("removing remote device %q failed with status %d",
		err.DeviceID, err.Status)
}

// NoRegistryFound occurs when the device registry file doesn't exist.
type NoRegistryFound struct {
	Path string
}

func (err NoRegistryFound) Error() string {
	return fmt.Sprintf("no device registry at %q", err.Path)
}

func (err NoRegistryFound) FriendlyMessage() string {
	return fmt.Sprintf("No configuration found at %s. "+
		"Run `cozy-fuse configure` to set up a device.", err.Path)
}

// DeviceNotFound occurs when the requested device isn't in the registry.
type DeviceNotFound struct {
	Name string
}

func (err DeviceNotFound) Error() string {
	return fmt.Sprintf("no device is registered for %q", err.Name)
}

func (err DeviceNotFound) FriendlyMessage() string {
	return fmt.Sprintf("No device is registered for %q. "+
		"Run `cozy-fuse list` to see the configured devices.", err.Name)
}

// DaemonAlreadyRunning occurs when another process holds the daemon lease
// for the device.
type DaemonAlreadyRunning struct {
	Device string
	Kind   string
}

func (err DaemonAlreadyRunning) Error() string {
	return fmt.Sprintf("%s daemon for %s is already running", err.Kind, err.Device)
}

func (err DaemonAlreadyRunning) FriendlyMessage() string {
	return fmt.Sprintf("The %s daemon for %q is already running.", err.Kind, err.Device)
}

// Kind classifies errors into the categories the CLI reports on.
type Kind int

const (
	// KindFatal covers every error that isn't otherwise classified,
	// including interruptions.
	KindFatal Kind = iota
	KindLocalNameCollision
	KindRemoteNameCollision
	KindWrongPassword
	KindUnreachableRemote
	KindNoRegistryFound
	KindDeviceNotFound
	KindDaemonAlreadyRunning
)

func (k Kind) String() string {
	switch k {
	case KindLocalNameCollision:
		return "local name collision"
	case KindRemoteNameCollision:
		return "remote name collision"
	case KindWrongPassword:
		return "wrong password"
	case KindUnreachableRemote:
		return "unreachable remote"
	case KindNoRegistryFound:
		return "no registry found"
	case KindDeviceNotFound:
		return "device not found"
	case KindDaemonAlreadyRunning:
		return "daemon already running"
	default:
		return "fatal"
	}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil || Is(err, context.Canceled) || Is(err, context.DeadlineExceeded) {
		return KindFatal
	}

	if kind := kindOf(err); kind != KindFatal {
		return kind
	}

	// An error with several causes has the kind of its first classified
	// cause.
	var multi multiCause
	if As(err, &multi) {
		for _, cause := range multi.Causes() {
			if kind := KindOf(cause); kind != KindFatal {
				return kind
			}
		}
	}
	return KindFatal
}

// multiCause is implemented by errors that aggregate several failures.
type multiCause interface {
	Causes() []error
}

func kindOf(err error) Kind {
	var (
		localCollision  LocalNameCollision
		remoteCollision RemoteNameCollision
		wrongPassword   WrongPassword
		unreachable     UnreachableRemote
		noRegistry      NoRegistryFound
		notFound        DeviceNotFound
		running         DaemonAlreadyRunning
	)
	switch {
	case As(err, &localCollision):
		return KindLocalNameCollision
	case As(err, &remoteCollision):
		return KindRemoteNameCollision
	case As(err, &wrongPassword):
		return KindWrongPassword
	case As(err, &unreachable):
		return KindUnreachableRemote
	case As(err, &noRegistry):
		return KindNoRegistryFound
	case As(err, &notFound):
		return KindDeviceNotFound
	case As(err, &running):
		return KindDaemonAlreadyRunning
	default:
		return KindFatal
	}
}
