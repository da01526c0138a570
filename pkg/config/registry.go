package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/lock"
)

const (
	// RegistryFile is the name of the device registry in the cozy-fuse
	// directory.
	RegistryFile = "config.yaml"

	// DevicesDir holds the working directories of devices. It keeps them
	// apart from the registry and settings files.
	DevicesDir = "devices"

	registryLockFile = RegistryFile + ".lock"
)

// Device is the locally stored configuration of a device.
type Device struct {
	// Name is the key of the device in the registry, and isn't stored in the
	// record itself.
	Name string `json:"-"`

	URL        string `json:"url"`
	Path       string `json:"path"`
	DBLogin    string `json:"dblogin"`
	DBPassword string `json:"dbpassword"`

	// Issued by the remote Cozy. Both are empty until registration
	// succeeds.
	DeviceID       string `json:"deviceid,omitempty"`
	DevicePassword string `json:"devicepassword,omitempty"`
}

// IsRegistered returns whether the remote Cozy has issued an identity for
// the device.
func (d Device) IsRegistered() bool {
	return d.DeviceID != "" && d.DevicePassword != ""
}

func (d Device) validate() error {
	if (d.DeviceID == "") != (d.DevicePassword == "") {
		return errors.New("device %q has an incomplete remote identity", d.Name)
	}
	return nil
}

// Registry stores the configured devices in a single YAML document. Every
// mutation rewrites the whole document while holding an exclusive lock, so
// concurrent invocations on the same machine don't lose each other's
// writes.
type Registry struct {
	dir string

	// lock is mocked in unit tests.
	lock func() (unlock func(), err error)
}

// NewRegistry creates a registry stored in dir.
func NewRegistry(dir string) *Registry {
	r := &Registry{dir: dir}
	r.lock = r.flock
	return r
}

// Dir returns the directory containing the registry.
func (r *Registry) Dir() string {
	return r.dir
}

// Path returns the path to the registry document.
func (r *Registry) Path() string {
	return filepath.Join(r.dir, RegistryFile)
}

// WorkDir returns the working directory of the given device. It's used by
// the device's daemons.
func (r *Registry) WorkDir(name string) string {
	return filepath.Join(r.dir, DevicesDir, name)
}

// Load returns all the devices in the registry, keyed by name.
func (r *Registry) Load() (map[string]Device, error) {
	return r.read()
}

// Get returns the device with the given name.
func (r *Registry) Get(name string) (Device, error) {
	devices, err := r.read()
	if err != nil {
		return Device{}, err
	}

	device, ok := devices[name]
	if !ok {
		return Device{}, errors.DeviceNotFound{Name: name}
	}
	return device, nil
}

// Credentials returns the local database credentials of the device.
func (r *Registry) Credentials(name string) (login, password string, err error) {
	device, err := r.Get(name)
	if err != nil {
		return "", "", err
	}
	return device.DBLogin, device.DBPassword, nil
}

// RemoteIdentity returns the identity the remote Cozy issued to the device.
// Both values are empty if the device hasn't been registered yet.
func (r *Registry) RemoteIdentity(name string) (deviceID, devicePassword string, err error) {
	device, err := r.Get(name)
	if err != nil {
		return "", "", err
	}
	return device.DeviceID, device.DevicePassword, nil
}

// Add stores a new device. The registry is created if it doesn't exist.
func (r *Registry) Add(device Device) error {
	if err := validateName(device.Name); err != nil {
		return err
	}
	if device.URL == "" {
		return errors.MissingFieldError{Field: "url"}
	}
	if device.Path == "" {
		return errors.MissingFieldError{Field: "path"}
	}

	if err := fs.MkdirAll(r.dir, 0700); err != nil {
		return errors.WithContext(err, "create config directory")
	}

	return r.update(true, func(devices map[string]Device) error {
		if _, ok := devices[device.Name]; ok {
			return errors.LocalNameCollision{Name: device.Name}
		}
		devices[device.Name] = device
		return nil
	})
}

// SetRemoteIdentity stores the identity issued by the remote Cozy.
func (r *Registry) SetRemoteIdentity(name, deviceID, devicePassword string) error {
	if deviceID == "" {
		return errors.MissingFieldError{Field: "deviceid"}
	}
	if devicePassword == "" {
		return errors.MissingFieldError{Field: "devicepassword"}
	}

	return r.update(false, func(devices map[string]Device) error {
		device, ok := devices[name]
		if !ok {
			return errors.DeviceNotFound{Name: name}
		}
		device.DeviceID = deviceID
		device.DevicePassword = devicePassword
		devices[name] = device
		return nil
	})
}

// Remove deletes the device and its working directory. Removing a device
// that doesn't exist isn't an error.
func (r *Registry) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	err := r.update(false, func(devices map[string]Device) error {
		delete(devices, name)
		return nil
	})
	if err != nil {
		if _, ok := err.(errors.NoRegistryFound); !ok {
			return err
		}
	}

	workDir := r.WorkDir(name)
	isDir, err := afero.IsDir(fs, workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithContext(err, "stat working directory")
	}
	if !isDir {
		return errors.New("%s is not a working directory", workDir)
	}

	if err := fs.RemoveAll(workDir); err != nil {
		return errors.WithContext(err, "remove working directory")
	}
	return nil
}

// Clear deletes the registry document.
func (r *Registry) Clear() error {
	unlock, err := r.lock()
	if err != nil {
		return errors.WithContext(err, "lock registry")
	}
	defer unlock()

	if err := fs.Remove(r.Path()); err != nil && !os.IsNotExist(err) {
		return errors.WithContext(err, "remove registry")
	}
	return nil
}

// update applies fn to the stored devices and writes the result back. If
// create is false and the registry doesn't exist, it fails with
// NoRegistryFound.
func (r *Registry) update(create bool, fn func(map[string]Device) error) error {
	unlock, err := r.lock()
	if err != nil {
		return errors.WithContext(err, "lock registry")
	}
	defer unlock()

	devices, err := r.read()
	if err != nil {
		_, missing := err.(errors.NoRegistryFound)
		if !missing || !create {
			return err
		}
		devices = map[string]Device{}
	}

	if err := fn(devices); err != nil {
		return err
	}
	return r.write(devices)
}

func (r *Registry) read() (map[string]Device, error) {
	path := r.Path()
	contents, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NoRegistryFound{Path: path}
		}
		return nil, errors.WithContext(err, "read registry")
	}

	devices := map[string]Device{}
	if err := yaml.Unmarshal(contents, &devices); err != nil {
		return nil, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	// An empty document parses as nil.
	if devices == nil {
		devices = map[string]Device{}
	}
	for name, device := range devices {
		device.Name = name
		devices[name] = device
	}
	return devices, nil
}

func (r *Registry) write(devices map[string]Device) error {
	for name, device := range devices {
		device.Name = name
		if err := device.validate(); err != nil {
			return err
		}
	}

	yamlBytes, err := yaml.Marshal(devices)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	// Write to a temporary file and rename it into place so that readers
	// never observe a partially written registry.
	tmpPath := r.Path() + ".tmp"
	if err := afero.WriteFile(fs, tmpPath, yamlBytes, 0600); err != nil {
		return errors.WithContext(err, "write")
	}
	if err := fs.Rename(tmpPath, r.Path()); err != nil {
		return errors.WithContext(err, "rename")
	}
	return nil
}

// validateName rejects names that can't be used as a working directory.
func validateName(name string) error {
	switch {
	case name == "":
		return errors.MissingFieldError{Field: "name"}
	case name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator):
		return errors.NewFriendlyError("%q is not a valid device name", name)
	}
	return nil
}

func (r *Registry) flock() (func(), error) {
	if err := fs.MkdirAll(r.dir, 0700); err != nil {
		return nil, errors.WithContext(err, "create config directory")
	}

	lease, err := lock.Acquire(filepath.Join(r.dir, registryLockFile))
	if err != nil {
		return nil, err
	}
	return func() { lease.Release() }, nil
}
