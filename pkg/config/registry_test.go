package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

const testDir = "/home/u/.cozyfuse"

func newTestRegistry() *Registry {
	fs = afero.NewMemMapFs()
	r := NewRegistry(testDir)
	r.lock = func() (func(), error) { return func() {}, nil }
	return r
}

func TestLoadMissingRegistry(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Load()
	assert.Equal(t, errors.NoRegistryFound{Path: testDir + "/config.yaml"}, err)

	_, err = r.Get("laptop")
	assert.Equal(t, errors.NoRegistryFound{Path: testDir + "/config.yaml"}, err)
}

func TestLoadEmptyRegistry(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, afero.WriteFile(fs, r.Path(), nil, 0600))

	devices, err := r.Load()
	assert.NoError(t, err)
	assert.Equal(t, map[string]Device{}, devices)
}

func TestParseExistingRegistry(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, afero.WriteFile(fs, r.Path(), []byte(`
laptop:
  url: https://x.example/
  path: /home/u/sync
  dblogin: a
  dbpassword: b
  deviceid: d1
  devicepassword: p1
`), 0600))
	require.NoError(t, fs.MkdirAll(r.WorkDir("laptop"), 0700))

	id, password, err := r.RemoteIdentity("laptop")
	assert.NoError(t, err)
	assert.Equal(t, "d1", id)
	assert.Equal(t, "p1", password)

	device, err := r.Get("laptop")
	assert.NoError(t, err)
	assert.Equal(t, Device{
		Name:           "laptop",
		URL:            "https://x.example/",
		Path:           "/home/u/sync",
		DBLogin:        "a",
		DBPassword:     "b",
		DeviceID:       "d1",
		DevicePassword: "p1",
	}, device)

	assert.NoError(t, r.Remove("laptop"))

	devices, err := r.Load()
	assert.NoError(t, err)
	assert.Equal(t, map[string]Device{}, devices)

	exists, err := afero.DirExists(fs, r.WorkDir("laptop"))
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestAddDevice(t *testing.T) {
	r := newTestRegistry()
	laptop := Device{
		Name:       "laptop",
		URL:        "https://x.example",
		Path:       "/home/u/sync",
		DBLogin:    "laptop",
		DBPassword: "secret",
	}

	// The registry is created on the first write.
	require.NoError(t, r.Add(laptop))

	id, password, err := r.RemoteIdentity("laptop")
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, password)

	login, dbPassword, err := r.Credentials("laptop")
	assert.NoError(t, err)
	assert.Equal(t, "laptop", login)
	assert.Equal(t, "secret", dbPassword)

	assert.Equal(t, errors.LocalNameCollision{Name: "laptop"}, r.Add(laptop))

	desktop := laptop
	desktop.Name = "desktop"
	require.NoError(t, r.Add(desktop))

	devices, err := r.Load()
	assert.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Equal(t, laptop, devices["laptop"])
	assert.Equal(t, desktop, devices["desktop"])
}

func TestAddValidation(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name   string
		device Device
		exp    error
	}{
		{
			name:   "MissingName",
			device: Device{URL: "u", Path: "p"},
			exp:    errors.MissingFieldError{Field: "name"},
		},
		{
			name:   "MissingURL",
			device: Device{Name: "laptop", Path: "p"},
			exp:    errors.MissingFieldError{Field: "url"},
		},
		{
			name:   "MissingPath",
			device: Device{Name: "laptop", URL: "u"},
			exp:    errors.MissingFieldError{Field: "path"},
		},
		{
			name:   "PathSeparator",
			device: Device{Name: "../laptop", URL: "u", Path: "p"},
			exp:    errors.NewFriendlyError("%q is not a valid device name", "../laptop"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, r.Add(test.device))
		})
	}
}

func TestSetRemoteIdentity(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, errors.NoRegistryFound{Path: r.Path()},
		r.SetRemoteIdentity("laptop", "d1", "p1"))

	require.NoError(t, r.Add(Device{Name: "laptop", URL: "u", Path: "p"}))
	assert.Equal(t, errors.DeviceNotFound{Name: "desktop"},
		r.SetRemoteIdentity("desktop", "d1", "p1"))

	// Half an identity is never written.
	assert.Equal(t, errors.MissingFieldError{Field: "devicepassword"},
		r.SetRemoteIdentity("laptop", "d1", ""))
	assert.Equal(t, errors.MissingFieldError{Field: "deviceid"},
		r.SetRemoteIdentity("laptop", "", "p1"))

	require.NoError(t, r.SetRemoteIdentity("laptop", "d1", "p1"))
	device, err := r.Get("laptop")
	assert.NoError(t, err)
	assert.True(t, device.IsRegistered())
	assert.Equal(t, "d1", device.DeviceID)
	assert.Equal(t, "p1", device.DevicePassword)
}

func TestWriteRejectsIncompleteIdentity(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, afero.WriteFile(fs, r.Path(), []byte(`
broken:
  url: u
  path: p
  deviceid: d1
`), 0600))

	err := r.Add(Device{Name: "laptop", URL: "u", Path: "p"})
	assert.EqualError(t, err, `device "broken" has an incomplete remote identity`)

	devices, err := r.Load()
	assert.NoError(t, err)
	assert.NotContains(t, devices, "laptop")
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := newTestRegistry()

	// Removing from a registry that doesn't exist yet is a no-op.
	assert.NoError(t, r.Remove("laptop"))

	require.NoError(t, r.Add(Device{Name: "laptop", URL: "u", Path: "p"}))
	assert.NoError(t, r.Remove("laptop"))
	assert.NoError(t, r.Remove("laptop"))

	_, err := r.Get("laptop")
	assert.Equal(t, errors.DeviceNotFound{Name: "laptop"}, err)
}

func TestRemoveReservedNames(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Add(Device{Name: "laptop", URL: "u", Path: "p"}))
	require.NoError(t, afero.WriteFile(fs, testDir+"/"+SettingsFile, []byte("{}"), 0600))

	// Names that collide with the files of the cozy-fuse directory only
	// refer to devices.
	for _, name := range []string{RegistryFile, SettingsFile, registryLockFile, DevicesDir} {
		assert.NoError(t, r.Remove(name), name)
	}

	devices, err := r.Load()
	require.NoError(t, err)
	assert.Contains(t, devices, "laptop")

	exists, err := afero.Exists(fs, testDir+"/"+SettingsFile)
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestWorkDirLayout(t *testing.T) {
	r := newTestRegistry()
	assert.Equal(t, testDir+"/devices/laptop", r.WorkDir("laptop"))
	assert.Equal(t, testDir+"/devices/config.yaml", r.WorkDir("config.yaml"))
}

func TestRemoveRefusesFiles(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, fs.MkdirAll(testDir+"/devices", 0700))
	require.NoError(t, afero.WriteFile(fs, r.WorkDir("laptop"), []byte("x"), 0600))

	assert.EqualError(t, r.Remove("laptop"),
		testDir+"/devices/laptop is not a working directory")

	exists, err := afero.Exists(fs, r.WorkDir("laptop"))
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestClear(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Add(Device{Name: "laptop", URL: "u", Path: "p"}))

	require.NoError(t, r.Clear())
	_, err := r.Load()
	assert.Equal(t, errors.NoRegistryFound{Path: r.Path()}, err)

	// Clearing twice is fine.
	assert.NoError(t, r.Clear())
}

func TestMutationsHoldLock(t *testing.T) {
	r := newTestRegistry()

	var locked, unlocked int
	r.lock = func() (func(), error) {
		locked++
		return func() { unlocked++ }, nil
	}

	require.NoError(t, r.Add(Device{Name: "laptop", URL: "u", Path: "p"}))
	require.NoError(t, r.SetRemoteIdentity("laptop", "d1", "p1"))
	require.NoError(t, r.Remove("laptop"))
	require.NoError(t, r.Clear())
	assert.Equal(t, 4, locked)
	assert.Equal(t, 4, unlocked)

	r.lock = func() (func(), error) {
		return nil, assert.AnError
	}
	assert.Equal(t, errors.WithContext(assert.AnError, "lock registry"),
		r.Add(Device{Name: "laptop", URL: "u", Path: "p"}))
}
