package mount

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

type recordingMounter struct {
	calls []string
}

func (m *recordingMounter) Mount(_ context.Context, name string) error {
	m.calls = append(m.calls, "mount "+name)
	return nil
}

func (m *recordingMounter) Unmount(_ context.Context, name string) error {
	m.calls = append(m.calls, "unmount "+name)
	if name == "desktop" {
		return errors.DeviceNotFound{Name: name}
	}
	return nil
}

func TestCommands(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	m := &recordingMounter{}
	newMounter = func() (mounter, error) { return m, nil }

	mountCmd := New()
	mountCmd.SetArgs([]string{"-n", "laptop"})
	assert.NoError(t, mountCmd.Execute())

	unmountCmd := NewUnmount()
	unmountCmd.SetArgs([]string{"-n", "laptop"})
	assert.NoError(t, unmountCmd.Execute())

	assert.Equal(t, []string{"mount laptop", "unmount laptop"}, m.calls)
	assert.Equal(t, "Mounted device \"laptop\".\n"+
		"Unmounted device \"laptop\".\n", out.String())
}

func TestRunErrors(t *testing.T) {
	m := &recordingMounter{}
	newMounter = func() (mounter, error) { return m, nil }
	unmount := func(ctx context.Context, m mounter, name string) error {
		return m.Unmount(ctx, name)
	}

	assert.Equal(t, errors.MissingFieldError{Field: "name"}, run("", unmount))
	assert.Equal(t, errors.DeviceNotFound{Name: "desktop"}, run("desktop", unmount))
	assert.Equal(t, []string{"unmount desktop"}, m.calls)
}
