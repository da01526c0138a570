package errors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	assert.Nil(t, WithContext(nil, "ignored"))

	err := WithContext(WithContext(FileNotFound{Path: "/tmp/x"}, "read"), "parse")
	assert.Equal(t, `parse: read: "/tmp/x" does not exist`, err.Error())
	assert.Equal(t, FileNotFound{Path: "/tmp/x"}, RootCause(err))

	var notFound FileNotFound
	assert.True(t, As(err, &notFound))
	assert.Equal(t, "/tmp/x", notFound.Path)
}

func TestGetPrintableMessage(t *testing.T) {
	friendly := NewFriendlyError("Please run %s.", "configure")
	assert.Equal(t, "Please run configure.", GetPrintableMessage(WithContext(friendly, "setup")))

	plain := WithContext(New("boom %d", 1), "setup")
	assert.Equal(t, "setup: boom 1", GetPrintableMessage(plain))

	typed := WithContext(WrongPassword{}, "register device")
	assert.Equal(t, WrongPassword{}.FriendlyMessage(), GetPrintableMessage(typed))
}

type testCauses []error

func (causes testCauses) Error() string {
	return "several failures"
}

func (causes testCauses) Causes() []error {
	return causes
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exp  Kind
	}{
		{"Nil", nil, KindFatal},
		{"Unclassified", New("unexpected"), KindFatal},
		{"Canceled", WithContext(context.Canceled, "replicate"), KindFatal},
		{"LocalCollision", LocalNameCollision{Name: "laptop"}, KindLocalNameCollision},
		{"RemoteCollision", WithContext(RemoteNameCollision{Name: "laptop"}, "register"),
			KindRemoteNameCollision},
		{"WrongPassword", WithContext(WrongPassword{}, "deregister"), KindWrongPassword},
		{"Unreachable", UnreachableRemote{URL: "https://x.example"}, KindUnreachableRemote},
		{"NoRegistry", NoRegistryFound{Path: "config.yaml"}, KindNoRegistryFound},
		{"DeviceNotFound", DeviceNotFound{Name: "laptop"}, KindDeviceNotFound},
		{"DaemonRunning", DaemonAlreadyRunning{Device: "laptop", Kind: "sync"},
			KindDaemonAlreadyRunning},
		{"RegistrationFailed", RegistrationFailed{Name: "laptop", Reason: "500"}, KindFatal},
		{"LaterCause", WithContext(testCauses{New("unmount"),
			WithContext(WrongPassword{}, "deregister")}, "teardown"), KindWrongPassword},
		{"FirstClassifiedCause", testCauses{UnreachableRemote{}, WrongPassword{}},
			KindUnreachableRemote},
		{"UnclassifiedCauses", testCauses{New("unmount"), context.Canceled}, KindFatal},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, KindOf(test.err))
		})
	}
}
