package reset

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/cozyfuse/pkg/device"
	"github.com/sidkik/cozyfuse/pkg/errors"
)

type resetterFunc func(ctx context.Context, password string) (device.ResetReport, error)

func (f resetterFunc) ResetAll(ctx context.Context, password string) (device.ResetReport, error) {
	return f(ctx, password)
}

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		yes       bool
		confirm   bool
		report    device.ResetReport
		resetErr  error
		expReset  bool
		expErr    error
		expOutput []string
	}{
		{
			name:     "AllRemoved",
			yes:      true,
			expReset: true,
			report: device.ResetReport{Results: []device.DeviceResult{
				{Device: "desktop"},
				{Device: "laptop"},
			}},
			expOutput: []string{"desktop\n", "laptop\n"},
		},
		{
			name:     "PartialFailure",
			confirm:  true,
			expReset: true,
			report: device.ResetReport{Results: []device.DeviceResult{
				{Device: "desktop", Err: errors.WrongPassword{}},
				{Device: "laptop"},
			}},
			expErr: errors.NewFriendlyError("%d of %d devices couldn't be removed.", 1, 2),
			expOutput: []string{
				"desktop: The URL and the Cozy's password don't match.\n",
				"laptop\n",
			},
		},
		{
			name:      "NotConfirmed",
			confirm:   false,
			expOutput: []string{"Aborted.\n"},
		},
		{
			name:     "NoRegistry",
			yes:      true,
			expReset: true,
			resetErr: errors.NoRegistryFound{Path: "config.yaml"},
			expErr:   errors.NoRegistryFound{Path: "config.yaml"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := bytes.NewBuffer(nil)
			stdout = out
			getPassword = func(string) (string, error) { return "secret", nil }
			promptYesOrNo = func(string) (bool, error) { return test.confirm, nil }

			var reset bool
			newResetter = func() (resetter, error) {
				return resetterFunc(func(_ context.Context, password string) (device.ResetReport, error) {
					reset = true
					assert.Equal(t, "secret", password)
					return test.report, test.resetErr
				}), nil
			}

			err := run("", test.yes)
			assert.Equal(t, test.expErr, err)
			assert.Equal(t, test.expReset, reset)
			for _, exp := range test.expOutput {
				assert.Contains(t, out.String(), exp)
			}
		})
	}
}
