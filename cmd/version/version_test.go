package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sidkik/cozyfuse/pkg/errors"
	"github.com/sidkik/cozyfuse/pkg/version"
)

func TestRun(t *testing.T) {
	out := bytes.NewBuffer(nil)
	stdout = out
	getCouchVersion = func() (string, error) { return "3.1.1", nil }

	assert.NoError(t, run())
	assert.Equal(t, "local version:   "+version.Version+"\n"+
		"CouchDB version: 3.1.1\n", out.String())
}

func TestRunCouchUnreachable(t *testing.T) {
	stdout = bytes.NewBuffer(nil)
	getCouchVersion = func() (string, error) { return "", errors.New("connection refused") }

	err := run()
	assert.EqualError(t, err, "get CouchDB version: connection refused")
}
