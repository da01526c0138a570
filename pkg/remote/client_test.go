package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		expIdentity Identity
		expError    error
	}{
		{
			name:        "Created",
			status:      http.StatusCreated,
			body:        `{"id": "d1", "password": "p1"}`,
			expIdentity: Identity{DeviceID: "d1", DevicePassword: "p1"},
		},
		{
			name:        "NumericID",
			status:      http.StatusOK,
			body:        `{"id": 12345678901234567890, "password": "p1"}`,
			expIdentity: Identity{DeviceID: "12345678901234567890", DevicePassword: "p1"},
		},
		{
			name:     "NameCollision",
			status:   http.StatusBadRequest,
			expError: errors.RemoteNameCollision{Name: "laptop"},
		},
		{
			name:     "WrongPassword",
			status:   http.StatusUnauthorized,
			expError: errors.WrongPassword{},
		},
		{
			name:   "BadGateway",
			status: http.StatusBadGateway,
			expError: errors.UnreachableRemote{
				Reason: "502 Bad Gateway",
			},
		},
		{
			name:   "ServerError",
			status: http.StatusInternalServerError,
			expError: errors.RegistrationFailed{
				Name:   "laptop",
				Reason: "server responded with 500 Internal Server Error",
			},
		},
		{
			name:   "ErrorPayload",
			status: http.StatusOK,
			body:   `{"error": "device name already taken"}`,
			expError: errors.RegistrationFailed{
				Name:   "laptop",
				Reason: "device name already taken",
			},
		},
		{
			name:   "MissingPassword",
			status: http.StatusOK,
			body:   `{"id": "d1"}`,
			expError: errors.RegistrationFailed{
				Name:   "laptop",
				Reason: "response is missing the device id or password",
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/device/", r.URL.Path)

				user, password, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, OwnerLogin, user)
				assert.Equal(t, "cozy-password", password)

				assert.NoError(t, r.ParseForm())
				assert.Equal(t, "laptop", r.PostForm.Get("login"))
				assert.Equal(t, "/home/u/sync", r.PostForm.Get("folder"))

				w.WriteHeader(test.status)
				w.Write([]byte(test.body))
			}))
			defer server.Close()

			// The trailing slash is stripped before building the endpoint.
			identity, err := NewWithHTTPClient(server.Client()).Register(context.Background(),
				"laptop", server.URL+"/", "/home/u/sync", "cozy-password")

			if unreachable, ok := test.expError.(errors.UnreachableRemote); ok {
				unreachable.URL = server.URL
				test.expError = unreachable
			}
			assert.Equal(t, test.expError, err)
			assert.Equal(t, test.expIdentity, identity)
		})
	}
}

func TestRegisterUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	_, err := NewWithHTTPClient(http.DefaultClient).Register(context.Background(),
		"laptop", serverURL, "/home/u/sync", "cozy-password")
	assert.Equal(t, errors.KindUnreachableRemote, errors.KindOf(err))
}

func TestRegisterCanceled(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWithHTTPClient(server.Client()).Register(ctx,
		"laptop", server.URL, "/home/u/sync", "cozy-password")
	assert.Equal(t, context.Canceled, err)
}

func TestDeregister(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expError error
	}{
		{
			name:   "Deleted",
			status: http.StatusOK,
		},
		{
			name:   "NoContent",
			status: http.StatusNoContent,
		},
		{
			name:     "WrongPassword",
			status:   http.StatusUnauthorized,
			expError: errors.WrongPassword{},
		},
		{
			name:     "AlreadyRemoved",
			status:   http.StatusNotFound,
			expError: errors.DeregistrationFailed{DeviceID: "d1", Status: http.StatusNotFound},
		},
		{
			name:     "BadGateway",
			status:   http.StatusBadGateway,
			expError: errors.UnreachableRemote{Reason: "502 Bad Gateway"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/device/d1/", r.URL.Path)

				user, password, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, OwnerLogin, user)
				assert.Equal(t, "cozy-password", password)
				w.WriteHeader(test.status)
			}))
			defer server.Close()

			err := NewWithHTTPClient(server.Client()).Deregister(context.Background(),
				server.URL, "d1", "cozy-password")

			if unreachable, ok := test.expError.(errors.UnreachableRemote); ok {
				unreachable.URL = server.URL
				test.expError = unreachable
			}
			assert.Equal(t, test.expError, err)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://x.example", NormalizeURL("https://x.example//"))
	assert.Equal(t, "https://x.example", NormalizeURL("https://x.example"))
}

func TestNew(t *testing.T) {
	client := New(true)
	require.NotNil(t, client.httpClient)
	transport, ok := client.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
}
