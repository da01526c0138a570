package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// OwnerLogin is the basic auth user used to authenticate as the owner of a
// Cozy. The password is the Cozy's password.
const OwnerLogin = "owner"

const requestTimeout = 60 * time.Second

// Identity is the identity issued by a Cozy to a registered device.
type Identity struct {
	DeviceID       string
	DevicePassword string
}

// Client talks to the device API of remote Cozies.
type Client struct {
	httpClient *http.Client
}

// New creates a new client. If insecure is true, TLS certificates aren't
// verified.
func New(insecure bool) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return NewWithHTTPClient(&http.Client{
		Transport: transport,
		Timeout:   requestTimeout,
	})
}

// NewWithHTTPClient creates a client that sends its requests through
// httpClient.
func NewWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// NormalizeURL strips the trailing slashes from a Cozy URL so that API
// paths can be appended to it.
func NormalizeURL(cozyURL string) string {
	return strings.TrimRight(cozyURL, "/")
}

// Register creates a device called name on the Cozy at cozyURL. The device
// syncs the local folder at path. The identity returned by the Cozy is the
// only way to authenticate as the device afterwards, so it must be stored by
// the caller.
func (c *Client) Register(ctx context.Context, name, cozyURL, path, password string) (Identity, error) {
	cozyURL = NormalizeURL(cozyURL)
	form := url.Values{"login": {name}, "folder": {path}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cozyURL+"/device/", strings.NewReader(form.Encode()))
	if err != nil {
		return Identity{}, errors.WithContext(err, "create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(OwnerLogin, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Identity{}, ctx.Err()
		}
		return Identity{}, errors.UnreachableRemote{URL: cozyURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway:
		return Identity{}, errors.UnreachableRemote{URL: cozyURL, Reason: resp.Status}
	case http.StatusUnauthorized:
		return Identity{}, errors.WrongPassword{}
	case http.StatusBadRequest:
		return Identity{}, errors.RemoteNameCollision{Name: name}
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return Identity{}, errors.WithContext(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Identity{}, errors.RegistrationFailed{
			Name:   name,
			Reason: fmt.Sprintf("server responded with %s", resp.Status),
		}
	}

	identity, err := parseIdentity(name, body)
	if err != nil {
		return Identity{}, err
	}

	log.WithField("device", name).Info("Registered device on the remote Cozy")
	return identity, nil
}

// Deregister deletes the device with the given id from the Cozy at
// cozyURL. The Cozy is in charge of deciding what happens for devices that
// were already removed: a refusal is returned as DeregistrationFailed.
func (c *Client) Deregister(ctx context.Context, cozyURL, deviceID, password string) error {
	cozyURL = NormalizeURL(cozyURL)
	endpoint := fmt.Sprintf("%s/device/%s/", cozyURL, url.PathEscape(deviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req.SetBasicAuth(OwnerLogin, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.UnreachableRemote{URL: cozyURL, Reason: err.Error()}
	}
	defer resp.Body.Close()

	// Drain the body so the connection can be reused.
	io.Copy(ioutil.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusBadGateway:
		return errors.UnreachableRemote{URL: cozyURL, Reason: resp.Status}
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.WrongPassword{}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.DeregistrationFailed{DeviceID: deviceID, Status: resp.StatusCode}
	}

	log.WithField("id", deviceID).Info("Removed device from the remote Cozy")
	return nil
}

// parseIdentity extracts the device identity from a registration response.
// Cozies have returned the id both as a string and as a number.
func parseIdentity(name string, body []byte) (Identity, error) {
	var parsed struct {
		ID       interface{} `json:"id"`
		Password interface{} `json:"password"`
		Error    interface{} `json:"error"`
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		return Identity{}, errors.RegistrationFailed{
			Name:   name,
			Reason: fmt.Sprintf("malformed response: %s", err),
		}
	}

	if parsed.Error != nil {
		return Identity{}, errors.RegistrationFailed{
			Name:   name,
			Reason: fmt.Sprint(parsed.Error),
		}
	}

	if parsed.ID == nil || parsed.Password == nil {
		return Identity{}, errors.RegistrationFailed{
			Name:   name,
			Reason: "response is missing the device id or password",
		}
	}

	identity := Identity{
		DeviceID:       fmt.Sprint(parsed.ID),
		DevicePassword: fmt.Sprint(parsed.Password),
	}
	if identity.DeviceID == "" || identity.DevicePassword == "" {
		return Identity{}, errors.RegistrationFailed{
			Name:   name,
			Reason: "response has an empty device id or password",
		}
	}
	return identity, nil
}
