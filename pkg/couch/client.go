package couch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	goversion "github.com/hashicorp/go-version"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cozyfuse/pkg/errors"
)

// MinServerVersion is the oldest CouchDB release that supports the
// replication selectors and task listing used by cozy-fuse.
const MinServerVersion = "2.0.0"

// DeviceMarkerID is the id of the document that describes the device in its
// database.
const DeviceMarkerID = "cozy-fuse-device"

var validDatabaseName = regexp.MustCompile(`^[a-z][a-z0-9_$()+/-]*$`)

// Client talks to the local CouchDB as an administrator.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a client for the CouchDB at rawURL. The admin credentials may
// be empty if the server is in admin party mode.
func New(rawURL, admin, password string) (*Client, error) {
	return NewWithHTTPClient(rawURL, admin, password, &http.Client{})
}

// NewWithHTTPClient is like New, but sends requests through httpClient.
func NewWithHTTPClient(rawURL, admin, password string, httpClient *http.Client) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, errors.WithContext(err, "parse CouchDB URL")
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, errors.NewFriendlyError("%q is not a valid CouchDB URL", rawURL)
	}
	if admin != "" {
		baseURL.User = url.UserPassword(admin, password)
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// DatabaseURL returns the URL of the named database, authenticated with the
// given credentials.
func (c *Client) DatabaseURL(database, login, password string) string {
	dbURL := *c.baseURL
	dbURL.User = url.UserPassword(login, password)
	dbURL.Path = dbURL.Path + "/" + database
	return dbURL.String()
}

// StatusError is returned when CouchDB responds with an unexpected status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Reason string
}

func (err StatusError) Error() string {
	return fmt.Sprintf("%s %s: CouchDB responded with %d (%s)",
		err.Method, err.Path, err.Status, err.Reason)
}

// IsNotFound returns whether err is a 404 response from CouchDB.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict returns whether err is a 409 response from CouchDB.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, status int) bool {
	var statusErr StatusError
	return errors.As(err, &statusErr) && statusErr.Status == status
}

// ServerVersion returns the version reported by the CouchDB server.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var welcome struct {
		Version string `json:"version"`
	}
	if err := c.do(ctx, http.MethodGet, "/", nil, &welcome); err != nil {
		return "", err
	}
	return welcome.Version, nil
}

// CheckServerVersion fails if the CouchDB server is older than
// MinServerVersion.
func (c *Client) CheckServerVersion(ctx context.Context) error {
	rawVersion, err := c.ServerVersion(ctx)
	if err != nil {
		return errors.WithContext(err, "get server version")
	}

	serverVersion, err := goversion.NewVersion(rawVersion)
	if err != nil {
		return errors.WithContext(err, "parse server version")
	}

	if serverVersion.LessThan(goversion.Must(goversion.NewVersion(MinServerVersion))) {
		return errors.NewFriendlyError("CouchDB %s is too old. "+
			"cozy-fuse requires CouchDB %s or newer.", rawVersion, MinServerVersion)
	}
	return nil
}

// CreateDatabaseAndUser creates the database for a device along with a user
// that's the only member of the database. The generated credentials are
// returned. Calling it again for the same name resets the user's password.
func (c *Client) CreateDatabaseAndUser(ctx context.Context, name string) (login, password string, err error) {
	if !validDatabaseName.MatchString(name) {
		return "", "", errors.NewFriendlyError("%q can't be used as a database name. "+
			"Device names must start with a lowercase letter and only contain "+
			"lowercase letters, digits and any of _$()+/-", name)
	}

	// A database left behind by an aborted provisioning is taken over, and
	// its user gets new credentials.
	created := true
	if err := c.do(ctx, http.MethodPut, "/"+url.PathEscape(name), nil, nil); err != nil {
		if !hasStatus(err, http.StatusPreconditionFailed) {
			return "", "", errors.WithContext(err, "create database")
		}
		log.WithField("database", name).Debug("Reusing existing database")
		created = false
	}

	cleanup := func() {
		if created {
			c.cleanupDatabase(name)
		}
	}

	login, password = name, uuid.New().String()
	if err := c.putUser(ctx, login, password); err != nil {
		cleanup()
		return "", "", errors.WithContext(err, "create user")
	}

	security := map[string]interface{}{
		"admins":  map[string][]string{"names": {}, "roles": {}},
		"members": map[string][]string{"names": {login}, "roles": {}},
	}
	securityPath := "/" + url.PathEscape(name) + "/_security"
	if err := c.do(ctx, http.MethodPut, securityPath, security, nil); err != nil {
		cleanup()
		return "", "", errors.WithContext(err, "set database security")
	}

	log.WithField("database", name).Debug("Created database and user")
	return login, password, nil
}

func (c *Client) cleanupDatabase(name string) {
	if err := c.DestroyDatabase(context.Background(), name); err != nil {
		log.WithError(err).WithField("database", name).Warn(
			"Failed to clean up partially created database")
	}
}

func (c *Client) putUser(ctx context.Context, login, password string) error {
	user := map[string]interface{}{
		"_id":      userDocID(login),
		"name":     login,
		"password": password,
		"roles":    []string{},
		"type":     "user",
	}
	return c.putDocument(ctx, "_users", userDocID(login), user)
}

// DestroyDatabase deletes the named database. Deleting a database that
// doesn't exist isn't an error.
func (c *Client) DestroyDatabase(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(name), nil, nil)
	if err != nil && !IsNotFound(err) {
		return errors.WithContext(err, "delete database")
	}
	return nil
}

// DestroyUser deletes the user created for the named database. Deleting a
// user that doesn't exist isn't an error.
func (c *Client) DestroyUser(ctx context.Context, name string) error {
	id := userDocID(name)
	rev, err := c.getRevision(ctx, "_users", id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return errors.WithContext(err, "get user")
	}

	path := fmt.Sprintf("/_users/%s?rev=%s", url.PathEscape(id), url.QueryEscape(rev))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil && !IsNotFound(err) {
		return errors.WithContext(err, "delete user")
	}
	return nil
}

// DeviceMarker is the document that identifies the device within its
// database.
type DeviceMarker struct {
	DocType  string `json:"docType"`
	Login    string `json:"login"`
	URL      string `json:"url"`
	Folder   string `json:"folder"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// WriteDeviceMarker stores the device description in the device's
// database, replacing any previous one.
func (c *Client) WriteDeviceMarker(ctx context.Context, name, cozyURL, path, password, deviceID string) error {
	marker := DeviceMarker{
		DocType:  "Device",
		Login:    name,
		URL:      cozyURL,
		Folder:   path,
		Password: password,
		DeviceID: deviceID,
	}
	if err := c.putDocument(ctx, name, DeviceMarkerID, marker); err != nil {
		return errors.WithContext(err, "write device document")
	}
	return nil
}

// Task is an entry of CouchDB's active tasks.
type Task struct {
	Type          string `json:"type"`
	ReplicationID string `json:"replication_id"`
	DocID         string `json:"doc_id"`
	Source        string `json:"source"`
	Target        string `json:"target"`
	Continuous    bool   `json:"continuous"`
}

// ActiveTasks returns the tasks that CouchDB is currently running.
func (c *Client) ActiveTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/_active_tasks", nil, &tasks); err != nil {
		return nil, errors.WithContext(err, "list active tasks")
	}
	return tasks, nil
}

// ReplicationRequest describes a replication for the _replicate endpoint.
type ReplicationRequest struct {
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Continuous bool                   `json:"continuous,omitempty"`
	Selector   map[string]interface{} `json:"selector,omitempty"`
}

// Replicate starts a replication. One-shot replications block until they
// complete, while continuous ones return as soon as they're scheduled.
func (c *Client) Replicate(ctx context.Context, req ReplicationRequest) error {
	if err := c.do(ctx, http.MethodPost, "/_replicate", req, nil); err != nil {
		return errors.WithContext(err, "replicate")
	}
	return nil
}

// CancelReplication stops the running replication with the given id.
func (c *Client) CancelReplication(ctx context.Context, replicationID string) error {
	req := map[string]interface{}{
		"replication_id": replicationID,
		"cancel":         true,
	}
	if err := c.do(ctx, http.MethodPost, "/_replicate", req, nil); err != nil {
		return errors.WithContext(err, "cancel replication")
	}
	return nil
}

// putDocument creates or replaces the document with the given id.
func (c *Client) putDocument(ctx context.Context, database, id string, doc interface{}) error {
	path := "/" + url.PathEscape(database) + "/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPut, path, doc, nil)
	if !IsConflict(err) {
		return err
	}

	// The document already exists, so overwrite it at its current revision.
	rev, err := c.getRevision(ctx, database, id)
	if err != nil {
		return errors.WithContext(err, "get revision")
	}
	return c.do(ctx, http.MethodPut, path+"?rev="+url.QueryEscape(rev), doc, nil)
}

func (c *Client) getRevision(ctx context.Context, database, id string) (string, error) {
	var doc struct {
		Rev string `json:"_rev"`
	}
	path := "/" + url.PathEscape(database) + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &doc); err != nil {
		return "", err
	}
	return doc.Rev, nil
}

func userDocID(login string) string {
	return "org.couchdb.user:" + login
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return errors.WithContext(err, "marshal")
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WithContext(err, "connect to CouchDB")
	}
	defer resp.Body.Close()

	respBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.WithContext(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		json.Unmarshal(respBytes, &parsed)
		reason := parsed.Reason
		if reason == "" {
			reason = parsed.Error
		}
		return StatusError{
			Method: method,
			Path:   strings.SplitN(path, "?", 2)[0],
			Status: resp.StatusCode,
			Reason: reason,
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return errors.WithContext(err, "parse response")
		}
	}
	return nil
}
