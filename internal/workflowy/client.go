// Package workflowy is a minimal client for the WorkFlowy HTTP API.
//
// A Client authenticates to a Session; a Session fetches the account's
// outline as a Tree. The Tree is a flat arena of nodes indexed by id, so
// lookups are O(1) and parent/child links are plain indices. Mutations
// edit the arena and queue wire operations; Save pushes the queued batch
// in a single push_and_poll call.
package workflowy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the production WorkFlowy endpoint.
	DefaultBaseURL = "https://workflowy.com"

	loginPath    = "/ajax_login"
	initDataPath = "/get_initialization_data"
	pushPollPath = "/push_and_poll"

	// clientVersion is the protocol version reported to the service.
	clientVersion = "21"

	defaultTimeout = 30 * time.Second
)

// Client holds credentials and transport for one WorkFlowy account.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a non-production endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient replaces the default transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New creates a Client for the given credentials.
func New(username, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is a non-2xx response. It exposes the status code so failure
// classification can map it without parsing messages.
type apiError struct {
	status   int
	endpoint string
	body     string
}

func (e *apiError) Error() string {
	if e.body != "" {
		return fmt.Sprintf("workflowy: %s returned %d: %s", e.endpoint, e.status, e.body)
	}
	return fmt.Sprintf("workflowy: %s returned %d", e.endpoint, e.status)
}

// HTTPStatus returns the response status code.
func (e *apiError) HTTPStatus() int { return e.status }

func readAPIError(resp *http.Response, endpoint string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return &apiError{status: resp.StatusCode, endpoint: endpoint, body: strings.TrimSpace(string(snippet))}
}

// errLoginRejected is deliberately fixed text: it must never echo the
// submitted credentials.
var errLoginRejected = errors.New("workflowy: login rejected: invalid credentials")

// loginResponse is the body of /ajax_login. The endpoint reports
// credential rejection with a 200 status and success=false.
type loginResponse struct {
	Success bool `json:"success"`
}

// Verify performs the login handshake and discards the session. It is
// the cheapest call that proves the configured credentials work.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.Authenticate(ctx)
	return err
}

// OpenTree authenticates and downloads a fresh outline snapshot in one
// step. Every call yields an independent session and tree.
func (c *Client) OpenTree(ctx context.Context) (*Tree, error) {
	session, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return session.GetTree(ctx)
}

// Authenticate performs the login handshake and returns a Session bound
// to this client.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("workflowy: building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflowy: login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp, "ajax_login")
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("workflowy: parsing login response: %w", err)
	}
	if !body.Success {
		return nil, errLoginRejected
	}
	sessionID := sessionCookie(resp.Cookies())
	if sessionID == "" {
		return nil, errLoginRejected
	}

	return &Session{client: c, sessionID: sessionID}, nil
}

func sessionCookie(cookies []*http.Cookie) string {
	for _, ck := range cookies {
		if ck.Name == "sessionid" {
			return ck.Value
		}
	}
	return ""
}

// Session is an authenticated connection to one account.
type Session struct {
	client    *Client
	sessionID string
}

func (s *Session) attach(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: s.sessionID})
}

// GetTree downloads the full outline and assembles the arena. Each call
// returns an independent snapshot wired to this session for persistence.
func (s *Session) GetTree(ctx context.Context) (*Tree, error) {
	u := fmt.Sprintf("%s%s?client_version=%s", s.client.baseURL, initDataPath, clientVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("workflowy: building tree request: %w", err)
	}
	s.attach(req)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workflowy: fetching tree: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp, "get_initialization_data")
	}

	return ParseTree(resp.Body, s.pushOperations)
}

// ParseTree decodes a get_initialization_data payload and assembles the
// arena. Saves on the resulting tree go through push.
func ParseTree(r io.Reader, push PushFunc) (*Tree, error) {
	var data initializationData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("workflowy: parsing tree: %w", err)
	}
	return buildTree(data.ProjectTreeData.MainProjectTreeInfo, data.ProjectTreeData.ClientID, push), nil
}

// pushOperations posts one encoded operation batch to push_and_poll and
// returns the new transaction id. Installed as the Tree's push function.
func (s *Session) pushOperations(ctx context.Context, clientID, txid string, operations json.RawMessage) (string, error) {
	payload, err := json.Marshal([]pushPollRequest{{
		MostRecentOperationTransactionID: txid,
		Operations:                       operations,
	}})
	if err != nil {
		return "", fmt.Errorf("workflowy: encoding push payload: %w", err)
	}

	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_version", clientVersion)
	form.Set("push_poll_id", pushPollID())
	form.Set("push_poll_data", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+pushPollPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("workflowy: building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.attach(req)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("workflowy: pushing operations: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp, "push_and_poll")
	}

	var body pushPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("workflowy: parsing push response: %w", err)
	}
	if len(body.Results) == 0 {
		return "", errors.New("workflowy: push_and_poll returned no results")
	}
	res := body.Results[0]
	if res.RemoteError != "" {
		return "", fmt.Errorf("workflowy: remote operation failed: %s", res.RemoteError)
	}
	return res.NewTransactionID, nil
}

// pushPollID generates the short random token push_and_poll expects.
func pushPollID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
