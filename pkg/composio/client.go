package composio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/httpjson"
)

// DefaultBaseURL is the hosted Composio backend.
const DefaultBaseURL = "https://backend.composio.dev"

// ErrNotFound is returned when a lookup by id finds nothing.
var ErrNotFound = errors.New("composio: not found")

// Client talks to the Composio HTTP API.
type Client struct {
	httpjson.Client

	log *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

// WithLogger sets the logger used for request-level debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client. An empty baseURL falls back to DefaultBaseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{log: slog.New(slog.DiscardHandler)}
	c.BaseURL = strings.TrimRight(baseURL, "/")
	c.Auth = httpjson.Auth{Key: apiKey, Header: "X-API-Key"}

	for _, o := range opts {
		o(c)
	}

	return c
}

// ConnectedAccount is a user's authorized link to an app.
type ConnectedAccount struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	AppName            string `json:"appName"`
	IntegrationID      string `json:"integrationId"`
	ClientUniqueUserID string `json:"clientUniqueUserId"`
	RedirectURL        string `json:"redirectUrl,omitempty"`
	CreatedAt          string `json:"createdAt,omitempty"`
}

// ConnectionRequest is the answer to an initiate-connection call.
type ConnectionRequest struct {
	ConnectedAccountID string `json:"connectedAccountId"`
	ConnectionStatus   string `json:"connectionStatus"`
	RedirectURL        string `json:"redirectUrl"`
}

// Integration is an app auth configuration that connections are created
// under.
type Integration struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AppName string `json:"appName"`
	Enabled bool   `json:"enabled"`
}

// ListConnectedAccounts returns entityID's connected accounts for app.
func (c *Client) ListConnectedAccounts(ctx context.Context, entityID, app string) ([]ConnectedAccount, error) {
	q := url.Values{}
	q.Set("user_uuid", entityID)
	q.Set("appNames", app)
	q.Set("showActiveOnly", "false")

	var resp struct {
		Items []ConnectedAccount `json:"items"`
	}
	if err := c.GetJSON(ctx, "/api/v1/connectedAccounts?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("composio: list connected accounts: %w", err)
	}

	out := resp.Items[:0]
	for _, acc := range resp.Items {
		if acc.ClientUniqueUserID != "" && acc.ClientUniqueUserID != entityID {
			continue
		}
		if !strings.EqualFold(acc.AppName, app) {
			continue
		}
		out = append(out, acc)
	}

	return out, nil
}

// GetConnectedAccount fetches one connected account by id.
func (c *Client) GetConnectedAccount(ctx context.Context, id string) (ConnectedAccount, error) {
	var acc ConnectedAccount
	err := c.GetJSON(ctx, "/api/v1/connectedAccounts/"+url.PathEscape(id), &acc)

	var se *httpjson.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return ConnectedAccount{}, fmt.Errorf("%w: connected account %s", ErrNotFound, id)
	}
	if err != nil {
		return ConnectedAccount{}, fmt.Errorf("composio: get connected account: %w", err)
	}

	return acc, nil
}

// InitiateConnection starts an authorization flow for entityID on app. The
// returned request carries the redirect URL the user must visit.
func (c *Client) InitiateConnection(ctx context.Context, entityID, app string) (ConnectionRequest, error) {
	integrationID, err := c.integrationFor(ctx, app)
	if err != nil {
		return ConnectionRequest{}, err
	}

	payload := map[string]any{
		"integrationId": integrationID,
		"entityId":      entityID,
		"data":          map[string]any{},
	}

	var req ConnectionRequest
	if err := c.PostJSON(ctx, "/api/v1/connectedAccounts", payload, &req); err != nil {
		return ConnectionRequest{}, fmt.Errorf("composio: initiate connection: %w", err)
	}

	c.log.DebugContext(ctx, "connection initiated",
		"entity", entityID,
		"app", app,
		"connection", req.ConnectedAccountID,
	)

	return req, nil
}

// integrationFor returns the id of an enabled integration for app, creating
// one with Composio-managed auth when none exists.
func (c *Client) integrationFor(ctx context.Context, app string) (string, error) {
	q := url.Values{}
	q.Set("appName", app)

	var list struct {
		Items []Integration `json:"items"`
	}
	if err := c.GetJSON(ctx, "/api/v1/integrations?"+q.Encode(), &list); err != nil {
		return "", fmt.Errorf("composio: list integrations: %w", err)
	}

	for _, in := range list.Items {
		if in.Enabled && strings.EqualFold(in.AppName, app) {
			return in.ID, nil
		}
	}

	var appInfo struct {
		AppID string `json:"appId"`
	}
	if err := c.GetJSON(ctx, "/api/v1/apps/"+url.PathEscape(app), &appInfo); err != nil {
		return "", fmt.Errorf("composio: get app %s: %w", app, err)
	}

	var created Integration
	payload := map[string]any{
		"name":            app + "_integration",
		"appId":           appInfo.AppID,
		"useComposioAuth": true,
	}
	if err := c.PostJSON(ctx, "/api/v1/integrations", payload, &created); err != nil {
		return "", fmt.Errorf("composio: create integration: %w", err)
	}

	c.log.DebugContext(ctx, "integration created", "app", app, "integration", created.ID)

	return created.ID, nil
}

// ActionSchema describes one action as published by the platform.
type ActionSchema struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description"`
	AppName     string          `json:"appName"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ListActions fetches the schemas of the named actions. Only the requested
// slugs are asked for.
func (c *Client) ListActions(ctx context.Context, slugs []string) ([]ActionSchema, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("actions", strings.Join(slugs, ","))

	var resp struct {
		Items []ActionSchema `json:"items"`
	}
	if err := c.GetJSON(ctx, "/api/v2/actions?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("composio: list actions: %w", err)
	}

	return resp.Items, nil
}

// ExecuteResult is the platform's answer to an action execution.
type ExecuteResult struct {
	Data       json.RawMessage
	Error      string
	Successful bool
}

// UnmarshalJSON accepts both "successful" and the API's historical
// "successfull" spelling.
func (r *ExecuteResult) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data        json.RawMessage `json:"data"`
		Error       *string         `json:"error"`
		Successful  *bool           `json:"successful"`
		Successfull *bool           `json:"successfull"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	r.Data = raw.Data
	if raw.Error != nil {
		r.Error = *raw.Error
	}
	switch {
	case raw.Successful != nil:
		r.Successful = *raw.Successful
	case raw.Successfull != nil:
		r.Successful = *raw.Successfull
	default:
		r.Successful = r.Error == ""
	}

	return nil
}

// ExecuteAction runs the action slug for entityID with the given JSON input.
// A response with Successful=false is returned without error; callers decide
// what a failed action means.
func (c *Client) ExecuteAction(ctx context.Context, slug, entityID, app string, input json.RawMessage) (ExecuteResult, error) {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	payload := map[string]any{
		"entityId": entityID,
		"appName":  app,
		"input":    input,
	}

	var res ExecuteResult
	if err := c.PostJSON(ctx, "/api/v2/actions/"+url.PathEscape(slug)+"/execute", payload, &res); err != nil {
		return ExecuteResult{}, fmt.Errorf("composio: execute %s: %w", slug, err)
	}

	return res, nil
}
