package composio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/gmail-agent/pkg/connection"
	"github.com/germanamz/gmail-agent/pkg/httpjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "ck-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL, "ck-test")
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestListConnectedAccounts_FiltersByEntityAndApp(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/connectedAccounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("user_uuid"))
		assert.Equal(t, "gmail", r.URL.Query().Get("appNames"))
		writeJSON(t, w, map[string]any{"items": []map[string]any{
			{"id": "a1", "status": "ACTIVE", "appName": "gmail", "clientUniqueUserId": "alice"},
			{"id": "a2", "status": "ACTIVE", "appName": "gmail", "clientUniqueUserId": "bob"},
			{"id": "a3", "status": "ACTIVE", "appName": "slack", "clientUniqueUserId": "alice"},
		}})
	})
	c := newTestServer(t, mux)

	accs, err := c.ListConnectedAccounts(context.Background(), "alice", "gmail")

	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, "a1", accs[0].ID)
}

func TestGetConnectedAccount_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/connectedAccounts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestServer(t, mux)

	_, err := c.GetConnectedAccount(context.Background(), "missing")

	require.ErrorIs(t, err, ErrNotFound)
}

func TestInitiateConnection_UsesExistingIntegration(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/integrations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{
			{"id": "int-off", "appName": "gmail", "enabled": false},
			{"id": "int-1", "appName": "gmail", "enabled": true},
		}})
	})
	mux.HandleFunc("POST /api/v1/connectedAccounts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "int-1", body["integrationId"])
		assert.Equal(t, "alice", body["entityId"])
		writeJSON(t, w, map[string]any{
			"connectedAccountId": "ca-1",
			"connectionStatus":   "INITIATED",
			"redirectUrl":        "https://auth.example/ca-1",
		})
	})
	c := newTestServer(t, mux)

	req, err := c.InitiateConnection(context.Background(), "alice", "gmail")

	require.NoError(t, err)
	assert.Equal(t, "ca-1", req.ConnectedAccountID)
	assert.Equal(t, "https://auth.example/ca-1", req.RedirectURL)
}

func TestInitiateConnection_CreatesIntegration(t *testing.T) {
	created := false
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/integrations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"items": []any{}})
	})
	mux.HandleFunc("GET /api/v1/apps/gmail", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"appId": "app-gmail"})
	})
	mux.HandleFunc("POST /api/v1/integrations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app-gmail", body["appId"])
		assert.Equal(t, true, body["useComposioAuth"])
		created = true
		writeJSON(t, w, map[string]any{"id": "int-new", "appName": "gmail", "enabled": true})
	})
	mux.HandleFunc("POST /api/v1/connectedAccounts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "int-new", body["integrationId"])
		writeJSON(t, w, map[string]any{"connectedAccountId": "ca-2", "redirectUrl": "u"})
	})
	c := newTestServer(t, mux)

	req, err := c.InitiateConnection(context.Background(), "alice", "gmail")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "ca-2", req.ConnectedAccountID)
}

func TestExecuteResult_UnmarshalSpellings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"successful", `{"data":{},"successful":true}`, true},
		{"legacy spelling", `{"data":{},"successfull":true}`, true},
		{"failed", `{"data":null,"error":"bad","successful":false}`, false},
		{"inferred from error", `{"error":"bad"}`, false},
		{"inferred success", `{"data":{"id":"1"}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ExecuteResult
			require.NoError(t, json.Unmarshal([]byte(tt.in), &r))
			assert.Equal(t, tt.want, r.Successful)
		})
	}
}

func TestExecuteAction_PostsInput(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/actions/GMAIL_SEND_EMAIL/execute", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EntityID string          `json:"entityId"`
			AppName  string          `json:"appName"`
			Input    json.RawMessage `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.EntityID)
		assert.Equal(t, "gmail", body.AppName)
		assert.JSONEq(t, `{"recipient_email":"bob@example.com"}`, string(body.Input))
		writeJSON(t, w, map[string]any{"data": map[string]any{"id": "m-1"}, "successfull": true})
	})
	c := newTestServer(t, mux)

	res, err := c.ExecuteAction(context.Background(), "GMAIL_SEND_EMAIL", "alice", "gmail",
		json.RawMessage(`{"recipient_email":"bob@example.com"}`))

	require.NoError(t, err)
	assert.True(t, res.Successful)
	assert.JSONEq(t, `{"id":"m-1"}`, string(res.Data))
}

func TestClient_Unauthorized(t *testing.T) {
	c := newTestServer(t, http.NewServeMux())
	c.Auth.Key = "wrong"

	_, err := c.ListActions(context.Background(), []string{"GMAIL_SEND_EMAIL"})

	var se *httpjson.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestStore_MapsStatuses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/connectedAccounts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{
			{"id": "p", "status": "INITIATED", "appName": "gmail", "redirectUrl": "u"},
			{"id": "x", "status": "EXPIRED", "appName": "gmail"},
		}})
	})
	mux.HandleFunc("GET /api/v1/connectedAccounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": r.PathValue("id"), "status": "ACTIVE", "appName": "gmail"})
	})
	c := newTestServer(t, mux)

	conns, err := c.Connections(context.Background(), "alice", "gmail")
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, connection.StatusPending, conns[0].Status)
	assert.Equal(t, "alice", conns[0].EntityID)
	assert.Equal(t, "u", conns[0].RedirectURL)
	assert.Equal(t, connection.StatusExpired, conns[1].Status)

	conn, err := c.Connection(context.Background(), "p")
	require.NoError(t, err)
	assert.True(t, conn.Active())
}

func TestStore_Initiate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/integrations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{{"id": "i", "appName": "gmail", "enabled": true}}})
	})
	mux.HandleFunc("POST /api/v1/connectedAccounts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"connectedAccountId": "ca", "redirectUrl": "https://auth.example"})
	})
	c := newTestServer(t, mux)

	conn, err := c.Initiate(context.Background(), "alice", "gmail")

	require.NoError(t, err)
	assert.Equal(t, connection.StatusPending, conn.Status)
	assert.Equal(t, "alice", conn.EntityID)
	assert.Equal(t, "https://auth.example", conn.RedirectURL)
}

func TestStore_WithEnsurer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/connectedAccounts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"items": []map[string]any{
			{"id": "live", "status": "ACTIVE", "appName": "gmail", "clientUniqueUserId": "alice"},
		}})
	})
	c := newTestServer(t, mux)

	e := connection.NewEnsurer(c, connection.Options{App: "gmail", MaxAttempts: 1})
	conn, err := e.Ensure(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "live", conn.ID)
}
