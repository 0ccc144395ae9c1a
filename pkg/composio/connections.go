package composio

import (
	"context"
	"fmt"

	"github.com/germanamz/gmail-agent/pkg/connection"
)

var _ connection.Store = (*Client)(nil)

func toConnection(acc ConnectedAccount, entityID string) connection.Connection {
	if acc.ClientUniqueUserID != "" {
		entityID = acc.ClientUniqueUserID
	}
	return connection.Connection{
		ID:          acc.ID,
		EntityID:    entityID,
		App:         acc.AppName,
		Status:      connection.ParseStatus(acc.Status),
		RedirectURL: acc.RedirectURL,
	}
}

// Connections implements connection.Store.
func (c *Client) Connections(ctx context.Context, entityID, app string) ([]connection.Connection, error) {
	accounts, err := c.ListConnectedAccounts(ctx, entityID, app)
	if err != nil {
		return nil, err
	}

	out := make([]connection.Connection, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, toConnection(acc, entityID))
	}
	return out, nil
}

// Initiate implements connection.Store.
func (c *Client) Initiate(ctx context.Context, entityID, app string) (connection.Connection, error) {
	req, err := c.InitiateConnection(ctx, entityID, app)
	if err != nil {
		return connection.Connection{}, err
	}
	if req.ConnectedAccountID == "" {
		return connection.Connection{}, fmt.Errorf("composio: initiate connection: response has no connected account id")
	}

	status := connection.ParseStatus(req.ConnectionStatus)
	if status == connection.StatusUnknown {
		status = connection.StatusPending
	}

	return connection.Connection{
		ID:          req.ConnectedAccountID,
		EntityID:    entityID,
		App:         app,
		Status:      status,
		RedirectURL: req.RedirectURL,
	}, nil
}

// Connection implements connection.Store.
func (c *Client) Connection(ctx context.Context, id string) (connection.Connection, error) {
	acc, err := c.GetConnectedAccount(ctx, id)
	if err != nil {
		return connection.Connection{}, err
	}
	return toConnection(acc, ""), nil
}
