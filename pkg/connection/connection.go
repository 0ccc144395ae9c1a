// Package connection makes sure a user has an active Gmail connection at the
// tool provider before any action runs on their behalf.
//
// The [Ensurer] looks up existing connections, starts an authorization flow
// when none is usable, surfaces the redirect URL through a [Notifier], and
// waits for activation with a bounded, cancellable poll.
package connection

import (
	"context"
	"strings"
)

// Status is a connection's activation state.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusActive
	StatusFailed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// Terminal reports whether the connection can no longer become active.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusExpired
}

// ParseStatus maps a provider status string to a Status.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACTIVE":
		return StatusActive
	case "INITIATED", "INITIALIZING", "PENDING":
		return StatusPending
	case "FAILED":
		return StatusFailed
	case "EXPIRED", "INACTIVE", "DELETED":
		return StatusExpired
	}
	return StatusUnknown
}

// Connection is a handle on a user's authorized link to an app.
type Connection struct {
	ID          string
	EntityID    string
	App         string
	Status      Status
	RedirectURL string // Set while pending, when the provider supplies one.
}

// Active reports whether the connection can be used.
func (c Connection) Active() bool {
	return c.Status == StatusActive
}

// Store is the tool provider's connection registry.
type Store interface {
	// Connections lists entityID's connections for app, in any state.
	Connections(ctx context.Context, entityID, app string) ([]Connection, error)
	// Initiate starts a new authorization flow and returns the pending
	// connection with its redirect URL.
	Initiate(ctx context.Context, entityID, app string) (Connection, error)
	// Connection fetches the current state of one connection.
	Connection(ctx context.Context, id string) (Connection, error)
}

// Notifier surfaces a redirect URL to whoever can complete the consent flow.
type Notifier interface {
	NotifyRedirect(ctx context.Context, conn Connection)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, conn Connection)

// NotifyRedirect calls f.
func (f NotifierFunc) NotifyRedirect(ctx context.Context, conn Connection) { f(ctx, conn) }
