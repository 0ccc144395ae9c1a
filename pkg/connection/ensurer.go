package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/germanamz/gmail-agent/pkg/failure"
)

// Defaults for the activation wait.
const (
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 100
)

// ErrEmptyEntity is returned when no user identity is supplied.
var ErrEmptyEntity = errors.New("connection: entity id is required")

// Options configures an Ensurer.
type Options struct {
	App          string        // Provider app identifier, e.g. "gmail".
	PollInterval time.Duration // Delay between activation polls (default 1s).
	MaxAttempts  int           // Polls before giving up (default 100).
	Notifier     Notifier      // Receives redirect URLs; nil only logs them.
	Logger       *slog.Logger  // nil discards.
}

// Ensurer resolves a usable connection for a user. It is safe for concurrent
// use. The only state it keeps is the set of pending connections whose wait
// already timed out.
type Ensurer struct {
	store        Store
	app          string
	pollInterval time.Duration
	maxAttempts  int
	notifier     Notifier
	log          *slog.Logger

	mu    sync.Mutex
	stale map[string]struct{}

	// sleepFunc is used for testing; defaults to a context-aware sleep.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewEnsurer creates an Ensurer over store.
func NewEnsurer(store Store, opts Options) *Ensurer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Ensurer{
		store:        store,
		app:          opts.App,
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxAttempts,
		notifier:     opts.Notifier,
		log:          opts.Logger,
		stale:        make(map[string]struct{}),
		sleepFunc:    contextSleep,
	}
}

// SetSleepFunc overrides the sleep function (for testing).
func (e *Ensurer) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	e.sleepFunc = fn
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure returns an active connection for entityID.
//
// An active connection is returned at once. A pending one that still carries
// its redirect URL is surfaced again and waited on without starting a second
// flow. A pending one without a redirect URL, or one whose earlier wait timed
// out, cannot be completed by the user and counts as absent. Otherwise a new
// flow is initiated, its redirect URL is surfaced once, and Ensure blocks
// until the connection is active, the attempt bound is hit
// (failure.ErrAuthorizationTimeout), or ctx ends. Store errors are returned
// as failure.ErrServiceUnavailable.
func (e *Ensurer) Ensure(ctx context.Context, entityID string) (Connection, error) {
	if entityID == "" {
		return Connection{}, failure.Wrap(failure.ErrConfiguration, "connection", ErrEmptyEntity)
	}

	log := e.log.With("entity", entityID, "app", e.app)

	existing, err := e.store.Connections(ctx, entityID, e.app)
	if err != nil {
		return Connection{}, failure.Wrap(failure.ErrServiceUnavailable, "connection: lookup", err)
	}

	if conn, ok := pick(existing, e.resumable); ok {
		if conn.Active() {
			log.DebugContext(ctx, "connection active", "connection", conn.ID)
			return conn, nil
		}

		log.InfoContext(ctx, "connection pending, waiting for activation", "connection", conn.ID)
		e.notify(ctx, conn)
		return e.wait(ctx, conn)
	}

	conn, err := e.store.Initiate(ctx, entityID, e.app)
	if err != nil {
		return Connection{}, failure.Wrap(failure.ErrServiceUnavailable, "connection: initiate", err)
	}
	if conn.EntityID == "" {
		conn.EntityID = entityID
	}

	e.notify(ctx, conn)

	return e.wait(ctx, conn)
}

// wait is WaitActive that remembers connections the user never completed, so
// the next Ensure starts a fresh flow instead of polling them again.
func (e *Ensurer) wait(ctx context.Context, conn Connection) (Connection, error) {
	cur, err := e.WaitActive(ctx, conn)
	if errors.Is(err, failure.ErrAuthorizationTimeout) {
		e.mu.Lock()
		e.stale[conn.ID] = struct{}{}
		e.mu.Unlock()
	}
	return cur, err
}

// resumable reports whether a pending connection can still be completed.
func (e *Ensurer) resumable(c Connection) bool {
	if c.RedirectURL == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, stale := e.stale[c.ID]
	return !stale
}

// pick chooses the connection to use: the first active one, else the first
// pending one that resumable accepts. Failed and expired connections are
// never chosen.
func pick(conns []Connection, resumable func(Connection) bool) (Connection, bool) {
	for _, c := range conns {
		if c.Active() {
			return c, true
		}
	}
	for _, c := range conns {
		if c.Status == StatusPending && resumable(c) {
			return c, true
		}
	}
	return Connection{}, false
}

func (e *Ensurer) notify(ctx context.Context, conn Connection) {
	e.log.InfoContext(ctx, "authorization required",
		"entity", conn.EntityID,
		"app", e.app,
		"connection", conn.ID,
		"redirect_url", conn.RedirectURL,
	)
	if e.notifier != nil {
		e.notifier.NotifyRedirect(ctx, conn)
	}
}

// WaitActive polls conn until it is active. It checks immediately, then
// sleeps PollInterval between checks, for at most MaxAttempts checks.
func (e *Ensurer) WaitActive(ctx context.Context, conn Connection) (Connection, error) {
	if conn.Active() {
		return conn, nil
	}

	log := e.log.With("connection", conn.ID, "app", e.app)
	start := time.Now()

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := e.sleepFunc(ctx, e.pollInterval); err != nil {
				return Connection{}, fmt.Errorf("connection: wait for %s: %w", conn.ID, err)
			}
		}

		cur, err := e.store.Connection(ctx, conn.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Connection{}, fmt.Errorf("connection: wait for %s: %w", conn.ID, ctxErr)
			}
			return Connection{}, failure.Wrap(failure.ErrServiceUnavailable, "connection: poll", err)
		}

		switch {
		case cur.Active():
			if cur.EntityID == "" {
				cur.EntityID = conn.EntityID
			}
			log.InfoContext(ctx, "connection active", "attempts", attempt, "duration", time.Since(start))
			return cur, nil
		case cur.Status.Terminal():
			return Connection{}, failure.Newf(failure.ErrAuthorizationTimeout, "connection: wait",
				"connection %s became %s before activation", conn.ID, cur.Status)
		}

		log.DebugContext(ctx, "connection not active yet", "attempt", attempt, "status", cur.Status)
	}

	return Connection{}, failure.Newf(failure.ErrAuthorizationTimeout, "connection: wait",
		"connection %s not active after %d attempts", conn.ID, e.maxAttempts)
}

// Outcome is the result of an asynchronous wait.
type Outcome struct {
	Connection Connection
	Err        error
}

// WaitAsync runs WaitActive in a goroutine and delivers exactly one Outcome on
// the returned channel, which is then closed. Cancelling ctx stops the poll.
func (e *Ensurer) WaitAsync(ctx context.Context, conn Connection) <-chan Outcome {
	out := make(chan Outcome, 1)

	go func() {
		defer close(out)
		c, err := e.WaitActive(ctx, conn)
		out <- Outcome{Connection: c, Err: err}
	}()

	return out
}
