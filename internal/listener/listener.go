// Package listener carries finished-sync notifications between instances
// through Postgres LISTEN/NOTIFY. The publisher sends every local
// SyncCompleted on the `sync_completed` channel; the listener holds a
// dedicated pgx connection (not from the pool) and hands events from other
// instances to a handler, typically cache invalidation.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-sync/internal/events"
)

const (
	Channel          = "sync_completed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Payload is the JSON body of pg_notify('sync_completed', ...).
type Payload struct {
	Origin string               `json:"origin"`
	Event  events.SyncCompleted `json:"event"`
}

// --------------------------------------------------------------------------
// Publisher
// --------------------------------------------------------------------------

// Publisher sends SyncCompleted events to other instances.
type Publisher struct {
	pool   *pgxpool.Pool
	origin string
	logger *slog.Logger
}

// NewPublisher creates a publisher tagging events with origin.
func NewPublisher(pool *pgxpool.Pool, origin string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{pool: pool, origin: origin, logger: logger}
}

// Handle is an events.Handler. Dry runs are not broadcast.
func (p *Publisher) Handle(ctx context.Context, ev events.SyncCompleted) {
	if ev.DryRun {
		return
	}
	body, err := Encode(p.origin, ev)
	if err != nil {
		p.logger.Warn("Failed to encode sync notification", "run_id", ev.RunID, "error", err)
		return
	}
	if _, err := p.pool.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, body); err != nil {
		p.logger.Warn("Failed to publish sync notification", "run_id", ev.RunID, "error", err)
	}
}

// Encode builds the notification payload.
func Encode(origin string, ev events.SyncCompleted) (string, error) {
	raw, err := json.Marshal(Payload{Origin: origin, Event: ev})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a notification payload and reports whether it came from
// another instance.
func Decode(origin, payload string) (events.SyncCompleted, bool, error) {
	var p Payload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return events.SyncCompleted{}, false, err
	}
	return p.Event, p.Origin != origin, nil
}

// --------------------------------------------------------------------------
// Listener
// --------------------------------------------------------------------------

// Start opens a dedicated connection and listens on the sync_completed
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL, origin string, handler events.Handler, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, origin, handler, logger)
		if ctx.Err() != nil {
			logger.Info("Sync listener stopped (context cancelled)")
			return
		}

		logger.Error("Sync listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL, origin string, handler events.Handler, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+Channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	logger.Info("Sync listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, foreign, err := Decode(origin, notification.Payload)
		if err != nil {
			logger.Warn("Failed to parse sync notification",
				"payload", notification.Payload, "error", err)
			continue
		}
		if !foreign {
			continue
		}

		logger.Info("Sync notification received",
			"run_id", ev.RunID, "kinds", ev.Changed(), "aborted", ev.Aborted)
		handler(ctx, ev)
	}
}
