package draft

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/giveflow/giveflow/internal/logging"
)

// channelName is the Postgres NOTIFY channel the drafts trigger publishes to.
const channelName = "draft_events"

type notifyPayload struct {
	UserID      string `json:"user_id"`
	Kind        string `json:"kind"`
	Fingerprint string `json:"fingerprint"`
}

// PostgresWatcher implements Watcher over LISTEN/NOTIFY. Each Watch call
// holds a dedicated connection; notification payloads carry the row's
// fingerprint so consumers can suppress echoes of their own writes without
// re-fetching.
type PostgresWatcher struct {
	dsn    string
	logger logging.Logger
}

// NewPostgresWatcher returns a watcher connecting with the given DSN.
func NewPostgresWatcher(dsn string, logger logging.Logger) *PostgresWatcher {
	return &PostgresWatcher{dsn: dsn, logger: logger.With("module", "draft_watcher")}
}

// Watch subscribes to draft events for userID. The channel is closed when
// ctx is cancelled or the listening connection fails; callers that need to
// survive connection loss re-subscribe and re-fetch.
func (w *PostgresWatcher) Watch(ctx context.Context, userID string) (<-chan Event, error) {
	conn, err := pgx.Connect(ctx, w.dsn)
	if err != nil {
		return nil, fmt.Errorf("watch connect error: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen error: %w", err)
	}

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		defer func() { _ = conn.Close(context.Background()) }()

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Error(ctx, "notification wait failed", "error", err)
				}
				return
			}

			var p notifyPayload
			if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
				w.logger.Warn(ctx, "malformed notification payload", "error", err)
				continue
			}
			if p.UserID != userID {
				continue
			}

			select {
			case ch <- Event{Kind: EventKind(p.Kind), Fingerprint: p.Fingerprint}:
			default:
				// Consumer is behind; it re-fetches on the next event or
				// foreground refresh, so dropping here is safe.
				w.logger.Warn(ctx, "event channel full, dropping notification", "user_id", userID)
			}
		}
	}()
	return ch, nil
}

// UserEvent is an Event annotated with the user it belongs to. Emitted by
// WatchAll, which does not filter by user.
type UserEvent struct {
	UserID string
	Event
}

// WatchAll subscribes to draft events for every user. The drafts daemon uses
// this for operational visibility into the whole table.
func (w *PostgresWatcher) WatchAll(ctx context.Context) (<-chan UserEvent, error) {
	conn, err := pgx.Connect(ctx, w.dsn)
	if err != nil {
		return nil, fmt.Errorf("watch connect error: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("listen error: %w", err)
	}

	ch := make(chan UserEvent, 64)
	go func() {
		defer close(ch)
		defer func() { _ = conn.Close(context.Background()) }()

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Error(ctx, "notification wait failed", "error", err)
				}
				return
			}

			var p notifyPayload
			if err := json.Unmarshal([]byte(n.Payload), &p); err != nil {
				w.logger.Warn(ctx, "malformed notification payload", "error", err)
				continue
			}

			select {
			case ch <- UserEvent{UserID: p.UserID, Event: Event{Kind: EventKind(p.Kind), Fingerprint: p.Fingerprint}}:
			default:
				w.logger.Warn(ctx, "event channel full, dropping notification")
			}
		}
	}()
	return ch, nil
}
