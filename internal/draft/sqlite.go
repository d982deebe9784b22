package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/giveflow/giveflow/internal/common"
	"github.com/giveflow/giveflow/internal/dbx"
	sqlitemigrations "github.com/giveflow/giveflow/internal/draft/migrations/sqlite"
)

// SQLiteStore implements Store against a local SQLite database. It backs
// guest/offline sessions that have no hosted draft row, and the test suite.
type SQLiteStore struct {
	db dbx.DBTX
}

// NewSQLiteStore returns a store bound to the given DBTX.
func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLite opens (or creates) the local drafts database and applies
// pending migrations. The caller must have the modernc.org/sqlite driver
// registered.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	// A single connection avoids writer lock contention and keeps :memory:
	// databases from splitting across pooled connections.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(sqlitemigrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

// Get returns the draft for userID, or common.ErrorNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*Draft, error) {
	query := `SELECT amount_cents, frequency, items, locked_ids, updated_at FROM drafts WHERE user_id=?`
	row := s.db.QueryRowContext(ctx, query, userID)

	d := &Draft{UserID: userID}
	var itemsJSON, lockedJSON []byte
	var updatedAt int64
	err := row.Scan(&d.AmountCents, &d.Frequency, &itemsJSON, &lockedJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if err := json.Unmarshal(itemsJSON, &d.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	if err := json.Unmarshal(lockedJSON, &d.LockedIDs); err != nil {
		return nil, fmt.Errorf("failed to decode locked ids: %w", err)
	}
	return d, nil
}

// Upsert inserts or fully replaces the user's draft row.
func (s *SQLiteStore) Upsert(ctx context.Context, d *Draft) error {
	itemsJSON, err := json.Marshal(d.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	locked := d.LockedIDs
	if locked == nil {
		locked = []string{}
	}
	lockedJSON, err := json.Marshal(locked)
	if err != nil {
		return fmt.Errorf("failed to encode locked ids: %w", err)
	}

	query := `
		INSERT INTO drafts (user_id, amount_cents, frequency, items, locked_ids, fingerprint, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			frequency = excluded.frequency,
			items = excluded.items,
			locked_ids = excluded.locked_ids,
			fingerprint = excluded.fingerprint,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		d.UserID, d.AmountCents, d.Frequency, itemsJSON, lockedJSON, d.Fingerprint(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert draft: %w", err)
	}
	return nil
}

// Delete removes the user's draft row. Missing rows are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE user_id=?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// DeleteStale removes drafts untouched for longer than age and returns how
// many rows were removed.
func (s *SQLiteStore) DeleteStale(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE updated_at < ?`, time.Now().Add(-age).Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted drafts: %w", err)
	}
	return n, nil
}

// SQLiteWatcher implements Watcher by polling the row's fingerprint. SQLite
// has no notification feed, so this exists for parity in local sessions and
// tests; the poll interval bounds staleness the same way the foreground
// refresh throttle does for Postgres.
type SQLiteWatcher struct {
	db       dbx.DBTX
	interval time.Duration
}

// NewSQLiteWatcher polls the given DBTX every interval.
func NewSQLiteWatcher(db dbx.DBTX, interval time.Duration) *SQLiteWatcher {
	return &SQLiteWatcher{db: db, interval: interval}
}

// Watch emits an event whenever the stored fingerprint for userID changes
// between polls. The channel closes when ctx is cancelled.
func (w *SQLiteWatcher) Watch(ctx context.Context, userID string) (<-chan Event, error) {
	last, err := w.fingerprint(ctx, userID)
	if err != nil {
		return nil, err
	}

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := w.fingerprint(ctx, userID)
			if err != nil {
				continue
			}
			if current == last {
				continue
			}

			var kind EventKind
			switch {
			case last == "":
				kind = EventInsert
			case current == "":
				kind = EventDelete
			default:
				kind = EventUpdate
			}
			last = current

			select {
			case ch <- Event{Kind: kind, Fingerprint: current}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// fingerprint reads the stored fingerprint, or "" when no row exists.
func (w *SQLiteWatcher) fingerprint(ctx context.Context, userID string) (string, error) {
	var fp string
	err := w.db.QueryRowContext(ctx, `SELECT fingerprint FROM drafts WHERE user_id=?`, userID).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fingerprint query failed: %w", err)
	}
	return fp, nil
}
