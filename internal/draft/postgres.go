package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/giveflow/giveflow/internal/common"
	"github.com/giveflow/giveflow/internal/dbx"
	pgmigrations "github.com/giveflow/giveflow/internal/draft/migrations/postgres"
)

// PostgresStore implements Store over a dbx.DBTX (*sql.DB or *sql.Tx),
// one JSONB-backed row per user.
type PostgresStore struct {
	db dbx.DBTX
}

// NewPostgresStore returns a store bound to the given DBTX.
func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens the drafts database and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(pgmigrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

// Get returns the draft for userID, or common.ErrorNotFound.
func (s *PostgresStore) Get(ctx context.Context, userID string) (*Draft, error) {
	query := `SELECT amount_cents, frequency, items, locked_ids, updated_at FROM drafts WHERE user_id=$1`
	row := s.db.QueryRowContext(ctx, query, userID)

	d := &Draft{UserID: userID}
	var itemsJSON, lockedJSON []byte
	err := row.Scan(&d.AmountCents, &d.Frequency, &itemsJSON, &lockedJSON, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &d.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	if err := json.Unmarshal(lockedJSON, &d.LockedIDs); err != nil {
		return nil, fmt.Errorf("failed to decode locked ids: %w", err)
	}
	return d, nil
}

// Upsert inserts or fully replaces the user's draft row, including the
// fingerprint carried into change notifications.
func (s *PostgresStore) Upsert(ctx context.Context, d *Draft) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id)
		DO UPDATE SET
			amount_cents = EXCLUDED.amount_cents,
			frequency = EXCLUDED.frequency,
			items = EXCLUDED.items,
			locked_ids = EXCLUDED.locked_ids,
			fingerprint = EXCLUDED.fingerprint,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		d.UserID, d.AmountCents, d.Frequency, itemsJSON, lockedJSON, d.Fingerprint(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert draft: %w", err)
	}
	return nil
}

// Delete removes the user's draft row. Missing rows are not an error.
func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// DeleteStale removes drafts untouched for longer than age and returns how
// many rows were removed. The drafts daemon runs this as a retention sweep.
func (s *PostgresStore) DeleteStale(ctx context.Context, age time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM drafts WHERE updated_at < $1`, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted drafts: %w", err)
	}
	return n, nil
}
