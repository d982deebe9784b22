package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giveflow/giveflow/internal/common"
	"github.com/giveflow/giveflow/internal/dbx"
)

// Seed atomically replaces the directory tables with the given records.
// Local sessions load their bundled directory through this at startup, so a
// concurrent lookup never observes a half-replaced table.
func Seed(ctx context.Context, db *sql.DB, nonprofits, categories []Record) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nonprofits`); err != nil {
			return fmt.Errorf("failed to clear nonprofits: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}
		for _, r := range nonprofits {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO nonprofits (id, name, logo_url, mission) VALUES (?, ?, ?, ?)`,
				r.ID, r.Name, r.LogoURL, r.Mission)
			if err != nil {
				return fmt.Errorf("failed to insert nonprofit %s: %w", r.ID, err)
			}
		}
		for _, r := range categories {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO categories (id, name, icon) VALUES (?, ?, ?)`,
				r.ID, r.Name, r.Icon)
			if err != nil {
				return fmt.Errorf("failed to insert category %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// SQLiteLookup reads the directory tables hosted alongside the local draft
// store. The tables are provisioned by the platform; this lookup only
// selects from them.
type SQLiteLookup struct {
	db dbx.DBTX
}

// NewSQLiteLookup returns a lookup bound to the given DBTX.
func NewSQLiteLookup(db dbx.DBTX) *SQLiteLookup {
	return &SQLiteLookup{db: db}
}

// Nonprofit returns the nonprofit record for id.
func (l *SQLiteLookup) Nonprofit(ctx context.Context, id string) (*Record, error) {
	query := `SELECT id, name, logo_url, mission FROM nonprofits WHERE id=?`
	row := l.db.QueryRowContext(ctx, query, id)

	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.Name, &rec.LogoURL, &rec.Mission)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

// Category returns the category record for id.
func (l *SQLiteLookup) Category(ctx context.Context, id string) (*Record, error) {
	query := `SELECT id, name, icon FROM categories WHERE id=?`
	row := l.db.QueryRowContext(ctx, query, id)

	rec := &Record{}
	err := row.Scan(&rec.ID, &rec.Name, &rec.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}
