// Package catalog provides read-only access to the nonprofit and category
// directory. The allocation core queries it exactly once per selection, to
// denormalize display metadata onto the new allocation item; it never writes
// back.
package catalog

import (
	"context"

	"github.com/giveflow/giveflow/internal/allocation"
)

// Record is one directory entry, nonprofit or category.
type Record struct {
	ID      string
	Name    string
	LogoURL string
	Icon    string
	Mission string
}

// Lookup resolves catalog records by id. Implementations return
// common.ErrorNotFound for unknown ids.
type Lookup interface {
	Nonprofit(ctx context.Context, id string) (*Record, error)
	Category(ctx context.Context, id string) (*Record, error)
}

// Resolve fetches the record for the given target type and builds the
// allocation item for it, carrying the display metadata.
func Resolve(ctx context.Context, l Lookup, t allocation.TargetType, id string) (allocation.Item, error) {
	var rec *Record
	var err error
	if t == allocation.TargetCategory {
		rec, err = l.Category(ctx, id)
	} else {
		rec, err = l.Nonprofit(ctx, id)
	}
	if err != nil {
		return allocation.Item{}, err
	}

	item := allocation.NewItem(t, rec.ID, rec.Name)
	if rec.LogoURL != "" {
		item.LogoURL = rec.LogoURL
	} else {
		item.LogoURL = rec.Icon
	}
	return item, nil
}
