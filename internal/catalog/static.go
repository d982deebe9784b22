package catalog

import (
	"context"

	"github.com/giveflow/giveflow/internal/common"
)

// StaticLookup serves records from in-memory maps. It backs tests and demo
// sessions that have no directory database.
type StaticLookup struct {
	nonprofits map[string]Record
	categories map[string]Record
}

// NewStaticLookup indexes the given records by id.
func NewStaticLookup(nonprofits, categories []Record) *StaticLookup {
	l := &StaticLookup{
		nonprofits: make(map[string]Record, len(nonprofits)),
		categories: make(map[string]Record, len(categories)),
	}
	for _, r := range nonprofits {
		l.nonprofits[r.ID] = r
	}
	for _, r := range categories {
		l.categories[r.ID] = r
	}
	return l
}

func (l *StaticLookup) Nonprofit(_ context.Context, id string) (*Record, error) {
	if r, ok := l.nonprofits[id]; ok {
		return &r, nil
	}
	return nil, common.ErrorNotFound
}

func (l *StaticLookup) Category(_ context.Context, id string) (*Record, error) {
	if r, ok := l.categories[id]; ok {
		return &r, nil
	}
	return nil, common.ErrorNotFound
}
