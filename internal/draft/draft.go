// Package draft defines the durable, cross-device snapshot of an in-progress
// donation and the per-user stores that persist it.
package draft

import (
	"time"

	"github.com/giveflow/giveflow/internal/allocation"
)

// Frequency is how often the donation recurs.
type Frequency string

const (
	FrequencyOneTime   Frequency = "one-time"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// Item is the persisted form of one allocation slice. Local ids and edit
// markers are session state and are not stored; locks are carried separately
// on the draft so a second device can reconstruct them.
type Item struct {
	Type       allocation.TargetType `json:"type"`
	TargetID   string                `json:"target_id"`
	TargetName string                `json:"target_name"`
	LogoURL    string                `json:"logo_url,omitempty"`
	Percentage int                   `json:"percentage"`
}

// Draft is one user's in-progress donation: exactly one row per user.
type Draft struct {
	UserID      string
	AmountCents int64
	Frequency   Frequency
	Items       []Item
	LockedIDs   []string
	UpdatedAt   time.Time
}

// FromAllocation snapshots an allocation list into a persistable draft.
func FromAllocation(userID string, amountCents int64, freq Frequency, items []allocation.Item) *Draft {
	d := &Draft{
		UserID:      userID,
		AmountCents: amountCents,
		Frequency:   freq,
		Items:       make([]Item, len(items)),
	}
	for i, it := range items {
		d.Items[i] = Item{
			Type:       it.Type,
			TargetID:   it.TargetID,
			TargetName: it.TargetName,
			LogoURL:    it.LogoURL,
			Percentage: it.Percentage,
		}
		if it.Locked() {
			d.LockedIDs = append(d.LockedIDs, it.TargetID)
		}
	}
	return d
}

// AllocationItems reconstructs session allocation items from the draft,
// restoring locks from LockedIDs. Fresh local ids are assigned.
func (d *Draft) AllocationItems() []allocation.Item {
	locked := make(map[string]struct{}, len(d.LockedIDs))
	for _, id := range d.LockedIDs {
		locked[id] = struct{}{}
	}

	items := make([]allocation.Item, len(d.Items))
	for i, it := range d.Items {
		a := allocation.NewItem(it.Type, it.TargetID, it.TargetName)
		a.LogoURL = it.LogoURL
		a.Percentage = it.Percentage
		if _, ok := locked[it.TargetID]; ok {
			a.State = allocation.StateLocked
		}
		items[i] = a
	}
	return items
}
