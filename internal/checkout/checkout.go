// Package checkout defines the plain handoff structure the allocation core
// exposes to the external payment initiation step, and the policy check for
// whether an allocation may proceed. The core never constructs payment
// requests itself.
package checkout

import (
	"errors"
	"fmt"

	"github.com/giveflow/giveflow/internal/allocation"
	"github.com/giveflow/giveflow/internal/draft"
)

var (
	ErrNoAllocations  = errors.New("nothing allocated")
	ErrZeroAmount     = errors.New("donation amount must be positive")
	ErrNotFullyFunded = errors.New("allocation does not sum to 100")
)

// Line is one finalized allocation slice.
type Line struct {
	Type       allocation.TargetType `json:"type"`
	TargetID   string                `json:"target_id"`
	TargetName string                `json:"target_name"`
	Percentage int                   `json:"percentage"`
}

// Handoff is the finalized donation passed to payment initiation.
type Handoff struct {
	AmountCents int64           `json:"amount_cents"`
	Frequency   draft.Frequency `json:"frequency"`
	Lines       []Line          `json:"lines"`
}

// FromAllocation snapshots the current allocation state into a handoff.
func FromAllocation(amountCents int64, freq draft.Frequency, items []allocation.Item) Handoff {
	h := Handoff{AmountCents: amountCents, Frequency: freq, Lines: make([]Line, len(items))}
	for i, it := range items {
		h.Lines[i] = Line{
			Type:       it.Type,
			TargetID:   it.TargetID,
			TargetName: it.TargetName,
			Percentage: it.Percentage,
		}
	}
	return h
}

// Policy controls how strictly Validate holds the 100% invariant. The zero
// value demands an exact 100; a positive Tolerance admits totals within
// ±Tolerance percentage points, a policy decision left to the checkout
// collaborator.
type Policy struct {
	Tolerance int
}

// Validate reports whether the handoff may proceed to payment.
func (h Handoff) Validate(p Policy) error {
	if len(h.Lines) == 0 {
		return ErrNoAllocations
	}
	if h.AmountCents <= 0 {
		return ErrZeroAmount
	}

	total := 0
	for _, l := range h.Lines {
		total += l.Percentage
	}
	diff := total - 100
	if diff < 0 {
		diff = -diff
	}
	if diff > p.Tolerance {
		return fmt.Errorf("%w: total %d%%", ErrNotFullyFunded, total)
	}
	return nil
}
