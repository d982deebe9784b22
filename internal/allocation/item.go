// Package allocation implements the in-memory allocation list for an
// in-progress donation: a small ordered set of nonprofit/category targets
// with integer percentage shares, the arithmetic that keeps those shares
// summing to 100, and the rebalance suggestions generated around structural
// add/remove events.
package allocation

import "github.com/google/uuid"

// TargetType classifies what an allocation item funds.
type TargetType string

const (
	TargetNonprofit TargetType = "nonprofit"
	TargetCategory  TargetType = "category"
)

// ItemState tags how an item participates in automatic rebalancing.
//
//   - StateFree: the item may be adjusted by any redistribution pass.
//   - StateManual: the donor set the percentage by hand; balancing passes
//     prefer to leave it alone and correct the free items instead.
//   - StateLocked: the percentage is frozen and must never be changed by any
//     automatic pass.
type ItemState string

const (
	StateFree   ItemState = "free"
	StateManual ItemState = "manual"
	StateLocked ItemState = "locked"
)

// MaxItems caps how many targets a single donation can be split across.
const MaxItems = 10

// Item is one slice of a donation. ID is a local identifier, stable for the
// lifetime of the list but not persisted; TargetID identifies the nonprofit
// or category being funded. TargetName and LogoURL are denormalized from the
// catalog at selection time.
type Item struct {
	ID         string
	Type       TargetType
	TargetID   string
	TargetName string
	LogoURL    string
	Percentage int
	State      ItemState
}

// Locked reports whether the item is frozen against rebalancing.
func (i Item) Locked() bool { return i.State == StateLocked }

// NewItem creates a free item with a fresh local id.
func NewItem(t TargetType, targetID, targetName string) Item {
	return Item{
		ID:         uuid.NewString(),
		Type:       t,
		TargetID:   targetID,
		TargetName: targetName,
		State:      StateFree,
	}
}
