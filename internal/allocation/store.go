package allocation

import (
	"github.com/google/uuid"

	"github.com/giveflow/giveflow/internal/common"
)

// Store holds the authoritative allocation list for the donation currently
// being edited. All operations are synchronous and in-memory; persistence is
// layered on top by the draft sync adapter.
//
// The running total is allowed to drift from 100 while the donor is editing;
// callers surface Unallocated() as a validation state rather than treating it
// as an error.
type Store struct {
	items   []*Item
	pending *pendingSuggestion
}

// NewStore returns an empty allocation store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a new target and immediately rebalances. The first item added
// to an empty list receives 100%. Any later item enters at 0% and an equal
// split is applied across all unlocked items so the total stays at exactly
// 100; manual-edit markers on the resplit items are cleared. A pending
// suggestion, if any, is discarded.
//
// Rejected with common.ErrorDuplicateTarget or common.ErrorMaxItems.
func (s *Store) Add(t TargetType, targetID, targetName string) error {
	return s.AddItem(NewItem(t, targetID, targetName))
}

// AddItem is Add for a caller-constructed item (e.g. carrying catalog display
// metadata). The item's Percentage and State are overwritten.
func (s *Store) AddItem(item Item) error {
	if s.findTarget(item.TargetID) != nil {
		return common.ErrorDuplicateTarget
	}
	if len(s.items) >= MaxItems {
		return common.ErrorMaxItems
	}
	s.pending = nil

	item.State = StateFree
	if len(s.items) == 0 {
		item.Percentage = 100
		s.items = append(s.items, &item)
		return nil
	}

	item.Percentage = 0
	s.items = append(s.items, &item)
	s.equalSplitUnlocked()
	return nil
}

// equalSplitUnlocked resets every unlocked item to an equal share of the
// percentage not claimed by locked items. The last unlocked item absorbs the
// division remainder so the total lands exactly on 100. Manual markers on
// the affected items no longer apply and are cleared.
func (s *Store) equalSplitUnlocked() {
	unlocked := s.unlocked()
	if len(unlocked) == 0 {
		return
	}
	target := 100 - lockedTotal(s.items)
	if target < 0 {
		target = 0
	}
	base := target / len(unlocked)
	for _, it := range unlocked {
		it.Percentage = base
		it.State = StateFree
	}
	unlocked[len(unlocked)-1].Percentage += target % len(unlocked)
}

// Remove takes an item out of the allocation by its local id. Three outcomes:
//
//   - the list would become empty, or the item held 0%: removed immediately,
//     nil suggestion;
//   - every remaining item is locked: refused with
//     common.ErrorCannotRedistribute (unlock something first);
//   - otherwise the item stays in the list and a RemovalSuggestion proposing
//     the redistribution of its freed percentage is returned for the caller
//     to Accept, Decline, or Cancel.
func (s *Store) Remove(id string) (*RemovalSuggestion, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, common.ErrorNotFound
	}
	s.pending = nil

	item := s.items[idx]
	if len(s.items) == 1 || item.Percentage == 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return nil, nil
	}

	adjustable := false
	for i, it := range s.items {
		if i != idx && !it.Locked() {
			adjustable = true
			break
		}
	}
	if !adjustable {
		return nil, common.ErrorCannotRedistribute
	}

	remainder := make([]*Item, 0, len(s.items)-1)
	for i, it := range s.items {
		if i != idx {
			remainder = append(remainder, it)
		}
	}
	sug := proposeRemoval(remainder, item)
	s.pending = &pendingSuggestion{removal: sug, removedID: id}
	return sug, nil
}

// SetPercentage writes value (clamped to [0,100]) directly onto the item and
// marks it manually adjusted, so later balancing passes prefer to correct
// other items. A locked item is left untouched. The total is not corrected;
// over/under-allocation is surfaced via Unallocated().
func (s *Store) SetPercentage(id string, value int) error {
	item := s.byID(id)
	if item == nil {
		return common.ErrorNotFound
	}
	if item.Locked() {
		return nil
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	item.Percentage = value
	item.State = StateManual
	return nil
}

// StepPercentage nudges the item's percentage by delta (typically ±1).
func (s *Store) StepPercentage(id string, delta int) error {
	item := s.byID(id)
	if item == nil {
		return common.ErrorNotFound
	}
	if item.Locked() {
		return nil
	}
	return s.SetPercentage(id, item.Percentage+delta)
}

// ToggleLock flips the lock on the item funding targetID. Locking is refused
// with common.ErrorAllLocked when it would freeze every item in a list of two
// or more: at least one item must remain adjustable.
func (s *Store) ToggleLock(targetID string) error {
	item := s.findTarget(targetID)
	if item == nil {
		return common.ErrorNotFound
	}
	if item.Locked() {
		item.State = StateFree
		return nil
	}
	if len(s.items) > 1 {
		lockedCount := 0
		for _, it := range s.items {
			if it.Locked() {
				lockedCount++
			}
		}
		if lockedCount == len(s.items)-1 {
			return common.ErrorAllLocked
		}
	}
	item.State = StateLocked
	return nil
}

// UnlockAll releases every lock. This is the escape hatch for removals that
// were refused because only locked items would remain.
func (s *Store) UnlockAll() {
	for _, it := range s.items {
		if it.Locked() {
			it.State = StateFree
		}
	}
}

// AutoBalance adjusts unlocked percentages so the total equals exactly 100.
// Locked percentages are frozen overhead: their sum is subtracted from 100
// and only the remainder is distributed. Free items absorb the whole
// correction when possible, holding manually-set items at their current
// values; when that is impossible (no free items, or the manual subtotal
// already exceeds the target) every unlocked item is rescaled
// proportionally and the manual markers are cleared.
func (s *Store) AutoBalance() {
	unlocked := s.unlocked()
	if len(unlocked) == 0 {
		return
	}
	target := 100 - lockedTotal(s.items)
	if target < 0 {
		target = 0
	}

	var free []*Item
	manualTotal := 0
	for _, it := range unlocked {
		if it.State == StateManual {
			manualTotal += it.Percentage
		} else {
			free = append(free, it)
		}
	}

	if len(free) > 0 && target-manualTotal >= 0 {
		applyShares(free, scaleShares(percentages(free), target-manualTotal))
		return
	}

	applyShares(unlocked, scaleShares(percentages(unlocked), target))
	for _, it := range unlocked {
		it.State = StateFree
	}
}

// Items returns a copy of the allocation list in insertion order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

// SetItems replaces the whole list, e.g. when hydrating from a persisted
// draft. Any pending suggestion is discarded.
func (s *Store) SetItems(items []Item) {
	s.pending = nil
	s.items = make([]*Item, len(items))
	for i := range items {
		it := items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.State == "" {
			it.State = StateFree
		}
		s.items[i] = &it
	}
}

// Len reports the number of allocation items.
func (s *Store) Len() int { return len(s.items) }

// Total sums all percentages, locked or not.
func (s *Store) Total() int {
	total := 0
	for _, it := range s.items {
		total += it.Percentage
	}
	return total
}

// Unallocated is 100 minus the current total; negative when over-allocated.
func (s *Store) Unallocated() int { return 100 - s.Total() }

// IsBalanced reports whether the allocation is ready to check out.
func (s *Store) IsBalanced() bool { return len(s.items) > 0 && s.Total() == 100 }

// Find returns the item funding targetID, if present.
func (s *Store) Find(targetID string) (Item, bool) {
	if it := s.findTarget(targetID); it != nil {
		return *it, true
	}
	return Item{}, false
}

func (s *Store) byID(id string) *Item {
	if i := s.indexOf(id); i >= 0 {
		return s.items[i]
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findTarget(targetID string) *Item {
	for _, it := range s.items {
		if it.TargetID == targetID {
			return it
		}
	}
	return nil
}

func (s *Store) unlocked() []*Item {
	var out []*Item
	for _, it := range s.items {
		if !it.Locked() {
			out = append(out, it)
		}
	}
	return out
}

func percentages(items []*Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Percentage
	}
	return out
}
