package allocation

import (
	"github.com/giveflow/giveflow/internal/common"
)

// AddSuggestion proposes a full replacement allocation after one or more new
// items were selected. It is never applied until Accept is called.
type AddSuggestion struct {
	AddedNames []string
	Proposed   []Item
}

// RemovalSuggestion proposes the redistribution of the percentage freed by
// removing one item. The removal itself is deferred along with the
// redistribution: the authoritative list is untouched until the suggestion
// is resolved.
type RemovalSuggestion struct {
	RemovedID    string
	RemovedName  string
	FreedPercent int
	Proposed     []Item
}

// pendingSuggestion is the one suggestion the store will hold at a time.
// Any structural operation (Add, Remove, ProposeAdd, SetItems) discards it.
type pendingSuggestion struct {
	add       *AddSuggestion
	added     []Item
	removal   *RemovalSuggestion
	removedID string
}

// proposeRemoval computes the post-removal list for the given remainder.
// Locked items are untouched; the freed percentage flows to the unlocked
// remainder in proportion to each item's current share (even split when the
// unlocked subtotal is zero, remainder to the first item), with the last
// unlocked item absorbing rounding residue so locked + unlocked lands
// exactly on 100. With no unlocked remainder the items are returned
// unchanged; the caller is expected to have refused the removal already.
func proposeRemoval(remainder []*Item, removed *Item) *RemovalSuggestion {
	proposed := make([]Item, len(remainder))
	for i, it := range remainder {
		proposed[i] = *it
	}

	var unlockedIdx []int
	for i := range proposed {
		if !proposed[i].Locked() {
			unlockedIdx = append(unlockedIdx, i)
		}
	}

	sug := &RemovalSuggestion{
		RemovedID:    removed.ID,
		RemovedName:  removed.TargetName,
		FreedPercent: removed.Percentage,
		Proposed:     proposed,
	}
	if len(unlockedIdx) == 0 {
		return sug
	}

	locked := 0
	current := make([]int, len(unlockedIdx))
	for i := range proposed {
		if proposed[i].Locked() {
			locked += proposed[i].Percentage
		}
	}
	for n, i := range unlockedIdx {
		current[n] = proposed[i].Percentage
	}

	target := 100 - locked
	if target < 0 {
		target = 0
	}
	shares := scaleShares(current, target)
	for n, i := range unlockedIdx {
		proposed[i].Percentage = shares[n]
	}
	return sug
}

// ProposeAdd validates the candidate items and computes an equal-split
// proposal covering the grown list, holding it pending instead of mutating
// the store. The donor then accepts the rebalance, declines it (the new
// items join at 0% for hand adjustment), or cancels the add entirely.
func (s *Store) ProposeAdd(candidates ...Item) (*AddSuggestion, error) {
	if len(s.items)+len(candidates) > MaxItems {
		return nil, common.ErrorMaxItems
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if s.findTarget(c.TargetID) != nil {
			return nil, common.ErrorDuplicateTarget
		}
		if _, dup := seen[c.TargetID]; dup {
			return nil, common.ErrorDuplicateTarget
		}
		seen[c.TargetID] = struct{}{}
	}
	s.pending = nil

	added := make([]Item, len(candidates))
	names := make([]string, len(candidates))
	for i, c := range candidates {
		if c.ID == "" {
			c = NewItem(c.Type, c.TargetID, c.TargetName)
			c.LogoURL = candidates[i].LogoURL
		}
		c.Percentage = 0
		c.State = StateFree
		added[i] = c
		names[i] = c.TargetName
	}

	proposed := make([]Item, 0, len(s.items)+len(added))
	for _, it := range s.items {
		proposed = append(proposed, *it)
	}
	proposed = append(proposed, added...)

	var unlockedIdx []int
	locked := 0
	for i := range proposed {
		if proposed[i].Locked() {
			locked += proposed[i].Percentage
		} else {
			unlockedIdx = append(unlockedIdx, i)
		}
	}
	target := 100 - locked
	if target < 0 {
		target = 0
	}
	if n := len(unlockedIdx); n > 0 {
		base := target / n
		for _, i := range unlockedIdx {
			proposed[i].Percentage = base
			proposed[i].State = StateFree
		}
		proposed[unlockedIdx[n-1]].Percentage += target % n
	}

	sug := &AddSuggestion{AddedNames: names, Proposed: proposed}
	s.pending = &pendingSuggestion{add: sug, added: added}
	return sug, nil
}

// PendingAdd returns the held add suggestion, if any.
func (s *Store) PendingAdd() *AddSuggestion {
	if s.pending == nil {
		return nil
	}
	return s.pending.add
}

// PendingRemoval returns the held removal suggestion, if any.
func (s *Store) PendingRemoval() *RemovalSuggestion {
	if s.pending == nil {
		return nil
	}
	return s.pending.removal
}

// Accept atomically replaces the allocation list with the pending
// suggestion's proposal. For a removal suggestion this performs the removal
// at the same time. Manual-edit markers are cleared from any unlocked item
// whose percentage changed as a result.
func (s *Store) Accept() error {
	if s.pending == nil {
		return common.ErrorNoPendingSuggestion
	}

	var proposed []Item
	if s.pending.add != nil {
		proposed = s.pending.add.Proposed
	} else {
		proposed = s.pending.removal.Proposed
	}

	prior := make(map[string]int, len(s.items))
	for _, it := range s.items {
		prior[it.TargetID] = it.Percentage
	}

	items := make([]Item, len(proposed))
	copy(items, proposed)
	for i := range items {
		if items[i].Locked() {
			continue
		}
		if was, ok := prior[items[i].TargetID]; !ok || was != items[i].Percentage {
			items[i].State = StateFree
		}
	}

	s.SetItems(items)
	return nil
}

// Decline resolves the pending suggestion without applying its
// redistribution. For an add suggestion the new items join the list at 0%
// and the donor is expected to hand-set their shares. For a removal
// suggestion the item is removed but the remaining percentages are kept, so
// the total drops below 100 and Unallocated() reflects the gap.
func (s *Store) Decline() error {
	if s.pending == nil {
		return common.ErrorNoPendingSuggestion
	}
	p := s.pending
	s.pending = nil

	if p.add != nil {
		for i := range p.added {
			it := p.added[i]
			s.items = append(s.items, &it)
		}
		return nil
	}

	if idx := s.indexOf(p.removedID); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	return nil
}

// Cancel discards the pending suggestion with no state change: the
// structural add or remove that produced it never happens.
func (s *Store) Cancel() {
	s.pending = nil
}
