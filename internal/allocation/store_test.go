package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giveflow/giveflow/internal/common"
)

func addTargets(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.Add(TargetNonprofit, id, "Charity "+id))
	}
}

func percentagesByTarget(s *Store) map[string]int {
	out := make(map[string]int)
	for _, it := range s.Items() {
		out[it.TargetID] = it.Percentage
	}
	return out
}

func TestAdd_FirstItemGetsFullAllocation(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A")

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 100, items[0].Percentage)
	assert.True(t, s.IsBalanced())
}

func TestAdd_SecondItemSplitsEvenly(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")

	assert.Equal(t, map[string]int{"A": 50, "B": 50}, percentagesByTarget(s))
	assert.Equal(t, 100, s.Total())
}

func TestAdd_ThirdItemRemainderGoesToLast(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B", "C")

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, 33, items[0].Percentage)
	assert.Equal(t, 33, items[1].Percentage)
	assert.Equal(t, 34, items[2].Percentage)
	assert.Equal(t, 100, s.Total())
}

func TestAdd_RejectsDuplicateTarget(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A")

	err := s.Add(TargetNonprofit, "A", "Charity A")
	assert.True(t, errors.Is(err, common.ErrorDuplicateTarget))
	assert.Equal(t, 1, s.Len())
}

func TestAdd_RejectsBeyondMaxItems(t *testing.T) {
	s := NewStore()
	for i := 0; i < MaxItems; i++ {
		require.NoError(t, s.Add(TargetNonprofit, string(rune('a'+i)), "x"))
	}

	err := s.Add(TargetNonprofit, "overflow", "x")
	assert.True(t, errors.Is(err, common.ErrorMaxItems))
	assert.Equal(t, MaxItems, s.Len())
}

func TestAdd_LockedItemsKeepTheirShare(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	require.NoError(t, s.ToggleLock("A")) // A frozen at 50

	addTargets(t, s, "C")

	got := percentagesByTarget(s)
	assert.Equal(t, 50, got["A"])
	assert.Equal(t, 25, got["B"])
	assert.Equal(t, 25, got["C"])
	assert.Equal(t, 100, s.Total())
}

func TestSetPercentage_ClampsAndMarksManual(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	id := s.Items()[0].ID

	require.NoError(t, s.SetPercentage(id, 250))
	assert.Equal(t, 100, s.Items()[0].Percentage)
	assert.Equal(t, StateManual, s.Items()[0].State)

	require.NoError(t, s.SetPercentage(id, -5))
	assert.Equal(t, 0, s.Items()[0].Percentage)
}

func TestSetPercentage_TransientOverAllocationIsSurfacedNotRejected(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	id := s.Items()[0].ID

	require.NoError(t, s.SetPercentage(id, 90))
	assert.Equal(t, 140, s.Total())
	assert.Equal(t, -40, s.Unallocated())
	assert.False(t, s.IsBalanced())
}

func TestSetPercentage_NoopOnLockedItem(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	require.NoError(t, s.ToggleLock("A"))
	id := s.Items()[0].ID

	require.NoError(t, s.SetPercentage(id, 10))
	assert.Equal(t, 50, s.Items()[0].Percentage)
	assert.Equal(t, StateLocked, s.Items()[0].State)
}

func TestStepPercentage_NudgesByDelta(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	id := s.Items()[1].ID

	require.NoError(t, s.StepPercentage(id, 1))
	require.NoError(t, s.StepPercentage(id, 1))
	require.NoError(t, s.StepPercentage(id, -1))
	assert.Equal(t, 51, s.Items()[1].Percentage)
}

func TestToggleLock_RefusesLockingEveryItem(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	require.NoError(t, s.ToggleLock("A"))

	err := s.ToggleLock("B")
	assert.True(t, errors.Is(err, common.ErrorAllLocked))
	assert.Equal(t, StateFree, s.Items()[1].State)
}

func TestToggleLock_SingleItemMayBeLocked(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A")

	require.NoError(t, s.ToggleLock("A"))
	assert.Equal(t, StateLocked, s.Items()[0].State)

	require.NoError(t, s.ToggleLock("A"))
	assert.Equal(t, StateFree, s.Items()[0].State)
}

func TestAutoBalance_FreeItemsAbsorbCorrection(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B", "C") // 33/33/34
	idA := s.Items()[0].ID

	require.NoError(t, s.SetPercentage(idA, 60)) // total 127, A manual

	s.AutoBalance()

	got := percentagesByTarget(s)
	assert.Equal(t, 60, got["A"], "manually set item held")
	assert.Equal(t, 100, s.Total())
	assert.Equal(t, StateManual, s.Items()[0].State)
}

func TestAutoBalance_FallsBackToProportionalWhenAllManual(t *testing.T) {
	// Mirrors the locked-plus-manual scenario: A locked at 40, B and C both
	// hand-set (50 and 30, total 120). No free item can absorb the
	// correction, so all unlocked items rescale proportionally to the
	// remaining 60: B = round(50*60/80) = 38, C absorbs 22.
	s := NewStore()
	s.SetItems([]Item{
		{Type: TargetNonprofit, TargetID: "A", TargetName: "A", Percentage: 40, State: StateLocked},
		{Type: TargetNonprofit, TargetID: "B", TargetName: "B", Percentage: 50, State: StateManual},
		{Type: TargetNonprofit, TargetID: "C", TargetName: "C", Percentage: 30, State: StateManual},
	})

	s.AutoBalance()

	got := percentagesByTarget(s)
	assert.Equal(t, 40, got["A"])
	assert.Equal(t, 38, got["B"])
	assert.Equal(t, 22, got["C"])
	assert.Equal(t, 100, s.Total())

	// fallback clears the manual markers
	for _, it := range s.Items() {
		if it.TargetID != "A" {
			assert.Equal(t, StateFree, it.State)
		}
	}
}

func TestAutoBalance_AllManualWithZeroLastItemStaysNonNegative(t *testing.T) {
	// D locked at 1 leaves 99 for the manual group A=50/B=50/C=0. Half-up
	// rounding assigns 50+50 to A and B, so C's residual would be -1 without
	// the clamp; instead the largest leading share gives the point back.
	s := NewStore()
	s.SetItems([]Item{
		{Type: TargetNonprofit, TargetID: "A", TargetName: "A", Percentage: 50, State: StateManual},
		{Type: TargetNonprofit, TargetID: "B", TargetName: "B", Percentage: 50, State: StateManual},
		{Type: TargetNonprofit, TargetID: "C", TargetName: "C", Percentage: 0, State: StateManual},
		{Type: TargetNonprofit, TargetID: "D", TargetName: "D", Percentage: 1, State: StateLocked},
	})

	s.AutoBalance()

	got := percentagesByTarget(s)
	assert.Equal(t, 49, got["A"])
	assert.Equal(t, 50, got["B"])
	assert.Equal(t, 0, got["C"])
	assert.Equal(t, 1, got["D"])
	assert.Equal(t, 100, s.Total())
	for _, it := range s.Items() {
		assert.GreaterOrEqual(t, it.Percentage, 0)
	}
}

func TestAutoBalance_LockedPercentagesNeverMove(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B", "C")
	require.NoError(t, s.ToggleLock("B"))
	lockedBefore := percentagesByTarget(s)["B"]

	idA := s.Items()[0].ID
	require.NoError(t, s.SetPercentage(idA, 90))
	s.AutoBalance()
	addTargets(t, s, "D")
	s.AutoBalance()

	assert.Equal(t, lockedBefore, percentagesByTarget(s)["B"])
	assert.Equal(t, 100, s.Total())
}

func TestRemove_LastItemEmptiesListDirectly(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A")
	id := s.Items()[0].ID

	sug, err := s.Remove(id)
	require.NoError(t, err)
	assert.Nil(t, sug)
	assert.Equal(t, 0, s.Len())
}

func TestRemove_ZeroPercentItemRemovedImmediately(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	idB := s.Items()[1].ID
	require.NoError(t, s.SetPercentage(idB, 0))

	sug, err := s.Remove(idB)
	require.NoError(t, err)
	assert.Nil(t, sug)
	assert.Equal(t, 1, s.Len())
}

func TestRemove_RefusedWhenOnlyLockedItemsWouldRemain(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B") // 50/50
	idA := s.Items()[0].ID
	require.NoError(t, s.SetPercentage(idA, 60))
	require.NoError(t, s.ToggleLock("B"))

	_, err := s.Remove(idA)
	assert.True(t, errors.Is(err, common.ErrorCannotRedistribute))
	assert.Equal(t, 2, s.Len(), "refused removal leaves the list intact")
}

func TestRemove_UnlockAllEscapeHatch(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B")
	idA := s.Items()[0].ID
	require.NoError(t, s.ToggleLock("B"))

	_, err := s.Remove(idA)
	require.True(t, errors.Is(err, common.ErrorCannotRedistribute))

	s.UnlockAll()
	sug, err := s.Remove(idA)
	require.NoError(t, err)
	require.NotNil(t, sug)
}

func TestUnlockAll_OnlyReleasesLocks(t *testing.T) {
	s := NewStore()
	addTargets(t, s, "A", "B", "C")
	require.NoError(t, s.ToggleLock("A"))
	idB := s.Items()[1].ID
	require.NoError(t, s.SetPercentage(idB, 20))

	s.UnlockAll()

	assert.Equal(t, StateFree, s.Items()[0].State)
	assert.Equal(t, StateManual, s.Items()[1].State)
}

func TestSetItems_AssignsIDsAndDefaultsState(t *testing.T) {
	s := NewStore()
	s.SetItems([]Item{
		{Type: TargetNonprofit, TargetID: "A", TargetName: "A", Percentage: 70},
		{Type: TargetCategory, TargetID: "cat-1", TargetName: "Education", Percentage: 30},
	})

	for _, it := range s.Items() {
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, StateFree, it.State)
	}
	assert.Equal(t, 100, s.Total())
}
