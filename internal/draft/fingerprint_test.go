package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giveflow/giveflow/internal/allocation"
)

func testDraft() *Draft {
	return &Draft{
		UserID:      "user-1",
		AmountCents: 5000,
		Frequency:   FrequencyMonthly,
		Items: []Item{
			{Type: allocation.TargetNonprofit, TargetID: "A", TargetName: "Charity A", Percentage: 60},
			{Type: allocation.TargetCategory, TargetID: "cat-1", TargetName: "Education", Percentage: 40},
		},
	}
}

func TestFingerprint_StableAcrossItemOrder(t *testing.T) {
	a := testDraft()
	b := testDraft()
	b.Items[0], b.Items[1] = b.Items[1], b.Items[0]

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_IgnoresDisplayMetadata(t *testing.T) {
	a := testDraft()
	b := testDraft()
	b.Items[0].TargetName = "renamed"
	b.Items[0].LogoURL = "https://cdn.example.org/logo.png"

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_ChangesWithLogicalFields(t *testing.T) {
	base := testDraft()

	amount := testDraft()
	amount.AmountCents = 9900
	assert.NotEqual(t, base.Fingerprint(), amount.Fingerprint())

	freq := testDraft()
	freq.Frequency = FrequencyAnnually
	assert.NotEqual(t, base.Fingerprint(), freq.Fingerprint())

	pct := testDraft()
	pct.Items[0].Percentage = 61
	pct.Items[1].Percentage = 39
	assert.NotEqual(t, base.Fingerprint(), pct.Fingerprint())
}

func TestFromAllocation_CarriesLocks(t *testing.T) {
	items := []allocation.Item{
		{ID: "l1", Type: allocation.TargetNonprofit, TargetID: "A", TargetName: "A", Percentage: 70, State: allocation.StateLocked},
		{ID: "l2", Type: allocation.TargetNonprofit, TargetID: "B", TargetName: "B", Percentage: 30, State: allocation.StateManual},
	}

	d := FromAllocation("user-1", 2500, FrequencyOneTime, items)

	assert.Equal(t, []string{"A"}, d.LockedIDs)
	assert.Len(t, d.Items, 2)
}

func TestAllocationRoundTrip(t *testing.T) {
	store := allocation.NewStore()
	for _, id := range []string{"A", "B", "C"} {
		assert.NoError(t, store.Add(allocation.TargetNonprofit, id, "Charity "+id))
	}
	assert.NoError(t, store.ToggleLock("B"))

	d := FromAllocation("user-1", 1000, FrequencyQuarterly, store.Items())
	restored := d.AllocationItems()

	assert.Len(t, restored, 3)
	type key struct {
		Type       allocation.TargetType
		TargetID   string
		Percentage int
	}
	want := make(map[key]struct{})
	for _, it := range store.Items() {
		want[key{it.Type, it.TargetID, it.Percentage}] = struct{}{}
	}
	for _, it := range restored {
		_, ok := want[key{it.Type, it.TargetID, it.Percentage}]
		assert.True(t, ok, "restored item %v not in original", it)
		if it.TargetID == "B" {
			assert.Equal(t, allocation.StateLocked, it.State)
		} else {
			assert.Equal(t, allocation.StateFree, it.State)
		}
		assert.NotEmpty(t, it.ID, "fresh local id assigned")
	}
}

func TestFrequency_Valid(t *testing.T) {
	for _, f := range []Frequency{FrequencyOneTime, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually} {
		assert.True(t, f.Valid())
	}
	assert.False(t, Frequency("weekly").Valid())
	assert.False(t, Frequency("").Valid())
}
