package draft

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint hashes the logically relevant fields of the draft: amount,
// frequency, and the sorted set of type:targetId:percentage tuples. Two
// drafts with the same fingerprint are the same edit, regardless of item
// order, display metadata, or timestamps.
//
// The fingerprint is the causality token of the sync protocol: every
// persisted write stores it alongside the row, change notifications carry
// it, and the adapter re-hydrates only when an incoming token differs from
// the one it last wrote.
func (d *Draft) Fingerprint() string {
	tuples := make([]string, len(d.Items))
	for i, it := range d.Items {
		tuples[i] = fmt.Sprintf("%s:%s:%d", it.Type, it.TargetID, it.Percentage)
	}
	sort.Strings(tuples)

	canonical := fmt.Sprintf("%d|%s|%s", d.AmountCents, d.Frequency, strings.Join(tuples, ";"))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
