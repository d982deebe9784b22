package allocation

import "math"

// evenShares splits target into n non-negative integer shares that sum to
// exactly target: floor(target/n) each, with the division remainder assigned
// to the first share.
func evenShares(target, n int) []int {
	shares := make([]int, n)
	if n == 0 {
		return shares
	}
	base := target / n
	for i := range shares {
		shares[i] = base
	}
	shares[0] += target % n
	return shares
}

// scaleShares rescales current so the result sums to exactly target while
// preserving the relative proportions of the inputs. A zero-total group is
// split evenly (remainder to the first share); otherwise every share but the
// last is rounded and the last absorbs the residual, so cumulative rounding
// can never drift the group total away from target. When half-up rounding
// over-assigns and the residual goes negative, the last share is held at
// zero and the excess is taken back from the largest preceding shares, so
// every share stays within [0, target].
func scaleShares(current []int, target int) []int {
	n := len(current)
	if n == 0 {
		return nil
	}

	total := 0
	for _, p := range current {
		total += p
	}
	if total == 0 {
		return evenShares(target, n)
	}

	shares := make([]int, n)
	assigned := 0
	for i := 0; i < n-1; i++ {
		shares[i] = int(math.Round(float64(current[i]) * float64(target) / float64(total)))
		assigned += shares[i]
	}
	last := target - assigned
	for last < 0 {
		j := 0
		for i := 1; i < n-1; i++ {
			if shares[i] > shares[j] {
				j = i
			}
		}
		shares[j]--
		last++
	}
	shares[n-1] = last
	return shares
}

// lockedTotal sums the percentages of locked items.
func lockedTotal(items []*Item) int {
	total := 0
	for _, it := range items {
		if it.Locked() {
			total += it.Percentage
		}
	}
	return total
}

// applyShares writes shares onto the given items in order. len(shares) must
// equal len(items).
func applyShares(items []*Item, shares []int) {
	for i, it := range items {
		it.Percentage = shares[i]
	}
}
