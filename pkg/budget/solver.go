package budget

import (
	"errors"
	"fmt"
)

// Solver errors.
var (
	// ErrBudgetTooSmall indicates no requested capacity fits the limit.
	ErrBudgetTooSmall = errors.New("memory budget is too small")

	// ErrZeroSlot indicates a slot size of zero bytes.
	ErrZeroSlot = errors.New("slot size must be positive")
)

// Plan splits requested capacities into those that fit the limit and those
// that do not. Order follows the request.
type Plan struct {
	Limit    uint64 // Zero means unlimited.
	Accepted []Footprint
	Rejected []Footprint
}

// Capacities returns the accepted capacities.
func (p Plan) Capacities() []int {
	out := make([]int, 0, len(p.Accepted))

	for _, fp := range p.Accepted {
		out = append(out, fp.Capacity)
	}

	return out
}

// Solve estimates every requested capacity and keeps the ones whose footprint
// does not exceed limit. A zero limit accepts everything.
func Solve(capacities []int, slotBytes, limit uint64) (Plan, error) {
	if slotBytes == 0 {
		return Plan{}, ErrZeroSlot
	}

	plan := Plan{Limit: limit}

	for _, c := range capacities {
		fp := Estimate(c, slotBytes)

		if limit != 0 && fp.Total > limit {
			plan.Rejected = append(plan.Rejected, fp)

			continue
		}

		plan.Accepted = append(plan.Accepted, fp)
	}

	if len(capacities) > 0 && len(plan.Accepted) == 0 {
		return plan, fmt.Errorf("%w: smallest request needs %d bytes, limit is %d",
			ErrBudgetTooSmall, smallest(plan.Rejected), limit)
	}

	return plan, nil
}

// MaxCapacity returns the largest capacity whose footprint fits limit.
func MaxCapacity(slotBytes, limit uint64) (int, error) {
	if slotBytes == 0 {
		return 0, ErrZeroSlot
	}

	if limit < PoolOverhead {
		return 0, ErrBudgetTooSmall
	}

	// Each slot costs slotBytes plus one bit of tracker, rounded per word.
	perWord := WordBits*slotBytes + WordBytes
	usable := limit - PoolOverhead

	n := (usable / perWord) * WordBits

	for {
		next := n + 1
		if Estimate(int(next), slotBytes).Total > limit { //nolint:gosec // bounded by limit/slotBytes.
			break
		}

		n = next
	}

	return int(n), nil //nolint:gosec // bounded by limit/slotBytes.
}

func smallest(fps []Footprint) uint64 {
	var low uint64

	for i, fp := range fps {
		if i == 0 || fp.Total < low {
			low = fp.Total
		}
	}

	return low
}
