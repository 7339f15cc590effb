// Package budget estimates the memory held by fixed-capacity containers and
// plans which capacities fit within a memory limit.
package budget

// Size unit multipliers (binary, 1024-based).
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// Component sizes.
const (
	// WordBytes is the size of one occupancy bitset word.
	WordBytes = 8

	// WordBits is the number of slots tracked per bitset word.
	WordBits = 64

	// PoolOverhead is the fixed per-pool bookkeeping: slice headers for the
	// slot array and the tracker, the free hint and the counters.
	PoolOverhead = 128
)

// Footprint is the estimated memory held by one container of a given capacity.
type Footprint struct {
	Capacity  int
	SlotBytes uint64
	Slots     uint64 // Backing array.
	Tracker   uint64 // Occupancy bitset.
	Total     uint64
}

// Estimate returns the footprint of a pool holding capacity slots of
// slotBytes each. Negative capacities are treated as zero.
func Estimate(capacity int, slotBytes uint64) Footprint {
	n := uint64(max(capacity, 0))

	words := (n + WordBits - 1) / WordBits
	slots := n * slotBytes
	tracker := words * WordBytes

	return Footprint{
		Capacity:  capacity,
		SlotBytes: slotBytes,
		Slots:     slots,
		Tracker:   tracker,
		Total:     slots + tracker + PoolOverhead,
	}
}
