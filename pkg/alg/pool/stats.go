package pool

// Stats holds pool usage counters.
type Stats struct {
	Allocations int64
	Releases    int64
	Failures    int64 // Exhaustion and invalid releases.
	Live        int
	Capacity    int
	HighWater   int // Largest Live value observed.
	SlotBytes   uint64
}

// Utilization returns the live fraction of capacity (0.0 to 1.0).
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}

	return float64(s.Live) / float64(s.Capacity)
}

// FootprintBytes returns the size of the backing array in bytes.
func (s Stats) FootprintBytes() uint64 {
	return uint64(s.Capacity) * s.SlotBytes //nolint:gosec // capacity is never negative.
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Allocations: p.allocations,
		Releases:    p.releases,
		Failures:    p.failures,
		Live:        p.allocated,
		Capacity:    len(p.slots),
		HighWater:   p.highWater,
		SlotBytes:   uint64(p.stride),
	}
}
