// Package container defines the capacity-independent view shared by every
// fixed-capacity container, so code can inspect or reset one without
// knowing its element type or size.
package container

// Container is implemented by every fixed-capacity container.
type Container interface {
	// Len returns the number of stored elements.
	Len() int
	// Cap returns the fixed capacity chosen at construction.
	Cap() int
	// Available returns Cap() - Len().
	Available() int
	Empty() bool
	Full() bool
	// Clear removes every element, returning all storage to the container.
	Clear()
}

// Usage summarises the fill state of a container.
type Usage struct {
	Len       int
	Cap       int
	Available int
}

// Ratio returns the filled fraction (0.0 to 1.0).
func (u Usage) Ratio() float64 {
	if u.Cap == 0 {
		return 0
	}

	return float64(u.Len) / float64(u.Cap)
}

// UsageOf captures the current usage of c.
func UsageOf(c Container) Usage {
	return Usage{Len: c.Len(), Cap: c.Cap(), Available: c.Available()}
}

// Drain clears every container in cs and returns the total number of
// elements removed.
func Drain(cs ...Container) int {
	total := 0

	for _, c := range cs {
		total += c.Len()
		c.Clear()
	}

	return total
}
