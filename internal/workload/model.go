package workload

import "slices"

// sortedModel is the reference the ordered set is checked against.
type sortedModel struct {
	keys []int
}

func (m *sortedModel) contains(k int) bool {
	_, found := slices.BinarySearch(m.keys, k)

	return found
}

func (m *sortedModel) insert(k int) bool {
	i, found := slices.BinarySearch(m.keys, k)
	if found {
		return false
	}

	m.keys = slices.Insert(m.keys, i, k)

	return true
}

func (m *sortedModel) erase(k int) bool {
	i, found := slices.BinarySearch(m.keys, k)
	if !found {
		return false
	}

	m.keys = slices.Delete(m.keys, i, i+1)

	return true
}

func (m *sortedModel) len() int { return len(m.keys) }

func (m *sortedModel) snapshot() []int { return slices.Clone(m.keys) }
