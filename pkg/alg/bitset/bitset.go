// Package bitset provides a fixed-width bit vector used to track which slots
// of a fixed-capacity container are in use.
//
// The width is set once at construction and never changes. Positions at or
// beyond the width are ignored by mutators and read as clear.
package bitset

import (
	"iter"
	"math"
	"math/bits"
)

// NotFound is returned by the search methods when no bit matches.
const NotFound = math.MaxUint

const (
	wordBits  = 64
	wordShift = 6
	wordMask  = wordBits - 1
	allOnes   = ^uint64(0)
)

// Tracker is a fixed-width bit vector. The zero value has width 0.
type Tracker struct {
	words []uint64
	size  uint
}

// New returns a Tracker of width size with every bit clear.
func New(size uint) *Tracker {
	return &Tracker{
		words: make([]uint64, wordsFor(size)),
		size:  size,
	}
}

func wordsFor(size uint) uint {
	return (size + wordMask) >> wordShift
}

// Size returns the width of the tracker in bits.
func (t *Tracker) Size() uint {
	return t.size
}

// Set sets the bit at pos. Out-of-range positions are ignored.
func (t *Tracker) Set(pos uint) {
	if pos >= t.size {
		return
	}

	t.words[pos>>wordShift] |= 1 << (pos & wordMask)
}

// Reset clears the bit at pos. Out-of-range positions are ignored.
func (t *Tracker) Reset(pos uint) {
	if pos >= t.size {
		return
	}

	t.words[pos>>wordShift] &^= 1 << (pos & wordMask)
}

// Test reports whether the bit at pos is set.
func (t *Tracker) Test(pos uint) bool {
	if pos >= t.size {
		return false
	}

	return t.words[pos>>wordShift]&(1<<(pos&wordMask)) != 0
}

// SetAll sets every bit within the width.
func (t *Tracker) SetAll() {
	for i := range t.words {
		t.words[i] = allOnes
	}

	t.clearTail()
}

// ResetAll clears every bit.
func (t *Tracker) ResetAll() {
	clear(t.words)
}

// Flip inverts every bit within the width.
func (t *Tracker) Flip() {
	for i := range t.words {
		t.words[i] = ^t.words[i]
	}

	t.clearTail()
}

// clearTail zeroes the unused high bits of the last word.
func (t *Tracker) clearTail() {
	if rem := t.size & wordMask; rem != 0 {
		t.words[len(t.words)-1] &= topMask(rem)
	}
}

// topMask returns a mask of the low n bits.
func topMask(n uint) uint64 {
	return allOnes >> (wordBits - n)
}

// Count returns the number of set bits.
func (t *Tracker) Count() uint {
	var n int

	for _, w := range t.words {
		n += bits.OnesCount64(w)
	}

	return uint(n) //nolint:gosec // popcount is never negative.
}

// Any reports whether at least one bit is set.
func (t *Tracker) Any() bool {
	for _, w := range t.words {
		if w != 0 {
			return true
		}
	}

	return false
}

// None reports whether no bit is set.
func (t *Tracker) None() bool {
	return !t.Any()
}

// FindFirst returns the lowest position whose bit equals state, or NotFound.
func (t *Tracker) FindFirst(state bool) uint {
	return t.FindNext(state, 0)
}

// FindNext returns the lowest position >= from whose bit equals state,
// or NotFound. Whole words that cannot hold a match are skipped.
func (t *Tracker) FindNext(state bool, from uint) uint {
	if from >= t.size {
		return NotFound
	}

	wi := from >> wordShift
	w := t.load(wi, state) &^ topMask(from&wordMask)

	for {
		if w != 0 {
			pos := wi<<wordShift + uint(bits.TrailingZeros64(w)) //nolint:gosec // 0..64.
			if pos >= t.size {
				return NotFound
			}

			return pos
		}

		wi++
		if wi >= uint(len(t.words)) {
			return NotFound
		}

		w = t.load(wi, state)
	}
}

// load returns word wi arranged so that matching bits read as ones.
func (t *Tracker) load(wi uint, state bool) uint64 {
	if state {
		return t.words[wi]
	}

	return ^t.words[wi]
}

// All iterates the positions of set bits in increasing order.
func (t *Tracker) All() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		for i := t.FindFirst(true); i != NotFound; i = t.FindNext(true, i+1) {
			if !yield(i) {
				return
			}
		}
	}
}
