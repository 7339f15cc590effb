// Package safeconv converts between the index types used by slot-addressed
// containers, panicking where a conversion would silently wrap.
package safeconv

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustUintToInt converts a bit position or count to an int slot index.
// It panics on overflow.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// MustIntToUint converts an int slot index to a bit position.
// It panics if v is negative.
func MustIntToUint(v int) uint {
	if v < 0 {
		panic("safeconv: negative int to uint conversion")
	}

	return uint(v)
}

// MustUintptrToInt converts an address offset to an int.
// It panics on overflow.
func MustUintptrToInt(v uintptr) int {
	if uint64(v) > uint64(MaxInt) {
		panic("safeconv: uintptr to int overflow")
	}

	return int(v)
}
