package pool_test

import (
	"testing"

	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
)

const benchCapacity = 4096

// BenchmarkPoolAllocateRelease measures one allocate/release pair on a half-full pool.
func BenchmarkPoolAllocateRelease(b *testing.B) {
	p := pool.New[[4]uint64](benchCapacity)

	for range benchCapacity / 2 {
		if _, err := p.Allocate(); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()

	for range b.N {
		ptr, err := p.Allocate()
		if err != nil {
			b.Fatal(err)
		}

		if err := p.Release(ptr); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPoolFillDrain measures filling the pool and releasing every slot.
func BenchmarkPoolFillDrain(b *testing.B) {
	p := pool.New[uint64](benchCapacity)
	ptrs := make([]*uint64, benchCapacity)

	b.ResetTimer()

	for range b.N {
		for i := range ptrs {
			ptr, err := p.Allocate()
			if err != nil {
				b.Fatal(err)
			}

			ptrs[i] = ptr
		}

		for _, ptr := range ptrs {
			if err := p.Release(ptr); err != nil {
				b.Fatal(err)
			}
		}
	}
}
