package ordered //nolint:testpackage // tests inspect node leans and links directly.

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// modelCapacity is the node budget for randomized cross-checks.
	modelCapacity = 256

	// modelKeySpace keeps collisions frequent so duplicates and misses occur.
	modelKeySpace = 400

	// modelSteps is the number of random operations per seed.
	modelSteps = 4000
)

func newIntTree(capacity int) *Tree[int, int] {
	return NewTree(capacity, func(k *int) int { return *k }, cmp.Less[int])
}

func keys(t *Tree[int, int]) []int {
	out := make([]int, 0, t.Len())

	for k := range t.All() {
		out = append(out, *k)
	}

	return out
}

func TestTree_SingleRotation(t *testing.T) {
	t.Parallel()

	tr := newIntTree(3)

	for _, k := range []int{1, 2, 3} {
		_, ok, err := tr.Insert(k)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NotNil(t, tr.root)
	assert.Equal(t, 2, tr.root.value)
	assert.Equal(t, 1, tr.root.children[left].value)
	assert.Equal(t, 3, tr.root.children[right].value)
	assert.Equal(t, neither, tr.root.weight)
	require.NoError(t, tr.Validate())
}

func TestTree_DoubleRotation(t *testing.T) {
	t.Parallel()

	tr := newIntTree(3)

	for _, k := range []int{3, 1, 2} {
		_, _, err := tr.Insert(k)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, tr.root.value)
	assert.Equal(t, 2, tr.Height())
	require.NoError(t, tr.Validate())
}

func TestTree_LeansAfterInsert(t *testing.T) {
	t.Parallel()

	tr := newIntTree(4)

	for _, k := range []int{5, 3, 8, 1} {
		_, _, err := tr.Insert(k)
		require.NoError(t, err)
	}

	assert.Equal(t, left, tr.root.weight)
	assert.Equal(t, left, tr.root.children[left].weight)
	assert.Equal(t, neither, tr.root.children[right].weight)
	require.NoError(t, tr.Validate())
}

func TestTree_EraseRootWithTwoChildren(t *testing.T) {
	t.Parallel()

	tr := newIntTree(7)

	for _, k := range []int{4, 2, 6, 1, 3, 5, 7} {
		_, _, err := tr.Insert(k)
		require.NoError(t, err)
	}

	require.True(t, tr.Erase(4))
	require.NoError(t, tr.Validate())
	assert.Equal(t, 3, tr.root.value)
	assert.Equal(t, []int{1, 2, 3, 5, 6, 7}, keys(tr))

	for _, k := range []int{3, 2, 1} {
		require.True(t, tr.Erase(k))
		require.NoError(t, tr.Validate())
	}

	assert.Equal(t, []int{5, 6, 7}, keys(tr))
}

func TestTree_EraseTriggersRotationAtTarget(t *testing.T) {
	t.Parallel()

	tr := newIntTree(16)

	for _, k := range []int{8, 4, 12, 2, 6, 10, 14, 1, 3, 5, 7, 9} {
		_, _, err := tr.Insert(k)
		require.NoError(t, err)
	}

	for _, k := range []int{14, 12, 8, 4} {
		require.True(t, tr.Erase(k), "erase %d", k)
		require.NoError(t, tr.Validate(), "after erasing %d", k)
	}

	assert.Equal(t, []int{1, 2, 3, 5, 6, 7, 9, 10}, keys(tr))
}

func TestTree_FindParentAndSteps(t *testing.T) {
	t.Parallel()

	tr := newIntTree(7)

	for _, k := range []int{4, 2, 6, 1, 3, 5, 7} {
		_, _, err := tr.Insert(k)
		require.NoError(t, err)
	}

	assert.Nil(t, tr.findParent(tr.root))
	assert.Same(t, tr.root, tr.findParent(tr.root.children[left]))
	assert.Same(t, tr.root.children[left], tr.findParent(tr.root.children[left].children[right]))

	three := tr.find(3)
	assert.Equal(t, 4, tr.next(three).value)
	assert.Equal(t, 2, tr.prev(three).value)
	assert.Nil(t, tr.next(tr.find(7)))
	assert.Nil(t, tr.prev(tr.find(1)))
	assert.Equal(t, 7, tr.prev(nil).value)
}

func TestTree_DuplicateDoesNotConsumeNode(t *testing.T) {
	t.Parallel()

	tr := newIntTree(1)

	_, ok, err := tr.Insert(9)
	require.NoError(t, err)
	require.True(t, ok)

	it, ok, err := tr.Insert(9)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 9, *it.Item())
	assert.Equal(t, int64(1), tr.Stats().Allocations)
}

func TestTree_ValidateDetectsCorruption(t *testing.T) {
	t.Parallel()

	tr := newIntTree(3)

	for _, k := range []int{2, 1, 3} {
		_, _, err := tr.Insert(k)
		require.NoError(t, err)
	}

	tr.root.weight = left
	require.ErrorIs(t, tr.Validate(), ErrCorrupted)

	tr.root.weight = neither
	tr.root.children[left].value = 5
	require.ErrorIs(t, tr.Validate(), ErrCorrupted)

	tr.root.children[left].value = 1
	tr.size = 2
	require.ErrorIs(t, tr.Validate(), ErrCorrupted)
}

// TestTree_MatchesSortedModel cross-checks random insert/erase sequences
// against a sorted slice, validating the full structure after every step.
func TestTree_MatchesSortedModel(t *testing.T) {
	t.Parallel()

	for seed := range uint64(8) {
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // deterministic test data.
		tr := newIntTree(modelCapacity)
		model := make([]int, 0, modelCapacity)

		for step := range modelSteps {
			k := rng.IntN(modelKeySpace)
			pos, present := slices.BinarySearch(model, k)

			if rng.IntN(3) == 0 {
				removed := tr.Erase(k)
				require.Equal(t, present, removed, "seed %d step %d erase %d", seed, step, k)

				if present {
					model = slices.Delete(model, pos, pos+1)
				}
			} else {
				_, inserted, err := tr.Insert(k)

				switch {
				case present:
					require.NoError(t, err)
					require.False(t, inserted)
				case len(model) == modelCapacity:
					require.Error(t, err)
				default:
					require.NoError(t, err)
					require.True(t, inserted)

					model = slices.Insert(model, pos, k)
				}
			}

			require.NoError(t, tr.Validate(), "seed %d step %d", seed, step)
			require.Equal(t, model, keys(tr), "seed %d step %d", seed, step)
		}

		for len(model) > 0 {
			i := rng.IntN(len(model))
			require.True(t, tr.Erase(model[i]))

			model = slices.Delete(model, i, i+1)

			require.NoError(t, tr.Validate())
		}

		assert.Nil(t, tr.root)
		assert.Equal(t, 0, tr.nodes.Len())
	}
}

// TestTree_IteratorStepsMatchModel walks forwards and backwards with
// re-descending steps and compares with the in-order walk.
func TestTree_IteratorStepsMatchModel(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11)) //nolint:gosec // deterministic test data.
	tr := newIntTree(modelCapacity)

	for range modelCapacity {
		_, _, err := tr.Insert(rng.IntN(modelKeySpace))
		require.NoError(t, err)
	}

	want := keys(tr)

	var forward []int
	for it := tr.Begin(); it.Valid(); it = it.Next() {
		forward = append(forward, *it.Item())
	}

	var backward []int
	for it := tr.Last(); it.Valid(); it = it.Prev() {
		backward = append(backward, *it.Item())
	}

	slices.Reverse(backward)

	assert.Equal(t, want, forward)
	assert.Equal(t, want, backward)
	assert.True(t, tr.End().Prev().Equal(tr.Last()))
}
