package sequence_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobeets/instrumental-river-raid/internal/sequence"
)

// identitySource always picks the current position, so Fisher-Yates leaves
// its input untouched.
type identitySource struct{}

func (identitySource) Intn(n int) int { return n - 1 }

// zeroSource always picks index 0.
type zeroSource struct{}

func (zeroSource) Intn(int) int { return 0 }

// ---------------------------------------------------------------------------
// Shuffle
// ---------------------------------------------------------------------------

func TestShuffleIdentitySourceKeepsOrder(t *testing.T) {
	xs := []int{1, 2, 3, 4, 5}
	sequence.Shuffle(identitySource{}, xs)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, xs)
}

func TestShuffleZeroSourceRotates(t *testing.T) {
	xs := []int{1, 2, 3, 4}
	sequence.Shuffle(zeroSource{}, xs)
	// i=3 swaps with 0 -> 4 2 3 1; i=2 -> 3 2 4 1; i=1 -> 2 3 4 1
	assert.Equal(t, []int{2, 3, 4, 1}, xs)
}

func TestShuffleIsUniformOverPermutations(t *testing.T) {
	rng, _ := sequence.NewSeededRand(42)
	counts := map[[3]int]int{}
	const n = 60000
	for i := 0; i < n; i++ {
		xs := []int{1, 2, 3}
		sequence.Shuffle(rng, xs)
		counts[[3]int{xs[0], xs[1], xs[2]}]++
	}
	require.Len(t, counts, 6)
	for perm, c := range counts {
		assert.InDelta(t, n/6, c, 600, "permutation %v", perm)
	}
}

func TestNewSeededRandReturnsSeedUsed(t *testing.T) {
	_, seed := sequence.NewSeededRand(7)
	assert.Equal(t, int64(7), seed)

	_, seed = sequence.NewSeededRand(0)
	assert.NotZero(t, seed)
}

func TestNewSeededRandIsReproducible(t *testing.T) {
	a, _ := sequence.NewSeededRand(99)
	b, _ := sequence.NewSeededRand(99)
	xa, err := sequence.MakeCueSequence(a, 5, 4)
	require.NoError(t, err)
	xb, err := sequence.MakeCueSequence(b, 5, 4)
	require.NoError(t, err)
	assert.Equal(t, xa, xb)
}

// ---------------------------------------------------------------------------
// MakeCueSequence
// ---------------------------------------------------------------------------

func TestMakeCueSequenceBalance(t *testing.T) {
	rng, _ := sequence.NewSeededRand(3)
	for ncues := 1; ncues <= 6; ncues++ {
		for reps := 0; reps <= 10; reps++ {
			xs, err := sequence.MakeCueSequence(rng, ncues, reps)
			require.NoError(t, err)
			require.Len(t, xs, ncues*reps)

			counts := make(map[int]int)
			for _, x := range xs {
				counts[x]++
			}
			for cue := 1; cue <= ncues; cue++ {
				assert.Equal(t, reps, counts[cue], "ncues=%d reps=%d cue=%d", ncues, reps, cue)
			}

			for start := 0; start < len(xs); start += ncues {
				window := append([]int(nil), xs[start:start+ncues]...)
				sort.Ints(window)
				for i, v := range window {
					assert.Equal(t, i+1, v)
				}
			}
		}
	}
}

func TestMakeCueSequenceIdentitySource(t *testing.T) {
	xs, err := sequence.MakeCueSequence(identitySource{}, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, xs)
}

func TestMakeCueSequenceZero(t *testing.T) {
	xs, err := sequence.MakeCueSequence(identitySource{}, 0, 5)
	require.NoError(t, err)
	assert.Empty(t, xs)
}

func TestMakeCueSequenceRejectsNegative(t *testing.T) {
	_, err := sequence.MakeCueSequence(identitySource{}, -1, 2)
	assert.ErrorIs(t, err, sequence.ErrInvalidCueCount)

	_, err = sequence.MakeCueSequence(identitySource{}, 2, -1)
	assert.ErrorIs(t, err, sequence.ErrInvalidTrialCount)
}

// ---------------------------------------------------------------------------
// RandomAssignmentMatrix
// ---------------------------------------------------------------------------

func TestRandomAssignmentMatrixRowsSumToOne(t *testing.T) {
	rng, _ := sequence.NewSeededRand(11)
	for _, balanced := range []bool{false, true} {
		for ncues := 1; ncues <= 8; ncues++ {
			for nactions := 1; nactions <= 4; nactions++ {
				m, err := sequence.RandomAssignmentMatrix(rng, ncues, nactions, balanced)
				require.NoError(t, err)
				require.Len(t, m, ncues)
				for i, sum := range m.RowSums() {
					assert.Equal(t, 1, sum, "balanced=%v ncues=%d nactions=%d row=%d", balanced, ncues, nactions, i)
				}
				for _, row := range m {
					assert.Len(t, row, nactions)
				}
			}
		}
	}
}

func TestRandomAssignmentMatrixBalancedCoverage(t *testing.T) {
	rng, _ := sequence.NewSeededRand(5)
	for trial := 0; trial < 50; trial++ {
		for nactions := 1; nactions <= 4; nactions++ {
			for ncues := nactions; ncues <= 9; ncues++ {
				m, err := sequence.RandomAssignmentMatrix(rng, ncues, nactions, true)
				require.NoError(t, err)
				assert.True(t, m.Covers(), "ncues=%d nactions=%d matrix=%v", ncues, nactions, m)
			}
		}
	}
}

func TestRandomAssignmentMatrixFiveByTwo(t *testing.T) {
	rng, _ := sequence.NewSeededRand(1)
	m, err := sequence.RandomAssignmentMatrix(rng, 5, 2, true)
	require.NoError(t, err)
	require.Len(t, m, 5)

	counts := m.ColumnCounts()
	assert.GreaterOrEqual(t, counts[0], 1)
	assert.GreaterOrEqual(t, counts[1], 1)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, m.RowSums())
}

func TestRandomAssignmentMatrixFewerCuesThanActions(t *testing.T) {
	m, err := sequence.RandomAssignmentMatrix(identitySource{}, 2, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0}, m.ColumnCounts())
	assert.False(t, m.Covers())
}

func TestRandomAssignmentMatrixUnbalancedUsesSource(t *testing.T) {
	m, err := sequence.RandomAssignmentMatrix(zeroSource{}, 3, 3, false)
	require.NoError(t, err)
	assert.Equal(t, sequence.Matrix{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}}, m)
	assert.False(t, m.Covers())
}

func TestRandomAssignmentMatrixEdgeCases(t *testing.T) {
	m, err := sequence.RandomAssignmentMatrix(identitySource{}, 0, 3, true)
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = sequence.RandomAssignmentMatrix(identitySource{}, 3, 0, true)
	assert.ErrorIs(t, err, sequence.ErrInvalidActionCount)

	_, err = sequence.RandomAssignmentMatrix(identitySource{}, 3, -2, false)
	assert.ErrorIs(t, err, sequence.ErrInvalidActionCount)

	_, err = sequence.RandomAssignmentMatrix(identitySource{}, -1, 2, false)
	assert.ErrorIs(t, err, sequence.ErrInvalidCueCount)
}

func TestMatrixCorrectAction(t *testing.T) {
	m := sequence.Matrix{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}}
	assert.Equal(t, 2, m.CorrectAction(1))
	assert.Equal(t, 3, m.CorrectAction(2))
	assert.Equal(t, 1, m.CorrectAction(3))
	assert.Equal(t, 0, m.CorrectAction(0))
	assert.Equal(t, 0, m.CorrectAction(4))
	assert.Equal(t, 3, m.NumActions())
	assert.Equal(t, 0, sequence.Matrix{}.NumActions())
}
