package sequence

import "fmt"

// Matrix is a binary ncues x nactions reward matrix. Row k has a single 1 in
// the column of the action that is correct for cue k+1.
type Matrix [][]int

// RandomAssignmentMatrix builds a reward matrix with exactly one correct
// action per cue.
//
// With balanced unset each row picks its column independently and uniformly,
// so some actions may never be correct. With balanced set (the max-entropy
// policy) the rows are drawn from stacked identity matrices: the first ncues
// rows of ceil(ncues/nactions) copies of the nactions x nactions identity,
// shuffled. That covers every action whenever ncues >= nactions; with fewer
// cues than actions some actions are necessarily left uncovered.
func RandomAssignmentMatrix(src Source, ncues, nactions int, balanced bool) (Matrix, error) {
	if nactions <= 0 {
		return nil, fmt.Errorf("random assignment matrix: %w: %d", ErrInvalidActionCount, nactions)
	}
	if ncues < 0 {
		return nil, fmt.Errorf("random assignment matrix: %w: %d", ErrInvalidCueCount, ncues)
	}
	if ncues == 0 {
		return Matrix{}, nil
	}
	if balanced {
		return balancedOneHot(src, ncues, nactions), nil
	}

	m := make(Matrix, ncues)
	for i := range m {
		m[i] = oneHot(nactions, src.Intn(nactions))
	}
	return m, nil
}

func balancedOneHot(src Source, rows, cols int) Matrix {
	copies := (rows + cols - 1) / cols

	stacked := make(Matrix, 0, copies*cols)
	for n := 0; n < copies; n++ {
		for i := 0; i < cols; i++ {
			stacked = append(stacked, oneHot(cols, i))
		}
	}

	m := stacked[:rows]
	Shuffle(src, m)
	return m
}

func oneHot(n, hot int) []int {
	row := make([]int, n)
	row[hot] = 1
	return row
}

// NumActions returns the column count, or 0 for an empty matrix.
func (m Matrix) NumActions() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// CorrectAction returns the 1-based action that is correct for the 1-based
// cue, or 0 if the cue is out of range.
func (m Matrix) CorrectAction(cue int) int {
	if cue < 1 || cue > len(m) {
		return 0
	}
	for a, v := range m[cue-1] {
		if v == 1 {
			return a + 1
		}
	}
	return 0
}

// RowSums returns the sum of each row.
func (m Matrix) RowSums() []int {
	sums := make([]int, len(m))
	for i, row := range m {
		for _, v := range row {
			sums[i] += v
		}
	}
	return sums
}

// ColumnCounts returns, per action, how many cues it is correct for.
func (m Matrix) ColumnCounts() []int {
	counts := make([]int, m.NumActions())
	for _, row := range m {
		for a, v := range row {
			counts[a] += v
		}
	}
	return counts
}

// Covers reports whether every action is correct for at least one cue.
func (m Matrix) Covers() bool {
	counts := m.ColumnCounts()
	if len(counts) == 0 {
		return false
	}
	for _, c := range counts {
		if c == 0 {
			return false
		}
	}
	return true
}
