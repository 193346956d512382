package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCueCount indicates a negative number of cue identities.
	ErrInvalidCueCount = errors.New("cue count must be non-negative")

	// ErrInvalidTrialCount indicates a negative number of repetitions per cue.
	ErrInvalidTrialCount = errors.New("trials per cue must be non-negative")

	// ErrInvalidActionCount indicates a reward matrix with no columns.
	ErrInvalidActionCount = errors.New("action count must be positive")
)

// MakeCueSequence returns ncues*ntrialsPerCue cue identities. The result is
// ntrialsPerCue independently shuffled permutations of 1..ncues laid end to
// end, so every window of ncues trials starting at a multiple of ncues shows
// each cue exactly once.
func MakeCueSequence(src Source, ncues, ntrialsPerCue int) ([]int, error) {
	if ncues < 0 {
		return nil, fmt.Errorf("make cue sequence: %w: %d", ErrInvalidCueCount, ncues)
	}
	if ntrialsPerCue < 0 {
		return nil, fmt.Errorf("make cue sequence: %w: %d", ErrInvalidTrialCount, ntrialsPerCue)
	}

	xs := make([]int, 0, ncues*ntrialsPerCue)
	perm := make([]int, ncues)
	for rep := 0; rep < ntrialsPerCue; rep++ {
		for i := range perm {
			perm[i] = i + 1
		}
		Shuffle(src, perm)
		xs = append(xs, perm...)
	}
	return xs, nil
}
