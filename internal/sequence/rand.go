// Package sequence builds the pseudorandom structure of a trial block: the
// balanced cue ordering and the cue-to-action reward matrix.
//
// Every function takes its randomness from an injected Source so sessions can
// be replayed from a recorded seed and tests can pin the shuffle outcome.
package sequence

import (
	"math/rand"
	"time"
)

// Source is the random index generator used by every shuffle in this package.
// Intn must return a value in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NewSeededRand creates a seeded generator. A zero seed is replaced with one
// derived from the clock; the seed actually used is returned so it can be
// written into the session artifact.
func NewSeededRand(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// Shuffle permutes xs in place with Fisher-Yates. Position i, counting down
// from the end, is swapped with an index drawn from [0, i].
func Shuffle[T any](src Source, xs []T) {
	for i := len(xs) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}
