package session

import (
	"github.com/mobeets/instrumental-river-raid/internal/experiment"
	"github.com/mobeets/instrumental-river-raid/internal/sequence"
)

// Subject stands in for the participant: it picks an action for each cue and
// learns from the outcome.
type Subject interface {
	// BeginBlock is called whenever a new block is instantiated.
	BeginBlock(b *experiment.TrialBlock)
	// Choose returns the 1-based action to fire at cue.
	Choose(cue int) int
	// Feedback reports whether the action fired at cue was correct.
	Feedback(cue, action int, correct bool)
}

// OracleSubject always fires the correct action.
type OracleSubject struct {
	block *experiment.TrialBlock
}

func (s *OracleSubject) BeginBlock(b *experiment.TrialBlock) { s.block = b }

func (s *OracleSubject) Choose(cue int) int {
	if s.block == nil {
		return 1
	}
	return max(s.block.CorrectAction(cue), 1)
}

func (s *OracleSubject) Feedback(int, int, bool) {}

// RandomSubject fires uniformly random actions.
type RandomSubject struct {
	src      sequence.Source
	nactions int
}

// NewRandomSubject returns a subject drawing from src.
func NewRandomSubject(src sequence.Source) *RandomSubject {
	return &RandomSubject{src: src, nactions: 1}
}

func (s *RandomSubject) BeginBlock(b *experiment.TrialBlock) {
	s.nactions = max(b.R.NumActions(), 1)
}

func (s *RandomSubject) Choose(int) int { return s.src.Intn(s.nactions) + 1 }

func (s *RandomSubject) Feedback(int, int, bool) {}

// LearningSubject is a tabular epsilon-greedy learner. Its value table is
// cleared at every block since each block draws a new cue-action mapping.
type LearningSubject struct {
	Epsilon      float64
	LearningRate float64

	src      Rand
	nactions int
	values   map[int][]float64
}

// NewLearningSubject returns a learner exploring with probability 0.1.
func NewLearningSubject(src Rand) *LearningSubject {
	return &LearningSubject{Epsilon: 0.1, LearningRate: 0.5, src: src, nactions: 1}
}

func (s *LearningSubject) BeginBlock(b *experiment.TrialBlock) {
	s.nactions = max(b.R.NumActions(), 1)
	s.values = make(map[int][]float64)
}

func (s *LearningSubject) row(cue int) []float64 {
	if s.values == nil {
		s.values = make(map[int][]float64)
	}
	v, ok := s.values[cue]
	if !ok {
		v = make([]float64, s.nactions)
		s.values[cue] = v
	}
	return v
}

func (s *LearningSubject) Choose(cue int) int {
	if s.src.Float64() < s.Epsilon {
		return s.src.Intn(s.nactions) + 1
	}
	v := s.row(cue)
	best := []int{0}
	for a := 1; a < len(v); a++ {
		switch {
		case v[a] > v[best[0]]:
			best = []int{a}
		case v[a] == v[best[0]]:
			best = append(best, a)
		}
	}
	return best[s.src.Intn(len(best))] + 1
}

func (s *LearningSubject) Feedback(cue, action int, correct bool) {
	v := s.row(cue)
	if action < 1 || action > len(v) {
		return
	}
	reward := 0.0
	if correct {
		reward = 1
	}
	v[action-1] += s.LearningRate * (reward - v[action-1])
}

// Value returns the learned value of action for cue.
func (s *LearningSubject) Value(cue, action int) float64 {
	v := s.row(cue)
	if action < 1 || action > len(v) {
		return 0
	}
	return v[action-1]
}
