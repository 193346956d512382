package experiment

import (
	"fmt"
	"slices"

	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
	"github.com/mobeets/instrumental-river-raid/internal/sequence"
)

// TrialBlock is one instantiation of a block configuration: a fixed cue
// sequence, a fixed cue-to-action mapping and the trials run so far.
type TrialBlock struct {
	BlockIndex    int
	BlockCount    int
	Name          string
	NCues         int
	IsPractice    bool
	NTrialsPerCue int
	Theme         string
	ThemeOffset   int
	Scene         string
	Instructions  string
	Mode          Mode

	CueList    []int
	R          sequence.Matrix
	TrialIndex int
	Trials     []*Trial
	Score      int

	sink  eventlog.Sink
	clock Clock
	ended bool
}

func newTrialBlock(blockIndex, blockCount int, cfg BlockConfig, params Params, src sequence.Source, sink eventlog.Sink, clock Clock) *TrialBlock {
	cues, err := sequence.MakeCueSequence(src, cfg.NCues, cfg.NTrialsPerCue)
	if err != nil {
		panic(fmt.Sprintf("experiment: validated block %d rejected: %v", blockIndex, err))
	}
	r, err := sequence.RandomAssignmentMatrix(src, cfg.NCues, params.NActions, params.MaxEntropyPolicy)
	if err != nil {
		panic(fmt.Sprintf("experiment: validated block %d rejected: %v", blockIndex, err))
	}
	mode, _ := ModeFor(cfg.Name)

	b := &TrialBlock{
		BlockIndex:    blockIndex,
		BlockCount:    blockCount,
		Name:          cfg.Name,
		NCues:         cfg.NCues,
		IsPractice:    cfg.IsPractice,
		NTrialsPerCue: cfg.NTrialsPerCue,
		Theme:         cfg.Theme,
		ThemeOffset:   ThemeOffset(cfg.NCues),
		Scene:         cfg.Scene,
		Instructions:  cfg.Instructions,
		Mode:          mode,
		CueList:       cues,
		R:             r,
		TrialIndex:    -1,
		sink:          sink,
		clock:         clock,
	}
	eventlog.Emit(sink, eventlog.StartBlock, b.Record())
	return b
}

// NextTrial starts the next trial of the block, closing out the previous one.
// It returns nil, without side effects, once every cue has been presented.
func (b *TrialBlock) NextTrial() *Trial {
	if b.TrialIndex+1 >= len(b.CueList) {
		return nil
	}
	if prev := b.CurrentTrial(); prev != nil {
		prev.end()
	}
	b.TrialIndex++
	t := &Trial{
		Index:      b.TrialIndex,
		BlockIndex: b.BlockIndex,
		Cue:        b.CueList[b.TrialIndex],
		StartTime:  b.clock.Millis(),
		sink:       b.sink,
		clock:      b.clock,
	}
	b.Trials = append(b.Trials, t)
	eventlog.Emit(b.sink, eventlog.StartTrial, t.Record())
	return t
}

// CurrentTrial returns the most recently started trial, or nil.
func (b *TrialBlock) CurrentTrial() *Trial {
	if len(b.Trials) == 0 {
		return nil
	}
	return b.Trials[len(b.Trials)-1]
}

// IsComplete reports whether every trial of the cue sequence has been started.
func (b *TrialBlock) IsComplete() bool {
	return len(b.Trials) >= len(b.CueList)
}

// Remaining returns how many trials have yet to start.
func (b *TrialBlock) Remaining() int {
	return max(len(b.CueList)-len(b.Trials), 0)
}

// CorrectAction returns the 1-based action rewarded for cue, or 0 if the cue
// is outside the block.
func (b *TrialBlock) CorrectAction(cue int) int {
	return b.R.CorrectAction(cue)
}

// AddScore adds n points to the block score.
func (b *TrialBlock) AddScore(n int) error {
	if n < 0 {
		return fmt.Errorf("add %d points: %w", n, ErrNegativeScore)
	}
	b.Score += n
	return nil
}

// finish closes the open trial and emits "end of TrialBlock" once.
func (b *TrialBlock) finish() {
	if b.ended {
		return
	}
	if t := b.CurrentTrial(); t != nil {
		t.end()
	}
	b.ended = true
	eventlog.Emit(b.sink, eventlog.EndBlock, b.Record())
}

// Record returns the serializable form of the block and its trials.
func (b *TrialBlock) Record() BlockRecord {
	trials := make([]TrialRecord, len(b.Trials))
	for i, t := range b.Trials {
		trials[i] = t.Record()
	}
	r := make(sequence.Matrix, len(b.R))
	for i, row := range b.R {
		r[i] = slices.Clone(row)
	}
	return BlockRecord{
		BlockIndex:    b.BlockIndex,
		BlockCount:    b.BlockCount,
		Name:          b.Name,
		NCues:         b.NCues,
		IsPractice:    b.IsPractice,
		NTrialsPerCue: b.NTrialsPerCue,
		Theme:         b.Theme,
		ThemeOffset:   b.ThemeOffset,
		Scene:         b.Scene,
		Instructions:  b.Instructions,
		CueList:       slices.Clone(b.CueList),
		R:             r,
		TrialIndex:    b.TrialIndex,
		Trials:        trials,
		Score:         b.Score,
	}
}
