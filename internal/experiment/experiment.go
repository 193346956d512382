// Package experiment models a behavioral session: an ordered list of block
// configurations instantiated into TrialBlocks, each a fixed sequence of
// Trials whose events are forwarded to an eventlog.Sink as they happen.
//
// The types are not safe for concurrent use; a single driver goroutine owns
// an Experiment for its whole life.
package experiment

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
	"github.com/mobeets/instrumental-river-raid/internal/sequence"
)

// Move selects how NextBlock picks the block to instantiate.
type Move int

const (
	// Advance ends the current block and moves to the next configuration.
	Advance Move = iota
	// Restart re-instantiates the current configuration with fresh
	// randomization.
	Restart
	// GoBack re-instantiates the previous configuration.
	GoBack
)

func (m Move) String() string {
	switch m {
	case Advance:
		return "advance"
	case Restart:
		return "restart"
	case GoBack:
		return "go back"
	default:
		return fmt.Sprintf("move(%d)", int(m))
	}
}

// State is the coarse lifecycle position of an Experiment.
type State int

const (
	NotStarted State = iota
	InBlock
	Complete
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InBlock:
		return "in block"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures New. Zero values select a discard sink, a wall clock and
// a clock-seeded random source.
type Options struct {
	SubjectID  string
	BlocksPath string
	ParamsPath string
	Blocks     []BlockConfig
	Params     Params

	Sink  eventlog.Sink
	Clock Clock
	// Rand overrides the random source. Seed is ignored when it is set.
	Rand sequence.Source
	Seed int64
}

// Experiment is one session of one subject.
type Experiment struct {
	SubjectID    string
	BlocksPath   string
	ParamsPath   string
	BlockConfigs []BlockConfig
	Params       Params
	BlockIndex   int
	BlockCount   int
	Blocks       []*TrialBlock
	RenderInfo   map[string]any
	Seed         int64

	sink     eventlog.Sink
	clock    Clock
	src      sequence.Source
	started  bool
	complete bool
}

// New validates the configuration and returns an experiment positioned before
// its first block. Any invalid block or parameter yields *ConfigurationError.
func New(opts Options) (*Experiment, error) {
	if len(opts.Blocks) == 0 {
		return nil, configErr("blocks", "no block configurations")
	}
	for i, cfg := range opts.Blocks {
		if err := cfg.Validate(fmt.Sprintf("blocks[%d]", i)); err != nil {
			return nil, err
		}
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}

	e := &Experiment{
		SubjectID:    opts.SubjectID,
		BlocksPath:   opts.BlocksPath,
		ParamsPath:   opts.ParamsPath,
		BlockConfigs: append([]BlockConfig(nil), opts.Blocks...),
		Params:       opts.Params,
		BlockIndex:   -1,
		sink:         opts.Sink,
		clock:        opts.Clock,
		src:          opts.Rand,
		Seed:         opts.Seed,
	}
	if e.sink == nil {
		e.sink = eventlog.Discard
	}
	if e.clock == nil {
		e.clock = NewClock()
	}
	if e.src == nil {
		e.src, e.Seed = sequence.NewSeededRand(opts.Seed)
	}
	return e, nil
}

// Start records the presentation info and emits "start of Experiment". Only
// the first call has any effect.
func (e *Experiment) Start(info map[string]any) {
	if e.started {
		return
	}
	e.started = true
	e.RenderInfo = maps.Clone(info)
	eventlog.Emit(e.sink, eventlog.StartExperiment, e.Record())
}

// NextBlock instantiates the block selected by move. On Advance past the last
// configuration it emits "end of Experiment" and returns nil, leaving
// BlockIndex unchanged.
func (e *Experiment) NextBlock(move Move) *TrialBlock {
	switch move {
	case Advance:
		if last := e.CurrentBlock(); last != nil {
			last.finish()
		}
		if e.BlockIndex+1 >= len(e.BlockConfigs) {
			if !e.complete {
				e.complete = true
				eventlog.Emit(e.sink, eventlog.EndExperiment, e.Record())
			}
			return nil
		}
		e.BlockIndex++
	case Restart:
		e.BlockIndex = max(e.BlockIndex, 0)
	case GoBack:
		e.BlockIndex = max(e.BlockIndex-1, 0)
	default:
		return nil
	}

	e.complete = false
	b := newTrialBlock(e.BlockIndex, e.BlockCount, e.BlockConfigs[e.BlockIndex], e.Params, e.src, e.sink, e.clock)
	e.BlockCount++
	e.Blocks = append(e.Blocks, b)
	return b
}

// IsComplete reports whether the current block is the last configured one.
func (e *Experiment) IsComplete() bool {
	return e.BlockIndex+1 >= len(e.BlockConfigs)
}

// State reports where the experiment is in its lifecycle.
func (e *Experiment) State() State {
	switch {
	case e.complete:
		return Complete
	case e.BlockIndex < 0:
		return NotStarted
	default:
		return InBlock
	}
}

// CurrentBlock returns the most recently instantiated block, or nil.
func (e *Experiment) CurrentBlock() *TrialBlock {
	if len(e.Blocks) == 0 {
		return nil
	}
	return e.Blocks[len(e.Blocks)-1]
}

// TotalScore sums the score of every instantiated block.
func (e *Experiment) TotalScore() int {
	total := 0
	for _, b := range e.Blocks {
		total += b.Score
	}
	return total
}

// Record returns the full serializable session: blocks, trials and events.
func (e *Experiment) Record() ExperimentRecord {
	blocks := make([]BlockRecord, len(e.Blocks))
	for i, b := range e.Blocks {
		blocks[i] = b.Record()
	}
	return ExperimentRecord{
		SubjectID:    e.SubjectID,
		BlocksPath:   e.BlocksPath,
		ParamsPath:   e.ParamsPath,
		Seed:         e.Seed,
		BlockConfigs: append([]BlockConfig(nil), e.BlockConfigs...),
		Params:       e.Params,
		BlockIndex:   e.BlockIndex,
		BlockCount:   e.BlockCount,
		RenderInfo:   maps.Clone(e.RenderInfo),
		Blocks:       blocks,
	}
}

// MarshalJSON serializes the experiment through Record.
func (e *Experiment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Record())
}
