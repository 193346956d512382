// Package session drives an Experiment frame by frame the way the game loop
// does: it paces cue presentation, resolves responses from a Subject, keeps
// score, lives and streaks, and maps participant commands onto block
// navigation.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
	"github.com/mobeets/instrumental-river-raid/internal/experiment"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
)

// Mode is the presentation state of the game.
type Mode int

const (
	Ready Mode = iota
	Play
	Pause
	// Starting shows the summary of the block that just ended.
	Starting
	Complete
)

func (m Mode) String() string {
	switch m {
	case Ready:
		return "ready"
	case Play:
		return "play"
	case Pause:
		return "pause"
	case Starting:
		return "starting"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	// StartingLives is the number of collisions a block tolerates.
	StartingLives = 5
	// StreakLength consecutive hits earn StreakBonus points.
	StreakLength = 5
	StreakBonus  = 10
)

// ErrTickBudget is returned by Run when the frame budget runs out before the
// experiment completes.
var ErrTickBudget = errors.New("tick budget exhausted before the session completed")

// Rand is the random source of the driver.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Options configures a Driver.
type Options struct {
	Experiment *experiment.Experiment
	Subject    Subject
	Rand       Rand
	// Sink receives "interaction" records.
	Sink  eventlog.Sink
	Clock *FrameClock

	// ReactionTicks is the delay between cue onset and the subject's
	// response. Zero selects a quarter second.
	ReactionTicks int
	// ProjectileTicks is the projectile flight time. Zero selects 1/12 s.
	ProjectileTicks int

	// OnSave receives the session record when Save is called.
	OnSave func(experiment.ExperimentRecord) error
}

// Stats counts trial outcomes across the session.
type Stats struct {
	Ticks      int64
	Trials     int
	Hits       int
	Misses     int
	Collisions int
	Offscreen  int
	Bonuses    int
}

type cue struct {
	trial    *experiment.Trial
	age      int
	onsetAge int
	fired    bool
}

// seen reports whether the cue has had its onset.
func (c *cue) seen() bool { return c.trial.HasEvent(experiment.CueOnset) }

type projectile struct {
	action int
	age    int
}

// Driver owns an Experiment and advances it one frame per Tick.
type Driver struct {
	exp     *experiment.Experiment
	subject Subject
	src     Rand
	sink    eventlog.Sink
	clock   *FrameClock
	onSave  func(experiment.ExperimentRecord) error

	reactionTicks   int
	projectileTicks int
	isiTicks        int
	feedbackTicks   int
	itiProb         float64

	mode     Mode
	block    *experiment.TrialBlock
	cue      *cue
	shot     *projectile
	feedback int
	lives    int
	streak   int
	stats    Stats
}

// New builds a driver and instantiates the first block.
func New(opts Options) (*Driver, error) {
	if opts.Experiment == nil {
		return nil, errors.New("session: experiment is required")
	}
	if opts.Subject == nil {
		return nil, errors.New("session: subject is required")
	}
	if opts.Rand == nil {
		return nil, errors.New("session: random source is required")
	}
	p := opts.Experiment.Params
	fps := p.FPS
	if fps <= 0 {
		fps = 60
	}
	d := &Driver{
		exp:             opts.Experiment,
		subject:         opts.Subject,
		src:             opts.Rand,
		sink:            opts.Sink,
		clock:           opts.Clock,
		onSave:          opts.OnSave,
		reactionTicks:   opts.ReactionTicks,
		projectileTicks: opts.ProjectileTicks,
		isiTicks:        max(int(math.Round(p.ISIDuration*fps)), 1),
		feedbackTicks:   int(math.Ceil(p.FeedbackDuration * fps)),
		itiProb:         1,
	}
	if d.clock == nil {
		d.clock = NewFrameClock(fps)
	}
	if d.reactionTicks <= 0 {
		d.reactionTicks = max(int(fps/4), 1)
	}
	if d.projectileTicks <= 0 {
		d.projectileTicks = max(int(fps/12), 1)
	}
	if denom := p.ITIMeanDuration * fps; denom > 1 {
		d.itiProb = 1 / denom
	}
	d.newGame(experiment.Advance)
	return d, nil
}

// Mode returns the current presentation state.
func (d *Driver) Mode() Mode { return d.mode }

// Block returns the block being played, or nil once the session is complete.
func (d *Driver) Block() *experiment.TrialBlock { return d.block }

// Lives returns the lives left in the current block.
func (d *Driver) Lives() int { return d.lives }

// Streak returns the current run of consecutive hits.
func (d *Driver) Streak() int { return d.streak }

// Stats returns the outcome counters.
func (d *Driver) Stats() Stats {
	s := d.stats
	s.Ticks = d.clock.Ticks()
	return s
}

// Clock returns the frame clock.
func (d *Driver) Clock() *FrameClock { return d.clock }

func (d *Driver) interaction(msg string) {
	eventlog.Emit(d.sink, eventlog.Interaction, map[string]any{"eventMsg": msg})
}

// newGame instantiates the next block per move and resets the per-block
// state.
func (d *Driver) newGame(move experiment.Move) {
	prev := d.block
	d.cue, d.shot, d.feedback = nil, nil, 0
	d.block = d.exp.NextBlock(move)
	if d.block == nil {
		d.mode = Complete
		logging.Success(fmt.Sprintf("Session complete: %d blocks played", d.exp.BlockCount))
		return
	}
	d.lives = StartingLives
	d.streak = 0
	d.subject.BeginBlock(d.block)
	if prev != nil && move == experiment.Advance {
		d.mode = Starting
	} else {
		d.mode = Ready
	}
	logging.Block(fmt.Sprintf("Block %d of %d: %s (%d cues, %d trials)",
		d.exp.BlockIndex+1, len(d.exp.BlockConfigs), d.block.Name, d.block.NCues, len(d.block.CueList)))
}

// Fire launches a projectile with the 1-based action. In any state other than
// Play it dismisses the current screen instead. It reports whether a
// projectile was launched.
func (d *Driver) Fire(action int) bool {
	switch d.mode {
	case Play:
	case Complete:
		return false
	default:
		d.Unpause()
		return false
	}
	if d.cue == nil || !d.cue.seen() || d.cue.fired || d.shot != nil {
		return false
	}
	if action < 1 || action > d.exp.Params.NActions {
		return false
	}
	d.interaction(fmt.Sprintf("projectile fired %d", action))
	d.cue.fired = true
	d.shot = &projectile{action: action}
	d.trigger(experiment.StructuredEvent{
		Name:   experiment.ProjectileOnset,
		Fields: map[string]any{"action_index": action},
	})
	return true
}

// Pause suspends play.
func (d *Driver) Pause() bool {
	if d.mode != Play {
		return false
	}
	d.interaction("pause")
	d.mode = Pause
	return true
}

// Unpause resumes or starts play from the Pause, Ready or Starting screens.
func (d *Driver) Unpause() bool {
	if d.mode == Play || d.mode == Complete {
		return false
	}
	d.interaction("unpause")
	d.mode = Play
	return true
}

// NextBlock skips to the next block. It is only available off the play
// screen.
func (d *Driver) NextBlock() bool {
	if d.mode == Play || d.mode == Complete {
		return false
	}
	d.interaction("new game (going to next block)")
	d.newGame(experiment.Advance)
	return true
}

// BackBlock returns to the previous block.
func (d *Driver) BackBlock() bool {
	if d.mode == Play || d.mode == Complete {
		return false
	}
	d.interaction("new game (going back a block)")
	d.newGame(experiment.GoBack)
	return true
}

// RestartBlock replays the current block with fresh randomization.
func (d *Driver) RestartBlock() bool {
	if d.mode == Play {
		return false
	}
	d.interaction("restart block")
	d.newGame(experiment.Restart)
	return true
}

// Save hands the session record to the OnSave hook.
func (d *Driver) Save() error {
	if d.mode == Play {
		return errors.New("session: pause before saving")
	}
	d.interaction("save")
	if d.onSave == nil {
		return nil
	}
	return d.onSave(d.exp.Record())
}

func (d *Driver) trigger(spec experiment.EventSpec) {
	if d.cue == nil {
		return
	}
	if err := d.cue.trial.Trigger(spec); err != nil {
		logging.Warn(fmt.Sprintf("dropped trial event: %v", err))
	}
}

// Tick advances the session by one frame.
func (d *Driver) Tick() {
	d.clock.Advance()
	if d.mode != Play {
		return
	}
	if d.feedback > 0 {
		d.feedback--
	}

	if d.cue == nil && d.feedback == 0 && d.src.Float64() < d.itiProb {
		if !d.startTrial() {
			return
		}
	}

	if c := d.cue; c != nil {
		c.age++
		if !c.seen() {
			c.onsetAge = c.age
			d.trigger(experiment.NamedEvent(experiment.CueOnset))
		}
		if !c.fired && c.age-c.onsetAge >= d.reactionTicks {
			d.Fire(d.subject.Choose(c.trial.Cue))
		}
	}

	if d.shot != nil {
		d.shot.age++
		if d.shot.age >= d.projectileTicks {
			d.resolveShot()
		}
	}

	if c := d.cue; c != nil && c.age-c.onsetAge >= d.isiTicks {
		d.cueReachedBottom()
	}

	if d.exp.Params.ShowHUD && d.lives <= 0 {
		logging.Warn(fmt.Sprintf("Out of lives in block %d", d.block.BlockIndex+1))
		d.newGame(experiment.Advance)
	}
}

func (d *Driver) startTrial() bool {
	t := d.block.NextTrial()
	if t == nil {
		logging.Info(fmt.Sprintf("Block %d finished: score %d out of %d",
			d.block.BlockIndex+1, d.block.Score, len(d.block.Trials)))
		d.newGame(experiment.Advance)
		return false
	}
	d.stats.Trials++
	d.cue = &cue{trial: t}
	d.trigger(experiment.NamedEvent(experiment.CueCreated))
	logging.Debug(fmt.Sprintf("trial %d: cue %d at %s (%d left)",
		t.Index, t.Cue, logging.FormatMillis(t.StartTime), d.block.Remaining()))
	return true
}

func (d *Driver) resolveShot() {
	shot := d.shot
	d.shot = nil
	c := d.cue
	if c == nil {
		return
	}
	correct := d.block.R.CorrectAction(c.trial.Cue) == shot.action
	d.subject.Feedback(c.trial.Cue, shot.action, correct)
	if !correct {
		d.stats.Misses++
		d.streak = 0
		d.trigger(experiment.StructuredEvent{
			Name:   experiment.ProjectileMiss,
			Fields: map[string]any{"action_index": shot.action},
		})
		return
	}

	d.stats.Hits++
	d.trigger(experiment.NamedEvent(experiment.CueOffsetHit))
	d.addScore(1)
	if d.exp.Params.ShowHUD {
		d.streak++
		if d.streak >= StreakLength {
			d.streak = 0
			d.stats.Bonuses++
			d.addScore(StreakBonus)
		}
	}
	d.cue = nil
	d.feedback = d.feedbackTicks
}

func (d *Driver) cueReachedBottom() {
	if d.block.Mode.Immobile {
		d.stats.Offscreen++
		d.trigger(experiment.NamedEvent(experiment.CueOffsetOffscreen))
		d.cue = nil
		return
	}
	d.stats.Collisions++
	d.trigger(experiment.NamedEvent(experiment.CueOffsetCollision))
	d.cue = nil
	d.shot = nil
	d.streak = 0
	d.lives--
	d.feedback = d.feedbackTicks
}

func (d *Driver) addScore(n int) {
	if err := d.block.AddScore(n); err != nil {
		logging.Warn(err.Error())
	}
}

// Run plays the session to completion as the subject would: it dismisses
// every Ready, Starting and Pause screen and ticks until the experiment is
// complete, ctx is done, or maxTicks frames have elapsed (zero means no
// limit).
func (d *Driver) Run(ctx context.Context, maxTicks int64) error {
	for {
		if d.mode == Complete {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxTicks > 0 && d.clock.Ticks() >= maxTicks {
			return fmt.Errorf("after %d ticks: %w", d.clock.Ticks(), ErrTickBudget)
		}
		if d.mode != Play {
			d.Unpause()
		}
		d.Tick()
	}
}
