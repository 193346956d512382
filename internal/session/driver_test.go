package session

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
	"github.com/mobeets/instrumental-river-raid/internal/experiment"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard, io.Discard)
	os.Exit(m.Run())
}

// wrongSubject always fires an incorrect action.
type wrongSubject struct {
	block *experiment.TrialBlock
}

func (s *wrongSubject) BeginBlock(b *experiment.TrialBlock) { s.block = b }

func (s *wrongSubject) Choose(cue int) int {
	n := s.block.R.NumActions()
	return s.block.CorrectAction(cue)%n + 1
}

func (s *wrongSubject) Feedback(int, int, bool) {}

func fastParams() experiment.Params {
	p := experiment.DefaultParams()
	p.NActions = 3
	p.FPS = 60
	p.ITIMeanDuration = 0
	p.ISIDuration = 1
	p.FeedbackDuration = 0.1
	p.ShowHUD = true
	return p
}

func blocks(name string, n, ncues, ntrials int) []experiment.BlockConfig {
	out := make([]experiment.BlockConfig, n)
	for i := range out {
		out[i] = experiment.BlockConfig{Name: name, NCues: ncues, NTrialsPerCue: ntrials, Scene: "river"}
	}
	return out
}

type harness struct {
	exp    *experiment.Experiment
	driver *Driver
	mem    *eventlog.Memory
}

func newHarness(t *testing.T, cfgs []experiment.BlockConfig, subject Subject, sink eventlog.Sink) *harness {
	t.Helper()
	params := fastParams()
	clock := NewFrameClock(params.FPS)
	mem := eventlog.NewMemory()
	if sink == nil {
		sink = mem
	}
	exp, err := experiment.New(experiment.Options{
		SubjectID: "sim",
		Blocks:    cfgs,
		Params:    params,
		Sink:      sink,
		Clock:     clock,
		Seed:      17,
	})
	require.NoError(t, err)
	d, err := New(Options{
		Experiment: exp,
		Subject:    subject,
		Rand:       rand.New(rand.NewSource(23)),
		Sink:       sink,
		Clock:      clock,
	})
	require.NoError(t, err)
	return &harness{exp: exp, driver: d, mem: mem}
}

func assertOneOnsetOneOffset(t *testing.T, exp *experiment.Experiment) {
	t.Helper()
	for _, b := range exp.Blocks {
		for _, tr := range b.Trials {
			assert.Equal(t, 1, tr.Count(experiment.IsOnset), "block %d trial %d", b.BlockIndex, tr.Index)
			assert.Equal(t, 1, tr.Count(experiment.IsOffset), "block %d trial %d", b.BlockIndex, tr.Index)
			assert.True(t, tr.HasEvent(experiment.CueCreated))
		}
	}
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	exp, err := experiment.New(experiment.Options{Blocks: blocks(experiment.ModeTargets, 1, 2, 1), Params: fastParams()})
	require.NoError(t, err)
	_, err = New(Options{Experiment: exp, Rand: rand.New(rand.NewSource(1))})
	assert.Error(t, err)
	_, err = New(Options{Experiment: exp, Subject: &OracleSubject{}})
	assert.Error(t, err)
}

func TestOracleSessionRunsToCompletion(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargetsInstrumental, 2, 3, 2), &OracleSubject{}, nil)
	require.Equal(t, Ready, h.driver.Mode())

	require.NoError(t, h.driver.Run(context.Background(), 100_000))

	assert.Equal(t, Complete, h.driver.Mode())
	assert.Equal(t, experiment.Complete, h.exp.State())
	assert.Nil(t, h.driver.Block())
	require.Len(t, h.exp.Blocks, 2)
	assertOneOnsetOneOffset(t, h.exp)

	for _, b := range h.exp.Blocks {
		assert.Len(t, b.Trials, 6)
		for _, tr := range b.Trials {
			assert.True(t, tr.HasEvent(experiment.CueOffsetHit))
			assert.True(t, tr.HasEvent(experiment.ProjectileOnset))
		}
		// Six hits plus one streak bonus.
		assert.Equal(t, 16, b.Score)
	}

	st := h.driver.Stats()
	assert.Equal(t, 12, st.Trials)
	assert.Equal(t, 12, st.Hits)
	assert.Equal(t, 2, st.Bonuses)
	assert.Zero(t, st.Collisions)
	assert.Positive(t, st.Ticks)
	assert.Equal(t, eventlog.EndExperiment, h.mem.Types()[h.mem.Len()-1])
}

func TestCollisionsCostLivesAndEndTheBlock(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargetsInstrumental, 2, 2, 5), &wrongSubject{}, nil)

	require.NoError(t, h.driver.Run(context.Background(), 100_000))

	require.Len(t, h.exp.Blocks, 2)
	for _, b := range h.exp.Blocks {
		assert.Len(t, b.Trials, StartingLives, "block %d", b.BlockIndex)
		assert.Zero(t, b.Score)
		for _, tr := range b.Trials {
			assert.True(t, tr.HasEvent(experiment.ProjectileMiss))
			assert.True(t, tr.HasEvent(experiment.CueOffsetCollision))
		}
	}
	assertOneOnsetOneOffset(t, h.exp)
	assert.Equal(t, 2*StartingLives, h.driver.Stats().Collisions)
}

func TestImmobileCuesLeaveOffscreen(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeInstrumental, 1, 2, 5), &wrongSubject{}, nil)

	require.NoError(t, h.driver.Run(context.Background(), 100_000))

	b := h.exp.Blocks[0]
	assert.Len(t, b.Trials, len(b.CueList))
	for _, tr := range b.Trials {
		assert.True(t, tr.HasEvent(experiment.CueOffsetOffscreen))
	}
	st := h.driver.Stats()
	assert.Zero(t, st.Collisions)
	assert.Equal(t, len(b.CueList), st.Offscreen)
	assertOneOnsetOneOffset(t, h.exp)
}

func TestLearningSubjectCompletesSession(t *testing.T) {
	src := rand.New(rand.NewSource(8))
	h := newHarness(t, blocks(experiment.ModeTargetsInstrumental, 3, 3, 4), NewLearningSubject(src), nil)

	require.NoError(t, h.driver.Run(context.Background(), 1_000_000))
	assert.Equal(t, Complete, h.driver.Mode())
	assertOneOnsetOneOffset(t, h.exp)
}

func TestCommandsEmitInteractions(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargets, 3, 2, 1), &OracleSubject{}, nil)
	d := h.driver

	assert.False(t, d.Fire(1), "fire on the ready screen only dismisses it")
	assert.Equal(t, Play, d.Mode())
	assert.False(t, d.NextBlock(), "navigation is unavailable while playing")
	assert.False(t, d.Unpause())

	require.True(t, d.Pause())
	assert.Equal(t, Pause, d.Mode())

	require.True(t, d.NextBlock())
	assert.Equal(t, 1, h.exp.BlockIndex)
	assert.Equal(t, Starting, d.Mode())

	require.True(t, d.BackBlock())
	assert.Equal(t, 0, h.exp.BlockIndex)
	assert.Equal(t, Ready, d.Mode())

	require.True(t, d.RestartBlock())
	assert.Equal(t, 0, h.exp.BlockIndex)
	assert.Len(t, h.exp.Blocks, 4)
	assert.Equal(t, StartingLives, d.Lives())

	var msgs []string
	for _, rec := range h.mem.Records() {
		if rec.MessageType == eventlog.Interaction {
			msgs = append(msgs, rec.Payload.(map[string]any)["eventMsg"].(string))
		}
	}
	assert.Equal(t, []string{
		"unpause",
		"pause",
		"new game (going to next block)",
		"new game (going back a block)",
		"restart block",
	}, msgs)
}

func TestFireRequiresVisibleCue(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargets, 1, 2, 3), &OracleSubject{}, nil)
	d := h.driver
	d.Unpause()

	assert.False(t, d.Fire(1), "no cue on screen yet")
	d.Tick()
	require.NotNil(t, d.cue)
	assert.False(t, d.Fire(0))
	assert.False(t, d.Fire(4))
	assert.True(t, d.Fire(1))
	assert.False(t, d.Fire(2), "one response per trial")
}

func TestVerboseLogCountsTrialsLeft(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf, io.Discard)
	logging.SetVerbose(true)
	t.Cleanup(func() {
		logging.SetVerbose(false)
		logging.SetOutput(io.Discard, io.Discard)
	})

	h := newHarness(t, blocks(experiment.ModeTargets, 1, 2, 2), &OracleSubject{}, nil)
	require.NoError(t, h.driver.Run(context.Background(), 100_000))

	out := buf.String()
	assert.Contains(t, out, "trial 0: cue")
	assert.Contains(t, out, "(3 left)")
	assert.Contains(t, out, "(0 left)")
	assert.NotContains(t, out, "(4 left)")
}

func TestNavigationAfterCompletion(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargets, 1, 2, 1), &OracleSubject{}, nil)
	require.NoError(t, h.driver.Run(context.Background(), 10_000))
	d := h.driver

	assert.False(t, d.NextBlock())
	assert.False(t, d.BackBlock())
	assert.False(t, d.Unpause())
	require.True(t, d.RestartBlock())
	assert.Equal(t, Ready, d.Mode())
	assert.NotNil(t, d.Block())
}

func TestRunStopsOnBudgetAndCancellation(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargets, 2, 3, 10), &OracleSubject{}, nil)
	err := h.driver.Run(context.Background(), 10)
	assert.ErrorIs(t, err, ErrTickBudget)
	assert.Equal(t, int64(10), h.driver.Stats().Ticks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.driver.Run(ctx, 0), context.Canceled)
}

func TestBrokenSinkDoesNotStallSession(t *testing.T) {
	sink, err := eventlog.NewFileSink(filepath.Join(t.TempDir(), "log.jsonl"))
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))

	h := newHarness(t, blocks(experiment.ModeTargets, 2, 2, 2), &OracleSubject{}, sink)
	require.NoError(t, h.driver.Run(context.Background(), 100_000))
	assert.Equal(t, Complete, h.driver.Mode())
}

func TestSaveHandsRecordToHook(t *testing.T) {
	h := newHarness(t, blocks(experiment.ModeTargets, 1, 2, 1), &OracleSubject{}, nil)
	var saved []experiment.ExperimentRecord
	h.driver.onSave = func(rec experiment.ExperimentRecord) error {
		saved = append(saved, rec)
		return nil
	}

	require.NoError(t, h.driver.Save())
	require.Len(t, saved, 1)
	assert.Equal(t, "sim", saved[0].SubjectID)

	h.driver.Unpause()
	assert.Error(t, h.driver.Save())
}

func TestFrameClock(t *testing.T) {
	c := NewFrameClock(60)
	for i := 0; i < 3; i++ {
		c.Advance()
	}
	assert.Equal(t, int64(3), c.Ticks())
	assert.InDelta(t, 50.0, c.Millis(), 1e-9)

	assert.InDelta(t, 1000.0/60, func() float64 {
		d := NewFrameClock(0)
		d.Advance()
		return d.Millis()
	}(), 1e-9)
}
