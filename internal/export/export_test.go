package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobeets/instrumental-river-raid/internal/experiment"
)

func fixedNow(t *testing.T) {
	t.Helper()
	prev := Now
	Now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	t.Cleanup(func() { Now = prev })
}

func sampleRecord(t *testing.T) experiment.ExperimentRecord {
	t.Helper()
	params := experiment.DefaultParams()
	e, err := experiment.New(experiment.Options{
		SubjectID: "s01",
		Blocks: []experiment.BlockConfig{
			{Name: experiment.ModeTargets, NCues: 2, NTrialsPerCue: 2, Scene: "grass"},
			{Name: experiment.ModeInstrumental, NCues: 3, NTrialsPerCue: 1, Theme: "fruit", Scene: "river"},
		},
		Params: params,
		Seed:   3,
	})
	require.NoError(t, err)

	b := e.NextBlock(experiment.Advance)
	tr := b.NextTrial()
	require.NoError(t, tr.Trigger(experiment.NamedEvent(experiment.CueOnset)))
	require.NoError(t, tr.Trigger(experiment.NamedEvent(experiment.CueOffsetHit)))
	require.NoError(t, b.AddScore(1))
	tr = b.NextTrial()
	require.NoError(t, tr.Trigger(experiment.NamedEvent(experiment.CueOnset)))
	require.NoError(t, tr.Trigger(experiment.StructuredEvent{
		Name:   experiment.ProjectileMiss,
		Fields: map[string]any{"action_index": 2},
	}))
	require.NoError(t, tr.Trigger(experiment.NamedEvent(experiment.CueOffsetCollision)))

	b = e.NextBlock(experiment.Advance)
	tr = b.NextTrial()
	require.NoError(t, tr.Trigger(experiment.NamedEvent(experiment.CueOffsetOffscreen)))
	return e.Record()
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "s01-20260102-030405.json", FileName("s01", at))
	assert.Equal(t, "unknown-20260102-030405.json", FileName("  ", at))
	assert.Equal(t, "a_b_c-20260102-030405.json", FileName("a/b c", at))
}

func TestSaveAndLoad(t *testing.T) {
	fixedNow(t)
	rec := sampleRecord(t)
	dir := filepath.Join(t.TempDir(), "data")

	path, err := Save(rec, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "s01-20260314-092653.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \""), "indented with four spaces")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec.SubjectID, loaded.SubjectID)
	assert.Equal(t, rec.Seed, loaded.Seed)
	assert.Equal(t, rec.BlockConfigs, loaded.BlockConfigs)
	require.Len(t, loaded.Blocks, 2)
	assert.Equal(t, rec.Blocks[0].CueList, loaded.Blocks[0].CueList)
	assert.Equal(t, rec.Blocks[0].R, loaded.Blocks[0].R)
	require.NoError(t, Validate(loaded))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read session file")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "unmarshal session")
}

func TestValidateReportsBrokenReferences(t *testing.T) {
	rec := sampleRecord(t)
	rec.Blocks[0].Trials[1].BlockIndex = 7
	rec.Blocks[0].Trials[0].Cue = 9
	rec.Blocks[1].BlockIndex = 5

	err := Validate(&rec)
	require.ErrorIs(t, err, ErrInvalidArtifact)
	assert.Contains(t, err.Error(), "block_index 7")
	assert.Contains(t, err.Error(), "cue 9 outside 1..2")
	assert.Contains(t, err.Error(), "index 5 outside 2 configs")
}

func TestValidateAcceptsSavedSession(t *testing.T) {
	fixedNow(t)
	rec := sampleRecord(t)
	path, err := Save(rec, t.TempDir())
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(loaded))
}

func TestSummarize(t *testing.T) {
	rec := sampleRecord(t)
	s := Summarize(&rec)

	assert.Equal(t, "s01", s.SubjectID)
	require.Len(t, s.Blocks, 2)
	assert.Equal(t, 3, s.TotalTrials)
	assert.Equal(t, 1, s.TotalScore)

	first := s.Blocks[0]
	assert.Equal(t, experiment.ModeTargets, first.Name)
	assert.Equal(t, 2, first.Trials)
	assert.Equal(t, 1, first.Hits)
	assert.Equal(t, 1, first.Misses)
	assert.Equal(t, 1, first.Collisions)
	assert.InDelta(t, 0.5, first.Accuracy(), 1e-9)

	assert.Equal(t, 1, s.Blocks[1].Offscreen)
	assert.Zero(t, BlockSummary{}.Accuracy())
}
