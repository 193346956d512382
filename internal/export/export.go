// Package export writes and reads the session artifact: the full experiment
// record (blocks, trials, events) as one indented JSON document per session.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mobeets/instrumental-river-raid/internal/experiment"
)

// ErrInvalidArtifact wraps every inconsistency reported by Validate.
var ErrInvalidArtifact = errors.New("invalid session artifact")

// FileTimeLayout stamps artifact file names.
const FileTimeLayout = "20060102-150405"

// Now is the clock used to name artifacts.
var Now = time.Now

// FileName returns the artifact name for subject at t.
func FileName(subject string, t time.Time) string {
	return fmt.Sprintf("%s-%s.json", sanitize(subject), t.Format(FileTimeLayout))
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// Save writes rec to dir and returns the file path.
func Save(rec experiment.ExperimentRecord, dir string) (string, error) {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(rec.SubjectID, Now()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write session file: %w", err)
	}
	return path, nil
}

// Load reads a session artifact.
func Load(path string) (*experiment.ExperimentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var rec experiment.ExperimentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

// Validate checks the internal references of an artifact: block indices
// point at a configuration, trials point back at their block, and cues stay
// within the block's cue set.
func Validate(rec *experiment.ExperimentRecord) error {
	var errs []error
	for i, b := range rec.Blocks {
		if b.BlockIndex < 0 || b.BlockIndex >= len(rec.BlockConfigs) {
			errs = append(errs, fmt.Errorf("block %d: index %d outside %d configs", i, b.BlockIndex, len(rec.BlockConfigs)))
		}
		if len(b.CueList) != b.NCues*b.NTrialsPerCue {
			errs = append(errs, fmt.Errorf("block %d: cue list has %d entries, want %d", i, len(b.CueList), b.NCues*b.NTrialsPerCue))
		}
		if len(b.Trials) > len(b.CueList) {
			errs = append(errs, fmt.Errorf("block %d: %d trials for %d cues", i, len(b.Trials), len(b.CueList)))
		}
		for j, t := range b.Trials {
			if t.Index != j {
				errs = append(errs, fmt.Errorf("block %d trial %d: index %d", i, j, t.Index))
			}
			if t.BlockIndex != b.BlockIndex {
				errs = append(errs, fmt.Errorf("block %d trial %d: block_index %d", i, j, t.BlockIndex))
			}
			if t.Cue < 1 || t.Cue > b.NCues {
				errs = append(errs, fmt.Errorf("block %d trial %d: cue %d outside 1..%d", i, j, t.Cue, b.NCues))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidArtifact, errors.Join(errs...))
}
