// Package blockplan generates randomized block lists for a full session:
// two runs over every task, a practice block per task in the first run, and
// one experimental block per cue count.
package blockplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mobeets/instrumental-river-raid/internal/experiment"
	"github.com/mobeets/instrumental-river-raid/internal/sequence"
)

// ErrNoThemes is returned when no theme is available for the themed tasks.
var ErrNoThemes = errors.New("at least one theme is required")

// Task is one game mode and the cue counts run under it.
type Task struct {
	Name  string
	NCues []int
}

// Config holds the generation parameters.
type Config struct {
	Themes []string
	Tasks  []Task
	Scenes []string
	Runs   int

	PracticeTrialsPerCue int
	TrialsPerCue         int
	// PracticeTheme is used for practice blocks of themed tasks.
	PracticeTheme string
}

// DefaultConfig returns the standard session layout for the given themes.
func DefaultConfig(themes ...string) Config {
	return Config{
		Themes: themes,
		Tasks: []Task{
			{Name: experiment.ModeTargets, NCues: []int{3}},
			{Name: experiment.ModeInstrumental, NCues: []int{2, 3, 4, 5}},
			{Name: experiment.ModeTargetsInstrumental, NCues: []int{2, 3, 4, 5}},
		},
		Scenes:               []string{"grass", "river"},
		Runs:                 2,
		PracticeTrialsPerCue: 3,
		TrialsPerCue:         10,
		PracticeTheme:        "training",
	}
}

// themed reports whether blocks of the task draw a theme. Target blocks show
// the answers and use the plain sprites.
func themed(task string) bool {
	return task != experiment.ModeTargets
}

// Generate lays out the blocks of cfg using src for every random choice.
func Generate(src sequence.Source, cfg Config) ([]experiment.BlockConfig, error) {
	if len(cfg.Themes) == 0 && slices.ContainsFunc(cfg.Tasks, func(t Task) bool { return themed(t.Name) }) {
		return nil, ErrNoThemes
	}
	if len(cfg.Scenes) == 0 {
		return nil, errors.New("at least one scene is required")
	}
	for _, task := range cfg.Tasks {
		if _, ok := experiment.ModeFor(task.Name); !ok {
			return nil, fmt.Errorf("task %q: unknown game mode", task.Name)
		}
		if len(task.NCues) == 0 {
			return nil, fmt.Errorf("task %q: no cue counts", task.Name)
		}
	}

	var blocks []experiment.BlockConfig
	nextTheme := 0
	for run := 1; run <= cfg.Runs; run++ {
		for _, task := range cfg.Tasks {
			ncues := slices.Clone(task.NCues)
			sequence.Shuffle(src, ncues)

			theme := ""
			if themed(task.Name) {
				theme = cfg.Themes[nextTheme%len(cfg.Themes)]
				nextTheme++
			}

			scenes := balancedScenes(cfg.Scenes, len(ncues))
			sequence.Shuffle(src, scenes)

			if run == 1 {
				practiceTheme := ""
				if themed(task.Name) {
					practiceTheme = cfg.PracticeTheme
				}
				blocks = append(blocks, experiment.BlockConfig{
					Name:          task.Name,
					NCues:         slices.Min(task.NCues),
					IsPractice:    true,
					NTrialsPerCue: cfg.PracticeTrialsPerCue,
					Theme:         practiceTheme,
					Scene:         cfg.Scenes[src.Intn(len(cfg.Scenes))],
				})
			}

			for i, n := range ncues {
				blocks = append(blocks, experiment.BlockConfig{
					Name:          task.Name,
					NCues:         n,
					NTrialsPerCue: cfg.TrialsPerCue,
					Theme:         theme,
					Scene:         scenes[i],
				})
			}
		}
	}
	return blocks, nil
}

// balancedScenes repeats the scene list until it covers n blocks.
func balancedScenes(scenes []string, n int) []string {
	out := make([]string, 0, n)
	for len(out) < n {
		out = append(out, scenes...)
	}
	return out[:n]
}

// Write saves blocks as an indented JSON array, creating parent directories.
func Write(path string, blocks []experiment.BlockConfig) error {
	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal block plan: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create plan directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write block plan: %w", err)
	}
	return nil
}
