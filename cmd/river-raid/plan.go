package main

import (
	"fmt"

	"github.com/mobeets/instrumental-river-raid/internal/blockplan"
	"github.com/mobeets/instrumental-river-raid/internal/cli"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
	"github.com/mobeets/instrumental-river-raid/internal/sequence"
)

func runPlan(opts cli.PlanOptions) error {
	src, seed := sequence.NewSeededRand(opts.Seed)

	cfg := blockplan.DefaultConfig(opts.Themes...)
	cfg.Runs = opts.Runs
	cfg.TrialsPerCue = opts.TrialsPerCue
	cfg.PracticeTrialsPerCue = opts.PracticeTrialsPerCue

	blocks, err := blockplan.Generate(src, cfg)
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if err := blockplan.Write(opts.Out, blocks); err != nil {
		return err
	}
	logging.Success(fmt.Sprintf("Wrote %d blocks to %s (seed %d)", len(blocks), opts.Out, seed))
	return nil
}
