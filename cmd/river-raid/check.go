package main

import (
	"fmt"

	"github.com/mobeets/instrumental-river-raid/internal/banner"
	"github.com/mobeets/instrumental-river-raid/internal/export"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
)

func runCheck(path string) error {
	rec, err := export.Load(path)
	if err != nil {
		return err
	}
	if err := export.Validate(rec); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	summary := export.Summarize(rec)
	banner.PrintBlockTable(summary)
	logging.Success(fmt.Sprintf("%s: subject %s, %d blocks, %d trials, score %d",
		path, summary.SubjectID, len(summary.Blocks), summary.TotalTrials, summary.TotalScore))
	return nil
}
