package export

import "github.com/mobeets/instrumental-river-raid/internal/experiment"

// BlockSummary is the outcome of one block instantiation.
type BlockSummary struct {
	BlockIndex int
	BlockCount int
	Name       string
	NCues      int
	IsPractice bool
	Trials     int
	Hits       int
	Misses     int
	Collisions int
	Offscreen  int
	Score      int
}

// Accuracy is the fraction of trials that ended in a hit.
func (s BlockSummary) Accuracy() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Trials)
}

// Summary aggregates a session artifact.
type Summary struct {
	SubjectID   string
	Blocks      []BlockSummary
	TotalTrials int
	TotalScore  int
}

// Summarize counts trial outcomes per block from their events.
func Summarize(rec *experiment.ExperimentRecord) Summary {
	s := Summary{SubjectID: rec.SubjectID}
	for _, b := range rec.Blocks {
		bs := BlockSummary{
			BlockIndex: b.BlockIndex,
			BlockCount: b.BlockCount,
			Name:       b.Name,
			NCues:      b.NCues,
			IsPractice: b.IsPractice,
			Trials:     len(b.Trials),
			Score:      b.Score,
		}
		for _, t := range b.Trials {
			for _, ev := range t.Events {
				switch ev.Name {
				case experiment.CueOffsetHit:
					bs.Hits++
				case experiment.ProjectileMiss:
					bs.Misses++
				case experiment.CueOffsetCollision:
					bs.Collisions++
				case experiment.CueOffsetOffscreen:
					bs.Offscreen++
				}
			}
		}
		s.Blocks = append(s.Blocks, bs)
		s.TotalTrials += bs.Trials
		s.TotalScore += bs.Score
	}
	return s
}
