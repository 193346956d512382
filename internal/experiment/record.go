package experiment

import "github.com/mobeets/instrumental-river-raid/internal/sequence"

// ExperimentRecord is the exported form of an Experiment. Blocks and trials
// refer to their parents by index only.
type ExperimentRecord struct {
	SubjectID    string         `json:"subject_id"`
	BlocksPath   string         `json:"config_path"`
	ParamsPath   string         `json:"params_path"`
	Seed         int64          `json:"seed"`
	BlockConfigs []BlockConfig  `json:"block_configs"`
	Params       Params         `json:"params"`
	BlockIndex   int            `json:"block_index"`
	BlockCount   int            `json:"block_count"`
	RenderInfo   map[string]any `json:"render_info,omitempty"`
	Blocks       []BlockRecord  `json:"blocks"`
}

// BlockRecord is the exported form of a TrialBlock.
type BlockRecord struct {
	BlockIndex    int             `json:"block_index"`
	BlockCount    int             `json:"block_count"`
	Name          string          `json:"name"`
	NCues         int             `json:"ncues"`
	IsPractice    bool            `json:"is_practice"`
	NTrialsPerCue int             `json:"ntrials_per_cue"`
	Theme         string          `json:"theme"`
	ThemeOffset   int             `json:"theme_offset"`
	Scene         string          `json:"scene"`
	Instructions  string          `json:"instructions,omitempty"`
	CueList       []int           `json:"cue_list"`
	R             sequence.Matrix `json:"R"`
	TrialIndex    int             `json:"trial_index"`
	Trials        []TrialRecord   `json:"trials"`
	Score         int             `json:"score"`
}

// TrialRecord is the exported form of a Trial.
type TrialRecord struct {
	Index      int     `json:"index"`
	BlockIndex int     `json:"block_index"`
	Cue        int     `json:"cue"`
	StartTime  float64 `json:"start_time"`
	Events     []Event `json:"events"`
}

// EventCount returns the number of events across every trial of the block.
func (b BlockRecord) EventCount() int {
	n := 0
	for _, t := range b.Trials {
		n += len(t.Events)
	}
	return n
}
