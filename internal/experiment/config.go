package experiment

import (
	"encoding/json"
	"fmt"
)

// BlockConfig describes one block of the session as loaded from the
// experiment document.
type BlockConfig struct {
	Name          string `json:"name"`
	NCues         int    `json:"ncues"`
	IsPractice    bool   `json:"is_practice"`
	NTrialsPerCue int    `json:"ntrials_per_cue"`
	Theme         string `json:"theme"`
	Scene         string `json:"scene"`
	Instructions  string `json:"instructions,omitempty"`
}

// Validate checks the block against the recognized game modes and count
// limits. field prefixes the reported field name (e.g. "blocks[2]").
func (c BlockConfig) Validate(field string) error {
	if _, ok := ModeFor(c.Name); !ok {
		return configErr(field+".name", "unknown game mode %q", c.Name)
	}
	if c.NCues < MinCues {
		return configErr(field+".ncues", "must be at least %d, got %d", MinCues, c.NCues)
	}
	if c.NTrialsPerCue < 1 {
		return configErr(field+".ntrials_per_cue", "must be positive, got %d", c.NTrialsPerCue)
	}
	return nil
}

// MinCues is the smallest number of cue identities a block may use.
const MinCues = 2

// ThemeOffset returns the index of the first sprite used for a block with
// ncues cues. Sprite sheets store the cue sets for 2, 3, 4, ... cues back to
// back, so the offset is 2+3+...+(ncues-1).
func ThemeOffset(ncues int) int {
	if ncues < 2 {
		return 0
	}
	return ncues*(ncues-1)/2 - 1
}

// Params holds the session-wide settings. Only NActions and MaxEntropyPolicy
// matter to block construction; the timing fields pace the session driver.
// Keys not modelled here are kept in Extra and written back on export.
type Params struct {
	NActions              int     `json:"nactions"`
	MaxEntropyPolicy      bool    `json:"maxEntropyPolicy"`
	FPS                   float64 `json:"FPS"`
	ITIMeanDuration       float64 `json:"ITI_MEAN_DURATION"`
	ISIDuration           float64 `json:"ISI_DURATION"`
	FeedbackDuration      float64 `json:"FEEDBACK_DURATION"`
	MaxBoats              int     `json:"MAX_BOATS"`
	MaxProjectiles        int     `json:"MAX_PROJECTILES"`
	ShowHUD               bool    `json:"showHUD"`
	Debug                 bool    `json:"debug"`
	BulletsPassThru       bool    `json:"bulletsPassThru"`
	ProjectileShowsNumber bool    `json:"projectileShowsNumber"`

	Extra map[string]json.RawMessage `json:"-"`
}

// DefaultParams returns the parameters used when a document leaves a timing
// field unset.
func DefaultParams() Params {
	return Params{
		NActions:         3,
		MaxEntropyPolicy: true,
		FPS:              60,
		ITIMeanDuration:  1.0,
		ISIDuration:      3.0,
		FeedbackDuration: 0.5,
		MaxBoats:         1,
		MaxProjectiles:   1,
		ShowHUD:          true,
	}
}

// Validate checks the fields block construction depends on.
func (p Params) Validate() error {
	if p.NActions <= 0 {
		return configErr("params.nactions", "must be positive, got %d", p.NActions)
	}
	if p.FPS < 0 || p.ITIMeanDuration < 0 || p.ISIDuration < 0 || p.FeedbackDuration < 0 {
		return configErr("params", "timing constants must be non-negative")
	}
	return nil
}

type paramsAlias Params

// UnmarshalJSON decodes the known fields over the current values and keeps
// the rest in Extra.
func (p *Params) UnmarshalJSON(data []byte) error {
	known := paramsAlias(*p)
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range paramsKeys {
		delete(all, k)
	}
	*p = Params(known)
	if len(all) > 0 {
		p.Extra = all
	} else {
		p.Extra = nil
	}
	return nil
}

// MarshalJSON writes the known fields merged with Extra.
func (p Params) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(paramsAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+len(paramsKeys))
	for k, v := range p.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, fmt.Errorf("merge params: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

var paramsKeys = []string{
	"nactions", "maxEntropyPolicy", "FPS", "ITI_MEAN_DURATION", "ISI_DURATION",
	"FEEDBACK_DURATION", "MAX_BOATS", "MAX_PROJECTILES", "showHUD", "debug",
	"bulletsPassThru", "projectileShowsNumber",
}
