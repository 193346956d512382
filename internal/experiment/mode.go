package experiment

// Mode describes how a game-mode name changes the presentation of a block.
type Mode struct {
	Name string
	// Immobile pins the agent; cues cannot collide with it.
	Immobile bool
	// ShowAnswers labels each cue with its correct action.
	ShowAnswers bool
	// MustHitLocation requires hitting the cue tile matching the action.
	MustHitLocation bool
}

// Recognized game-mode names.
const (
	ModeTargets              = "targets"
	ModeInstrumental         = "instrumental"
	ModeTargetsInstrumental  = "targets-instrumental"
	ModeLocationInstrumental = "locations-instrumental"
)

var modes = map[string]Mode{
	ModeTargets:              {Name: ModeTargets, ShowAnswers: true},
	ModeInstrumental:         {Name: ModeInstrumental, Immobile: true},
	ModeTargetsInstrumental:  {Name: ModeTargetsInstrumental},
	ModeLocationInstrumental: {Name: ModeLocationInstrumental, MustHitLocation: true},
}

// ModeFor looks up a game mode by block name.
func ModeFor(name string) (Mode, bool) {
	m, ok := modes[name]
	return m, ok
}
