// Package config defines the river-raid runtime configuration and loads the
// session documents (block list and parameters) it points at.
//
// Runtime settings are merged in increasing priority: built-in defaults,
// global config file, project config file, explicit config file, RIVER_RAID_*
// environment variables, CLI flags.
package config

// WhitelistedVars lists the keys accepted in KEY=VALUE config files. Other
// keys are ignored.
var WhitelistedVars = [12]string{
	"SUBJECT_ID",
	"EXPERIMENT",
	"PARAMS_NAME",
	"CONFIG_DIR",
	"OUTPUT_DIR",
	"SEED",
	"LOG_FILE",
	"LOG_WS_URL",
	"LOG_DB",
	"SUBJECT_POLICY",
	"MAX_TICKS",
	"VERBOSE",
}

// Subject policies understood by the session driver.
const (
	PolicyOracle   = "oracle"
	PolicyRandom   = "random"
	PolicyLearning = "learning"
)

// Config holds the settings for one river-raid invocation.
type Config struct {
	// Session identity and documents.
	SubjectID  string
	Experiment string
	ParamsName string
	ConfigDir  string
	OutputDir  string

	// Randomization. Zero seeds from the clock.
	Seed int64

	// Log sinks. Empty disables the sink.
	LogFile  string
	LogWSURL string
	LogDB    string

	// Simulated subject.
	SubjectPolicy string
	MaxTicks      int

	Verbose bool

	// CLI-only flags (not loaded from config files).
	ConfigFile string
	Addr       string
}

// NewDefaultConfig returns a Config populated with the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		SubjectID:     "unknown",
		Experiment:    "default_experiment",
		ParamsName:    "default_params",
		ConfigDir:     "configs",
		OutputDir:     "data",
		SubjectPolicy: PolicyLearning,
		MaxTicks:      2_000_000,
		Addr:          "127.0.0.1:8090",
	}
}
