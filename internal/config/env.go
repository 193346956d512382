package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envLayer mirrors the whitelisted keys under the RIVER_RAID_ prefix. Empty
// values leave the lower layers untouched.
type envLayer struct {
	SubjectID     string `env:"RIVER_RAID_SUBJECT_ID"`
	Experiment    string `env:"RIVER_RAID_EXPERIMENT"`
	ParamsName    string `env:"RIVER_RAID_PARAMS_NAME"`
	ConfigDir     string `env:"RIVER_RAID_CONFIG_DIR"`
	OutputDir     string `env:"RIVER_RAID_OUTPUT_DIR"`
	Seed          string `env:"RIVER_RAID_SEED"`
	LogFile       string `env:"RIVER_RAID_LOG_FILE"`
	LogWSURL      string `env:"RIVER_RAID_LOG_WS_URL"`
	LogDB         string `env:"RIVER_RAID_LOG_DB"`
	SubjectPolicy string `env:"RIVER_RAID_SUBJECT_POLICY"`
	MaxTicks      string `env:"RIVER_RAID_MAX_TICKS"`
	Verbose       string `env:"RIVER_RAID_VERBOSE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv returns the RIVER_RAID_* variables that are set, keyed by their
// whitelisted config name.
func LoadEnv() (map[string]string, error) {
	var l envLayer
	if err := ParseEnv(&l); err != nil {
		return nil, err
	}
	m := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	set("SUBJECT_ID", l.SubjectID)
	set("EXPERIMENT", l.Experiment)
	set("PARAMS_NAME", l.ParamsName)
	set("CONFIG_DIR", l.ConfigDir)
	set("OUTPUT_DIR", l.OutputDir)
	set("SEED", l.Seed)
	set("LOG_FILE", l.LogFile)
	set("LOG_WS_URL", l.LogWSURL)
	set("LOG_DB", l.LogDB)
	set("SUBJECT_POLICY", l.SubjectPolicy)
	set("MAX_TICKS", l.MaxTicks)
	set("VERBOSE", l.Verbose)
	return m, nil
}
