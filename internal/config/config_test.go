package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobeets/instrumental-river-raid/internal/config"
)

func TestNewDefaultConfigValues(t *testing.T) {
	cfg := config.NewDefaultConfig()
	require.NotNil(t, cfg)

	// Session documents.
	assert.Equal(t, "unknown", cfg.SubjectID)
	assert.Equal(t, "default_experiment", cfg.Experiment)
	assert.Equal(t, "default_params", cfg.ParamsName)
	assert.Equal(t, "configs", cfg.ConfigDir)
	assert.Equal(t, "data", cfg.OutputDir)

	assert.Zero(t, cfg.Seed)

	// Sinks are off by default.
	assert.Empty(t, cfg.LogFile)
	assert.Empty(t, cfg.LogWSURL)
	assert.Empty(t, cfg.LogDB)

	assert.Equal(t, config.PolicyLearning, cfg.SubjectPolicy)
	assert.Equal(t, 2_000_000, cfg.MaxTicks)
	assert.False(t, cfg.Verbose)

	// CLI-only.
	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, "127.0.0.1:8090", cfg.Addr)
}

func TestWhitelistedVarsHasNoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, v := range config.WhitelistedVars {
		assert.False(t, seen[v], "duplicate whitelisted var: %s", v)
		seen[v] = true
	}
}

func TestWhitelistedVarsAreAllApplied(t *testing.T) {
	// Every whitelisted key must change some field when applied.
	for _, key := range config.WhitelistedVars {
		cfg := config.NewDefaultConfig()
		before := *cfg
		value := "42"
		if key == "VERBOSE" {
			value = "true"
		}
		config.ApplyMapToConfig(cfg, map[string]string{key: value})
		assert.NotEqual(t, before, *cfg, "key %s had no effect", key)
	}
}
