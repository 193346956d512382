package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var whitelistSet map[string]bool

func init() {
	whitelistSet = make(map[string]bool, len(WhitelistedVars))
	for _, v := range WhitelistedVars {
		whitelistSet[v] = true
	}
}

// LoadFile parses a KEY=VALUE config file.
//
// Blank lines, # comments and lines without '=' are skipped. Keys and values
// are trimmed; a value may be wrapped in single or double quotes. Keys outside
// WhitelistedVars are dropped.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if !whitelistSet[key] {
			continue
		}
		result[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return result, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// LoadWithPrecedence assembles a Config from, in increasing priority:
//
//  1. Built-in defaults
//  2. Global config file (globalPath, optional)
//  3. Project config file (projectPath, optional)
//  4. Explicit config file (explicitPath, must exist when given)
//  5. RIVER_RAID_* environment variables
//  6. CLI overrides
func LoadWithPrecedence(globalPath, projectPath, explicitPath string, cliOverrides map[string]string) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, layer := range []struct {
		name, path string
	}{
		{"global", globalPath},
		{"project", projectPath},
	} {
		if layer.path == "" {
			continue
		}
		m, err := LoadFile(layer.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s config: %w", layer.name, err)
		}
		ApplyMapToConfig(cfg, m)
	}

	if explicitPath != "" {
		m, err := LoadFile(explicitPath)
		if err != nil {
			return nil, fmt.Errorf("explicit config: %w", err)
		}
		ApplyMapToConfig(cfg, m)
	}

	envVars, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	ApplyMapToConfig(cfg, envVars)

	if len(cliOverrides) > 0 {
		ApplyMapToConfig(cfg, cliOverrides)
	}
	return cfg, nil
}

// ApplyMapToConfig sets fields on cfg from whitelisted keys in m. Numbers that
// fail to parse leave the previous value in place.
func ApplyMapToConfig(cfg *Config, m map[string]string) {
	for key, value := range m {
		switch key {
		case "SUBJECT_ID":
			cfg.SubjectID = value
		case "EXPERIMENT":
			cfg.Experiment = value
		case "PARAMS_NAME":
			cfg.ParamsName = value
		case "CONFIG_DIR":
			cfg.ConfigDir = value
		case "OUTPUT_DIR":
			cfg.OutputDir = value
		case "SEED":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				cfg.Seed = v
			}
		case "LOG_FILE":
			cfg.LogFile = value
		case "LOG_WS_URL":
			cfg.LogWSURL = value
		case "LOG_DB":
			cfg.LogDB = value
		case "SUBJECT_POLICY":
			cfg.SubjectPolicy = strings.ToLower(value)
		case "MAX_TICKS":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.MaxTicks = v
			}
		case "VERBOSE":
			cfg.Verbose = parseBool(value)
		}
	}
}

// parseBool treats "true", "1" and "yes" (any case) as true.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
