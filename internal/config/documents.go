package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mobeets/instrumental-river-raid/internal/experiment"
)

var (
	requiredBlockKeys  = []string{"name", "ncues", "is_practice", "ntrials_per_cue", "theme", "scene"}
	requiredParamsKeys = []string{"nactions", "maxEntropyPolicy"}
)

// ResolvePaths returns the block and params document paths for cfg. A name
// that already ends in .json is used as a path as-is.
func ResolvePaths(cfg *Config) (blocksPath, paramsPath string) {
	return documentPath(cfg.ConfigDir, cfg.Experiment), documentPath(cfg.ConfigDir, cfg.ParamsName)
}

func documentPath(dir, name string) string {
	if filepath.Ext(name) == ".json" {
		return name
	}
	return filepath.Join(dir, name+".json")
}

// LoadBlocks reads the block list. The document is either a JSON array of
// block configs or an object whose values are block configs, taken in the
// order they appear.
func LoadBlocks(path string) ([]experiment.BlockConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &experiment.ConfigurationError{Field: path, Reason: "cannot read block list", Err: err}
	}
	raws, err := blockEntries(data)
	if err != nil {
		return nil, &experiment.ConfigurationError{Field: path, Reason: "malformed block list", Err: err}
	}
	if len(raws) == 0 {
		return nil, &experiment.ConfigurationError{Field: path, Reason: "no block configurations"}
	}

	blocks := make([]experiment.BlockConfig, 0, len(raws))
	for i, raw := range raws {
		field := fmt.Sprintf("blocks[%d]", i)
		if err := requireKeys(raw, field, requiredBlockKeys); err != nil {
			return nil, err
		}
		var b experiment.BlockConfig
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, &experiment.ConfigurationError{Field: field, Reason: "malformed block", Err: err}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func blockEntries(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected array or object, got %v", tok)
	}
	var raws []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return raws, nil
}

// LoadParams reads the parameter document. Timing fields it leaves out keep
// their defaults; nactions and maxEntropyPolicy must be present.
func LoadParams(path string) (experiment.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return experiment.Params{}, &experiment.ConfigurationError{Field: path, Reason: "cannot read params", Err: err}
	}
	if err := requireKeys(data, "params", requiredParamsKeys); err != nil {
		return experiment.Params{}, err
	}
	p := experiment.DefaultParams()
	if err := json.Unmarshal(data, &p); err != nil {
		return experiment.Params{}, &experiment.ConfigurationError{Field: "params", Reason: "malformed params", Err: err}
	}
	return p, nil
}

func requireKeys(raw []byte, field string, keys []string) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return &experiment.ConfigurationError{Field: field, Reason: "expected a JSON object", Err: err}
	}
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return &experiment.ConfigurationError{Field: field + "." + k, Reason: "missing required field"}
		}
	}
	return nil
}
