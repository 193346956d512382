// Package cli provides flag binding and validation for the river-raid CLI.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mobeets/instrumental-river-raid/internal/config"
)

// BindRunFlags registers the session flags of the run command. The flags
// write straight into cfg; BuildOverrides later picks out the ones the user
// actually set so config files are not shadowed by flag defaults.
func BindRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Session documents
	flags.StringVarP(&cfg.SubjectID, "subject", "s", cfg.SubjectID, "Subject identifier written into every record")
	flags.StringVarP(&cfg.Experiment, "experiment", "e", cfg.Experiment, "Block list name under --config-dir, or a .json path")
	flags.StringVar(&cfg.ParamsName, "params", cfg.ParamsName, "Parameter document name under --config-dir, or a .json path")
	flags.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "Directory holding block lists and parameter documents")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory for session artifacts")
	flags.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 seeds from the clock)")

	// Log sinks
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append records to this JSON-lines file")
	flags.StringVar(&cfg.LogWSURL, "log-ws-url", cfg.LogWSURL, "Ship records to a log server (ws://host:port/ws)")
	flags.StringVar(&cfg.LogDB, "log-db", cfg.LogDB, "Store records in this SQLite database")

	// Simulated subject
	flags.StringVar(&cfg.SubjectPolicy, "policy", cfg.SubjectPolicy, "Subject policy: oracle, random or learning")
	flags.IntVar(&cfg.MaxTicks, "max-ticks", cfg.MaxTicks, "Stop after this many frames (0 for no limit)")

	bindCommon(cmd, cfg)
}

// BindServeFlags registers the flags of the serve command.
func BindServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flags.StringVar(&cfg.LogDB, "log-db", cfg.LogDB, "SQLite database for received records")
	bindCommon(cmd, cfg)
}

func bindCommon(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path to additional config file")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show per-trial debug output")
}

// ValidateFlags checks flag values after parsing.
func ValidateFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.ConfigFile != "" {
		if _, err := os.Stat(cfg.ConfigFile); err != nil {
			return fmt.Errorf("--config: %w", err)
		}
	}
	if cmd.Flags().Lookup("policy") != nil {
		if err := ValidatePolicy(cfg.SubjectPolicy); err != nil {
			return fmt.Errorf("--policy: %w", err)
		}
	}
	if cfg.MaxTicks < 0 {
		return fmt.Errorf("--max-ticks must be non-negative, got: %d", cfg.MaxTicks)
	}
	if cfg.LogWSURL != "" && !strings.HasPrefix(cfg.LogWSURL, "ws://") && !strings.HasPrefix(cfg.LogWSURL, "wss://") {
		return fmt.Errorf("--log-ws-url must start with ws:// or wss://, got: %s", cfg.LogWSURL)
	}
	return nil
}

// ValidatePolicy rejects unknown subject policies.
func ValidatePolicy(policy string) error {
	switch strings.ToLower(policy) {
	case config.PolicyOracle, config.PolicyRandom, config.PolicyLearning:
		return nil
	default:
		return fmt.Errorf("must be 'oracle', 'random' or 'learning', got: %s", policy)
	}
}

// BuildOverrides returns the config keys for flags explicitly set on cmd.
func BuildOverrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	overrides := make(map[string]string)

	stringFlags := map[string]struct {
		key string
		val string
	}{
		"subject":    {"SUBJECT_ID", cfg.SubjectID},
		"experiment": {"EXPERIMENT", cfg.Experiment},
		"params":     {"PARAMS_NAME", cfg.ParamsName},
		"config-dir": {"CONFIG_DIR", cfg.ConfigDir},
		"output-dir": {"OUTPUT_DIR", cfg.OutputDir},
		"log-file":   {"LOG_FILE", cfg.LogFile},
		"log-ws-url": {"LOG_WS_URL", cfg.LogWSURL},
		"log-db":     {"LOG_DB", cfg.LogDB},
		"policy":     {"SUBJECT_POLICY", cfg.SubjectPolicy},
		"seed":       {"SEED", strconv.FormatInt(cfg.Seed, 10)},
		"max-ticks":  {"MAX_TICKS", strconv.Itoa(cfg.MaxTicks)},
		"verbose":    {"VERBOSE", strconv.FormatBool(cfg.Verbose)},
	}
	for flag, mapping := range stringFlags {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			overrides[mapping.key] = mapping.val
		}
	}
	return overrides
}

// PlanOptions holds the flags of the plan command.
type PlanOptions struct {
	Themes               []string
	Out                  string
	Seed                 int64
	Runs                 int
	TrialsPerCue         int
	PracticeTrialsPerCue int
}

// BindPlanFlags registers the flags of the plan command.
func BindPlanFlags(cmd *cobra.Command, opts *PlanOptions) {
	flags := cmd.Flags()
	flags.StringSliceVar(&opts.Themes, "themes", nil, "Comma-separated sprite themes, cycled over themed blocks")
	flags.StringVarP(&opts.Out, "out", "o", "", "Write the block list to this path (required)")
	flags.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 seeds from the clock)")
	flags.IntVar(&opts.Runs, "runs", 2, "Passes over every task")
	flags.IntVar(&opts.TrialsPerCue, "trials-per-cue", 10, "Trials per cue in experimental blocks")
	flags.IntVar(&opts.PracticeTrialsPerCue, "practice-trials-per-cue", 3, "Trials per cue in practice blocks")
}

// ValidatePlan checks the plan flags.
func ValidatePlan(opts *PlanOptions) error {
	var errs []error
	if opts.Out == "" {
		errs = append(errs, errors.New("--out is required"))
	}
	if len(opts.Themes) == 0 {
		errs = append(errs, errors.New("--themes needs at least one theme"))
	}
	if opts.Runs < 1 {
		errs = append(errs, fmt.Errorf("--runs must be at least 1, got: %d", opts.Runs))
	}
	if opts.TrialsPerCue < 1 || opts.PracticeTrialsPerCue < 1 {
		errs = append(errs, errors.New("trials per cue must be at least 1"))
	}
	return errors.Join(errs...)
}
