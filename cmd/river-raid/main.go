package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mobeets/instrumental-river-raid/internal/banner"
	"github.com/mobeets/instrumental-river-raid/internal/cli"
	"github.com/mobeets/instrumental-river-raid/internal/config"
	"github.com/mobeets/instrumental-river-raid/internal/exitcode"
	"github.com/mobeets/instrumental-river-raid/internal/session"
)

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "river-raid",
		Short:         "Instrumental learning experiment engine",
		Long:          "river-raid sequences blocks and trials of the instrumental River Raid task, logs every event and exports the session.",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCfg := config.NewDefaultConfig()
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Play a session with a simulated subject and export the artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateFlags(cmd, runCfg); err != nil {
				return err
			}
			return runSession(cmd, runCfg)
		},
	}
	cli.BindRunFlags(runCmd, runCfg)

	var planOpts cli.PlanOptions
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a randomized block list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidatePlan(&planOpts); err != nil {
				return err
			}
			return runPlan(planOpts)
		},
	}
	cli.BindPlanFlags(planCmd, &planOpts)

	serveCfg := config.NewDefaultConfig()
	serveCfg.LogDB = "river-raid.db"
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the log ingest server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateFlags(cmd, serveCfg); err != nil {
				return err
			}
			return runServe(cmd, serveCfg)
		},
	}
	cli.BindServeFlags(serveCmd, serveCfg)

	checkCmd := &cobra.Command{
		Use:   "check <artifact.json>",
		Short: "Validate a session artifact and print its block table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args[0])
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version, commit, build date",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "river-raid "+versionString())
		},
	}

	rootCmd.AddCommand(runCmd, planCmd, serveCmd, checkCmd, versionCmd)
	cli.SetCustomHelp(rootCmd)
	return rootCmd
}

func main() {
	err := newRootCmd().Execute()
	code := exitcode.FromError(err)
	switch {
	case err == nil:
	case code == exitcode.Interrupted, errors.Is(err, session.ErrTickBudget):
		// already reported by the session banners
	default:
		banner.PrintErrorBanner(err)
	}
	os.Exit(code)
}

// loadConfig layers config files, environment and the flags the user set.
func loadConfig(cmd *cobra.Command, flagCfg *config.Config) (*config.Config, error) {
	globalConfigPath := ""
	if dir, err := os.UserConfigDir(); err == nil {
		globalConfigPath = filepath.Join(dir, "river-raid", "config")
	}
	projectConfigPath := ".river-raid"

	cfg, err := config.LoadWithPrecedence(globalConfigPath, projectConfigPath, flagCfg.ConfigFile, cli.BuildOverrides(cmd, flagCfg))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI-only flags
	cfg.ConfigFile = flagCfg.ConfigFile
	cfg.Addr = flagCfg.Addr
	return cfg, nil
}
