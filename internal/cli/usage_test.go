package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobeets/instrumental-river-raid/internal/config"
)

func TestHelpTemplate_ContainsBoundFlags(t *testing.T) {
	cfg := config.NewDefaultConfig()
	run := &cobra.Command{Use: "run"}
	serve := &cobra.Command{Use: "serve"}
	plan := &cobra.Command{Use: "plan"}
	BindRunFlags(run, cfg)
	BindServeFlags(serve, cfg)
	BindPlanFlags(plan, &PlanOptions{})

	for _, cmd := range []*cobra.Command{run, serve, plan} {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			assert.Contains(t, helpTemplate, "--"+f.Name, "help is missing %s flag --%s", cmd.Use, f.Name)
		})
	}
}

func TestHelpTemplate_ListsExitCodes(t *testing.T) {
	for _, want := range []string{"ConfigInvalid", "Incomplete", "Inconsistent", "Interrupted", "130"} {
		assert.Contains(t, helpTemplate, want)
	}
}

func TestSetCustomHelp_InheritedBySubcommands(t *testing.T) {
	root := &cobra.Command{Use: "river-raid"}
	sub := &cobra.Command{Use: "run", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(sub)
	SetCustomHelp(root)

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"run", "--help"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "river-raid - instrumental learning experiment engine")
}
