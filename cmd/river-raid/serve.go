package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mobeets/instrumental-river-raid/internal/banner"
	"github.com/mobeets/instrumental-river-raid/internal/config"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
	"github.com/mobeets/instrumental-river-raid/internal/logserver"
	sighandler "github.com/mobeets/instrumental-river-raid/internal/signal"
	"github.com/mobeets/instrumental-river-raid/internal/store"
)

func runServe(cmd *cobra.Command, flagCfg *config.Config) error {
	cfg, err := loadConfig(cmd, flagCfg)
	if err != nil {
		return err
	}
	logging.SetVerbose(cfg.Verbose)

	st, err := store.New(cfg.LogDB)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := sighandler.Watch(cmd.Context(), func(sig os.Signal) {
		logging.Warn(fmt.Sprintf("Received %s, shutting down", sig))
	})
	defer stop()

	banner.PrintServerBanner(cfg.Addr, cfg.LogDB)
	if err := logserver.Serve(ctx, cfg.Addr, logserver.NewServer(st).Routes()); err != nil {
		return err
	}
	logging.Success("Log server stopped")
	return nil
}
