package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mobeets/instrumental-river-raid/internal/banner"
	"github.com/mobeets/instrumental-river-raid/internal/cli"
	"github.com/mobeets/instrumental-river-raid/internal/config"
	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
	"github.com/mobeets/instrumental-river-raid/internal/experiment"
	"github.com/mobeets/instrumental-river-raid/internal/export"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
	"github.com/mobeets/instrumental-river-raid/internal/sequence"
	"github.com/mobeets/instrumental-river-raid/internal/session"
	sighandler "github.com/mobeets/instrumental-river-raid/internal/signal"
	"github.com/mobeets/instrumental-river-raid/internal/store"
)

func runSession(cmd *cobra.Command, flagCfg *config.Config) error {
	cfg, err := loadConfig(cmd, flagCfg)
	if err != nil {
		return err
	}
	logging.SetVerbose(cfg.Verbose)
	// Environment and config files bypass flag validation.
	if err := cli.ValidatePolicy(cfg.SubjectPolicy); err != nil {
		return fmt.Errorf("subject policy: %w", err)
	}

	blocksPath, paramsPath := config.ResolvePaths(cfg)
	blocks, err := config.LoadBlocks(blocksPath)
	if err != nil {
		return err
	}
	params, err := config.LoadParams(paramsPath)
	if err != nil {
		return err
	}

	ctx, stop := sighandler.Watch(cmd.Context(), func(sig os.Signal) {
		logging.Warn(fmt.Sprintf("Received %s, saving partial session...", sig))
	})
	defer stop()

	sessionID := uuid.New()
	sink, closeSinks, err := openSinks(ctx, cfg, sessionID)
	if err != nil {
		return err
	}
	defer closeSinks()

	src, seed := sequence.NewSeededRand(cfg.Seed)
	clock := session.NewFrameClock(params.FPS)
	exp, err := experiment.New(experiment.Options{
		SubjectID:  cfg.SubjectID,
		BlocksPath: blocksPath,
		ParamsPath: paramsPath,
		Blocks:     blocks,
		Params:     params,
		Sink:       sink,
		Clock:      clock,
		Rand:       src,
		Seed:       seed,
	})
	if err != nil {
		return err
	}

	banner.PrintStartupBanner(banner.SessionInfo{
		SubjectID:  cfg.SubjectID,
		BlocksPath: blocksPath,
		ParamsPath: paramsPath,
		Blocks:     len(blocks),
		Seed:       seed,
		Policy:     cfg.SubjectPolicy,
	})
	exp.Start(map[string]any{
		"runner":     "river-raid " + version,
		"session_id": sessionID.String(),
		"policy":     cfg.SubjectPolicy,
		"fps":        params.FPS,
	})

	driver, err := session.New(session.Options{
		Experiment: exp,
		Subject:    newSubject(cfg.SubjectPolicy, src),
		Rand:       src,
		Sink:       sink,
		Clock:      clock,
		OnSave: func(rec experiment.ExperimentRecord) error {
			path, err := export.Save(rec, cfg.OutputDir)
			if err != nil {
				return err
			}
			logging.Success("Saved session to " + path)
			return nil
		},
	})
	if err != nil {
		return err
	}

	started := time.Now()
	runErr := driver.Run(ctx, int64(cfg.MaxTicks))

	rec := exp.Record()
	checkErr := export.Validate(&rec)
	if checkErr != nil {
		logging.Error(fmt.Sprintf("Session record failed validation: %v", checkErr))
	}
	// Saved either way so the data can be inspected with `river-raid check`.
	artifact, saveErr := export.Save(rec, cfg.OutputDir)
	if saveErr != nil {
		saveErr = fmt.Errorf("export session: %w", saveErr)
	}
	summary := export.Summarize(&rec)

	switch {
	case runErr == nil:
		banner.PrintBlockTable(summary)
		banner.PrintCompletionBanner(summary, int(time.Since(started).Seconds()), artifact)
	case errors.Is(runErr, session.ErrTickBudget):
		banner.PrintBlockTable(summary)
		banner.PrintIncompleteBanner(clock.Ticks(), int64(cfg.MaxTicks), exp.BlockIndex, len(blocks))
	case errors.Is(runErr, context.Canceled):
		banner.PrintInterruptedBanner(exp.BlockIndex, len(blocks), artifact)
	}
	stats := driver.Stats()
	logging.Debug(fmt.Sprintf("ticks=%d trials=%d hits=%d misses=%d collisions=%d offscreen=%d bonuses=%d",
		stats.Ticks, stats.Trials, stats.Hits, stats.Misses, stats.Collisions, stats.Offscreen, stats.Bonuses))

	return errors.Join(runErr, checkErr, saveErr)
}

func newSubject(policy string, src session.Rand) session.Subject {
	switch strings.ToLower(policy) {
	case config.PolicyOracle:
		return &session.OracleSubject{}
	case config.PolicyRandom:
		return session.NewRandomSubject(src)
	default:
		return session.NewLearningSubject(src)
	}
}

// openSinks builds the record fan-out for cfg. The returned close function
// flushes queued records with a bounded wait.
func openSinks(ctx context.Context, cfg *config.Config, sessionID uuid.UUID) (eventlog.Sink, func(), error) {
	var (
		sinks eventlog.Multi
		st    *store.Store
	)
	closeAll := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sinks.Close(flushCtx); err != nil {
			logging.Warn(fmt.Sprintf("Closing event log: %v", err))
		}
		if st != nil {
			st.Close()
		}
	}

	if cfg.LogFile != "" {
		fs, err := eventlog.NewFileSink(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.LogDB != "" {
		var err error
		if st, err = store.New(cfg.LogDB); err != nil {
			closeAll()
			return nil, nil, err
		}
		ss, err := eventlog.NewStoreSink(ctx, st, sessionID, cfg.SubjectID, eventlog.StoreOptions{})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, ss)
	}
	if cfg.LogWSURL != "" {
		target, err := ingestURL(cfg.LogWSURL, sessionID, cfg.SubjectID)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		ws, err := eventlog.NewWebSocketSink(ctx, target, eventlog.WebSocketOptions{})
		if err != nil {
			// Sessions run without the remote log rather than not at all.
			logging.Warn(fmt.Sprintf("Log server unavailable, continuing without it: %v", err))
		} else {
			sinks = append(sinks, ws)
		}
	}
	if len(sinks) == 0 {
		return eventlog.Discard, closeAll, nil
	}
	return sinks, closeAll, nil
}

// ingestURL tags the log server URL with the session and subject ids.
func ingestURL(raw string, sessionID uuid.UUID, subjectID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse --log-ws-url: %w", err)
	}
	q := u.Query()
	q.Set("session", sessionID.String())
	if subjectID != "" {
		q.Set("subject", subjectID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
