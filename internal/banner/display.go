// Package banner prints the colored session banners of the river-raid CLI:
// session start, per-block summaries, completion, interruption and the
// ingest server's startup notice.
package banner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/mobeets/instrumental-river-raid/internal/export"
	"github.com/mobeets/instrumental-river-raid/internal/logging"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const rule = "═══════════════════════════════════════════════════"

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects banners; nil restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

func printLines(lines ...string) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
}

// SessionInfo describes the session being started.
type SessionInfo struct {
	SubjectID  string
	BlocksPath string
	ParamsPath string
	Blocks     int
	Seed       int64
	Policy     string
}

// PrintStartupBanner displays the session header.
//
// Example output:
//
//	═══════════════════════════════════════════════════
//	  river-raid - instrumental learning session
//	═══════════════════════════════════════════════════
//	  Subject:    s01
//	  Blocks:     configs/pilot.json (21 blocks)
//	  Params:     configs/default_params.json
//	  Seed:       1700000000
//	  Policy:     learning
//	═══════════════════════════════════════════════════
func PrintStartupBanner(info SessionInfo) {
	sep := headerColor(rule)
	printLines(
		sep,
		headerColor("  river-raid - instrumental learning session"),
		sep,
		fmt.Sprintf("  Subject:    %s", info.SubjectID),
		fmt.Sprintf("  Blocks:     %s (%d blocks)", info.BlocksPath, info.Blocks),
		fmt.Sprintf("  Params:     %s", info.ParamsPath),
		fmt.Sprintf("  Seed:       %d", info.Seed),
		fmt.Sprintf("  Policy:     %s", info.Policy),
		sep,
	)
}

// PrintBlockTable lists the per-block outcomes of a session.
func PrintBlockTable(s export.Summary) {
	sep := strings.Repeat("─", 51)
	lines := []string{sep, fmt.Sprintf("  %-3s %-24s %5s %6s %6s %6s", "#", "game", "cues", "trials", "score", "acc")}
	for _, b := range s.Blocks {
		name := b.Name
		if b.IsPractice {
			name += " (practice)"
		}
		lines = append(lines, fmt.Sprintf("  %-3d %-24s %5d %6d %6d %5.0f%%",
			b.BlockIndex+1, name, b.NCues, b.Trials, b.Score, 100*b.Accuracy()))
	}
	lines = append(lines, sep)
	printLines(lines...)
}

// PrintCompletionBanner displays the end-of-session totals.
func PrintCompletionBanner(s export.Summary, durationSecs int, artifact string) {
	sep := successColor(rule)
	printLines(
		sep,
		successColor("  ✓ Session complete"),
		fmt.Sprintf("  Blocks:     %d", len(s.Blocks)),
		fmt.Sprintf("  Trials:     %d", s.TotalTrials),
		fmt.Sprintf("  Score:      %d", s.TotalScore),
		fmt.Sprintf("  Duration:   %s", logging.FormatDuration(durationSecs)),
		fmt.Sprintf("  Saved to:   %s", artifact),
		sep,
	)
}

// PrintIncompleteBanner displays when the tick budget ran out.
func PrintIncompleteBanner(ticks, maxTicks int64, blockIndex, blocks int) {
	sep := warnColor(rule)
	printLines(
		sep,
		warnColor(fmt.Sprintf("  ⚠ Tick budget exhausted (%d/%d)", ticks, maxTicks)),
		fmt.Sprintf("  Reached block %d of %d", blockIndex+1, blocks),
		sep,
	)
}

// PrintInterruptedBanner displays when the session is interrupted.
func PrintInterruptedBanner(blockIndex, blocks int, artifact string) {
	sep := warnColor(rule)
	lines := []string{
		sep,
		warnColor("  ⚠ Session interrupted"),
		fmt.Sprintf("  Block:      %d of %d", blockIndex+1, blocks),
	}
	if artifact != "" {
		lines = append(lines, fmt.Sprintf("  Partial data saved to %s", artifact))
	}
	printLines(append(lines, sep)...)
}

// PrintErrorBanner displays a fatal error.
func PrintErrorBanner(err error) {
	sep := errorColor(rule)
	printLines(
		sep,
		errorColor("  ✗ Session failed"),
		fmt.Sprintf("  %v", err),
		sep,
	)
}

// PrintServerBanner displays the ingest server's listen address and database.
func PrintServerBanner(addr, dbPath string) {
	sep := headerColor(rule)
	printLines(
		sep,
		headerColor("  river-raid log server"),
		sep,
		fmt.Sprintf("  Listening:  http://%s", addr),
		fmt.Sprintf("  Ingest:     ws://%s/ws?session=<uuid>", addr),
		fmt.Sprintf("  Database:   %s", dbPath),
		sep,
	)
}
