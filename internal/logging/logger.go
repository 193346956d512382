// Package logging provides colored, leveled console output for the river-raid
// CLI and the session driver.
//
// Every line carries a bracketed level tag. Info, Success and Block go to the
// standard writer; Warn and Error go to the error writer. Debug output is
// suppressed unless verbose mode is enabled via SetVerbose(true).
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	verbose bool
	stdout  io.Writer = os.Stdout
	stderr  io.Writer = os.Stderr
)

var (
	infoPrefix    = color.New(color.FgBlue).SprintFunc()
	successPrefix = color.New(color.FgGreen).SprintFunc()
	warnPrefix    = color.New(color.FgYellow).SprintFunc()
	errorPrefix   = color.New(color.FgRed).SprintFunc()
	blockPrefix   = color.New(color.FgCyan).SprintFunc()
	debugPrefix   = color.New(color.FgMagenta).SprintFunc()
)

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects log output. A nil writer restores the process default.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stdout, stderr = out, errOut
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
}

func writeLine(toErr bool, line string) {
	mu.Lock()
	defer mu.Unlock()
	w := stdout
	if toErr {
		w = stderr
	}
	fmt.Fprintln(w, line)
}

// Info prints an informational message in blue.
func Info(msg string) {
	writeLine(false, infoPrefix("[INFO]")+" "+msg)
}

// Success prints a success message in green.
func Success(msg string) {
	writeLine(false, successPrefix("[SUCCESS]")+" "+msg)
}

// Warn prints a warning in yellow to the error writer.
func Warn(msg string) {
	writeLine(true, warnPrefix("[WARN]")+" "+msg)
}

// Error prints an error in red to the error writer.
func Error(msg string) {
	writeLine(true, errorPrefix("[ERROR]")+" "+msg)
}

// Block prints a block header in cyan between separator lines.
func Block(msg string) {
	sep := blockPrefix("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	writeLine(false, sep)
	writeLine(false, blockPrefix("[BLOCK]")+" "+msg)
	writeLine(false, sep)
}

// Debug prints a message only when verbose mode is enabled.
func Debug(msg string) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if !v {
		return
	}
	writeLine(false, debugPrefix("[DEBUG]")+" "+msg)
}

// FormatDuration converts a duration in seconds to a human-readable string.
//
// Examples:
//
//	FormatDuration(0)    => "0s"
//	FormatDuration(45)   => "45s"
//	FormatDuration(90)   => "1m 30s"
//	FormatDuration(3661) => "1h 1m 1s"
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FormatMillis renders a session-clock timestamp (milliseconds since session
// start) with one decimal, e.g. "1532.5ms".
func FormatMillis(ms float64) string {
	return fmt.Sprintf("%.1fms", ms)
}
