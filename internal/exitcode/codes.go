// Package exitcode defines named exit codes for the river-raid CLI and maps
// command errors onto them.
package exitcode

import (
	"context"
	"errors"

	"github.com/mobeets/instrumental-river-raid/internal/experiment"
	"github.com/mobeets/instrumental-river-raid/internal/export"
	"github.com/mobeets/instrumental-river-raid/internal/session"
)

const (
	Success       = 0   // Session completed and exported
	Error         = 1   // I/O failure, bad flags, unexpected error
	ConfigInvalid = 2   // Block or parameter documents rejected
	Incomplete    = 3   // Tick budget ran out before the last block ended
	Inconsistent  = 4   // Session artifact failed validation
	Interrupted   = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case ConfigInvalid:
		return "ConfigInvalid"
	case Incomplete:
		return "Incomplete"
	case Inconsistent:
		return "Inconsistent"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}

// FromError picks the exit code for the error a command returned.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case experiment.IsConfigurationError(err):
		return ConfigInvalid
	case errors.Is(err, export.ErrInvalidArtifact):
		return Inconsistent
	case errors.Is(err, session.ErrTickBudget):
		return Incomplete
	case errors.Is(err, context.Canceled):
		return Interrupted
	default:
		return Error
	}
}
