package experiment

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a block configuration or parameter document that
// cannot drive a session. It is raised before any block starts and is not
// recoverable.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvalidEventError reports a malformed event handed to Trial.Trigger. The
// event is dropped and the trial's event list is left untouched.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return "invalid event: " + e.Reason
}

// ErrNegativeScore is returned when a score decrement is attempted.
var ErrNegativeScore = errors.New("score increments must be non-negative")

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
