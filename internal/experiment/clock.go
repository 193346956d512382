package experiment

import "time"

// Clock returns the session time in milliseconds. Event timestamps come from
// it, so it must never run backwards.
type Clock interface {
	Millis() float64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() float64

func (f ClockFunc) Millis() float64 { return f() }

type wallClock struct {
	start time.Time
}

// NewClock returns a monotonic clock that reads zero now.
func NewClock() Clock {
	return wallClock{start: time.Now()}
}

func (c wallClock) Millis() float64 {
	return float64(time.Since(c.start).Microseconds()) / 1000
}
