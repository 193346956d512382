// Package eventlog is the fire-and-forget sink for structured session
// records.
//
// The experiment core hands every lifecycle transition and trial event to a
// Sink exactly once, in call order, synchronously with the operation that
// produced it. Sinks never report failures back to the caller: delivery is
// best-effort and a broken transport must not stall block or trial
// progression.
package eventlog

import (
	"context"
	"errors"
	"time"
)

// Message types emitted by the experiment core and the session driver.
const (
	StartExperiment = "start of Experiment"
	EndExperiment   = "end of Experiment"
	StartBlock      = "start of TrialBlock"
	EndBlock        = "end of TrialBlock"
	StartTrial      = "start of Trial"
	EndTrial        = "end of Trial"
	TrialEvent      = "Trial event"
	Interaction     = "interaction"
)

// Record is one log entry.
type Record struct {
	MessageType string    `json:"message_type"`
	Payload     any       `json:"payload"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives records. Implementations must not block on I/O for longer
// than a local write and must swallow their own errors.
type Sink interface {
	Log(rec Record)
}

// Closer is implemented by sinks that buffer or hold connections.
type Closer interface {
	Close(ctx context.Context) error
}

// Now is the wall clock used to stamp records.
var Now = func() time.Time { return time.Now().UTC() }

// Emit stamps a record and hands it to s. A nil sink discards it.
func Emit(s Sink, messageType string, payload any) {
	if s == nil {
		return
	}
	s.Log(Record{MessageType: messageType, Payload: payload, Timestamp: Now()})
}

type discard struct{}

func (discard) Log(Record) {}

// Discard drops every record.
var Discard Sink = discard{}

// Multi fans records out to every sink in order.
type Multi []Sink

func (m Multi) Log(rec Record) {
	for _, s := range m {
		if s != nil {
			s.Log(rec)
		}
	}
}

// Close closes every child sink that implements Closer and joins their errors.
func (m Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(Closer); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
