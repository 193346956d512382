package experiment

import (
	"maps"

	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
)

// Trial is one presentation of a cue and the events that happened while it
// was on screen.
type Trial struct {
	Index      int
	BlockIndex int
	Cue        int
	StartTime  float64
	Events     []Event

	sink  eventlog.Sink
	clock Clock
	ended bool
}

// Trigger records an event at the current session time and forwards it to
// the sink with the trial's index, cue and block index attached. A malformed
// spec returns *InvalidEventError and nothing is recorded.
func (t *Trial) Trigger(spec EventSpec) error {
	ev, err := normalize(spec)
	if err != nil {
		return err
	}
	ev.Time = t.clock.Millis()
	if n := len(t.Events); n > 0 && ev.Time < t.Events[n-1].Time {
		ev.Time = t.Events[n-1].Time
	}
	t.Events = append(t.Events, ev)

	payload := ev.flatten()
	payload["index"] = t.Index
	payload["cue"] = t.Cue
	payload["block_index"] = t.BlockIndex
	eventlog.Emit(t.sink, eventlog.TrialEvent, payload)
	return nil
}

// Count returns how many recorded events satisfy pred.
func (t *Trial) Count(pred func(name string) bool) int {
	n := 0
	for _, ev := range t.Events {
		if pred(ev.Name) {
			n++
		}
	}
	return n
}

// HasEvent reports whether an event with the given name was recorded.
func (t *Trial) HasEvent(name string) bool {
	return t.Count(func(n string) bool { return n == name }) > 0
}

// end emits "end of Trial" the first time it is called.
func (t *Trial) end() {
	if t.ended {
		return
	}
	t.ended = true
	eventlog.Emit(t.sink, eventlog.EndTrial, t.Record())
}

// Record returns the serializable form of the trial.
func (t *Trial) Record() TrialRecord {
	events := make([]Event, len(t.Events))
	for i, ev := range t.Events {
		events[i] = Event{Name: ev.Name, Time: ev.Time, Fields: maps.Clone(ev.Fields)}
	}
	return TrialRecord{
		Index:      t.Index,
		BlockIndex: t.BlockIndex,
		Cue:        t.Cue,
		StartTime:  t.StartTime,
		Events:     events,
	}
}
