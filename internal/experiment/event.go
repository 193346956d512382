package experiment

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// EventSpec is the input to Trial.Trigger: either a NamedEvent or a
// StructuredEvent.
type EventSpec interface {
	eventSpec()
}

// NamedEvent is an event identified only by its name.
type NamedEvent string

// StructuredEvent is a named event carrying extra fields.
type StructuredEvent struct {
	Name   string
	Fields map[string]any
}

func (NamedEvent) eventSpec()      {}
func (StructuredEvent) eventSpec() {}

// Trigger names emitted by the session driver.
const (
	CueCreated         = "cue created"
	CueOnset           = "cue onset"
	CueOffsetHit       = "cue offset - hit"
	CueOffsetCollision = "cue offset - collision"
	CueOffsetOffscreen = "cue offset - offscreen"
	ProjectileOnset    = "projectile onset"
	ProjectileMiss     = "projectile offset - miss"
)

// IsOnset reports whether name marks the cue becoming visible.
func IsOnset(name string) bool { return name == CueOnset }

// IsOffset reports whether name marks the cue leaving the screen.
func IsOffset(name string) bool { return strings.HasPrefix(name, "cue offset") }

// reserved keys are set by the trial itself when an event is stored or
// forwarded.
var reservedKeys = []string{"name", "time", "index", "cue", "block_index"}

// Event is a timestamped occurrence within a trial.
type Event struct {
	Name   string
	Time   float64
	Fields map[string]any
}

func normalize(spec EventSpec) (Event, error) {
	switch s := spec.(type) {
	case nil:
		return Event{}, &InvalidEventError{Reason: "missing event"}
	case NamedEvent:
		return normalizeNamed(string(s))
	case *NamedEvent:
		if s == nil {
			return Event{}, &InvalidEventError{Reason: "missing event"}
		}
		return normalizeNamed(string(*s))
	case StructuredEvent:
		return normalizeStructured(s)
	case *StructuredEvent:
		if s == nil {
			return Event{}, &InvalidEventError{Reason: "missing event"}
		}
		return normalizeStructured(*s)
	default:
		return Event{}, &InvalidEventError{Reason: fmt.Sprintf("unsupported event type %T", spec)}
	}
}

func normalizeNamed(name string) (Event, error) {
	if strings.TrimSpace(name) == "" {
		return Event{}, &InvalidEventError{Reason: "empty event name"}
	}
	return Event{Name: name}, nil
}

func normalizeStructured(s StructuredEvent) (Event, error) {
	if strings.TrimSpace(s.Name) == "" {
		return Event{}, &InvalidEventError{Reason: "structured event without a name"}
	}
	for _, k := range reservedKeys {
		if _, ok := s.Fields[k]; ok {
			return Event{}, &InvalidEventError{Reason: fmt.Sprintf("field %q is reserved", k)}
		}
	}
	ev := Event{Name: s.Name}
	if len(s.Fields) > 0 {
		ev.Fields = maps.Clone(s.Fields)
	}
	return ev, nil
}

func (e Event) flatten() map[string]any {
	m := make(map[string]any, len(e.Fields)+2)
	maps.Copy(m, e.Fields)
	m["name"] = e.Name
	m["time"] = e.Time
	return m
}

// MarshalJSON writes the event as one flat object: name, time, then fields.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.flatten())
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	name, _ := m["name"].(string)
	t, _ := m["time"].(float64)
	delete(m, "name")
	delete(m, "time")
	*e = Event{Name: name, Time: t}
	if len(m) > 0 {
		e.Fields = m
	}
	return nil
}
