package kd

import "fmt"

// EventKind identifies which structural action an epoch-keyed event applies
// to the student model.
type EventKind string

const (
	// EventHint marks a module's output as a feature-matching target for the hint loss.
	EventHint EventKind = "hint"
	// EventUnfreeze marks a module's parameters as trainable.
	EventUnfreeze EventKind = "unfreeze"
	// EventPrune applies structured channel pruning to a convolutional module.
	EventPrune EventKind = "prune"
)

// Event is one epoch-keyed structural change drawn from config. Events are
// immutable facts; the scheduler tracks firing separately.
type Event struct {
	Name  string // dotted path of the target module in the student topology
	Epoch int
	Kind  EventKind

	// Prune-only per-event overrides; nil falls back to the pruning section.
	CompressRate *float64
	LR           *float64
}

// EventScheduler holds the epoch-keyed event lists and guarantees each event
// fires at most once. Fired events stay in the list with a flag set rather
// than being deleted, so the full plan remains inspectable.
type EventScheduler struct {
	events []Event
	fired  []bool
}

// NewEventScheduler builds a scheduler over the hint, unfreeze, and prune
// lists. Category order (hint, then unfreeze, then prune) and list order
// within each category are preserved for firing.
func NewEventScheduler(hint, unfreeze, prune []Event) *EventScheduler {
	events := make([]Event, 0, len(hint)+len(unfreeze)+len(prune))
	events = append(events, hint...)
	events = append(events, unfreeze...)
	events = append(events, prune...)
	return &EventScheduler{
		events: events,
		fired:  make([]bool, len(events)),
	}
}

// FireDue returns every not-yet-fired event whose epoch equals the given
// epoch, in plan order, and marks them fired. A second call with the same
// epoch returns an empty list.
func (es *EventScheduler) FireDue(epoch int) []Event {
	due := []Event{}
	for i, ev := range es.events {
		if es.fired[i] || ev.Epoch != epoch {
			continue
		}
		es.fired[i] = true
		due = append(due, ev)
	}
	return due
}

// Pending returns the events that have not fired yet, in plan order.
func (es *EventScheduler) Pending() []Event {
	pending := []Event{}
	for i, ev := range es.events {
		if !es.fired[i] {
			pending = append(pending, ev)
		}
	}
	return pending
}

// Events returns the full plan in firing order, fired or not.
func (es *EventScheduler) Events() []Event {
	return es.events
}

// FiredNames returns fired events as stable "kind:name@epoch" keys, used by
// checkpoints to restore at-most-once state across a resume. The epoch is
// part of the key so a plan that targets the same module at two epochs keeps
// the later event pending after a resume.
func (es *EventScheduler) FiredNames() []string {
	keys := []string{}
	for i, ev := range es.events {
		if es.fired[i] {
			keys = append(keys, eventKey(ev))
		}
	}
	return keys
}

// RestoreFired re-marks events whose keys appear in the given list. Unknown
// keys are ignored; a resumed run with an edited plan simply fires the new
// events at their epochs.
func (es *EventScheduler) RestoreFired(keys []string) {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	for i, ev := range es.events {
		if set[eventKey(ev)] {
			es.fired[i] = true
		}
	}
}

func eventKey(ev Event) string {
	return fmt.Sprintf("%s:%s@%d", ev.Kind, ev.Name, ev.Epoch)
}
