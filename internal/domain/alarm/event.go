package alarm

import (
	"time"

	"github.com/google/uuid"
)

// Event represents one alarm occurrence included in a notification batch.
type Event struct {
	// ID uniquely identifies the alarm event in the alarm framework.
	ID uuid.UUID
	// Source is the path of the alarm that produced the event.
	Source string
	// DisplayPath is the human-readable label shown in notifications.
	DisplayPath string
	// Acked indicates whether the event was already acknowledged
	// by the time the notification was assembled.
	Acked bool
}

// Clone returns a copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}

// CloneEvents returns a copy of the provided batch.
// The batch held by a pending acknowledgment is never mutated after
// creation, so copies are handed out instead of shared slices.
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}

	cloned := make([]Event, len(events))
	copy(cloned, events)

	return cloned
}

// AckMeta describes who acknowledged a batch of events and when.
type AckMeta struct {
	// User is the identity of the acknowledging recipient.
	User string
	// Time is when the acknowledging reply was received by the gateway.
	Time time.Time
}
