package domain

import "time"

// Event is one recorded bathroom event.
// Corresponds to the events table. Immutable once stored.
type Event struct {
	ID        string    // deterministic hash of (type, location, timestamp)
	Type      EventType // Pee | Poo
	Location  string    // Inside | Outside | free text
	Timestamp time.Time // when it happened, keeps the recorded UTC offset
	CreatedAt time.Time // record creation time
}
