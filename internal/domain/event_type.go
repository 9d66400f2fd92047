package domain

import "strings"

// EventType is the category of a recorded bathroom event.
type EventType string

const (
	EventTypePee EventType = "Pee"
	EventTypePoo EventType = "Poo"
)

// EventTypes lists every tracked type in output order.
var EventTypes = []EventType{EventTypePee, EventTypePoo}

// String returns the string representation of EventType.
func (t EventType) String() string {
	return string(t)
}

// Key returns the lower-cased name used as prefix in statistics output.
func (t EventType) Key() string {
	return strings.ToLower(string(t))
}

// IsValid checks if the event type is one of EventTypes.
func (t EventType) IsValid() bool {
	return t == EventTypePee || t == EventTypePoo
}

// ParseEventType resolves a type name case-insensitively.
func ParseEventType(s string) (EventType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range EventTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

// Well-known locations. Any non-empty string is accepted as a location.
const (
	LocationInside  = "Inside"
	LocationOutside = "Outside"
)
