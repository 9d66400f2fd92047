package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"pawlog/internal/domain"
)

// ComputeEventID computes a deterministic event ID using SHA256.
// Formula: SHA256(type|location|timestamp), timestamp as RFC3339Nano in UTC,
// so the same instant recorded with different offsets hashes equally.
// Returns base58-encoded hash.
func ComputeEventID(eventType domain.EventType, location string, timestamp time.Time) string {
	data := fmt.Sprintf("%s|%s|%s",
		string(eventType),
		location,
		timestamp.UTC().Format(time.RFC3339Nano),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// Decode returns the raw hash bytes of an ID produced by ComputeEventID.
func Decode(id string) ([]byte, error) {
	raw, err := base58.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("decode event id: %w", err)
	}
	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("decode event id: got %d bytes, want %d", len(raw), sha256.Size)
	}
	return raw, nil
}
