package idhash

import (
	"crypto/sha256"
	"testing"
	"time"

	"pawlog/internal/domain"
)

func TestComputeEventID(t *testing.T) {
	ts := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		eventType domain.EventType
		location  string
		timestamp time.Time
	}{
		{"pee inside", domain.EventTypePee, domain.LocationInside, ts},
		{"poo outside", domain.EventTypePoo, domain.LocationOutside, ts},
		{"free text location", domain.EventTypePee, "Balcony", ts.Add(90 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeEventID(tt.eventType, tt.location, tt.timestamp)
			if id == "" {
				t.Fatal("expected non-empty id")
			}

			raw, err := Decode(id)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(raw) != sha256.Size {
				t.Errorf("expected %d bytes, got %d", sha256.Size, len(raw))
			}
		})
	}
}

func TestComputeEventID_Deterministic(t *testing.T) {
	ts := time.Date(2024, 5, 17, 21, 45, 0, 0, time.UTC)

	id1 := ComputeEventID(domain.EventTypePoo, domain.LocationOutside, ts)
	id2 := ComputeEventID(domain.EventTypePoo, domain.LocationOutside, ts)

	if id1 != id2 {
		t.Errorf("IDs should be deterministic: %s != %s", id1, id2)
	}
}

func TestComputeEventID_Differs(t *testing.T) {
	ts := time.Date(2024, 5, 17, 21, 45, 0, 0, time.UTC)
	base := ComputeEventID(domain.EventTypePee, domain.LocationInside, ts)

	variants := map[string]string{
		"type":      ComputeEventID(domain.EventTypePoo, domain.LocationInside, ts),
		"location":  ComputeEventID(domain.EventTypePee, domain.LocationOutside, ts),
		"timestamp": ComputeEventID(domain.EventTypePee, domain.LocationInside, ts.Add(time.Second)),
	}

	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s should change the id", field)
		}
	}
}

func TestComputeEventID_SameInstantDifferentOffset(t *testing.T) {
	utc := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("", 2*3600))

	if ComputeEventID(domain.EventTypePee, "Inside", utc) != ComputeEventID(domain.EventTypePee, "Inside", local) {
		t.Error("same instant should hash equally regardless of offset")
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode("0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
	if _, err := Decode("3yZe7d"); err == nil {
		t.Error("expected error for short id")
	}
}
