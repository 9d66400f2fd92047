package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pawlog/internal/domain"
)

func TestValidate(t *testing.T) {
	valid := func() *domain.Event {
		return &domain.Event{
			ID:        "id-1",
			Type:      domain.EventTypePee,
			Location:  domain.LocationInside,
			Timestamp: time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
		}
	}

	assert.NoError(t, Validate(valid()))
	assert.ErrorIs(t, Validate(nil), ErrInvalidInput)

	noID := valid()
	noID.ID = ""
	assert.ErrorIs(t, Validate(noID), ErrInvalidInput)

	badType := valid()
	badType.Type = "Vomit"
	assert.ErrorIs(t, Validate(badType), ErrInvalidInput)

	noLocation := valid()
	noLocation.Location = ""
	assert.ErrorIs(t, Validate(noLocation), ErrInvalidInput)

	noTime := valid()
	noTime.Timestamp = time.Time{}
	assert.ErrorIs(t, Validate(noTime), ErrInvalidInput)
}
