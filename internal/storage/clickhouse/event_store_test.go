package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawlog/internal/domain"
	"pawlog/internal/idhash"
	"pawlog/internal/storage"
	"pawlog/internal/storage/clickhouse"
)

func newEvent(t domain.EventType, location string, ts time.Time) *domain.Event {
	return &domain.Event{
		ID:        idhash.ComputeEventID(t, location, ts),
		Type:      t,
		Location:  location,
		Timestamp: ts,
	}
}

func TestEventStore_AppendBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	assert.NoError(t, store.AppendBulk(ctx, nil))

	base := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	events := []*domain.Event{
		newEvent(domain.EventTypePee, domain.LocationOutside, base.Add(4*time.Hour)),
		newEvent(domain.EventTypePee, domain.LocationInside, base),
		newEvent(domain.EventTypePoo, domain.LocationOutside, base.Add(time.Hour)),
	}
	require.NoError(t, store.AppendBulk(ctx, events))

	got, err := store.GetByType(ctx, domain.EventTypePee)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events[1].ID, got[0].ID)
	assert.Equal(t, events[0].ID, got[1].ID)
	assert.True(t, base.Equal(got[0].Timestamp))
	assert.Equal(t, domain.LocationInside, got[0].Location)

	n, err := store.Count(ctx, domain.EventTypePoo)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEventStore_Append_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	e := newEvent(domain.EventTypePoo, domain.LocationOutside, time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC))
	require.NoError(t, store.Append(ctx, e))

	err := store.Append(ctx, e)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEventStore_AppendBulk_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	e := newEvent(domain.EventTypePee, domain.LocationInside, time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC))
	err := store.AppendBulk(ctx, []*domain.Event{e, e})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	n, err := store.Count(ctx, domain.EventTypePee)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEventStore_PreservesWallClock(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	zone := time.FixedZone("", 5*3600+1800)
	e := newEvent(domain.EventTypePee, domain.LocationInside, time.Date(2024, 6, 1, 23, 15, 0, 0, zone))
	require.NoError(t, store.Append(ctx, e))

	got, err := store.GetByType(ctx, domain.EventTypePee)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 23, got[0].Timestamp.Hour())
	assert.Equal(t, "2024-06-01", got[0].Timestamp.Format("2006-01-02"))
}

func TestEventStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewEventStore(conn)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var events []*domain.Event
	for _, h := range []int{1, 5, 9, 13} {
		events = append(events, newEvent(domain.EventTypePoo, domain.LocationOutside, base.Add(time.Duration(h)*time.Hour)))
	}
	require.NoError(t, store.AppendBulk(ctx, events))

	got, err := store.GetByTimeRange(ctx, domain.EventTypePoo, base.Add(5*time.Hour), base.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, events[1].ID, got[0].ID)
	assert.Equal(t, events[2].ID, got[1].ID)
}
