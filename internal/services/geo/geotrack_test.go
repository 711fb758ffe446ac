package geo

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/dstracker/internal/models"
)

type memPositions struct {
	saved []models.GeoUpdate
}

func (m *memPositions) Save(_ context.Context, pos *models.GeoUpdate) error {
	pos.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, *pos)
	return nil
}

func (m *memPositions) Last(_ context.Context, userID string, since time.Time) (*models.LastPosition, error) {
	for i := len(m.saved) - 1; i >= 0; i-- {
		p := m.saved[i]
		if p.UserID == userID && !p.CreatedAt.Before(since) {
			return &models.LastPosition{UserID: p.UserID, Lat: p.Lat, Lon: p.Lon, Ts: p.CreatedAt}, nil
		}
	}
	return nil, nil
}

func (m *memPositions) GetHistoryByUser(_ context.Context, userID string, from, to time.Time) ([]models.GeoUpdate, error) {
	out := []models.GeoUpdate{}
	for _, p := range m.saved {
		if p.UserID == userID && !p.CreatedAt.Before(from) && !p.CreatedAt.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Redis, до которого нельзя достучаться: сервис должен уйти в PostgreSQL.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestGeoTrackFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := &memPositions{}
	rdb := unreachableRedis()
	defer rdb.Close()

	svc := NewGeoTrackService(store, rdb)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	err := svc.HandleUpdate(ctx, &models.GeoUpdate{UserID: "u1", Lat: 55.75, Lon: 37.61})
	require.ErrorIs(t, err, models.ErrExternalService)
	require.Len(t, store.saved, 1)
	assert.Equal(t, now, store.saved[0].CreatedAt)

	pos, err := svc.LastPosition(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 55.75, pos.Lat)

	now = now.Add(LastPositionTTL + time.Second)
	pos, err = svc.LastPosition(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestGeoTrackRejectsInvalidCoordinates(t *testing.T) {
	store := &memPositions{}
	rdb := unreachableRedis()
	defer rdb.Close()

	svc := NewGeoTrackService(store, rdb)
	err := svc.HandleUpdate(context.Background(), &models.GeoUpdate{UserID: "u1", Lat: 91})
	assert.ErrorIs(t, err, models.ErrInvalidCoords)
	assert.Empty(t, store.saved)
}

func TestGeoTrackHistory(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &memPositions{saved: []models.GeoUpdate{
		{UserID: "u1", Lat: 1, Lon: 1, CreatedAt: now.Add(-30 * time.Hour)},
		{UserID: "u1", Lat: 2, Lon: 2, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: "u2", Lat: 3, Lon: 3, CreatedAt: now.Add(-time.Hour)},
	}}
	rdb := unreachableRedis()
	defer rdb.Close()

	svc := NewGeoTrackService(store, rdb)
	svc.now = func() time.Time { return now }

	track, err := svc.History(context.Background(), "u1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, track, 1)
	assert.Equal(t, 2.0, track[0].Lat)

	track, err = svc.History(context.Background(), "u1", now.Add(-48*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, track, 2)

	_, err = svc.History(context.Background(), "u1", now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.History(context.Background(), "u1", now.Add(-8*24*time.Hour), now)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestOnlineNeedsRedis(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	svc := NewGeoTrackService(&memPositions{}, rdb)
	_, err := svc.Online(context.Background())
	assert.ErrorIs(t, err, models.ErrExternalService)
}
