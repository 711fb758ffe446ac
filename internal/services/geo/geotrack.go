package geo

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evn/dstracker/internal/models"
)

// LastPositionTTL: сколько последняя точка считается свежей.
const LastPositionTTL = 5 * time.Minute

type PositionStore interface {
	Save(ctx context.Context, pos *models.GeoUpdate) error
	Last(ctx context.Context, userID string, since time.Time) (*models.LastPosition, error)
	GetHistoryByUser(ctx context.Context, userID string, from, to time.Time) ([]models.GeoUpdate, error)
}

// MaxHistoryWindow ограничивает выборку трека одним запросом.
const MaxHistoryWindow = 7 * 24 * time.Hour

type GeoTrackService struct {
	positions PositionStore
	redis     *redis.Client
	now       func() time.Time
}

func NewGeoTrackService(positions PositionStore, redis *redis.Client) *GeoTrackService {
	return &GeoTrackService{
		positions: positions,
		redis:     redis,
		now:       time.Now,
	}
}

func lastKey(userID string) string {
	return "last:" + userID
}

func (s *GeoTrackService) HandleUpdate(ctx context.Context, update *models.GeoUpdate) error {
	if err := ValidateCoordinates(update.Lat, update.Lon); err != nil {
		return err
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = s.now()
	}

	// 1. PostgreSQL
	if err := s.positions.Save(ctx, update); err != nil {
		log.Printf("❌ FAILED TO SAVE POSITION: %v", err)
		return err
	}

	// 2. Redis
	data, err := json.Marshal(models.LastPosition{
		UserID: update.UserID,
		Lat:    update.Lat,
		Lon:    update.Lon,
		Ts:     update.CreatedAt,
	})
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, lastKey(update.UserID), data, LastPositionTTL).Err(); err != nil {
		log.Printf("❌ FAILED TO UPDATE REDIS: %v", err)
		return models.External("redis", err)
	}
	return nil
}

// LastPosition читает кэш Redis, при промахе или сбое читает таблицу positions.
func (s *GeoTrackService) LastPosition(ctx context.Context, userID string) (*models.LastPosition, error) {
	since := s.now().Add(-LastPositionTTL)

	data, err := s.redis.Get(ctx, lastKey(userID)).Bytes()
	switch {
	case err == nil:
		var pos models.LastPosition
		if err := json.Unmarshal(data, &pos); err == nil && !pos.Ts.Before(since) {
			return &pos, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Printf("⚠️ Redis GET %s: %v", lastKey(userID), err)
	}

	return s.positions.Last(ctx, userID, since)
}

// History: трек сотрудника за [from, to]. Нулевые границы означают последние сутки.
func (s *GeoTrackService) History(ctx context.Context, userID string, from, to time.Time) ([]models.GeoUpdate, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	if from.After(to) {
		return nil, models.Validation("from must not be after to")
	}
	if to.Sub(from) > MaxHistoryWindow {
		return nil, models.Validation("history window is limited to %s", MaxHistoryWindow)
	}
	return s.positions.GetHistoryByUser(ctx, userID, from, to)
}

// Online: последние точки всех, кто присылал координаты за LastPositionTTL.
// Источник только Redis: ключи last:* живут ровно TTL.
func (s *GeoTrackService) Online(ctx context.Context) ([]models.LastPosition, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, lastKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, models.External("redis", err)
	}

	online := []models.LastPosition{}
	if len(keys) == 0 {
		return online, nil
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, models.External("redis", err)
	}

	since := s.now().Add(-LastPositionTTL)
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var pos models.LastPosition
		if err := json.Unmarshal([]byte(raw), &pos); err != nil || pos.Ts.Before(since) {
			continue
		}
		online = append(online, pos)
	}
	return online, nil
}
