package geo

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/evn/dstracker/internal/models"
)

const (
	EarthRadiusMeters   = 6371000.0
	DefaultRadiusMeters = 200.0
)

// Distance: расстояние по гаверсинусу в метрах.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// у почти противоположных точек округление даёт a чуть больше 1
	a = math.Min(1, math.Max(0, a))
	return EarthRadiusMeters * 2 * math.Asin(math.Sqrt(a))
}

// WithinRange включает границу: ровно maxMeters считается в зоне.
func WithinRange(curLat, curLon, tgtLat, tgtLon, maxMeters float64) bool {
	return Distance(curLat, curLon, tgtLat, tgtLon) <= maxMeters
}

func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", models.ErrInvalidCoords, lat, lon)
	}
	return nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// PositionSource отдаёт последнюю свежую точку пользователя или nil.
type PositionSource interface {
	LastPosition(ctx context.Context, userID string) (*models.LastPosition, error)
}

// Fence: проверка геозоны перед стартом смены.
type Fence struct {
	radius       float64
	allowMissing bool
	last         PositionSource
}

// NewFence: last может быть nil, тогда запасной точки нет.
func NewFence(radius float64, allowMissing bool, last PositionSource) *Fence {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		radius = DefaultRadiusMeters
	}
	return &Fence{radius: radius, allowMissing: allowMissing, last: last}
}

func (f *Fence) Radius() float64 {
	return f.radius
}

func (f *Fence) Check(ctx context.Context, userID string, fix *models.Fix, target models.WorkLocation) error {
	if fix == nil && f.last != nil {
		pos, err := f.last.LastPosition(ctx, userID)
		if err != nil {
			log.Printf("⚠️ last position lookup failed for %s: %v", userID, err)
		} else if pos != nil {
			fix = &models.Fix{Lat: pos.Lat, Lon: pos.Lon}
		}
	}

	if fix == nil {
		if f.allowMissing {
			return nil
		}
		return models.ErrNoLocationFix
	}

	if err := ValidateCoordinates(fix.Lat, fix.Lon); err != nil {
		return err
	}

	if !WithinRange(fix.Lat, fix.Lon, target.Latitude, target.Longitude, f.radius) {
		d := Distance(fix.Lat, fix.Lon, target.Latitude, target.Longitude)
		return fmt.Errorf("%w (%.0f m, allowed %.0f m)", models.ErrOutOfRange, d, f.radius)
	}
	return nil
}
