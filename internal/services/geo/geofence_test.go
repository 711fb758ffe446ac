package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/dstracker/internal/models"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 0.0, Distance(55.7558, 37.6173, 55.7558, 37.6173))

	// один градус широты ≈ 111.19 км
	d := Distance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 1)

	// Москва: Санкт-Петербург ≈ 634 км
	d = Distance(55.7558, 37.6173, 59.9343, 30.3351)
	assert.InDelta(t, 634000, d, 3000)

	assert.InDelta(t, Distance(10, 20, 30, 40), Distance(30, 40, 10, 20), 1e-6)
}

func TestWithinRange(t *testing.T) {
	assert.True(t, WithinRange(55.75, 37.61, 55.75, 37.61, 0))
	assert.False(t, WithinRange(55.75, 37.61, 59.93, 30.33, 200))

	d := Distance(55.75, 37.61, 55.751, 37.61)
	assert.True(t, WithinRange(55.75, 37.61, 55.751, 37.61, d))
	assert.False(t, WithinRange(55.75, 37.61, 55.751, 37.61, math.Nextafter(d, 0)))
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(90, 180))
	assert.NoError(t, ValidateCoordinates(-90, -180))
	assert.ErrorIs(t, ValidateCoordinates(90.1, 0), models.ErrValidation)
	assert.ErrorIs(t, ValidateCoordinates(0, -180.5), models.ErrInvalidCoords)
	assert.Error(t, ValidateCoordinates(math.NaN(), 0))
}

type stubSource struct {
	pos *models.LastPosition
	err error
}

func (s stubSource) LastPosition(context.Context, string) (*models.LastPosition, error) {
	return s.pos, s.err
}

func TestFenceCheck(t *testing.T) {
	ctx := context.Background()
	target := models.WorkLocation{ID: 1, Latitude: 55.75, Longitude: 37.61}
	near := &models.Fix{Lat: 55.7501, Lon: 37.6101}
	far := &models.Fix{Lat: 55.80, Lon: 37.61}

	t.Run("near passes", func(t *testing.T) {
		f := NewFence(200, false, nil)
		assert.NoError(t, f.Check(ctx, "u", near, target))
	})

	t.Run("far rejected", func(t *testing.T) {
		f := NewFence(200, false, nil)
		err := f.Check(ctx, "u", far, target)
		assert.ErrorIs(t, err, models.ErrOutOfRange)
	})

	t.Run("missing fix blocked by default", func(t *testing.T) {
		f := NewFence(200, false, nil)
		assert.ErrorIs(t, f.Check(ctx, "u", nil, target), models.ErrNoLocationFix)
	})

	t.Run("missing fix allowed by policy", func(t *testing.T) {
		f := NewFence(200, true, nil)
		assert.NoError(t, f.Check(ctx, "u", nil, target))
	})

	t.Run("falls back to last position", func(t *testing.T) {
		f := NewFence(200, false, stubSource{pos: &models.LastPosition{Lat: 55.80, Lon: 37.61}})
		assert.ErrorIs(t, f.Check(ctx, "u", nil, target), models.ErrOutOfRange)

		f = NewFence(200, false, stubSource{pos: &models.LastPosition{Lat: 55.75, Lon: 37.61}})
		assert.NoError(t, f.Check(ctx, "u", nil, target))
	})

	t.Run("source failure treated as no fix", func(t *testing.T) {
		f := NewFence(200, false, stubSource{err: errors.New("boom")})
		assert.ErrorIs(t, f.Check(ctx, "u", nil, target), models.ErrNoLocationFix)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		f := NewFence(200, false, nil)
		assert.ErrorIs(t, f.Check(ctx, "u", &models.Fix{Lat: 100}, target), models.ErrInvalidCoords)
	})

	t.Run("antipodal fix rejected", func(t *testing.T) {
		f := NewFence(200, false, nil)
		antipode := models.WorkLocation{ID: 2, Latitude: 44.045, Longitude: 78.237}
		err := f.Check(ctx, "u", &models.Fix{Lat: -44.045, Lon: -101.763}, antipode)
		assert.ErrorIs(t, err, models.ErrOutOfRange)
	})

	t.Run("default radius", func(t *testing.T) {
		f := NewFence(0, false, nil)
		require.Equal(t, DefaultRadiusMeters, f.Radius())

		f = NewFence(math.NaN(), false, nil)
		require.Equal(t, DefaultRadiusMeters, f.Radius())
		f = NewFence(math.Inf(1), false, nil)
		require.Equal(t, DefaultRadiusMeters, f.Radius())
	})
}

func TestDistanceAntipodalIsFinite(t *testing.T) {
	pairs := [][4]float64{
		{44.045, 78.237, -44.045, -101.763},
		{0, 0, 0, 180},
		{90, 0, -90, 0},
		{12.5, -33.1, -12.5, 146.9},
	}
	for _, p := range pairs {
		d := Distance(p[0], p[1], p[2], p[3])
		require.False(t, math.IsNaN(d), "pair %v", p)
		assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1000, "pair %v", p)
		assert.False(t, WithinRange(p[0], p[1], p[2], p[3], 200))
	}
}
