package shift

import (
	"math"
	"time"

	"github.com/evn/dstracker/internal/models"
)

// Truncate2 отбрасывает всё после второго знака (к нулю, без округления).
func Truncate2(x float64) float64 {
	return math.Trunc(x*100) / 100
}

// DurationAt: длительность смены в часах на момент now.
// Для активной смены концом считается now.
func DurationAt(s models.WorkSession, now time.Time) float64 {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	millis := end.Sub(s.StartTime).Milliseconds()
	return Truncate2(float64(millis) / (1000.0 * 60.0 * 60.0))
}

// EarningsAt считается от уже усечённой длительности.
func EarningsAt(s models.WorkSession, now time.Time) float64 {
	return Truncate2(DurationAt(s, now) * s.HourlyRate)
}

// Cents переводит усечённую сумму в целые копейки для точного суммирования.
func Cents(x float64) int64 {
	return int64(math.Round(x * 100))
}
