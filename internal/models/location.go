// models/location.go

package models

import "time"

// GeoUpdate: координаты, присланные устройством.
type GeoUpdate struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	CreatedAt time.Time `json:"ts,omitempty"`
}

// LastPosition: последняя известная точка пользователя (кэш в Redis).
type LastPosition struct {
	UserID string    `json:"user_id"`
	Lat    float64   `json:"lat"`
	Lon    float64   `json:"lon"`
	Ts     time.Time `json:"ts"`
}

// Fix: координаты, с которыми работник пытается начать смену. nil означает, что данных нет.
type Fix struct {
	Lat float64
	Lon float64
}
