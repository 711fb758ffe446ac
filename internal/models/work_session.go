package models

import "time"

// WorkSession: рабочая смена. EndTime == nil означает активную смену.
// HourlyRate фиксируется при старте и дальше не меняется.
type WorkSession struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"user_id"`
	LocationID     int64      `json:"location_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	HourlyRate     float64    `json:"hourly_rate"`
	StartedByAdmin bool       `json:"started_by_admin"`
	EndedByAdmin   bool       `json:"ended_by_admin"`
}

func (s WorkSession) IsActive() bool {
	return s.EndTime == nil
}

// SessionView: смена с вычисленными часами и заработком для ответа API.
type SessionView struct {
	WorkSession
	UserName     string  `json:"user_name,omitempty"`
	LocationName string  `json:"location_name,omitempty"`
	Hours        float64 `json:"hours"`
	Earnings     float64 `json:"earnings"`
	IsActive     bool    `json:"is_active"`
}

// SessionFilter: выборка смен, начатых в [From, To); пустые UserID/LocationID означают «все».
type SessionFilter struct {
	UserID     string
	LocationID int64
	From       time.Time
	To         time.Time
}
