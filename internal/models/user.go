package models

import (
	"math"
	"time"
)

// User: сотрудник или администратор. Удаление только мягкое (Active=false).
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	HourlyRate   float64   `json:"hourly_rate"`
	IsAdmin      bool      `json:"is_admin"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// Role возвращает роль для JWT.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleWorker
}

const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type AuthResponse struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// EmployeeInput: данные формы сотрудника (создание и редактирование).
type EmployeeInput struct {
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	HourlyRate *float64 `json:"hourly_rate"`
	IsAdmin    bool     `json:"is_admin"`
}

// ValidHourlyRate: ставка конечна и не отрицательна. NaN и Inf не проходят.
func ValidHourlyRate(rate float64) bool {
	return rate >= 0 && !math.IsInf(rate, 1)
}
