package models

import (
	"errors"
	"fmt"
)

// Базовые виды ошибок. Конкретные ошибки оборачивают их через %w,
// слой HTTP классифицирует их через errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service error")
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrLocationNotFound = fmt.Errorf("location %w", ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("session %w", ErrNotFound)
	ErrNoActiveShift    = fmt.Errorf("active shift %w", ErrNotFound)
	ErrUnknownQRCode    = fmt.Errorf("qr code does not match any work location: %w", ErrNotFound)

	ErrShiftAlreadyActive = fmt.Errorf("%w: user already has an active shift", ErrConflict)
	ErrAlreadyEnded       = fmt.Errorf("%w: session already ended", ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: email already in use", ErrConflict)
	ErrQRCodeTaken        = fmt.Errorf("%w: qr code already in use", ErrConflict)

	ErrOutOfRange    = fmt.Errorf("%w: too far from the work location", ErrValidation)
	ErrNoLocationFix = fmt.Errorf("%w: device location is unavailable", ErrValidation)
	ErrInvalidCoords = fmt.Errorf("%w: invalid coordinates", ErrValidation)
)

// Validation возвращает ошибку валидации с пояснением.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// External оборачивает сбой внешнего сервиса (Redis, Google API, ...).
func External(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExternalService, service, err)
}
