package shift

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/evn/dstracker/internal/models"
)

type SessionStore interface {
	GetByID(ctx context.Context, id int64) (*models.WorkSession, error)
	ActiveForUser(ctx context.Context, userID string) (*models.WorkSession, error)
	Insert(ctx context.Context, s *models.WorkSession) error
	End(ctx context.Context, id int64, endTime time.Time, endedByAdmin bool) error
	ListActive(ctx context.Context) ([]models.WorkSession, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.WorkSession, error)
	ListStartedBefore(ctx context.Context, cutoff time.Time) ([]models.WorkSession, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type LocationFinder interface {
	GetByID(ctx context.Context, id int64) (*models.WorkLocation, error)
	GetByQRCode(ctx context.Context, code string) (*models.WorkLocation, error)
}

// Geofence проверяет, что работник рядом с зоной.
type Geofence interface {
	Check(ctx context.Context, userID string, fix *models.Fix, target models.WorkLocation) error
}

// Notifier получает события смен (живая лента администратора).
type Notifier interface {
	ShiftStarted(s models.WorkSession)
	ShiftEnded(s models.WorkSession)
}

type nopNotifier struct{}

func (nopNotifier) ShiftStarted(models.WorkSession) {}
func (nopNotifier) ShiftEnded(models.WorkSession)   {}

// Engine управляет жизненным циклом смены: нет смены → активная → завершённая.
type Engine struct {
	sessions  SessionStore
	users     UserFinder
	locations LocationFinder
	geofence  Geofence
	notifier  Notifier
	now       func() time.Time
}

type Option func(*Engine)

// WithClock подменяет часы (в тестах).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func NewEngine(sessions SessionStore, users UserFinder, locations LocationFinder, geofence Geofence, opts ...Option) *Engine {
	e := &Engine{
		sessions:  sessions,
		users:     users,
		locations: locations,
		geofence:  geofence,
		notifier:  nopNotifier{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartShift создаёт ровно одну новую смену или возвращает ErrShiftAlreadyActive.
func (e *Engine) StartShift(ctx context.Context, userID string, locationID int64, rate float64, startedByAdmin bool) (*models.WorkSession, error) {
	if !models.ValidHourlyRate(rate) {
		return nil, models.Validation("hourly rate must be a non-negative number, got %v", rate)
	}

	_, err := e.sessions.ActiveForUser(ctx, userID)
	switch {
	case err == nil:
		return nil, models.ErrShiftAlreadyActive
	case !errors.Is(err, models.ErrNoActiveShift):
		return nil, err
	}

	session := &models.WorkSession{
		UserID:         userID,
		LocationID:     locationID,
		StartTime:      e.now(),
		HourlyRate:     rate,
		StartedByAdmin: startedByAdmin,
	}
	if err := e.sessions.Insert(ctx, session); err != nil {
		return nil, err
	}

	e.notifier.ShiftStarted(*session)
	return session, nil
}

// StartByQR: старт смены работником по отсканированному QR-коду.
func (e *Engine) StartByQR(ctx context.Context, userID, qrCode string, fix *models.Fix) (*models.WorkSession, *models.WorkLocation, error) {
	if qrCode == "" {
		return nil, nil, models.Validation("qr code is required")
	}

	user, err := e.activeUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	location, err := e.locations.GetByQRCode(ctx, qrCode)
	if err != nil {
		return nil, nil, err
	}

	if err := e.geofence.Check(ctx, userID, fix, *location); err != nil {
		return nil, nil, err
	}

	session, err := e.StartShift(ctx, user.ID, location.ID, user.HourlyRate, false)
	if err != nil {
		return nil, nil, err
	}
	return session, location, nil
}

// StartForUser: администратор начинает смену за работника, без геозоны.
func (e *Engine) StartForUser(ctx context.Context, userID string, locationID int64) (*models.WorkSession, error) {
	user, err := e.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	location, err := e.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if !location.Active {
		return nil, models.ErrLocationNotFound
	}

	return e.StartShift(ctx, user.ID, location.ID, user.HourlyRate, true)
}

// EndShift завершает смену. Повторное завершение даёт ErrAlreadyEnded.
func (e *Engine) EndShift(ctx context.Context, sessionID int64, endedByAdmin bool) (*models.WorkSession, error) {
	session, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, models.ErrAlreadyEnded
	}

	end := e.now()
	if err := e.sessions.End(ctx, sessionID, end, endedByAdmin); err != nil {
		return nil, err
	}

	session.EndTime = &end
	session.EndedByAdmin = endedByAdmin
	e.notifier.ShiftEnded(*session)
	return session, nil
}

// EndActive завершает текущую смену пользователя.
func (e *Engine) EndActive(ctx context.Context, userID string, endedByAdmin bool) (*models.WorkSession, error) {
	active, err := e.sessions.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.EndShift(ctx, active.ID, endedByAdmin)
}

func (e *Engine) ActiveShift(ctx context.Context, userID string) (*models.WorkSession, error) {
	return e.sessions.ActiveForUser(ctx, userID)
}

func (e *Engine) History(ctx context.Context, userID string, limit int) ([]models.WorkSession, error) {
	return e.sessions.ListForUser(ctx, userID, limit)
}

func (e *Engine) ListActive(ctx context.Context) ([]models.WorkSession, error) {
	return e.sessions.ListActive(ctx)
}

// Duration растёт при каждом вызове, пока смена активна.
func (e *Engine) Duration(s models.WorkSession) float64 {
	return DurationAt(s, e.now())
}

func (e *Engine) Earnings(s models.WorkSession) float64 {
	return EarningsAt(s, e.now())
}

// View добавляет к смене часы и заработок на текущий момент.
func (e *Engine) View(s models.WorkSession) models.SessionView {
	now := e.now()
	return models.SessionView{
		WorkSession: s,
		Hours:       DurationAt(s, now),
		Earnings:    EarningsAt(s, now),
		IsActive:    s.IsActive(),
	}
}

// Describe: View с именами сотрудника и локации (для списков администратора).
func (e *Engine) Describe(ctx context.Context, sessions []models.WorkSession) []models.SessionView {
	users := map[string]string{}
	locations := map[int64]string{}
	out := make([]models.SessionView, 0, len(sessions))

	for _, s := range sessions {
		v := e.View(s)

		name, ok := users[s.UserID]
		if !ok {
			if u, err := e.users.GetByID(ctx, s.UserID); err == nil {
				name = u.Name
			}
			users[s.UserID] = name
		}
		v.UserName = name

		locName, ok := locations[s.LocationID]
		if !ok {
			if l, err := e.locations.GetByID(ctx, s.LocationID); err == nil {
				locName = l.Name
			}
			locations[s.LocationID] = locName
		}
		v.LocationName = locName

		out = append(out, v)
	}
	return out
}

// AutoEndStale закрывает (как администратор) смены старше maxAge.
func (e *Engine) AutoEndStale(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	stale, err := e.sessions.ListStartedBefore(ctx, e.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	ended := 0
	for _, s := range stale {
		if _, err := e.EndShift(ctx, s.ID, true); err != nil {
			if errors.Is(err, models.ErrAlreadyEnded) {
				continue
			}
			log.Printf("Failed to auto-end session %d: %v", s.ID, err)
			continue
		}
		ended++
	}
	return ended, nil
}

func (e *Engine) activeUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, fmt.Errorf("%w (deactivated)", models.ErrUserNotFound)
	}
	return user, nil
}

type fanout []Notifier

func (f fanout) ShiftStarted(s models.WorkSession) {
	for _, n := range f {
		n.ShiftStarted(s)
	}
}

func (f fanout) ShiftEnded(s models.WorkSession) {
	for _, n := range f {
		n.ShiftEnded(s)
	}
}

// Notifiers объединяет несколько получателей событий; nil пропускаются.
func Notifiers(ns ...Notifier) Notifier {
	var out fanout
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
