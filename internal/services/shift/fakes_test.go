package shift

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/evn/dstracker/internal/models"
)

type memSessions struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.WorkSession
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[int64]*models.WorkSession{}}
}

func (m *memSessions) GetByID(_ context.Context, id int64) (*models.WorkSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ActiveForUser(_ context.Context, userID string) (*models.WorkSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.UserID == userID && s.EndTime == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, models.ErrNoActiveShift
}

func (m *memSessions) Insert(_ context.Context, s *models.WorkSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == s.UserID && r.EndTime == nil {
			return models.ErrShiftAlreadyActive
		}
	}
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSessions) End(_ context.Context, id int64, endTime time.Time, endedByAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return models.ErrSessionNotFound
	}
	if s.EndTime != nil {
		return models.ErrAlreadyEnded
	}
	s.EndTime = &endTime
	s.EndedByAdmin = endedByAdmin
	return nil
}

func (m *memSessions) list(keep func(*models.WorkSession) bool) []models.WorkSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WorkSession
	for _, s := range m.rows {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memSessions) ListActive(context.Context) ([]models.WorkSession, error) {
	return m.list(func(s *models.WorkSession) bool { return s.EndTime == nil }), nil
}

func (m *memSessions) ListForUser(_ context.Context, userID string, limit int) ([]models.WorkSession, error) {
	out := m.list(func(s *models.WorkSession) bool { return s.UserID == userID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) ListStartedBefore(_ context.Context, cutoff time.Time) ([]models.WorkSession, error) {
	return m.list(func(s *models.WorkSession) bool {
		return s.EndTime == nil && s.StartTime.Before(cutoff)
	}), nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memUsers map[string]*models.User

func (m memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type memLocations map[int64]*models.WorkLocation

func (m memLocations) GetByID(_ context.Context, id int64) (*models.WorkLocation, error) {
	l, ok := m[id]
	if !ok {
		return nil, models.ErrLocationNotFound
	}
	cp := *l
	return &cp, nil
}

func (m memLocations) GetByQRCode(_ context.Context, code string) (*models.WorkLocation, error) {
	for _, l := range m {
		if l.Active && l.QRCode == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, models.ErrUnknownQRCode
}

type stubGeofence struct {
	err    error
	called int
}

func (g *stubGeofence) Check(context.Context, string, *models.Fix, models.WorkLocation) error {
	g.called++
	return g.err
}

type recordingNotifier struct {
	started, ended []models.WorkSession
}

func (n *recordingNotifier) ShiftStarted(s models.WorkSession) { n.started = append(n.started, s) }
func (n *recordingNotifier) ShiftEnded(s models.WorkSession)   { n.ended = append(n.ended, s) }

// clock: ручные часы для тестов.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
