package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evn/dstracker/internal/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, location_id, start_time, end_time, hourly_rate, started_by_admin, ended_by_admin`

func scanSession(row rowScanner) (*models.WorkSession, error) {
	var s models.WorkSession
	var endTime sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.LocationID, &s.StartTime, &endTime, &s.HourlyRate, &s.StartedByAdmin, &s.EndedByAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	return &s, nil
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]models.WorkSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.WorkSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.WorkSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE id = $1`, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return s, err
}

// ActiveForUser возвращает смену без end_time или ErrNoActiveShift.
func (r *SessionRepository) ActiveForUser(ctx context.Context, userID string) (*models.WorkSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE user_id = $1 AND end_time IS NULL`, userID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoActiveShift
		}
		return nil, fmt.Errorf("get active session for %s: %w", userID, err)
	}
	return s, nil
}

// Insert опирается на частичный уникальный индекс work_sessions_one_active_idx:
// вторая активная смена того же пользователя отклоняется базой.
func (r *SessionRepository) Insert(ctx context.Context, s *models.WorkSession) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO work_sessions (user_id, location_id, start_time, end_time, hourly_rate, started_by_admin, ended_by_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, s.UserID, s.LocationID, s.StartTime, s.EndTime, s.HourlyRate, s.StartedByAdmin, s.EndedByAdmin).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrShiftAlreadyActive
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// End проставляет end_time только у незавершённой смены.
func (r *SessionRepository) End(ctx context.Context, id int64, endTime time.Time, endedByAdmin bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE work_sessions SET end_time = $1, ended_by_admin = $2
		WHERE id = $3 AND end_time IS NULL
	`, endTime, endedByAdmin, id)
	if err != nil {
		return fmt.Errorf("end session %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return models.ErrAlreadyEnded
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]models.WorkSession, error) {
	sessions, err := r.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM work_sessions WHERE end_time IS NULL ORDER BY start_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.WorkSession, error) {
	if limit <= 0 {
		limit = 50
	}
	sessions, err := r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM work_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", userID, err)
	}
	return sessions, nil
}

// ListForPeriod: смены, начатые в [From, To), новые сверху.
func (r *SessionRepository) ListForPeriod(ctx context.Context, f models.SessionFilter) ([]models.WorkSession, error) {
	where := []string{"start_time >= $1", "start_time < $2"}
	args := []any{f.From, f.To}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.LocationID != 0 {
		args = append(args, f.LocationID)
		where = append(where, fmt.Sprintf("location_id = $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM work_sessions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY start_time DESC`
	sessions, err := r.querySessions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions for period: %w", err)
	}
	return sessions, nil
}

// ListStartedBefore: активные смены, начатые раньше cutoff.
func (r *SessionRepository) ListStartedBefore(ctx context.Context, cutoff time.Time) ([]models.WorkSession, error) {
	sessions, err := r.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM work_sessions
		WHERE end_time IS NULL AND start_time < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale sessions: %w", err)
	}
	return sessions, nil
}
