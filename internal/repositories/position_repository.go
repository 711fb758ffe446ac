// repositories/position_repository.go

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/evn/dstracker/internal/models"
)

type PositionRepository struct {
	db *sql.DB
}

func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) Save(ctx context.Context, pos *models.GeoUpdate) error {
	query := `
		INSERT INTO positions (user_id, lat, lon, accuracy, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		pos.UserID,
		pos.Lat,
		pos.Lon,
		pos.Accuracy,
		time.Now(),
	).Scan(&pos.ID, &pos.CreatedAt)
}

// Last: последняя точка пользователя не старше since. nil, nil если нет.
func (r *PositionRepository) Last(ctx context.Context, userID string, since time.Time) (*models.LastPosition, error) {
	query := `
		SELECT user_id, lat, lon, created_at
		FROM positions
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var p models.LastPosition
	err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&p.UserID, &p.Lat, &p.Lon, &p.Ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PositionRepository) GetHistoryByUser(ctx context.Context, userID string, from, to time.Time) ([]models.GeoUpdate, error) {
	query := `
		SELECT id, user_id, lat, lon, accuracy, created_at
		FROM positions
		WHERE user_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	updates := []models.GeoUpdate{}
	for rows.Next() {
		var u models.GeoUpdate
		if err := rows.Scan(&u.ID, &u.UserID, &u.Lat, &u.Lon, &u.Accuracy, &u.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}

	return updates, rows.Err()
}
