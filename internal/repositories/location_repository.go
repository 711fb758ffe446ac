package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evn/dstracker/internal/models"
)

type LocationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

const locationColumns = `id, name, address, latitude, longitude, qr_code, active`

func scanLocation(row rowScanner) (*models.WorkLocation, error) {
	var l models.WorkLocation
	if err := row.Scan(&l.ID, &l.Name, &l.Address, &l.Latitude, &l.Longitude, &l.QRCode, &l.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrLocationNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LocationRepository) GetByID(ctx context.Context, id int64) (*models.WorkLocation, error) {
	l, err := scanLocation(r.db.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM work_locations WHERE id = $1`, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get location %d: %w", id, err)
	}
	return l, err
}

// GetByQRCode находит только активную зону.
func (r *LocationRepository) GetByQRCode(ctx context.Context, code string) (*models.WorkLocation, error) {
	l, err := scanLocation(r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM work_locations WHERE qr_code = $1 AND active`, code))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnknownQRCode
		}
		return nil, fmt.Errorf("get location by qr: %w", err)
	}
	return l, nil
}

func (r *LocationRepository) ListActive(ctx context.Context) ([]models.WorkLocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM work_locations WHERE active ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := []models.WorkLocation{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}

func (r *LocationRepository) QRCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM work_locations WHERE qr_code = $1 AND active`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check qr code: %w", err)
	}
	return count > 0, nil
}

func (r *LocationRepository) Insert(ctx context.Context, l *models.WorkLocation) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO work_locations (name, address, latitude, longitude, qr_code, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, l.Name, l.Address, l.Latitude, l.Longitude, l.QRCode, l.Active).Scan(&l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrQRCodeTaken
		}
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (r *LocationRepository) Update(ctx context.Context, l *models.WorkLocation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE work_locations
		SET name = $1, address = $2, latitude = $3, longitude = $4, qr_code = $5, active = $6
		WHERE id = $7
	`, l.Name, l.Address, l.Latitude, l.Longitude, l.QRCode, l.Active, l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrQRCodeTaken
		}
		return fmt.Errorf("update location %d: %w", l.ID, err)
	}
	return requireAffected(res, models.ErrLocationNotFound)
}

func (r *LocationRepository) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE work_locations SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate location %d: %w", id, err)
	}
	return requireAffected(res, models.ErrLocationNotFound)
}
