package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evn/dstracker/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, hourly_rate, is_admin, active, password_hash, totp_secret, totp_enabled, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.HourlyRate, &u.IsAdmin, &u.Active,
		&u.PasswordHash, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID не фильтрует по active: история смен должна находить и уволенных.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, err
}

// GetActiveByEmail ищет только среди активных (для входа).
func (r *UserRepository) GetActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) AND active`, email))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, err
}

func (r *UserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE active ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// EmailExists смотрит только на активных пользователей.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE lower(email) = lower($1) AND active`, email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, hourly_rate, is_admin, active, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, u.ID, u.Email, u.Name, u.HourlyRate, u.IsAdmin, u.Active, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update перезаписывает профиль. Пароль меняется только через SetPassword.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = $1, name = $2, hourly_rate = $3, is_admin = $4, active = $5
		WHERE id = $6
	`, u.Email, u.Name, u.HourlyRate, u.IsAdmin, u.Active, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return requireAffected(res, models.ErrUserNotFound)
}

func (r *UserRepository) SetPassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("set password for %s: %w", id, err)
	}
	return requireAffected(res, models.ErrUserNotFound)
}

// SetTOTP сохраняет секрет; enabled=true только после проверки первого кода.
func (r *UserRepository) SetTOTP(ctx context.Context, id, secret string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = $2 WHERE id = $3`, secret, enabled, id)
	if err != nil {
		return fmt.Errorf("set totp for %s: %w", id, err)
	}
	return requireAffected(res, models.ErrUserNotFound)
}

// Deactivate: мягкое удаление, строка остаётся доступной по ID.
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user %s: %w", id, err)
	}
	return requireAffected(res, models.ErrUserNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
