package staff

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/services/auth"
)

const tempPasswordLength = 12

type EmployeeStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	SetPassword(ctx context.Context, id, hash string) error
	Deactivate(ctx context.Context, id string) error
}

type EmployeeService struct {
	users EmployeeStore
}

func NewEmployeeService(users EmployeeStore) *EmployeeService {
	return &EmployeeService{users: users}
}

// NewEmployee: созданный сотрудник и его временный пароль (показывается один раз).
type NewEmployee struct {
	User         *models.User `json:"user"`
	TempPassword string       `json:"temp_password"`
}

func normalizeEmployee(in models.EmployeeInput) (email, name string, rate float64, err error) {
	email = strings.TrimSpace(in.Email)
	name = strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return "", "", 0, models.Validation("email and name are required")
	}
	if _, perr := mail.ParseAddress(email); perr != nil {
		return "", "", 0, models.Validation("invalid email %q", email)
	}
	if in.HourlyRate != nil {
		rate = *in.HourlyRate
	}
	if !models.ValidHourlyRate(rate) {
		return "", "", 0, models.Validation("hourly rate must be a non-negative number, got %v", rate)
	}
	return email, name, rate, nil
}

func (s *EmployeeService) CreateEmployee(ctx context.Context, in models.EmployeeInput) (*NewEmployee, error) {
	email, name, rate, err := normalizeEmployee(in)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrEmailTaken
	}

	password, err := auth.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		HourlyRate:   rate,
		IsAdmin:      in.IsAdmin,
		Active:       true,
		PasswordHash: hash,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("👤 Employee created: %s (%s)", user.ID, user.Email)
	return &NewEmployee{User: user, TempPassword: password}, nil
}

// UpdateEmployee не трогает уже начатые смены: ставка в них зафиксирована.
func (s *EmployeeService) UpdateEmployee(ctx context.Context, id string, in models.EmployeeInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, models.ErrUserNotFound
	}

	email, name, rate, err := normalizeEmployee(in)
	if err != nil {
		return nil, err
	}
	if in.HourlyRate == nil {
		rate = user.HourlyRate
	}

	if !strings.EqualFold(email, user.Email) {
		exists, err := s.users.EmailExists(ctx, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, models.ErrEmailTaken
		}
	}

	user.Email = email
	user.Name = name
	user.HourlyRate = rate
	user.IsAdmin = in.IsAdmin
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword выдаёт новый временный пароль.
func (s *EmployeeService) ResetPassword(ctx context.Context, id string) (string, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !user.Active {
		return "", models.ErrUserNotFound
	}

	password, err := auth.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if err := s.users.SetPassword(ctx, id, hash); err != nil {
		return "", err
	}
	return password, nil
}

func (s *EmployeeService) DeactivateEmployee(ctx context.Context, id string) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUserNotFound
		}
		return err
	}
	log.Printf("👤 Employee deactivated: %s", id)
	return nil
}

func (s *EmployeeService) ListEmployees(ctx context.Context) ([]models.User, error) {
	return s.users.ListActive(ctx)
}

func (s *EmployeeService) GetEmployee(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}
