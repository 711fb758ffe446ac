package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/evn/dstracker/internal/models"
)

// ErrInvalidCredentials: неверный email или пароль (и деактивированный пользователь).
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserLookup interface {
	GetActiveByEmail(ctx context.Context, email string) (*models.User, error)
}

type LoginService struct {
	users UserLookup
	jwt   *JWTService
	now   func() time.Time
}

func NewLoginService(users UserLookup, jwt *JWTService) *LoginService {
	return &LoginService{users: users, jwt: jwt, now: time.Now}
}

func (s *LoginService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, models.Validation("email and password are required")
	}

	user, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || !CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if strings.TrimSpace(req.TOTPCode) == "" {
			return nil, ErrTOTPRequired
		}
		if !VerifyTOTP(req.TOTPCode, user.TOTPSecret, s.now()) {
			return nil, ErrTOTPInvalid
		}
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role())
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token:  token,
		Role:   user.Role(),
		UserID: user.ID,
		Name:   user.Name,
	}, nil
}
