package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/evn/dstracker/internal/models"
)

const totpIssuer = "DSTracker"

var (
	ErrTOTPRequired = errors.New("totp code required")
	ErrTOTPInvalid  = errors.New("invalid totp code")
)

func GenerateTOTPSecret(accountName string) (secret, otpauthURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func VerifyTOTP(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

type TOTPStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetTOTP(ctx context.Context, id, secret string, enabled bool) error
}

// TOTPService: подключение второго фактора из профиля.
type TOTPService struct {
	users TOTPStore
	now   func() time.Time
}

func NewTOTPService(users TOTPStore) *TOTPService {
	return &TOTPService{users: users, now: time.Now}
}

type TOTPSetup struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

// Setup выдаёт новый секрет. Второй фактор включается только после Enable.
func (s *TOTPService) Setup(ctx context.Context, userID string) (*TOTPSetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, models.Validation("totp already enabled")
	}

	secret, url, err := GenerateTOTPSecret(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTOTP(ctx, userID, secret, false); err != nil {
		return nil, err
	}
	return &TOTPSetup{Secret: secret, OtpauthURL: url}, nil
}

func (s *TOTPService) Enable(ctx context.Context, userID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return models.Validation("totp not initialized")
	}
	if !VerifyTOTP(code, user.TOTPSecret, s.now()) {
		return ErrTOTPInvalid
	}
	return s.users.SetTOTP(ctx, userID, user.TOTPSecret, true)
}
