// internal/handlers/auth/auth.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/evn/dstracker/internal/middleware"
	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
	authService "github.com/evn/dstracker/internal/services/auth"
)

type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
}

type TwoFactor interface {
	Setup(ctx context.Context, userID string) (*authService.TOTPSetup, error)
	Enable(ctx context.Context, userID, code string) error
}

type Profiles interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type AuthHandler struct {
	login    Authenticator
	totp     TwoFactor
	profiles Profiles
}

func NewAuthHandler(login Authenticator, totp TwoFactor, profiles Profiles) *AuthHandler {
	return &AuthHandler{login: login, totp: totp, profiles: profiles}
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	resp, err := h.login.Login(r.Context(), req)
	switch {
	case err == nil:
		response.RespondWithJSON(w, http.StatusOK, resp)
	case errors.Is(err, authService.ErrInvalidCredentials):
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, authService.ErrTOTPRequired):
		response.RespondWithJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error":         "TOTP code required",
			"totp_required": true,
		})
	case errors.Is(err, authService.ErrTOTPInvalid):
		response.RespondWithError(w, http.StatusUnauthorized, "Invalid TOTP code")
	default:
		log.Printf("Login failed: %v", err)
		response.RespondWithAppError(w, err)
	}
}

// ProfileHandler: GET /api/profile
func (h *AuthHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	user, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if !user.Active {
		response.RespondWithError(w, http.StatusForbidden, "Account deactivated")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) SetupTOTPHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	setup, err := h.totp.Setup(r.Context(), userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, setup)
}

func (h *AuthHandler) EnableTOTPHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		response.RespondWithError(w, http.StatusBadRequest, "Code is required")
		return
	}

	if err := h.totp.Enable(r.Context(), userID, body.Code); err != nil {
		if errors.Is(err, authService.ErrTOTPInvalid) {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid TOTP code")
			return
		}
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "TOTP enabled"})
}
