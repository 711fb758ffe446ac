package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/dstracker/internal/middleware"
	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
)

// ActiveShiftsHandler: GET /api/admin/sessions/active
func (h *AdminHandler) ActiveShiftsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.shifts.ListActive(r.Context())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, h.shifts.Describe(r.Context(), sessions))
}

// StartShiftHandler: ручной старт смены администратором, без проверки геозоны.
func (h *AdminHandler) StartShiftHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID     string `json:"user_id"`
		LocationID int64  `json:"location_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.UserID == "" || body.LocationID <= 0 {
		response.RespondWithError(w, http.StatusBadRequest, "user_id and location_id are required")
		return
	}

	s, err := h.shifts.StartForUser(r.Context(), body.UserID, body.LocationID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	views := h.shifts.Describe(r.Context(), []models.WorkSession{*s})
	response.RespondWithJSON(w, http.StatusCreated, views[0])
}

// EndShiftHandler: POST /api/admin/sessions/{id}/end
func (h *AdminHandler) EndShiftHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", "Invalid session ID")
	if !ok {
		return
	}

	s, err := h.shifts.EndShift(r.Context(), id, true)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	h.respondEnded(w, r, *s)
}

// ForceEndShiftHandler: завершить активную смену сотрудника (POST /api/admin/employees/{id}/end-shift).
func (h *AdminHandler) ForceEndShiftHandler(w http.ResponseWriter, r *http.Request) {
	s, err := h.shifts.EndActive(r.Context(), chi.URLParam(r, "id"), true)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	h.respondEnded(w, r, *s)
}

func (h *AdminHandler) respondEnded(w http.ResponseWriter, r *http.Request, s models.WorkSession) {
	views := h.shifts.Describe(r.Context(), []models.WorkSession{s})
	worked := 0
	if s.EndTime != nil {
		worked = int(s.EndTime.Sub(s.StartTime).Seconds())
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Смена завершена",
		"session":     views[0],
		"worked_time": response.FormatDuration(worked),
	})
}

// AutoEndShiftsHandler закрывает смены старше max_hours (по умолчанию SHIFT_MAX_HOURS).
func (h *AdminHandler) AutoEndShiftsHandler(w http.ResponseWriter, r *http.Request) {
	maxHours := h.shiftMaxHours
	var body struct {
		MaxHours int `json:"max_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.MaxHours != 0 {
		maxHours = body.MaxHours
	}
	if maxHours <= 0 {
		response.RespondWithError(w, http.StatusBadRequest, "max_hours must be positive")
		return
	}

	ended, err := h.shifts.AutoEndStale(r.Context(), time.Duration(maxHours)*time.Hour)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]int{"ended": ended})
}

// LiveHandler: websocket с событиями смен и координатами.
func (h *AdminHandler) LiveHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	h.live.ServeWS(w, r, userID)
}
