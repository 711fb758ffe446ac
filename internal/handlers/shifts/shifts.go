package shifts

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evn/dstracker/internal/middleware"
	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
	"github.com/evn/dstracker/internal/services/qr"
)

const maxUploadSize = 10 << 20

type Engine interface {
	StartByQR(ctx context.Context, userID, qrCode string, fix *models.Fix) (*models.WorkSession, *models.WorkLocation, error)
	EndActive(ctx context.Context, userID string, endedByAdmin bool) (*models.WorkSession, error)
	ActiveShift(ctx context.Context, userID string) (*models.WorkSession, error)
	History(ctx context.Context, userID string, limit int) ([]models.WorkSession, error)
	Describe(ctx context.Context, sessions []models.WorkSession) []models.SessionView
}

type ShiftHandler struct {
	engine Engine
}

func NewShiftHandler(engine Engine) *ShiftHandler {
	return &ShiftHandler{engine: engine}
}

type scanRequest struct {
	QRCode string   `json:"qr_code"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
}

func (req scanRequest) fix() *models.Fix {
	if req.Lat == nil || req.Lon == nil {
		return nil
	}
	return &models.Fix{Lat: *req.Lat, Lon: *req.Lon}
}

// parseScan принимает JSON с уже распознанным кодом или multipart с фото (qr_image).
func parseScan(r *http.Request) (scanRequest, error) {
	var req scanRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, models.Validation("invalid JSON")
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return req, models.Validation("invalid multipart form")
	}
	for key, dst := range map[string]**float64{"lat": &req.Lat, "lon": &req.Lon} {
		raw := r.FormValue(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, models.Validation("%s must be a number", key)
		}
		*dst = &v
	}

	req.QRCode = r.FormValue("qr_code")
	if req.QRCode != "" {
		return req, nil
	}

	file, _, err := r.FormFile("qr_image")
	if err != nil {
		return req, models.Validation("qr_code or qr_image is required")
	}
	defer file.Close()

	code, err := qr.DecodeReader(file)
	if err != nil {
		return req, err
	}
	req.QRCode = code
	return req, nil
}

// Scan: POST /api/shifts/scan
func (h *ShiftHandler) Scan(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	req, err := parseScan(r)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	session, location, err := h.engine.StartByQR(r.Context(), userID, strings.TrimSpace(req.QRCode), req.fix())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	view := h.engine.Describe(r.Context(), []models.WorkSession{*session})[0]
	response.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Смена начата",
		"session":  view,
		"location": location,
	})
}

// End: POST /api/shifts/end
func (h *ShiftHandler) End(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	session, err := h.engine.EndActive(r.Context(), userID, false)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	view := h.engine.Describe(r.Context(), []models.WorkSession{*session})[0]
	worked := int(session.EndTime.Sub(session.StartTime) / time.Second)
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Смена завершена",
		"session":     view,
		"worked_time": response.FormatDuration(worked),
	})
}

// Active: GET /api/shifts/active; 404, если смены нет.
func (h *ShiftHandler) Active(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	session, err := h.engine.ActiveShift(r.Context(), userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, h.engine.Describe(r.Context(), []models.WorkSession{*session})[0])
}

// History: GET /api/shifts?limit=50
func (h *ShiftHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.engine.History(r.Context(), userID, limit)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, h.engine.Describe(r.Context(), sessions))
}
