// internal/handlers/geo/geotrack_handler.go
package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/dstracker/internal/middleware"
	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
)

type Tracker interface {
	HandleUpdate(ctx context.Context, update *models.GeoUpdate) error
	LastPosition(ctx context.Context, userID string) (*models.LastPosition, error)
	History(ctx context.Context, userID string, from, to time.Time) ([]models.GeoUpdate, error)
	Online(ctx context.Context) ([]models.LastPosition, error)
}

// PositionFeed: живая карта администратора (может быть nil).
type PositionFeed interface {
	PositionUpdated(p models.GeoUpdate)
}

type GeoTrackHandler struct {
	service Tracker
	feed    PositionFeed
}

func NewGeoTrackHandler(service Tracker, feed PositionFeed) *GeoTrackHandler {
	return &GeoTrackHandler{service: service, feed: feed}
}

// PostGeo: POST /api/geo
func (h *GeoTrackHandler) PostGeo(w http.ResponseWriter, r *http.Request) {
	var update models.GeoUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	update.UserID = userID
	update.ID = 0

	if err := h.service.HandleUpdate(r.Context(), &update); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if h.feed != nil {
		h.feed.PositionUpdated(update)
	}

	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetLast: GET /api/admin/employees/{id}/position
func (h *GeoTrackHandler) GetLast(w http.ResponseWriter, r *http.Request) {
	pos, err := h.service.LastPosition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if pos == nil {
		response.RespondWithError(w, http.StatusNotFound, "No recent position")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, pos)
}

// GetHistory: GET /api/admin/employees/{id}/track?from=RFC3339&to=RFC3339
func (h *GeoTrackHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	for name, dst := range map[string]*time.Time{"from": &from, "to": &to} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid "+name+" (RFC3339 expected)")
			return
		}
		*dst = t
	}

	track, err := h.service.History(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, track)
}

// GetOnline: GET /api/admin/online, список тех, кто сейчас присылает координаты.
func (h *GeoTrackHandler) GetOnline(w http.ResponseWriter, r *http.Request) {
	online, err := h.service.Online(r.Context())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, online)
}
