package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
	"github.com/evn/dstracker/internal/services/qr"
)

func (h *AdminHandler) ListLocationsHandler(w http.ResponseWriter, r *http.Request) {
	locs, err := h.locations.ListLocations(r.Context())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, locs)
}

func (h *AdminHandler) GetLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", "Invalid location ID")
	if !ok {
		return
	}
	l, err := h.locations.GetLocation(r.Context(), id)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, l)
}

func (h *AdminHandler) CreateLocationHandler(w http.ResponseWriter, r *http.Request) {
	var input models.LocationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	l, err := h.locations.CreateLocation(r.Context(), input)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusCreated, l)
}

func (h *AdminHandler) UpdateLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", "Invalid location ID")
	if !ok {
		return
	}
	var input models.LocationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	l, err := h.locations.UpdateLocation(r.Context(), id, input)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, l)
}

func (h *AdminHandler) DeactivateLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", "Invalid location ID")
	if !ok {
		return
	}
	if err := h.locations.DeactivateLocation(r.Context(), id); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Location deactivated"})
}

// LocationQRHandler: GET /api/admin/locations/{id}/qr?size=512, PNG для печати.
func (h *AdminHandler) LocationQRHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", "Invalid location ID")
	if !ok {
		return
	}

	size := qr.DefaultSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 2048 {
			response.RespondWithError(w, http.StatusBadRequest, "Invalid size")
			return
		}
		size = n
	}

	png, err := h.locations.LocationQR(r.Context(), id, size)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="location_%d_qr.png"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
