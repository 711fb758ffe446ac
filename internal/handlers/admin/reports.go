package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evn/dstracker/internal/pkg/response"
	"github.com/evn/dstracker/internal/services/report"
)

// DownloadReportHandler: GET /api/admin/reports/{kind}?subject=&month=YYYY-MM&format=csv|xlsx
func (h *AdminHandler) DownloadReportHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	rep, err := h.reports.Generate(r.Context(), kind, q.Get("subject"), q.Get("month"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	name, data, err := h.reports.Render(rep, format)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PublishReportHandler: выгрузка отчёта в Google Sheets.
func (h *AdminHandler) PublishReportHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	var body struct {
		SheetURL string `json:"sheet_url"`
		Subject  string `json:"subject"`
		Month    string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if body.SheetURL == "" {
		response.RespondWithError(w, http.StatusBadRequest, "sheet_url is required")
		return
	}

	rep, err := h.reports.Generate(r.Context(), kind, body.Subject, body.Month)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	if h.sheets == nil {
		response.RespondWithError(w, http.StatusBadGateway, "Google Sheets is not configured")
		return
	}
	title, err := h.sheets.Publish(r.Context(), body.SheetURL, rep)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Отчёт выгружен",
		"sheet":   title,
	})
}
