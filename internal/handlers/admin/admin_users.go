package admin

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
	"github.com/evn/dstracker/internal/services/staff"
)

// ListEmployeesHandler: GET /api/admin/employees
func (h *AdminHandler) ListEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.employees.ListEmployees(r.Context())
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) GetEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.employees.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, u)
}

// CreateEmployeeHandler возвращает временный пароль один раз, в ответе на создание.
func (h *AdminHandler) CreateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	var input models.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	created, err := h.employees.CreateEmployee(r.Context(), input)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	response.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"user":          created.User,
		"temp_password": created.TempPassword,
	})
}

func (h *AdminHandler) UpdateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	var input models.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	u, err := h.employees.UpdateEmployee(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	pass, err := h.employees.ResetPassword(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"temp_password": pass})
}

func (h *AdminHandler) DeactivateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.employees.DeactivateEmployee(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Employee deactivated"})
}

type ImportEmployeesRequest struct {
	GoogleSheetURL string `json:"google_sheet_url,omitempty"`
}

// ImportEmployeesHandler: массовое создание сотрудников из Excel (поле file)
// или из Google Sheets (JSON с google_sheet_url).
func (h *AdminHandler) ImportEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	var rows [][]string
	var err error

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req ImportEmployeesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Неверный JSON")
			return
		}
		if req.GoogleSheetURL == "" {
			response.RespondWithError(w, http.StatusBadRequest, "google_sheet_url обязателен")
			return
		}
		if h.sheets == nil {
			response.RespondWithError(w, http.StatusBadGateway, "Google Sheets is not configured")
			return
		}
		rows, err = h.sheets.ReadRows(r.Context(), req.GoogleSheetURL)
	} else {
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			response.RespondWithError(w, http.StatusBadRequest, "Файл не найден")
			return
		}
		defer file.Close()
		rows, err = staff.ReadXLSXRows(file)
	}
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}

	result, err := h.employees.ImportEmployees(r.Context(), rows)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, result)
}
