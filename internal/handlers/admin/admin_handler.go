package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
	"github.com/evn/dstracker/internal/services/report"
	"github.com/evn/dstracker/internal/services/staff"
)

type Employees interface {
	CreateEmployee(ctx context.Context, in models.EmployeeInput) (*staff.NewEmployee, error)
	UpdateEmployee(ctx context.Context, id string, in models.EmployeeInput) (*models.User, error)
	ResetPassword(ctx context.Context, id string) (string, error)
	DeactivateEmployee(ctx context.Context, id string) error
	ListEmployees(ctx context.Context) ([]models.User, error)
	GetEmployee(ctx context.Context, id string) (*models.User, error)
	ImportEmployees(ctx context.Context, rows [][]string) (*staff.ImportResult, error)
}

type Locations interface {
	CreateLocation(ctx context.Context, in models.LocationInput) (*models.WorkLocation, error)
	UpdateLocation(ctx context.Context, id int64, in models.LocationInput) (*models.WorkLocation, error)
	DeactivateLocation(ctx context.Context, id int64) error
	ListLocations(ctx context.Context) ([]models.WorkLocation, error)
	GetLocation(ctx context.Context, id int64) (*models.WorkLocation, error)
	LocationQR(ctx context.Context, id int64, size int) ([]byte, error)
}

type Shifts interface {
	StartForUser(ctx context.Context, userID string, locationID int64) (*models.WorkSession, error)
	EndShift(ctx context.Context, sessionID int64, endedByAdmin bool) (*models.WorkSession, error)
	EndActive(ctx context.Context, userID string, endedByAdmin bool) (*models.WorkSession, error)
	ListActive(ctx context.Context) ([]models.WorkSession, error)
	Describe(ctx context.Context, sessions []models.WorkSession) []models.SessionView
	AutoEndStale(ctx context.Context, maxAge time.Duration) (int, error)
}

type Reports interface {
	Generate(ctx context.Context, kind report.Kind, subject, month string) (*report.Report, error)
	Render(r *report.Report, format report.Format) (string, []byte, error)
}

// Publisher: Google Sheets, выгрузка отчётов и чтение списков для импорта.
type Publisher interface {
	Publish(ctx context.Context, sheetURL string, r *report.Report) (string, error)
	ReadRows(ctx context.Context, sheetURL string) ([][]string, error)
}

type Live interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
	ClientCount() int
}

// AdminHandler обслуживает панель администратора: сотрудники, объекты, смены, отчёты.
type AdminHandler struct {
	employees     Employees
	locations     Locations
	shifts        Shifts
	reports       Reports
	sheets        Publisher
	live          Live
	shiftMaxHours int
}

type Deps struct {
	Employees     Employees
	Locations     Locations
	Shifts        Shifts
	Reports       Reports
	Sheets        Publisher
	Live          Live
	ShiftMaxHours int
}

func NewAdminHandler(d Deps) *AdminHandler {
	return &AdminHandler{
		employees:     d.Employees,
		locations:     d.Locations,
		shifts:        d.Shifts,
		reports:       d.Reports,
		sheets:        d.Sheets,
		live:          d.Live,
		shiftMaxHours: d.ShiftMaxHours,
	}
}

func int64Param(w http.ResponseWriter, r *http.Request, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.RespondWithError(w, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}
