package routes

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"

	"github.com/evn/dstracker/config"
	adminHandlers "github.com/evn/dstracker/internal/handlers/admin"
	authHandlers "github.com/evn/dstracker/internal/handlers/auth"
	geoHandlers "github.com/evn/dstracker/internal/handlers/geo"
	shiftHandlers "github.com/evn/dstracker/internal/handlers/shifts"
	"github.com/evn/dstracker/internal/middleware"
	"github.com/evn/dstracker/internal/pkg/response"
	"github.com/evn/dstracker/internal/repositories"
	authService "github.com/evn/dstracker/internal/services/auth"
	geoService "github.com/evn/dstracker/internal/services/geo"
	"github.com/evn/dstracker/internal/services/live"
	"github.com/evn/dstracker/internal/services/report"
	"github.com/evn/dstracker/internal/services/shift"
	"github.com/evn/dstracker/internal/services/staff"
)

// tokenFromQuery: браузерный WebSocket не умеет слать заголовок Authorization.
func tokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// sheetsPublisher: без ключей Google хендлер должен получить nil-интерфейс, а не nil-указатель.
func sheetsPublisher(p *report.SheetsPublisher) adminHandlers.Publisher {
	if p == nil {
		return nil
	}
	return p
}

// Setup инициализирует сервисы и возвращает настроенный маршрутизатор вместе с движком смен.
// events: внешний получатель событий смен (AMQP), может быть nil.
func Setup(cfg *config.Config, database *sql.DB, redisClient *redis.Client, hub *live.Hub, events shift.Notifier) (*chi.Mux, *shift.Engine) {
	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)
	jwtService := authService.NewJWTService(cfg.JwtSecret, cfg.JwtTTL)

	userRepo := repositories.NewUserRepository(database)
	locationRepo := repositories.NewLocationRepository(database)
	sessionRepo := repositories.NewSessionRepository(database)
	posRepo := repositories.NewPositionRepository(database)

	geoSvc := geoService.NewGeoTrackService(posRepo, redisClient)
	fence := geoService.NewFence(cfg.GeofenceRadiusMeters, cfg.GeofenceMissingFix == config.MissingFixAllow, geoSvc)

	engine := shift.NewEngine(sessionRepo, userRepo, locationRepo, fence,
		shift.WithNotifier(shift.Notifiers(hub, events)))

	sheets, err := report.NewSheetsPublisher(context.Background(), cfg.GoogleCredentialsFile)
	if err != nil {
		log.Printf("⚠️ Google Sheets disabled: %v", err)
	}
	reportSvc := report.NewService(sessionRepo, userRepo, locationRepo, cfg.Location(), cfg.ReportsDir)

	authHandler := authHandlers.NewAuthHandler(
		authService.NewLoginService(userRepo, jwtService),
		authService.NewTOTPService(userRepo),
		userRepo,
	)
	shiftHandler := shiftHandlers.NewShiftHandler(engine)
	geoHandler := geoHandlers.NewGeoTrackHandler(geoSvc, hub)
	adminHandler := adminHandlers.NewAdminHandler(adminHandlers.Deps{
		Employees:     staff.NewEmployeeService(userRepo),
		Locations:     staff.NewLocationService(locationRepo),
		Shifts:        engine,
		Reports:       reportSvc,
		Sheets:        sheetsPublisher(sheets),
		Live:          hub,
		ShiftMaxHours: cfg.ShiftMaxHours,
	})

	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	// Публичные маршруты
	router.Post("/api/auth/login", authHandler.LoginHandler)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Group(func(r chi.Router) {
		r.Use(jwtauth.Verify(jwtAuth, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, tokenFromQuery))
		r.Use(jwtauth.Authenticator(jwtAuth))
		r.Use(middleware.AddUserIDToContext())
		r.Use(middleware.RequireUser)

		r.Get("/api/profile", authHandler.ProfileHandler)
		r.Post("/api/profile/totp", authHandler.SetupTOTPHandler)
		r.Post("/api/profile/totp/enable", authHandler.EnableTOTPHandler)

		r.Post("/api/shifts/scan", shiftHandler.Scan)
		r.Post("/api/shifts/end", shiftHandler.End)
		r.Get("/api/shifts/active", shiftHandler.Active)
		r.Get("/api/shifts/history", shiftHandler.History)
		r.Post("/api/geo", geoHandler.PostGeo)

		// Только администратор
		r.Route("/api/admin", func(ar chi.Router) {
			ar.Use(middleware.AdminOnly)

			ar.Get("/employees", adminHandler.ListEmployeesHandler)
			ar.Post("/employees", adminHandler.CreateEmployeeHandler)
			ar.Post("/employees/import", adminHandler.ImportEmployeesHandler)
			ar.Get("/employees/{id}", adminHandler.GetEmployeeHandler)
			ar.Put("/employees/{id}", adminHandler.UpdateEmployeeHandler)
			ar.Delete("/employees/{id}", adminHandler.DeactivateEmployeeHandler)
			ar.Post("/employees/{id}/reset-password", adminHandler.ResetPasswordHandler)
			ar.Post("/employees/{id}/end-shift", adminHandler.ForceEndShiftHandler)
			ar.Get("/employees/{id}/position", geoHandler.GetLast)
			ar.Get("/employees/{id}/track", geoHandler.GetHistory)
			ar.Get("/online", geoHandler.GetOnline)

			ar.Get("/locations", adminHandler.ListLocationsHandler)
			ar.Post("/locations", adminHandler.CreateLocationHandler)
			ar.Get("/locations/{id}", adminHandler.GetLocationHandler)
			ar.Put("/locations/{id}", adminHandler.UpdateLocationHandler)
			ar.Delete("/locations/{id}", adminHandler.DeactivateLocationHandler)
			ar.Get("/locations/{id}/qr", adminHandler.LocationQRHandler)

			ar.Get("/sessions/active", adminHandler.ActiveShiftsHandler)
			ar.Post("/sessions", adminHandler.StartShiftHandler)
			ar.Post("/sessions/{id}/end", adminHandler.EndShiftHandler)
			ar.Post("/sessions/auto-end", adminHandler.AutoEndShiftsHandler)

			ar.Get("/reports/{kind}", adminHandler.DownloadReportHandler)
			ar.Post("/reports/{kind}/publish", adminHandler.PublishReportHandler)

			ar.Get("/live", adminHandler.LiveHandler)
		})
	})

	return router, engine
}
