// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vrsandeep/intake-go/internal/core"
	"github.com/vrsandeep/intake-go/internal/db"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	db    *sql.DB
	store *store.Store
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		db:    app.DB(),
		store: store.New(app.DB()),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	hub := s.app.WsHub()
	r.Get("/ws/files", hub.ServeWs(models.ChannelFile))
	r.Get("/ws/reports", hub.ServeWs(models.ChannelReport))
	r.Get("/ws/reportAlerts", hub.ServeWs(models.ChannelNotification))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/version", s.handleGetVersion)
		r.Get("/health", s.handleHealth)

		r.Get("/applications", s.handleListApplications)
		r.Post("/applications", s.handleCreateApplication)
		r.Get("/applications/{applicationID}", s.handleGetApplication)
		r.Post("/applications/{applicationID}/archive", s.handleArchiveApplication(true))
		r.Post("/applications/{applicationID}/unarchive", s.handleArchiveApplication(false))

		r.Get("/applicants", s.handleListApplicants)
		r.Post("/applicants", s.handleCreateApplicant)
		r.Patch("/applicants/{applicantID}", s.handleEditApplicant)
		r.Post("/applicants/{applicantID}/files", s.handleAddFile)
		r.Post("/applicants/{applicantID}/archive", s.handleArchiveApplicant(true))
		r.Post("/applicants/{applicantID}/unarchive", s.handleArchiveApplicant(false))

		r.Get("/reports", s.handleListReports)
		r.Post("/reports", s.handleCreateReport)
		r.Patch("/reports/{reportID}", s.handleEditReport)
		r.Get("/reports/{reportID}/download", s.handleDownloadReport)
		r.Post("/reports/{reportID}/archive", s.handleArchiveReport(true))
		r.Post("/reports/{reportID}/unarchive", s.handleArchiveReport(false))
		r.Post("/reports/{reportID}/validate", s.handleValidateReport)

		r.Get("/files/{fileID}/download", s.handleDownloadFile)

		// Worker status ingestion
		r.Post("/files/{fileID}/status", s.handleFileStatus)
		r.Post("/reports/{reportID}/status", s.handleReportStatus)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications", s.handleCreateNotification)
		r.Post("/notifications/{notificationID}/read", s.handleMarkNotificationRead)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs/status", s.handleGetAdminJobsStatus)
			r.Post("/jobs/run", s.handleRunAdminJob)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	version, dirty, err := db.SchemaVersion(s.db)
	if err != nil || dirty {
		RespondWithError(w, http.StatusServiceUnavailable, "Database schema is not ready")
		return
	}
	subscribers := make(map[models.ChannelKind]int)
	for _, kind := range []models.ChannelKind{models.ChannelFile, models.ChannelReport, models.ChannelNotification} {
		subscribers[kind] = s.app.WsHub().Subscribers(kind, "")
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"schema_version": version,
		"subscribers":    subscribers,
	})
}
