package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
)

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ApplicationID string `json:"applicationId"`
		ReportType    string `json:"reportType"`
		ReportID      string `json:"reportId"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.ReportType == "" {
		RespondWithError(w, http.StatusBadRequest, "reportType is required")
		return
	}
	report, err := s.store.CreateReport(payload.ApplicationID, payload.ReportType, payload.ReportID)
	if err != nil {
		respondWithStoreError(w, err, "application")
		return
	}
	RespondWithJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	f, ok := listFilter(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid archived value")
		return
	}
	reports, err := s.store.ListReports(f)
	if err != nil {
		respondWithStoreError(w, err, "reports")
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	RespondWithJSON(w, http.StatusOK, reports)
}

// handleEditReport changes the report type or records the generated
// document's path.
func (s *Server) handleEditReport(w http.ResponseWriter, r *http.Request) {
	var edit store.ReportEdit
	if !decodeJSON(w, r, &edit) {
		return
	}
	if edit.ReportType != nil && *edit.ReportType == "" {
		RespondWithError(w, http.StatusBadRequest, "reportType cannot be empty")
		return
	}
	report, err := s.store.UpdateReport(chi.URLParam(r, "reportID"), edit)
	if err != nil {
		respondWithStoreError(w, err, "report")
		return
	}
	RespondWithJSON(w, http.StatusOK, report)
}

func (s *Server) handleArchiveReport(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.SetReportArchived(chi.URLParam(r, "reportID"), archived); err != nil {
			respondWithStoreError(w, err, "report")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleValidateReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.ValidateReport(chi.URLParam(r, "reportID"))
	if err != nil {
		respondWithStoreError(w, err, "report")
		return
	}
	validated := true
	s.publish(models.ChannelReport, report.ApplicationID, models.ReportStatusMessage{
		ReportID: report.ID,
		Status:   models.StatusPatch{Validated: &validated},
	})
	RespondWithJSON(w, http.StatusOK, report)
}

func (s *Server) handleFileStatus(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	var patch models.StatusPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Empty() {
		RespondWithError(w, http.StatusBadRequest, "Empty status update")
		return
	}
	applicantID, status, err := s.store.UpdateFileStatus(fileID, patch)
	if err != nil {
		respondWithStoreError(w, err, "file")
		return
	}
	s.publish(models.ChannelFile, applicantID, models.FileStatusMessage{FileID: fileID, Status: patch})
	RespondWithJSON(w, http.StatusOK, status)
}

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")
	var patch models.StatusPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Empty() {
		RespondWithError(w, http.StatusBadRequest, "Empty status update")
		return
	}
	before, err := s.store.GetReport(reportID)
	if err != nil {
		respondWithStoreError(w, err, "report")
		return
	}
	report, err := s.store.UpdateReportStatus(reportID, patch)
	if err != nil {
		respondWithStoreError(w, err, "report")
		return
	}
	s.publish(models.ChannelReport, report.ApplicationID, models.ReportStatusMessage{ReportID: report.ID, Status: patch})

	if !before.Status.Complete() && report.Status.Complete() {
		s.notifyReportReady(report)
	}
	RespondWithJSON(w, http.StatusOK, report)
}

// notifyReportReady alerts the application owner that a report finished.
func (s *Server) notifyReportReady(report *models.Report) {
	app, err := s.store.GetApplication(report.ApplicationID)
	if err != nil || app.Owner == "" {
		return
	}
	n, err := s.store.CreateNotification(app.Owner,
		fmt.Sprintf("Report %s for %s is ready", report.ReportID, report.UserApplicationID),
		"/reports?applicationId="+report.ApplicationID, "report")
	if err != nil {
		log.Printf("Failed to create report notification: %v", err)
		return
	}
	s.publish(models.ChannelNotification, n.UserID, n)
}

// publish pushes payload to the subscribers of (kind, key). A failed push
// only costs the live update; the stored status stays authoritative.
func (s *Server) publish(kind models.ChannelKind, key string, payload any) {
	if err := s.app.WsHub().Publish(kind, key, payload); err != nil {
		log.Printf("Failed to publish %s update for %s: %v", kind, key, err)
	}
}
