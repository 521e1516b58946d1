package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
)

// listFilter reads the applicationId, orgId and archived query params.
func listFilter(r *http.Request) (store.ListFilter, bool) {
	q := r.URL.Query()
	f := store.ListFilter{
		ApplicationID: q.Get("applicationId"),
		OrgID:         q.Get("orgId"),
	}
	if raw := q.Get("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			return f, false
		}
		f.Archived = &archived
	}
	return f, true
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserApplicationID string `json:"userApplicationId"`
		OrgID             string `json:"orgId"`
		Owner             string `json:"owner"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	app, err := s.store.CreateApplication(payload.UserApplicationID, payload.OrgID, payload.Owner)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusCreated, app)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	f, ok := listFilter(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid archived value")
		return
	}
	apps, err := s.store.ListApplications(f)
	if err != nil {
		respondWithStoreError(w, err, "applications")
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	RespondWithJSON(w, http.StatusOK, apps)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.store.GetApplication(chi.URLParam(r, "applicationID"))
	if err != nil {
		respondWithStoreError(w, err, "application")
		return
	}
	RespondWithJSON(w, http.StatusOK, app)
}

// handleArchiveApplication soft-deletes a loan file. Its applicants and
// reports follow it in and out of the archive.
func (s *Server) handleArchiveApplication(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.SetApplicationArchived(chi.URLParam(r, "applicationID"), archived); err != nil {
			respondWithStoreError(w, err, "application")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCreateApplicant(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ApplicationID   string `json:"applicationId"`
		UserApplicantID string `json:"userApplicantId"`
		Owner           string `json:"owner"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.UserApplicantID == "" {
		RespondWithError(w, http.StatusBadRequest, "userApplicantId is required")
		return
	}
	applicant, err := s.store.CreateApplicant(payload.ApplicationID, payload.UserApplicantID, payload.Owner)
	if err != nil {
		respondWithStoreError(w, err, "application")
		return
	}
	RespondWithJSON(w, http.StatusCreated, applicant)
}

func (s *Server) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	f, ok := listFilter(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid archived value")
		return
	}
	applicants, err := s.store.ListApplicants(f)
	if err != nil {
		respondWithStoreError(w, err, "applicants")
		return
	}
	if applicants == nil {
		applicants = []models.Applicant{}
	}
	RespondWithJSON(w, http.StatusOK, applicants)
}

func (s *Server) handleEditApplicant(w http.ResponseWriter, r *http.Request) {
	var edit store.ApplicantEdit
	if !decodeJSON(w, r, &edit) {
		return
	}
	if edit.UserApplicantID != nil && *edit.UserApplicantID == "" {
		RespondWithError(w, http.StatusBadRequest, "userApplicantId cannot be empty")
		return
	}
	applicant, err := s.store.UpdateApplicant(chi.URLParam(r, "applicantID"), edit)
	if err != nil {
		respondWithStoreError(w, err, "applicant")
		return
	}
	RespondWithJSON(w, http.StatusOK, applicant)
}

func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "applicantID")
	var payload struct {
		Category string `json:"category"`
		Name     string `json:"name"`
		Path     string `json:"path"`
		Type     string `json:"type"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if !models.IsFileCategory(payload.Category) {
		RespondWithError(w, http.StatusBadRequest, "Unknown file category")
		return
	}
	if payload.Name == "" {
		RespondWithError(w, http.StatusBadRequest, "name is required")
		return
	}
	file, err := s.store.AddFile(applicantID, payload.Category, payload.Name, payload.Path, payload.Type)
	if err != nil {
		respondWithStoreError(w, err, "applicant")
		return
	}
	RespondWithJSON(w, http.StatusCreated, file)
}

func (s *Server) handleArchiveApplicant(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.SetApplicantArchived(chi.URLParam(r, "applicantID"), archived); err != nil {
			respondWithStoreError(w, err, "applicant")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
