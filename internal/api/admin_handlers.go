package api

import (
	"errors"
	"net/http"

	"github.com/vrsandeep/intake-go/internal/jobs"
)

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}

// handleRunAdminJob starts a registered job by id. Jobs run one at a time,
// so a second request while one is active gets 409.
func (s *Server) handleRunAdminJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobID string `json:"job_id"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.JobID == "" {
		RespondWithError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	err := s.app.JobManager().RunJob(payload.JobID, s.app)
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "Job '" + payload.JobID + "' started.",
	})
}

func (s *Server) handleGetAdminJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}
