package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/intake-go/internal/models"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		RespondWithError(w, http.StatusBadRequest, "userId is required")
		return
	}
	notifications, err := s.store.ListNotifications(userID, r.URL.Query().Get("unread") == "true")
	if err != nil {
		respondWithStoreError(w, err, "notifications")
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	RespondWithJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
		Link    string `json:"link"`
		Type    string `json:"type"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	n, err := s.store.CreateNotification(payload.UserID, payload.Message, payload.Link, payload.Type)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.publish(models.ChannelNotification, n.UserID, n)
	RespondWithJSON(w, http.StatusCreated, n)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.MarkNotificationRead(chi.URLParam(r, "notificationID")); err != nil {
		respondWithStoreError(w, err, "notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
