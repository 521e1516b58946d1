// Helpers for sending standardized JSON responses.

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vrsandeep/intake-go/internal/store"
)

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a standardized JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithStoreError maps a store error onto a status code. Unexpected
// errors are logged and hidden from the caller.
func respondWithStoreError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, what+" not found")
		return
	}
	log.Printf("Error handling %s: %v", what, err)
	RespondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
