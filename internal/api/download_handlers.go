package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

var errOutsideStorage = errors.New("path is outside the storage directory")

// resolveStoredPath maps a stored document path onto the filesystem.
// Relative paths resolve against root; nothing may escape root.
func resolveStoredPath(root, stored string) (string, error) {
	if stored == "" {
		return "", os.ErrNotExist
	}
	if strings.Contains(stored, "..") {
		return "", errOutsideStorage
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Clean(stored)
	if !filepath.IsAbs(full) {
		full = filepath.Join(absRoot, full)
	}
	rel, err := filepath.Rel(absRoot, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errOutsideStorage
	}
	return full, nil
}

// serveDocument streams the stored document as an attachment named name.
func (s *Server) serveDocument(w http.ResponseWriter, r *http.Request, stored, name string) {
	path, err := resolveStoredPath(s.app.Config().Storage.Dir, stored)
	switch {
	case errors.Is(err, errOutsideStorage):
		RespondWithError(w, http.StatusForbidden, "Document is not downloadable")
		return
	case err != nil:
		RespondWithError(w, http.StatusNotFound, "Document not available")
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		RespondWithError(w, http.StatusNotFound, "Document not available")
		return
	}
	if name == "" {
		name = filepath.Base(path)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.store.GetFile(chi.URLParam(r, "fileID"))
	if err != nil {
		respondWithStoreError(w, err, "file")
		return
	}
	s.serveDocument(w, r, file.Path, file.Name)
}

// handleDownloadReport serves a generated report once it is complete.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.GetReport(chi.URLParam(r, "reportID"))
	if err != nil {
		respondWithStoreError(w, err, "report")
		return
	}
	if !report.Status.Complete() {
		RespondWithError(w, http.StatusConflict, "Report is not ready")
		return
	}
	s.serveDocument(w, r, report.Path, fmt.Sprintf("%s-%s.pdf", report.ReportID, report.ReportType))
}
