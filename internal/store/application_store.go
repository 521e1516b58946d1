package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vrsandeep/intake-go/internal/models"
)

// CreateApplication adds a loan file for orgID.
func (s *Store) CreateApplication(userApplicationID, orgID, owner string) (*models.Application, error) {
	if strings.TrimSpace(userApplicationID) == "" || orgID == "" {
		return nil, fmt.Errorf("userApplicationId and orgId are required")
	}
	app := &models.Application{
		ID:                newID(),
		UserApplicationID: userApplicationID,
		OrgID:             orgID,
		Owner:             owner,
		CreatedAt:         now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO applications (id, user_application_id, org_id, owner, created_at) VALUES (?, ?, ?, ?, ?)",
		app.ID, app.UserApplicationID, app.OrgID, app.Owner, app.CreatedAt)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// GetApplication retrieves a single application by its ID.
func (s *Store) GetApplication(id string) (*models.Application, error) {
	var app models.Application
	err := s.db.QueryRow(
		"SELECT id, user_application_id, org_id, owner, archived, created_at FROM applications WHERE id = ?", id,
	).Scan(&app.ID, &app.UserApplicationID, &app.OrgID, &app.Owner, &app.Archived, &app.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListApplications returns the applications matching f, newest first.
// f.ApplicationID selects a single application.
func (s *Store) ListApplications(f ListFilter) ([]models.Application, error) {
	if f.ApplicationID != "" {
		f.ID, f.ApplicationID = f.ApplicationID, ""
	}
	where, args := f.where("app")
	rows, err := s.db.Query(`
		SELECT app.id, app.user_application_id, app.org_id, app.owner, app.archived, app.created_at
		FROM applications app`+where+`
		ORDER BY app.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		var app models.Application
		if err := rows.Scan(&app.ID, &app.UserApplicationID, &app.OrgID, &app.Owner, &app.Archived, &app.CreatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// SetApplicationArchived archives or restores a loan file together with
// its applicants and reports.
func (s *Store) SetApplicationArchived(id string, archived bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE applications SET archived = ? WHERE id = ?", archived, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	for _, table := range []string{"applicants", "reports"} {
		if _, err := tx.Exec("UPDATE "+table+" SET archived = ? WHERE application_id = ?", archived, id); err != nil {
			return fmt.Errorf("archive %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// CreateApplicant attaches an applicant to an existing application. The
// applicant inherits the application's organization.
func (s *Store) CreateApplicant(applicationID, userApplicantID, owner string) (*models.Applicant, error) {
	if strings.TrimSpace(userApplicantID) == "" {
		return nil, fmt.Errorf("userApplicantId is required")
	}
	app, err := s.GetApplication(applicationID)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		owner = app.Owner
	}
	a := &models.Applicant{
		ID:                newID(),
		UserApplicantID:   userApplicantID,
		UserApplicationID: app.UserApplicationID,
		ApplicationID:     app.ID,
		OrgID:             app.OrgID,
		Owner:             owner,
		FileInputs:        map[string][]models.File{},
		CreatedAt:         now(),
	}
	_, err = s.db.Exec(
		"INSERT INTO applicants (id, application_id, user_applicant_id, org_id, owner, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.ApplicationID, a.UserApplicantID, a.OrgID, a.Owner, a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AddFile records an uploaded document for an applicant. The file starts
// at 0% and waits for the worker.
func (s *Store) AddFile(applicantID, category, name, path, fileType string) (*models.File, error) {
	if !models.IsFileCategory(category) {
		return nil, fmt.Errorf("unknown file category %q", category)
	}
	ok, err := s.exists("applicants", applicantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	f := &models.File{
		ID:        newID(),
		Name:      name,
		Path:      path,
		Type:      fileType,
		CreatedAt: now(),
	}
	_, err = s.db.Exec(
		"INSERT INTO files (id, applicant_id, category, name, path, type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.ID, applicantID, category, f.Name, f.Path, f.Type, f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListApplicants returns the applicants matching f, newest first, with
// their files grouped by category.
func (s *Store) ListApplicants(f ListFilter) ([]models.Applicant, error) {
	where, args := f.where("a")
	query := `
		SELECT a.id, a.user_applicant_id, app.user_application_id, a.application_id,
		       a.org_id, a.owner, a.archived, a.created_at
		FROM applicants a
		JOIN applications app ON app.id = a.application_id` + where + `
		ORDER BY a.created_at DESC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var applicants []models.Applicant
	index := make(map[string]int)
	for rows.Next() {
		var a models.Applicant
		if err := rows.Scan(&a.ID, &a.UserApplicantID, &a.UserApplicationID, &a.ApplicationID,
			&a.OrgID, &a.Owner, &a.Archived, &a.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		a.FileInputs = map[string][]models.File{}
		index[a.ID] = len(applicants)
		applicants = append(applicants, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(applicants) == 0 {
		return applicants, nil
	}

	files, err := s.listFiles(where, args)
	if err != nil {
		return nil, err
	}
	for _, cf := range files {
		if i, ok := index[cf.applicantID]; ok {
			applicants[i].FileInputs[cf.category] = append(applicants[i].FileInputs[cf.category], cf.file)
		}
	}
	return applicants, nil
}

type categorizedFile struct {
	applicantID string
	category    string
	file        models.File
}

func (s *Store) listFiles(where string, args []any) ([]categorizedFile, error) {
	query := `
		SELECT f.id, f.applicant_id, f.category, f.name, f.path, f.type,
		       f.percent, f.finished, f.error, f.status_text, f.error_text, f.updated_at, f.created_at
		FROM files f
		JOIN applicants a ON a.id = f.applicant_id` + where + `
		ORDER BY f.created_at ASC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []categorizedFile
	for rows.Next() {
		var cf categorizedFile
		var sc statusColumns
		if err := rows.Scan(&cf.file.ID, &cf.applicantID, &cf.category, &cf.file.Name, &cf.file.Path, &cf.file.Type,
			&sc.percent, &sc.finished, &sc.err, &sc.text, &sc.errorText, &sc.updatedAt, &cf.file.CreatedAt); err != nil {
			return nil, err
		}
		cf.file.Status = sc.status()
		files = append(files, cf)
	}
	return files, rows.Err()
}

// GetApplicant retrieves a single applicant with its files.
func (s *Store) GetApplicant(id string) (*models.Applicant, error) {
	applicants, err := s.ListApplicants(ListFilter{ID: id})
	if err != nil {
		return nil, err
	}
	if len(applicants) == 0 {
		return nil, ErrNotFound
	}
	return &applicants[0], nil
}

// ApplicantEdit holds the editable applicant fields. Nil fields are kept.
type ApplicantEdit struct {
	UserApplicantID *string `json:"userApplicantId"`
	Owner           *string `json:"owner"`
}

// UpdateApplicant applies edit to an applicant and returns the result.
func (s *Store) UpdateApplicant(id string, edit ApplicantEdit) (*models.Applicant, error) {
	if edit.UserApplicantID != nil && strings.TrimSpace(*edit.UserApplicantID) == "" {
		return nil, fmt.Errorf("userApplicantId cannot be empty")
	}
	res, err := s.db.Exec(`
		UPDATE applicants SET user_applicant_id = COALESCE(?, user_applicant_id), owner = COALESCE(?, owner)
		WHERE id = ?`, edit.UserApplicantID, edit.Owner, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetApplicant(id)
}

// GetFile retrieves a single uploaded file by its ID.
func (s *Store) GetFile(id string) (*models.File, error) {
	var f models.File
	var sc statusColumns
	err := s.db.QueryRow(`
		SELECT id, name, path, type, percent, finished, error, status_text, error_text, updated_at, created_at
		FROM files WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &f.Path, &f.Type, &sc.percent, &sc.finished, &sc.err, &sc.text, &sc.errorText, &sc.updatedAt, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	f.Status = sc.status()
	return &f, nil
}

// SetApplicantArchived archives or restores an applicant.
func (s *Store) SetApplicantArchived(id string, archived bool) error {
	return s.setArchived("applicants", id, archived)
}

// UpdateFileStatus applies patch to a file's status and returns the owning
// applicant id and the resulting status.
func (s *Store) UpdateFileStatus(fileID string, patch models.StatusPatch) (string, models.AsyncStatus, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", models.AsyncStatus{}, err
	}
	defer tx.Rollback()

	var applicantID string
	var sc statusColumns
	err = tx.QueryRow(
		"SELECT applicant_id, percent, finished, error, status_text, error_text, updated_at FROM files WHERE id = ?", fileID,
	).Scan(&applicantID, &sc.percent, &sc.finished, &sc.err, &sc.text, &sc.errorText, &sc.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.AsyncStatus{}, ErrNotFound
	}
	if err != nil {
		return "", models.AsyncStatus{}, err
	}

	status := patch.Apply(sc.status())
	t := now()
	status.UpdatedAt = &t
	_, err = tx.Exec(
		"UPDATE files SET percent = ?, finished = ?, error = ?, status_text = ?, updated_at = ? WHERE id = ?",
		status.Percent, status.Finished, status.Error, status.Text, t, fileID)
	if err != nil {
		return "", models.AsyncStatus{}, err
	}
	return applicantID, status, tx.Commit()
}

// PendingFile is a file whose redaction has not finished, with the
// applicant its status is published to.
type PendingFile struct {
	ApplicantID string
	FileID      string
	Status      models.AsyncStatus
}

// PendingFiles lists files below 100% that belong to active applicants.
func (s *Store) PendingFiles() ([]PendingFile, error) {
	rows, err := s.db.Query(`
		SELECT f.applicant_id, f.id, f.percent, f.finished, f.error, f.status_text, f.error_text, f.updated_at
		FROM files f
		JOIN applicants a ON a.id = f.applicant_id
		WHERE f.percent < 100 AND a.archived = 0
		ORDER BY f.created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingFile
	for rows.Next() {
		var p PendingFile
		var sc statusColumns
		if err := rows.Scan(&p.ApplicantID, &p.FileID, &sc.percent, &sc.finished, &sc.err, &sc.text, &sc.errorText, &sc.updatedAt); err != nil {
			return nil, err
		}
		p.Status = sc.status()
		pending = append(pending, p)
	}
	return pending, rows.Err()
}
