package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vrsandeep/intake-go/internal/models"
)

const reportColumns = `
	r.id, r.report_id, r.report_type, r.application_id, app.user_application_id, r.org_id,
	r.percent, r.finished, r.validated, r.error, r.status_text, r.error_text, r.updated_at,
	r.path, r.archived, r.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (models.Report, error) {
	var r models.Report
	var sc statusColumns
	err := row.Scan(&r.ID, &r.ReportID, &r.ReportType, &r.ApplicationID, &r.UserApplicationID, &r.OrgID,
		&sc.percent, &sc.finished, &r.Status.Validated, &sc.err, &sc.text, &sc.errorText, &sc.updatedAt,
		&r.Path, &r.Archived, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	validated := r.Status.Validated
	r.Status = sc.status()
	r.Status.Validated = validated
	r.StatusText = r.Status.Text
	return r, nil
}

// CreateReport requests a report for an application. An empty reportID
// gets a short generated one.
func (s *Store) CreateReport(applicationID, reportType, reportID string) (*models.Report, error) {
	if strings.TrimSpace(reportType) == "" {
		return nil, fmt.Errorf("reportType is required")
	}
	app, err := s.GetApplication(applicationID)
	if err != nil {
		return nil, err
	}
	if reportID == "" {
		reportID = "R-" + strings.ToUpper(uuid.NewString()[:8])
	}
	r := &models.Report{
		ID:                newID(),
		ReportID:          reportID,
		ReportType:        reportType,
		ApplicationID:     app.ID,
		UserApplicationID: app.UserApplicationID,
		OrgID:             app.OrgID,
		CreatedAt:         now(),
	}
	_, err = s.db.Exec(
		"INSERT INTO reports (id, report_id, report_type, application_id, org_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.ReportID, r.ReportType, r.ApplicationID, r.OrgID, r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetReport retrieves a single report by its ID.
func (s *Store) GetReport(id string) (*models.Report, error) {
	row := s.db.QueryRow("SELECT "+reportColumns+`
		FROM reports r JOIN applications app ON app.id = r.application_id
		WHERE r.id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns the reports matching f, newest first.
func (s *Store) ListReports(f ListFilter) ([]models.Report, error) {
	where, args := f.where("r")
	return s.queryReports("SELECT "+reportColumns+`
		FROM reports r JOIN applications app ON app.id = r.application_id`+where+`
		ORDER BY r.created_at DESC`, args...)
}

// PendingReports lists active reports still generating or awaiting
// validation.
func (s *Store) PendingReports() ([]models.Report, error) {
	return s.queryReports("SELECT " + reportColumns + `
		FROM reports r JOIN applications app ON app.id = r.application_id
		WHERE r.archived = 0 AND (r.percent < 100 OR r.validated = 0)
		ORDER BY r.created_at ASC`)
}

func (s *Store) queryReports(query string, args ...any) ([]models.Report, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// SetReportArchived archives or restores a report.
func (s *Store) SetReportArchived(id string, archived bool) error {
	return s.setArchived("reports", id, archived)
}

// UpdateReportStatus applies patch to a report's status and returns the
// updated report.
func (s *Store) UpdateReportStatus(id string, patch models.StatusPatch) (*models.Report, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow("SELECT "+reportColumns+`
		FROM reports r JOIN applications app ON app.id = r.application_id
		WHERE r.id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.Status = patch.Apply(r.Status)
	r.StatusText = r.Status.Text
	t := now()
	r.Status.UpdatedAt = &t
	_, err = tx.Exec(`
		UPDATE reports SET percent = ?, finished = ?, validated = ?, error = ?, status_text = ?, updated_at = ?
		WHERE id = ?`,
		r.Status.Percent, r.Status.Finished, r.Status.Validated, r.Status.Error, r.Status.Text, t, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReportEdit holds the editable report fields. Nil fields are kept.
type ReportEdit struct {
	ReportType *string `json:"reportType"`
	Path       *string `json:"path"`
}

// UpdateReport applies edit to a report and returns the result.
func (s *Store) UpdateReport(id string, edit ReportEdit) (*models.Report, error) {
	if edit.ReportType != nil && strings.TrimSpace(*edit.ReportType) == "" {
		return nil, fmt.Errorf("reportType cannot be empty")
	}
	res, err := s.db.Exec(`
		UPDATE reports SET report_type = COALESCE(?, report_type), path = COALESCE(?, path)
		WHERE id = ?`, edit.ReportType, edit.Path, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetReport(id)
}

// ValidateReport marks a report as validated by an admin.
func (s *Store) ValidateReport(id string) (*models.Report, error) {
	validated := true
	return s.UpdateReportStatus(id, models.StatusPatch{Validated: &validated})
}
