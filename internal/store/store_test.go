package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
	"github.com/vrsandeep/intake-go/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, s *store.Store) (*models.Application, *models.Applicant, *models.File) {
	t.Helper()
	app, err := s.CreateApplication("GM-1001", "org1", "jane")
	require.NoError(t, err)
	applicant, err := s.CreateApplicant(app.ID, "GM-1001-A", "")
	require.NoError(t, err)
	file, err := s.AddFile(applicant.ID, models.CategoryCreditReports, "credit.pdf", "/uploads/credit.pdf", "application/pdf")
	require.NoError(t, err)
	return app, applicant, file
}

func TestApplicants(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	app, applicant, file := seed(t, s)

	t.Run("Applicant inherits application fields", func(t *testing.T) {
		assert.Equal(t, "org1", applicant.OrgID)
		assert.Equal(t, "jane", applicant.Owner)
		assert.Equal(t, "GM-1001", applicant.UserApplicationID)
	})

	t.Run("List groups files by category", func(t *testing.T) {
		_, err := s.AddFile(applicant.ID, models.CategoryPaystubs, "stub.pdf", "", "application/pdf")
		require.NoError(t, err)

		list, err := s.ListApplicants(store.ListFilter{ApplicationID: app.ID})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "GM-1001-A", list[0].UserApplicantID)
		require.Len(t, list[0].FileInputs[models.CategoryCreditReports], 1)
		assert.Equal(t, file.ID, list[0].FileInputs[models.CategoryCreditReports][0].ID)
		assert.Len(t, list[0].FileInputs[models.CategoryPaystubs], 1)
	})

	t.Run("Unknown category is rejected", func(t *testing.T) {
		_, err := s.AddFile(applicant.ID, "selfies", "me.pdf", "", "")
		assert.Error(t, err)
	})

	t.Run("Missing parents", func(t *testing.T) {
		_, err := s.CreateApplicant("nope", "X", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.AddFile("nope", models.CategoryPaystubs, "x.pdf", "", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Archive filter", func(t *testing.T) {
		require.NoError(t, s.SetApplicantArchived(applicant.ID, true))
		active, err := s.ListApplicants(store.ListFilter{OrgID: "org1", Archived: ptr(false)})
		require.NoError(t, err)
		assert.Empty(t, active)
		archived, err := s.ListApplicants(store.ListFilter{OrgID: "org1", Archived: ptr(true)})
		require.NoError(t, err)
		assert.Len(t, archived, 1)

		require.NoError(t, s.SetApplicantArchived(applicant.ID, false))
		assert.ErrorIs(t, s.SetApplicantArchived("nope", true), store.ErrNotFound)
	})

	t.Run("Org filter", func(t *testing.T) {
		list, err := s.ListApplicants(store.ListFilter{OrgID: "other"})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestUpdateFileStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	_, applicant, file := seed(t, s)

	applicantID, status, err := s.UpdateFileStatus(file.ID, models.StatusPatch{Percent: ptr(40.0), Text: ptr("Redacting")})
	require.NoError(t, err)
	assert.Equal(t, applicant.ID, applicantID)
	assert.Equal(t, 40.0, status.Percent)
	assert.False(t, status.Finished)
	assert.NotNil(t, status.UpdatedAt)

	pending, err := s.PendingFiles()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, file.ID, pending[0].FileID)

	// Only the named fields change.
	_, status, err = s.UpdateFileStatus(file.ID, models.StatusPatch{Percent: ptr(100.0)})
	require.NoError(t, err)
	assert.True(t, status.Finished)
	assert.Equal(t, "Redacting", status.Text)

	pending, err = s.PendingFiles()
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, _, err = s.UpdateFileStatus("nope", models.StatusPatch{Percent: ptr(1.0)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReports(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	app, _, _ := seed(t, s)

	report, err := s.CreateReport(app.ID, "income", "")
	require.NoError(t, err)
	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, "GM-1001", report.UserApplicationID)

	_, err = s.CreateReport("nope", "income", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	updated, err := s.UpdateReportStatus(report.ID, models.StatusPatch{Percent: ptr(100.0), Text: ptr("Done")})
	require.NoError(t, err)
	assert.Equal(t, "Done", updated.StatusText)
	assert.False(t, updated.Status.Validated)

	// Complete but unvalidated reports are still pending.
	pending, err := s.PendingReports()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	validated, err := s.ValidateReport(report.ID)
	require.NoError(t, err)
	assert.True(t, validated.Status.Validated)
	assert.Equal(t, "Done", validated.StatusText)

	pending, err = s.PendingReports()
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := s.GetReport(report.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Validated)
	assert.Equal(t, 100.0, got.Status.Percent)

	list, err := s.ListReports(store.ListFilter{ApplicationID: app.ID, Archived: ptr(false)})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.SetReportArchived(report.ID, true))
	list, err = s.ListReports(store.ListFilter{ApplicationID: app.ID, Archived: ptr(false)})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.GetReport("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	first, err := s.CreateNotification("u1", "Report ready", "/reports/1", "report")
	require.NoError(t, err)
	_, err = s.CreateNotification("u1", "File redacted", "", "file")
	require.NoError(t, err)
	_, err = s.CreateNotification("u2", "Other user", "", "")
	require.NoError(t, err)

	_, err = s.CreateNotification("", "x", "", "")
	assert.Error(t, err)

	list, err := s.ListNotifications("u1", false)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.MarkNotificationRead(first.ID))
	assert.ErrorIs(t, s.MarkNotificationRead("nope"), store.ErrNotFound)

	unread, err := s.ListNotifications("u1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "File redacted", unread[0].Message)

	// Nothing is old enough yet.
	n, err := s.PruneReadNotifications(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = s.PruneReadNotifications(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err = s.ListNotifications("u1", false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApplicationArchive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	app, applicant, _ := seed(t, s)
	report, err := s.CreateReport(app.ID, "income", "")
	require.NoError(t, err)
	other, err := s.CreateApplication("GM-2002", "org2", "bob")
	require.NoError(t, err)

	require.NoError(t, s.SetApplicationArchived(app.ID, true))

	active, err := s.ListApplications(store.ListFilter{Archived: ptr(false)})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, other.ID, active[0].ID)

	got, err := s.GetApplicant(applicant.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)
	gotReport, err := s.GetReport(report.ID)
	require.NoError(t, err)
	assert.True(t, gotReport.Archived)

	require.NoError(t, s.SetApplicationArchived(app.ID, false))
	got, err = s.GetApplicant(applicant.ID)
	require.NoError(t, err)
	assert.False(t, got.Archived)

	byID, err := s.ListApplications(store.ListFilter{ApplicationID: app.ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "GM-1001", byID[0].UserApplicationID)

	assert.ErrorIs(t, s.SetApplicationArchived("nope", true), store.ErrNotFound)
}

func TestEdits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	app, applicant, file := seed(t, s)

	updated, err := s.UpdateApplicant(applicant.ID, store.ApplicantEdit{Owner: ptr("sam")})
	require.NoError(t, err)
	assert.Equal(t, "sam", updated.Owner)
	assert.Equal(t, "GM-1001-A", updated.UserApplicantID)
	_, err = s.UpdateApplicant(applicant.ID, store.ApplicantEdit{UserApplicantID: ptr(" ")})
	assert.Error(t, err)
	_, err = s.GetApplicant("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	report, err := s.CreateReport(app.ID, "income", "R-9")
	require.NoError(t, err)
	edited, err := s.UpdateReport(report.ID, store.ReportEdit{Path: ptr("reports/R-9.pdf")})
	require.NoError(t, err)
	assert.Equal(t, "reports/R-9.pdf", edited.Path)
	assert.Equal(t, "income", edited.ReportType)
	_, err = s.UpdateReport("nope", store.ReportEdit{Path: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.GetFile(file.ID)
	require.NoError(t, err)
	assert.Equal(t, "credit.pdf", got.Name)
	assert.Equal(t, "/uploads/credit.pdf", got.Path)
	_, err = s.GetFile("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
