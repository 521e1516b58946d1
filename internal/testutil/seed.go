package testutil

import (
	"testing"

	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/store"
)

// Fixture is a small loan file: one application with one applicant, a
// credit report upload and a requested report.
type Fixture struct {
	Application *models.Application
	Applicant   *models.Applicant
	File        *models.File
	Report      *models.Report
}

// SeedFixture persists a Fixture owned by "jane" in org "org1". The file's
// path is relative to the storage directory and nothing is written there.
func SeedFixture(t *testing.T, st *store.Store) Fixture {
	t.Helper()
	app, err := st.CreateApplication("GM-1001", "org1", "jane")
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	applicant, err := st.CreateApplicant(app.ID, "GM-1001-A", "")
	if err != nil {
		t.Fatalf("Failed to create applicant: %v", err)
	}
	file, err := st.AddFile(applicant.ID, models.CategoryCreditReports, "credit.pdf", "org1/credit.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Failed to add file: %v", err)
	}
	report, err := st.CreateReport(app.ID, "income", "R-1")
	if err != nil {
		t.Fatalf("Failed to create report: %v", err)
	}
	return Fixture{Application: app, Applicant: applicant, File: file, Report: report}
}
