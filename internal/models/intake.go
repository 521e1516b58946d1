// This file defines the loan-file records served by the relay and tracked
// by the status client.

package models

import "time"

// File categories an applicant can upload documents under.
const (
	CategoryCreditReports  = "creditReports"
	CategoryBankStatements = "bankStatements"
	CategoryPaystubs       = "paystubs"
	CategoryTaxReturns     = "taxReturns"
)

// FileCategories lists every accepted upload category.
var FileCategories = []string{
	CategoryCreditReports,
	CategoryBankStatements,
	CategoryPaystubs,
	CategoryTaxReturns,
}

// IsFileCategory reports whether c is an accepted upload category.
func IsFileCategory(c string) bool {
	for _, known := range FileCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Application is a loan file grouping applicants and their reports.
type Application struct {
	ID                string    `json:"id"`
	UserApplicationID string    `json:"userApplicationId"`
	OrgID             string    `json:"orgId"`
	Owner             string    `json:"owner"`
	Archived          bool      `json:"archived"`
	CreatedAt         time.Time `json:"createdAt"`
}

// File is an uploaded PDF document.
type File struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Type      string      `json:"type"`
	Status    AsyncStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Applicant is a person attached to an application. FileInputs groups the
// applicant's documents by category.
type Applicant struct {
	ID                string            `json:"id"`
	UserApplicantID   string            `json:"userApplicantId"`
	UserApplicationID string            `json:"userApplicationId"`
	ApplicationID     string            `json:"applicationId"`
	OrgID             string            `json:"orgId"`
	Owner             string            `json:"owner"`
	FileInputs        map[string][]File `json:"fileInputs"`
	Archived          bool              `json:"archived"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Clone returns a copy of a that shares no file slices with the original.
func (a Applicant) Clone() Applicant {
	if a.FileInputs == nil {
		return a
	}
	inputs := make(map[string][]File, len(a.FileInputs))
	for category, files := range a.FileInputs {
		inputs[category] = append([]File(nil), files...)
	}
	a.FileInputs = inputs
	return a
}

// Report is a generated summary tied to an application.
type Report struct {
	ID                string      `json:"id"`
	ReportID          string      `json:"reportId"`
	ReportType        string      `json:"reportType"`
	ApplicationID     string      `json:"applicationId"`
	UserApplicationID string      `json:"userApplicationId"`
	OrgID             string      `json:"orgId"`
	Status            AsyncStatus `json:"status"`
	StatusText        string      `json:"statusText"`
	// Path of the generated document, set by the worker.
	Path      string    `json:"path,omitempty"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
}
