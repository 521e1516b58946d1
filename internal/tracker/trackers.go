package tracker

import (
	"context"

	"github.com/vrsandeep/intake-go/internal/client"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/reconcile"
	"github.com/vrsandeep/intake-go/internal/selector"
)

// Search fields of the applicant and report lists.
var (
	ApplicantSearchFields = []string{"userApplicantId", "owner", "userApplicationId"}
	ReportSearchFields    = []string{"reportId", "userApplicationId"}
)

// NewApplicants tracks applicants over the file channel, one subscription
// per applicant with a file still being redacted.
func NewApplicants(fetch FetchFunc[models.Applicant], deps Deps) *List[models.Applicant] {
	return New(Options[models.Applicant]{
		Kind:         models.ChannelFile,
		Fetch:        fetch,
		Key:          selector.ApplicantKey,
		Pending:      selector.ApplicantPending,
		Apply:        reconcile.FileStatus,
		SearchFields: ApplicantSearchFields,
	}, deps)
}

// NewReports tracks reports over the report channel, one subscription per
// application with a report generating or awaiting validation. A
// validation refetches the list.
func NewReports(fetch FetchFunc[models.Report], deps Deps) *List[models.Report] {
	return New(Options[models.Report]{
		Kind:             models.ChannelReport,
		Fetch:            fetch,
		Key:              selector.ReportKey,
		Pending:          selector.ReportPending,
		Apply:            reconcile.ReportStatus,
		SearchFields:     ReportSearchFields,
		ReloadOnValidate: true,
	}, deps)
}

// FetchApplicants lists applicants through c.
func FetchApplicants(c *client.Client, f client.Filter) FetchFunc[models.Applicant] {
	return func(ctx context.Context) ([]models.Applicant, error) {
		return c.ListApplicants(ctx, f)
	}
}

// FetchReports lists reports through c.
func FetchReports(c *client.Client, f client.Filter) FetchFunc[models.Report] {
	return func(ctx context.Context) ([]models.Report, error) {
		return c.ListReports(ctx, f)
	}
}
