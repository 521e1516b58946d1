package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/vrsandeep/intake-go/internal/models"
)

func printApplicants(applicants []models.Applicant) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPLICANT\tAPPLICATION\tOWNER\tFILES")
	for _, a := range applicants {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.UserApplicantID, a.UserApplicationID, a.Owner, fileSummary(a))
	}
	w.Flush()
}

func fileSummary(a models.Applicant) string {
	var parts []string
	for _, category := range models.FileCategories {
		for _, f := range a.FileInputs[category] {
			state := fmt.Sprintf("%.0f%%", f.Status.Percent)
			if f.Status.Error {
				state = "error"
			}
			parts = append(parts, fmt.Sprintf("%s:%s", f.Name, state))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

func printReports(reports []models.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPORT\tAPPLICATION\tTYPE\tPROGRESS\tVALIDATED\tSTATUS")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%t\t%s\n",
			r.ReportID, r.UserApplicationID, r.ReportType, r.Status.Percent, r.Status.Validated, r.StatusText)
	}
	w.Flush()
}
