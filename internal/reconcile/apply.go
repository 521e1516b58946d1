package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/vrsandeep/intake-go/internal/models"
)

// ErrMalformed marks a pushed payload that could not be decoded into a
// status message.
var ErrMalformed = errors.New("malformed status message")

// Result describes what applying a message did.
type Result struct {
	// Matched is false when no entity carries the message's id.
	Matched bool
	// Validated is true when a report moved from unvalidated to validated.
	Validated bool
}

// ApplyFunc decodes a raw pushed message and applies it to items.
type ApplyFunc[T any] func(items []T, raw json.RawMessage) ([]T, Result, error)

// ApplyFileStatus writes the patched status fields onto the file with
// msg.FileID. Unrelated fields and entities are unchanged; the input slice
// is not modified.
func ApplyFileStatus(items []models.Applicant, msg models.FileStatusMessage) ([]models.Applicant, Result) {
	for i, a := range items {
		for category, files := range a.FileInputs {
			j := slices.IndexFunc(files, func(f models.File) bool { return f.ID == msg.FileID })
			if j < 0 {
				continue
			}
			out := slices.Clone(items)
			updated := a.Clone()
			updated.FileInputs[category][j].Status = msg.Status.Apply(files[j].Status)
			out[i] = updated
			return out, Result{Matched: true}
		}
	}
	return items, Result{}
}

// ApplyReportStatus writes the patched status fields onto the report with
// msg.ReportID and mirrors the text into StatusText.
func ApplyReportStatus(items []models.Report, msg models.ReportStatusMessage) ([]models.Report, Result) {
	i := slices.IndexFunc(items, func(r models.Report) bool { return r.ID == msg.ReportID })
	if i < 0 {
		return items, Result{}
	}
	out := slices.Clone(items)
	r := out[i]
	wasValidated := r.Status.Validated
	r.Status = msg.Status.Apply(r.Status)
	if msg.Status.Text != nil {
		r.StatusText = *msg.Status.Text
	}
	out[i] = r
	return out, Result{Matched: true, Validated: !wasValidated && r.Status.Validated}
}

// FileStatus is the ApplyFunc of the file channel.
func FileStatus(items []models.Applicant, raw json.RawMessage) ([]models.Applicant, Result, error) {
	var msg models.FileStatusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return items, Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.FileID == "" {
		return items, Result{}, fmt.Errorf("%w: missing fileId", ErrMalformed)
	}
	out, res := ApplyFileStatus(items, msg)
	return out, res, nil
}

// ReportStatus is the ApplyFunc of the report channel.
func ReportStatus(items []models.Report, raw json.RawMessage) ([]models.Report, Result, error) {
	var msg models.ReportStatusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return items, Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.ReportID == "" {
		return items, Result{}, fmt.Errorf("%w: missing reportId", ErrMalformed)
	}
	out, res := ApplyReportStatus(items, msg)
	return out, res, nil
}
