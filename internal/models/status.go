package models

import "time"

// AsyncStatus tracks a unit of background work owned by the external
// worker: PII redaction for a file, generation for a report.
type AsyncStatus struct {
	Percent   float64    `json:"percent"`
	Text      string     `json:"text"`
	Finished  bool       `json:"finished"`
	Validated bool       `json:"validated,omitempty"` // reports only, set by an admin
	Error     bool       `json:"error"`
	ErrorText string     `json:"error_text,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Complete reports whether the work reached 100% without error.
func (s AsyncStatus) Complete() bool {
	return s.Percent >= 100 && !s.Error
}

// StatusPatch is the status part of a pushed update. Nil fields are left
// untouched when the patch is applied.
type StatusPatch struct {
	Percent   *float64 `json:"percent,omitempty"`
	Error     *bool    `json:"error,omitempty"`
	Text      *string  `json:"text,omitempty"`
	Validated *bool    `json:"validated,omitempty"`
}

// Apply writes the named fields of p onto s and returns the result.
func (p StatusPatch) Apply(s AsyncStatus) AsyncStatus {
	if p.Percent != nil {
		s.Percent = *p.Percent
		s.Finished = *p.Percent >= 100
	}
	if p.Error != nil {
		s.Error = *p.Error
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	if p.Validated != nil {
		s.Validated = *p.Validated
	}
	return s
}

// Empty reports whether the patch names no field at all.
func (p StatusPatch) Empty() bool {
	return p.Percent == nil && p.Error == nil && p.Text == nil && p.Validated == nil
}

// Patch returns the patch that carries every pushable field of s.
func (s AsyncStatus) Patch() StatusPatch {
	percent, failed, text := s.Percent, s.Error, s.Text
	return StatusPatch{Percent: &percent, Error: &failed, Text: &text}
}
