// Package selector decides which status subscriptions a list needs. It is
// a pure function of the previously subscribed keys and the current list,
// so the caller owns every side effect.
package selector

import (
	"sort"

	"github.com/vrsandeep/intake-go/internal/models"
)

// Set is a set of subscription keys.
type Set map[string]struct{}

// NewSet builds a Set from keys.
func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Delta is the set of subscriptions to open and close.
type Delta struct {
	ToOpen  []string
	ToClose []string
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.ToOpen) == 0 && len(d.ToClose) == 0
}

// Apply returns previous with the delta applied.
func (d Delta) Apply(previous Set) Set {
	next := make(Set, len(previous)+len(d.ToOpen))
	for k := range previous {
		next[k] = struct{}{}
	}
	for _, k := range d.ToClose {
		delete(next, k)
	}
	for _, k := range d.ToOpen {
		next[k] = struct{}{}
	}
	return next
}

// Reconcile compares the subscribed keys with the entities that still have
// pending work. ToOpen lists pending keys not yet subscribed, in list order
// and without duplicates; ToClose lists subscribed keys that are no longer
// pending, sorted. Entities with an empty key are ignored.
func Reconcile[T any](previous Set, entities []T, key func(T) string, pending func(T) bool) Delta {
	want := make(Set)
	var delta Delta
	for _, e := range entities {
		if !pending(e) {
			continue
		}
		k := key(e)
		if k == "" || want.Has(k) {
			continue
		}
		want[k] = struct{}{}
		if !previous.Has(k) {
			delta.ToOpen = append(delta.ToOpen, k)
		}
	}
	for k := range previous {
		if !want.Has(k) {
			delta.ToClose = append(delta.ToClose, k)
		}
	}
	sort.Strings(delta.ToClose)
	return delta
}

// ApplicantKey is the file channel subscription key of an applicant.
func ApplicantKey(a models.Applicant) string { return a.ID }

// ApplicantPending reports whether any of the applicant's files, in any
// category, is still below 100%.
func ApplicantPending(a models.Applicant) bool {
	for _, files := range a.FileInputs {
		for _, f := range files {
			if f.Status.Percent < 100 {
				return true
			}
		}
	}
	return false
}

// ReportKey is the report channel subscription key of a report. Reports of
// the same application share one subscription.
func ReportKey(r models.Report) string { return r.ApplicationID }

// ReportPending reports whether a report is still generating or awaits
// validation.
func ReportPending(r models.Report) bool {
	return r.Status.Percent < 100 || !r.Status.Validated
}
