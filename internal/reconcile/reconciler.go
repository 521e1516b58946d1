// Package reconcile merges pushed status messages into in-memory entity
// lists.
package reconcile

import (
	"encoding/json"
	"errors"
	"log"
)

// Notifier surfaces a failure to the user, e.g. through a modal dialog.
type Notifier interface {
	SetMessage(message string)
	OpenModal()
}

// Reconciler applies messages from one status channel to a Store.
type Reconciler[T any] struct {
	store    *Store[T]
	apply    ApplyFunc[T]
	notifier Notifier
	onReload func()
}

// NewReconciler wires apply to store. notifier and onReload may be nil.
func NewReconciler[T any](store *Store[T], apply ApplyFunc[T], notifier Notifier, onReload func()) *Reconciler[T] {
	return &Reconciler[T]{
		store:    store,
		apply:    apply,
		notifier: notifier,
		onReload: onReload,
	}
}

// HandleMessage applies one pushed message. Failures are logged and never
// propagate to the caller; a message for an unknown id is ignored.
func (r *Reconciler[T]) HandleMessage(raw json.RawMessage) Result {
	res, err := r.store.Update(func(items []T) ([]T, Result, error) {
		return r.apply(items, raw)
	})
	if err != nil {
		log.Printf("Error updating status from message %s: %v", raw, err)
		if !errors.Is(err, ErrMalformed) && r.notifier != nil {
			r.notifier.SetMessage("Status update failed: " + err.Error())
			r.notifier.OpenModal()
		}
		return Result{}
	}
	if res.Validated && r.onReload != nil {
		r.onReload()
	}
	return res
}
