package reconcile

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vrsandeep/intake-go/internal/listview"
)

// Store owns the full list of a tracker. The filtered and sorted view is
// derived from it on every read, so a status write can never leave the two
// out of step. Every write replaces the backing slice.
type Store[T any] struct {
	mu       sync.RWMutex
	items    []T
	fields   []string
	query    string
	sort     *listview.SortConfig
	onChange func([]T)
}

// NewStore returns an empty store searching the given dot-path fields.
func NewStore[T any](searchFields ...string) *Store[T] {
	return &Store[T]{fields: searchFields}
}

// OnChange registers fn to receive a copy of the full list after every
// write. fn runs on the writer's goroutine, outside the store lock.
func (s *Store[T]) OnChange(fn func([]T)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Set replaces the full list.
func (s *Store[T]) Set(items []T) {
	s.mu.Lock()
	s.items = slices.Clone(items)
	snapshot, notify := slices.Clone(s.items), s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
}

// Items returns a copy of the full list.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the size of the full list.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// SetQuery changes the search query of the view. The query is matched
// case-insensitively.
func (s *Store[T]) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
}

// Query returns the current search query.
func (s *Store[T]) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// RequestSort selects key as the sort column, toggling direction when it
// is already selected, and returns the new config.
func (s *Store[T]) RequestSort(key string) listview.SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := listview.RequestSort(s.sort, key)
	s.sort = &next
	return next
}

// SortConfig returns the active sort, or nil.
func (s *Store[T]) SortConfig() *listview.SortConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sort == nil {
		return nil
	}
	cfg := *s.sort
	return &cfg
}

// View returns the filtered and sorted list for display.
func (s *Store[T]) View() []T {
	s.mu.RLock()
	items, fields, query, sortCfg := s.items, s.fields, s.query, s.sort
	s.mu.RUnlock()
	return listview.Sort(listview.Filter(items, fields, query), sortCfg)
}

// Update runs fn against the current list and stores its result when fn
// reports a match. A panic inside fn is returned as an error and leaves the
// list untouched.
func (s *Store[T]) Update(fn func([]T) ([]T, Result, error)) (res Result, err error) {
	s.mu.Lock()
	var next []T
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("status update panicked: %v", r)
			}
		}()
		next, res, err = fn(s.items)
	}()
	if err != nil || !res.Matched {
		s.mu.Unlock()
		return res, err
	}
	s.items = next
	snapshot, notify := slices.Clone(next), s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	return res, nil
}
