// Data access layer for the relay. SQL stays here, keeping handlers and
// jobs free of queries.

package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/intake-go/internal/models"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListFilter narrows applicant and report listings. Zero fields match
// everything.
type ListFilter struct {
	ID            string
	ApplicationID string
	OrgID         string
	Archived      *bool
}

// where renders f as a WHERE clause over the given table alias.
func (f ListFilter) where(alias string) (string, []any) {
	var conds []string
	var args []any
	if f.ID != "" {
		conds = append(conds, alias+".id = ?")
		args = append(args, f.ID)
	}
	if f.ApplicationID != "" {
		conds = append(conds, alias+".application_id = ?")
		args = append(args, f.ApplicationID)
	}
	if f.OrgID != "" {
		conds = append(conds, alias+".org_id = ?")
		args = append(args, f.OrgID)
	}
	if f.Archived != nil {
		conds = append(conds, alias+".archived = ?")
		args = append(args, *f.Archived)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func newID() string {
	return uuid.NewString()
}

// statusColumns is scanned into an AsyncStatus.
type statusColumns struct {
	percent   float64
	finished  bool
	err       bool
	text      string
	errorText string
	updatedAt sql.NullTime
}

func (c statusColumns) status() models.AsyncStatus {
	s := models.AsyncStatus{
		Percent:   c.percent,
		Finished:  c.finished,
		Error:     c.err,
		Text:      c.text,
		ErrorText: c.errorText,
	}
	if c.updatedAt.Valid {
		t := c.updatedAt.Time
		s.UpdatedAt = &t
	}
	return s
}

// exists reports whether a row with id is in table.
func (s *Store) exists(table, id string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&n)
	return n > 0, err
}

// setArchived flips the archived flag of one row.
func (s *Store) setArchived(table, id string, archived bool) error {
	res, err := s.db.Exec("UPDATE "+table+" SET archived = ? WHERE id = ?", archived, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}
