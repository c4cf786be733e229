package models

import (
	"time"

	"airbnb-explorer/apperrors"
)

// MaxProblems caps how many row-level parse errors a Table keeps.
const MaxProblems = 100

// Table is an ordered, read-only set of listings. It is safe for concurrent
// use because nothing mutates it after construction.
type Table struct {
	source   string
	loadedAt time.Time
	rows     []Listing
	skipped  int
	problems []error
}

// LoadStats describes what happened while a Table was loaded.
type LoadStats struct {
	Skipped  int
	Problems []error
}

// NewTable builds a loaded Table. It takes ownership of rows; the caller must
// not modify the slice afterwards.
func NewTable(source string, rows []Listing, stats LoadStats) *Table {
	problems := stats.Problems
	if len(problems) > MaxProblems {
		problems = problems[:MaxProblems]
	}
	return &Table{
		source:   source,
		loadedAt: time.Now(),
		rows:     rows,
		skipped:  stats.Skipped,
		problems: problems,
	}
}

// Derive returns a Table with the given rows that keeps t's source identity.
// Load diagnostics belong to the loaded table only and are not carried over.
func (t *Table) Derive(rows []Listing) *Table {
	return &Table{source: t.source, loadedAt: t.loadedAt, rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns a copy of row i.
func (t *Table) Row(i int) Listing { return t.rows[i] }

// Rows returns a copy of all rows.
func (t *Table) Rows() []Listing {
	out := make([]Listing, len(t.rows))
	copy(out, t.rows)
	return out
}

// Source is the locator the table was loaded from.
func (t *Table) Source() string { return t.source }

// LoadedAt is when the source table was built.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Skipped is the number of source rows dropped during the load.
func (t *Table) Skipped() int { return t.skipped }

// Problems returns up to MaxProblems of the row errors seen during the load.
func (t *Table) Problems() []error {
	out := make([]error, len(t.problems))
	copy(out, t.problems)
	return out
}

// Floats returns numeric column col as a slice aligned with the rows.
func (t *Table) Floats(col Column) ([]NullFloat, error) {
	if !col.Numeric() {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "column %q is not numeric", col)
	}
	out := make([]NullFloat, len(t.rows))
	for i, l := range t.rows {
		if v, ok := l.Number(col); ok {
			out[i] = Float(v)
		}
	}
	return out, nil
}

// Texts returns text column col as a slice aligned with the rows.
func (t *Table) Texts(col Column) ([]string, error) {
	if col.Kind() != KindText {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "column %q is not text", col)
	}
	out := make([]string, len(t.rows))
	for i, l := range t.rows {
		out[i], _ = l.Text(col)
	}
	return out, nil
}
