// Package sheets is the tabular store behind the daily log and the weekly and
// monthly summaries. A sheet is an ordered list of rows of raw string cells
// addressed by position, with a header that is not part of the data rows.
package sheets

import (
	"context"
	"errors"
)

var (
	// ErrSheetNotFound is returned when a sheet title does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrRowNotFound is returned when updating a row that is not in the sheet.
	ErrRowNotFound = errors.New("row not found")

	// ErrUnavailable wraps I/O failures against the backend.
	ErrUnavailable = errors.New("sheet store unavailable")
)

// Row is one data row. Number identifies the row within its sheet and is
// opaque to callers.
type Row struct {
	Number int
	Values []string
}

// Get returns the cell at i, or "" when the row is shorter.
func (r Row) Get(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Sheet is a handle to a single sheet.
type Sheet interface {
	Title() string
	Append(ctx context.Context, values []string) error
	Rows(ctx context.Context) ([]Row, error)
	// Update persists an in-place edit of a row previously returned by Rows.
	Update(ctx context.Context, row Row) error
}

// Store opens sheets by title. Sheets are never created on lookup.
type Store interface {
	Sheet(ctx context.Context, title string) (Sheet, error)
	Ping(ctx context.Context) error
	Close() error
}

// Spec describes a sheet to create with EnsureSheets.
type Spec struct {
	Title  string
	Header []string
}

// Ensurer is implemented by stores that can create missing sheets.
type Ensurer interface {
	EnsureSheets(ctx context.Context, specs ...Spec) error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*Workbook)(nil)
)
