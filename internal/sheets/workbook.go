package sheets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Workbook keeps sheets as worksheets of a single .xlsx file. Row 1 of each
// worksheet is the header; the file is saved after every write.
type Workbook struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

// OpenWorkbook opens path, or starts an empty workbook when it does not exist.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

// EnsureSheets adds missing worksheets with their header row, and drops the
// default worksheet of a fresh file.
func (w *Workbook) EnsureSheets(_ context.Context, specs ...Spec) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range specs {
		idx, err := w.file.GetSheetIndex(s.Title)
		if err != nil {
			return err
		}
		if idx >= 0 {
			continue
		}
		if _, err := w.file.NewSheet(s.Title); err != nil {
			return err
		}
		if len(s.Header) > 0 {
			header := append([]string(nil), s.Header...)
			if err := w.file.SetSheetRow(s.Title, "A1", &header); err != nil {
				return err
			}
		}
	}
	if idx, _ := w.file.GetSheetIndex(defaultSheet); idx >= 0 && len(w.file.GetSheetList()) > 1 {
		if err := w.file.DeleteSheet(defaultSheet); err != nil {
			return err
		}
	}
	return w.save()
}

func (w *Workbook) save() error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return unavailable("mkdir", err)
		}
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return unavailable("save workbook", err)
	}
	return nil
}

func (w *Workbook) Sheet(_ context.Context, title string) (Sheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx, err := w.file.GetSheetIndex(title)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, title)
	}
	return &xlsxSheet{wb: w, title: title}, nil
}

func (w *Workbook) Ping(context.Context) error { return nil }

// Close releases the workbook; pending changes are already on disk.
func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

type xlsxSheet struct {
	wb    *Workbook
	title string
}

func (s *xlsxSheet) Title() string { return s.title }

func (s *xlsxSheet) Append(_ context.Context, values []string) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	rows, err := s.wb.file.GetRows(s.title)
	if err != nil {
		return unavailable("get rows", err)
	}
	next := len(rows) + 1
	if next < 2 {
		next = 2
	}
	if err := s.setRow(next, values); err != nil {
		return err
	}
	return s.wb.save()
}

func (s *xlsxSheet) Rows(context.Context) ([]Row, error) {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	rows, err := s.wb.file.GetRows(s.title)
	if err != nil {
		return nil, unavailable("get rows", err)
	}
	var out []Row
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 {
			continue
		}
		out = append(out, Row{Number: i + 1, Values: rows[i]})
	}
	return out, nil
}

func (s *xlsxSheet) Update(_ context.Context, row Row) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	rows, err := s.wb.file.GetRows(s.title)
	if err != nil {
		return unavailable("get rows", err)
	}
	if row.Number < 2 || row.Number > len(rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowNotFound, s.title, row.Number)
	}
	values := row.Values
	if old := rows[row.Number-1]; len(old) > len(values) {
		values = append(append([]string(nil), values...), make([]string, len(old)-len(values))...)
	}
	if err := s.setRow(row.Number, values); err != nil {
		return err
	}
	return s.wb.save()
}

func (s *xlsxSheet) setRow(n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	vals := append([]string(nil), values...)
	return s.wb.file.SetSheetRow(s.title, cell, &vals)
}
