package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps sheets in process. It is used by tests and the memory backend.
type Memory struct {
	mu     sync.Mutex
	sheets map[string]*memSheet

	// FailWith, when set, is returned by every sheet operation.
	FailWith error
}

type memSheet struct {
	store *Memory
	title string
	rows  [][]string
}

// NewMemory returns a store holding the given sheets, all empty.
func NewMemory(specs ...Spec) *Memory {
	m := &Memory{sheets: make(map[string]*memSheet)}
	_ = m.EnsureSheets(context.Background(), specs...)
	return m
}

// EnsureSheets adds any missing sheets.
func (m *Memory) EnsureSheets(_ context.Context, specs ...Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range specs {
		if _, ok := m.sheets[s.Title]; !ok {
			m.sheets[s.Title] = &memSheet{store: m, title: s.Title}
		}
	}
	return nil
}

func (m *Memory) Sheet(_ context.Context, title string) (Sheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	s, ok := m.sheets[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, title)
	}
	return s, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (s *memSheet) Title() string { return s.title }

func (s *memSheet) Append(_ context.Context, values []string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.FailWith != nil {
		return s.store.FailWith
	}
	s.rows = append(s.rows, append([]string(nil), values...))
	return nil
}

func (s *memSheet) Rows(context.Context) ([]Row, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.FailWith != nil {
		return nil, s.store.FailWith
	}
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = Row{Number: i + 1, Values: append([]string(nil), r...)}
	}
	return out, nil
}

func (s *memSheet) Update(_ context.Context, row Row) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if s.store.FailWith != nil {
		return s.store.FailWith
	}
	if row.Number < 1 || row.Number > len(s.rows) {
		return fmt.Errorf("%w: %s row %d", ErrRowNotFound, s.title, row.Number)
	}
	s.rows[row.Number-1] = append([]string(nil), row.Values...)
	return nil
}
