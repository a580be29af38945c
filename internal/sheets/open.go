package sheets

import (
	"context"
	"fmt"

	"absensi/internal/store"
)

// Backend names accepted by Open.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendXLSX     = "xlsx"
	BackendMemory   = "memory"
)

// OpenOptions selects and locates the sheet backend.
type OpenOptions struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
	XLSXPath    string
}

// Open connects to the configured backend and makes sure every sheet in specs
// exists.
func Open(ctx context.Context, opts OpenOptions, specs ...Spec) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendPostgres:
		s, err = openPostgres(ctx, opts.DatabaseURL)
	case BackendSQLite:
		s, err = openSQLite(ctx, opts.SQLitePath)
	case BackendXLSX:
		s, err = OpenWorkbook(opts.XLSXPath)
	case BackendMemory:
		s = NewMemory()
	default:
		return nil, fmt.Errorf("unknown sheet backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	if e, ok := s.(Ensurer); ok {
		if err := e.EnsureSheets(ctx, specs...); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

func openPostgres(ctx context.Context, url string) (*SQLStore, error) {
	db, err := store.NewDB(ctx, url)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, unavailable("connect", err)
	}
	p := NewPostgres(db)
	if err := p.Migrate(ctx); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func openSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := store.NewSQLite(ctx, path)
	if err != nil {
		return nil, unavailable("open", err)
	}
	s := NewSQLite(db)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
