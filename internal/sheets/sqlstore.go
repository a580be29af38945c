package sheets

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"absensi/internal/store"
)

// dialect holds the statements for one SQL engine. Every statement takes its
// arguments in the same order on every engine. Row numbers come from the
// engine's own sequence, so they are unique across sheets and increase in
// append order within a sheet.
type dialect struct {
	schema string
	// title, header
	ensure string
	// title
	exists string
	// title, cells
	append string
	// title
	rows string
	// title, row number, cells
	update string
}

var postgresDialect = dialect{
	schema: `
CREATE TABLE IF NOT EXISTS sheets (
	title   TEXT PRIMARY KEY,
	header  JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	row_number  BIGSERIAL PRIMARY KEY,
	sheet       TEXT NOT NULL REFERENCES sheets(title) ON DELETE CASCADE,
	cells       JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS sheet_rows_sheet_idx ON sheet_rows (sheet, row_number);
`,
	ensure: `INSERT INTO sheets (title, header) VALUES ($1, $2::jsonb) ON CONFLICT (title) DO NOTHING`,
	exists: `SELECT EXISTS (SELECT 1 FROM sheets WHERE title = $1)`,
	append: `INSERT INTO sheet_rows (sheet, cells) VALUES ($1, $2::jsonb)`,
	rows:   `SELECT row_number, cells::text FROM sheet_rows WHERE sheet = $1 ORDER BY row_number`,
	update: `UPDATE sheet_rows SET cells = $3::jsonb WHERE sheet = $1 AND row_number = $2`,
}

var sqliteDialect = dialect{
	schema: `
CREATE TABLE IF NOT EXISTS sheets (
	title   TEXT PRIMARY KEY,
	header  TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	row_number  INTEGER PRIMARY KEY AUTOINCREMENT,
	sheet       TEXT NOT NULL REFERENCES sheets(title) ON DELETE CASCADE,
	cells       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS sheet_rows_sheet_idx ON sheet_rows (sheet, row_number);
`,
	ensure: `INSERT INTO sheets (title, header) VALUES (?1, ?2) ON CONFLICT (title) DO NOTHING`,
	exists: `SELECT EXISTS (SELECT 1 FROM sheets WHERE title = ?1)`,
	append: `INSERT INTO sheet_rows (sheet, cells) VALUES (?1, ?2)`,
	rows:   `SELECT row_number, cells FROM sheet_rows WHERE sheet = ?1 ORDER BY row_number`,
	update: `UPDATE sheet_rows SET cells = ?3 WHERE sheet = ?1 AND row_number = ?2`,
}

// SQLStore keeps sheets in two tables, sheets and sheet_rows, with each row's
// cells stored as a JSON array.
type SQLStore struct {
	db *store.DB
	d  dialect
}

// NewPostgres wraps an open Postgres database. Call Migrate before first use.
func NewPostgres(db *store.DB) *SQLStore {
	return &SQLStore{db: db, d: postgresDialect}
}

// NewSQLite wraps an open SQLite database. Call Migrate before first use.
func NewSQLite(db *store.DB) *SQLStore {
	return &SQLStore{db: db, d: sqliteDialect}
}

// Migrate creates the tables if they do not exist.
func (p *SQLStore) Migrate(ctx context.Context) error {
	if _, err := p.db.Client.ExecContext(ctx, p.d.schema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// EnsureSheets registers the given sheets, leaving existing ones untouched.
func (p *SQLStore) EnsureSheets(ctx context.Context, specs ...Spec) error {
	for _, s := range specs {
		header, err := json.Marshal(s.Header)
		if err != nil {
			return err
		}
		if _, err := p.db.Client.ExecContext(ctx, p.d.ensure, s.Title, string(header)); err != nil {
			return unavailable("ensure sheet", err)
		}
	}
	return nil
}

func (p *SQLStore) Sheet(ctx context.Context, title string) (Sheet, error) {
	var exists bool
	if err := p.db.Client.QueryRowContext(ctx, p.d.exists, title).Scan(&exists); err != nil {
		return nil, unavailable("load sheet", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, title)
	}
	return &sqlSheet{db: p.db.Client, d: p.d, title: title}, nil
}

func (p *SQLStore) Ping(ctx context.Context) error {
	if !p.db.Healthy(ctx) {
		return ErrUnavailable
	}
	return nil
}

func (p *SQLStore) Close() error { return p.db.Close() }

type sqlSheet struct {
	db    *sql.DB
	d     dialect
	title string
}

func (s *sqlSheet) Title() string { return s.title }

func (s *sqlSheet) Append(ctx context.Context, values []string) error {
	cells, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.d.append, s.title, string(cells)); err != nil {
		return unavailable("append row", err)
	}
	return nil
}

func (s *sqlSheet) Rows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rows, s.title)
	if err != nil {
		return nil, unavailable("get rows", err)
	}
	defer rows.Close()

	var res []Row
	for rows.Next() {
		var (
			r   Row
			raw string
		)
		if err := rows.Scan(&r.Number, &raw); err != nil {
			return nil, unavailable("scan row", err)
		}
		if err := json.Unmarshal([]byte(raw), &r.Values); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", s.title, r.Number, err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get rows", err)
	}
	return res, nil
}

func (s *sqlSheet) Update(ctx context.Context, row Row) error {
	cells, err := json.Marshal(row.Values)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.d.update, s.title, row.Number, string(cells))
	if err != nil {
		return unavailable("save row", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s row %d", ErrRowNotFound, s.title, row.Number)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
