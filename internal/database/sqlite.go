package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"

	"fitsync-go/internal/database/migrations"
	"fitsync-go/internal/fitsync"
)

// SQLiteStore implements fitsync.RemoteStore over a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock fitsync.Clock
}

// NewSQLiteStore opens the database at path, migrating it to the latest
// schema. path can be a file path or ":memory:". A nil clock uses real time.
func NewSQLiteStore(path string, clock fitsync.Clock) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return NewSQLiteStoreFromDB(db, path, clock), nil
}

// NewSQLiteStoreFromDB wraps an open, migrated connection.
func NewSQLiteStoreFromDB(db *sql.DB, path string, clock fitsync.Clock) *SQLiteStore {
	if clock == nil {
		clock = fitsync.RealClock{}
	}
	return &SQLiteStore{db: db, path: path, clock: clock}
}

// OpenConnection opens a SQLite connection pool with foreign keys enforced
// on every connection. An in-memory database is confined to one connection
// so that every query sees the same data.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func (s *SQLiteStore) Select(ctx context.Context, q fitsync.Query) ([]fitsync.Row, error) {
	t, err := lookup(q.Table)
	if err != nil {
		return nil, err
	}
	cols := q.Columns
	if len(cols) == 0 {
		cols = t.names()
	}
	for _, c := range cols {
		if err := t.check(q.Table, c); err != nil {
			return nil, err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), q.Table)
	where, args, err := buildWhere(q.Table, t, q.Filters)
	if err != nil {
		return nil, err
	}
	b.WriteString(where)
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			if err := t.check(q.Table, o.Column); err != nil {
				return nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = o.Column + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	return s.query(ctx, s.db, t, b.String(), args...)
}

func (s *SQLiteStore) Single(ctx context.Context, q fitsync.Query) (fitsync.Row, error) {
	q.Limit = 2
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, noRows(len(rows))
	}
	return rows[0], nil
}

func (s *SQLiteStore) MaybeSingle(ctx context.Context, q fitsync.Query) (fitsync.Row, error) {
	q.Limit = 2
	rows, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	}
	return nil, noRows(len(rows))
}

func (s *SQLiteStore) Insert(ctx context.Context, tableName string, row fitsync.Row) (fitsync.Row, error) {
	t, err := lookup(tableName)
	if err != nil {
		return nil, err
	}
	cols, args, err := s.values(tableName, t, row)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		tableName, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(t.names(), ", "))
	rows, err := s.query(ctx, s.db, t, stmt, args...)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *SQLiteStore) Update(ctx context.Context, tableName string, patch fitsync.Row, filters ...fitsync.Filter) (fitsync.Row, error) {
	t, err := lookup(tableName)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, &fitsync.RemoteError{Message: "update requires at least one column", Code: "PGRST100"}
	}
	if t.has("updated_at") {
		if _, ok := patch["updated_at"]; !ok {
			patch = with(patch, "updated_at", s.clock.Now())
		}
	}

	cols := sortedKeys(patch)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		v, err := encodeColumn(tableName, t, c, patch[c])
		if err != nil {
			return nil, err
		}
		sets[i] = c + " = ?"
		args = append(args, v)
	}
	where, whereArgs, err := buildWhere(tableName, t, filters)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
		tableName, strings.Join(sets, ", "), where, strings.Join(t.names(), ", "))

	// The update is rolled back unless it touched exactly one row.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, remoteError(err)
	}
	defer tx.Rollback()

	rows, err := s.query(ctx, tx, t, stmt, append(args, whereArgs...)...)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, noRows(len(rows))
	}
	if err := tx.Commit(); err != nil {
		return nil, remoteError(err)
	}
	return rows[0], nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, tableName string, row fitsync.Row, conflictKey string) (fitsync.Row, error) {
	t, err := lookup(tableName)
	if err != nil {
		return nil, err
	}
	if err := t.check(tableName, conflictKey); err != nil {
		return nil, err
	}
	if _, ok := row[conflictKey]; !ok {
		return nil, &fitsync.RemoteError{
			Message: fmt.Sprintf("upsert row is missing conflict column %q", conflictKey),
			Code:    "PGRST100",
		}
	}

	// Only the supplied columns are overwritten on conflict; the rest keep
	// their stored values.
	var updates []string
	for _, c := range sortedKeys(row) {
		if c != conflictKey && c != "created_at" {
			updates = append(updates, c+" = excluded."+c)
		}
	}
	if t.has("updated_at") {
		if _, ok := row["updated_at"]; !ok {
			row = with(row, "updated_at", s.clock.Now())
			updates = append(updates, "updated_at = excluded.updated_at")
		}
	}
	if len(updates) == 0 {
		updates = []string{conflictKey + " = excluded." + conflictKey}
	}

	cols, args, err := s.values(tableName, t, row)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		tableName, strings.Join(cols, ", "), placeholders(len(cols)), conflictKey,
		strings.Join(updates, ", "), strings.Join(t.names(), ", "))
	rows, err := s.query(ctx, s.db, t, stmt, args...)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func (s *SQLiteStore) Delete(ctx context.Context, tableName string, filters ...fitsync.Filter) error {
	t, err := lookup(tableName)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return &fitsync.RemoteError{Message: "DELETE requires a WHERE clause", Code: "21000"}
	}
	where, args, err := buildWhere(tableName, t, filters)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+tableName+where, args...); err != nil {
		return remoteError(err)
	}
	return nil
}

func (s *SQLiteStore) Call(ctx context.Context, procedure string, args fitsync.Row) ([]fitsync.Row, error) {
	proc, ok := procedures[procedure]
	if !ok {
		return nil, &fitsync.RemoteError{
			Message: fmt.Sprintf("Could not find the function %s in the schema cache", procedure),
			Code:    "PGRST202",
		}
	}
	return proc(ctx, s, args)
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the schema is up to date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// query runs stmt and decodes every returned row. Rows are fully read and
// closed before it returns.
func (s *SQLiteStore) query(ctx context.Context, q querier, t table, stmt string, args ...any) ([]fitsync.Row, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, remoteError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, remoteError(err)
	}
	out := []fitsync.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, remoteError(err)
		}
		row := make(fitsync.Row, len(cols))
		for i, c := range cols {
			v, err := decode(t.byName[c], vals[i])
			if err != nil {
				return nil, remoteError(fmt.Errorf("column %s: %w", c, err))
			}
			row[c] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, remoteError(err)
	}
	return out, nil
}

// values encodes row for an insert, filling created_at when the table has
// one and the row does not.
func (s *SQLiteStore) values(tableName string, t table, row fitsync.Row) ([]string, []any, error) {
	if t.has("created_at") {
		if _, ok := row["created_at"]; !ok {
			row = with(row, "created_at", s.clock.Now())
		}
	}
	cols := sortedKeys(row)
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := encodeColumn(tableName, t, c, row[c])
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return cols, args, nil
}

func lookup(name string) (table, error) {
	t, ok := tables[name]
	if !ok {
		return table{}, &fitsync.RemoteError{
			Message: fmt.Sprintf("relation %q does not exist", name),
			Code:    "42P01",
		}
	}
	return t, nil
}

func (t table) check(tableName, col string) error {
	if !t.has(col) {
		return &fitsync.RemoteError{
			Message: fmt.Sprintf("column %s.%s does not exist", tableName, col),
			Code:    "42703",
		}
	}
	return nil
}

func encodeColumn(tableName string, t table, col string, v any) (any, error) {
	if err := t.check(tableName, col); err != nil {
		return nil, err
	}
	out, err := encode(t.byName[col], v)
	if err != nil {
		return nil, &fitsync.RemoteError{
			Message: fmt.Sprintf("invalid input for column %s.%s", tableName, col),
			Code:    "22P02",
			Details: err.Error(),
			Cause:   err,
		}
	}
	return out, nil
}

// buildWhere renders filters as a conjunction.
func buildWhere(tableName string, t table, filters []fitsync.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		clause, fargs, err := buildFilter(tableName, t, f)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, fargs...)
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func buildFilter(tableName string, t table, f fitsync.Filter) (string, []any, error) {
	switch f.Op {
	case fitsync.OpEq:
		v, err := encodeColumn(tableName, t, f.Column, f.Value)
		if err != nil {
			return "", nil, err
		}
		if v == nil {
			return f.Column + " IS NULL", nil, nil
		}
		return f.Column + " = ?", []any{v}, nil
	case fitsync.OpIn:
		if err := t.check(tableName, f.Column); err != nil {
			return "", nil, err
		}
		if len(f.Values) == 0 {
			return "0", nil, nil
		}
		args := make([]any, len(f.Values))
		for i, raw := range f.Values {
			v, err := encodeColumn(tableName, t, f.Column, raw)
			if err != nil {
				return "", nil, err
			}
			args[i] = v
		}
		return f.Column + " IN (" + placeholders(len(args)) + ")", args, nil
	case fitsync.OpOr:
		if len(f.Any) == 0 {
			return "0", nil, nil
		}
		parts := make([]string, 0, len(f.Any))
		var args []any
		for _, sub := range f.Any {
			clause, subArgs, err := buildFilter(tableName, t, sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, clause)
			args = append(args, subArgs...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	}
	return "", nil, &fitsync.RemoteError{
		Message: fmt.Sprintf("unsupported filter operator %q", f.Op),
		Code:    "PGRST100",
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedKeys(row fitsync.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// with returns a copy of row with key set to v, leaving the caller's row
// untouched.
func with(row fitsync.Row, key string, v any) fitsync.Row {
	out := make(fitsync.Row, len(row)+1)
	for k, val := range row {
		out[k] = val
	}
	out[key] = v
	return out
}

func noRows(n int) error {
	return &fitsync.RemoteError{
		Message: "JSON object requested, multiple (or no) rows returned",
		Code:    fitsync.CodeNoRows,
		Details: fmt.Sprintf("The result contains %d rows", n),
	}
}

// remoteError translates a driver failure into the store's error shape.
func remoteError(err error) error {
	var re *fitsync.RemoteError
	if errors.As(err, &re) {
		return re
	}
	out := &fitsync.RemoteError{Message: err.Error(), Code: "XX000", Cause: err}
	var se sqlite3.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.Code = "57014"
	case errors.As(err, &se):
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			out.Code = "23505"
			out.Message = "duplicate key value violates unique constraint"
		case sqlite3.ErrConstraintForeignKey:
			out.Code = "23503"
			out.Message = "insert or update violates foreign key constraint"
		case sqlite3.ErrConstraintNotNull:
			out.Code = "23502"
			out.Message = "null value violates not-null constraint"
		case sqlite3.ErrConstraintCheck:
			out.Code = "23514"
			out.Message = "new row violates check constraint"
		}
		if out.Code != "XX000" {
			out.Details = se.Error()
		}
	}
	return out
}

var _ fitsync.RemoteStore = (*SQLiteStore)(nil)
