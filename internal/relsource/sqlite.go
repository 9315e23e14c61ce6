package relsource

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/quarrel/internal/relerr"
	"github.com/roach88/quarrel/internal/relplan"
	"github.com/roach88/quarrel/internal/relrow"
	"github.com/roach88/quarrel/internal/relval"
)

// SQLiteTable scans one SQLite table into the evaluation core's row
// shape. The scan materializes on every Produce call; SQLite is the
// storage collaborator here, never the query engine, so the SQL issued
// is always a bare column-list SELECT.
type SQLiteTable struct {
	db     *sql.DB
	table  string
	schema relrow.Schema
}

// OpenSQLite opens a SQLite database file (or ":memory:") and builds a
// producer for the named table with the given schema. Column names in
// the schema must exist in the table; types drive the value mapping on
// scan.
func OpenSQLite(path, table string, schema relrow.Schema) (*SQLiteTable, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteTable{db: db, table: table, schema: schema}, nil
}

// NewSQLiteTable wraps an existing database handle. The caller keeps
// ownership of the handle.
func NewSQLiteTable(db *sql.DB, table string, schema relrow.Schema) *SQLiteTable {
	return &SQLiteTable{db: db, table: table, schema: schema}
}

// Close releases the database handle.
func (s *SQLiteTable) Close() error { return s.db.Close() }

// Schema implements relplan.RowProducer.
func (s *SQLiteTable) Schema() relrow.Schema { return s.schema }

// Produce implements relplan.RowProducer.
func (s *SQLiteTable) Produce(*relplan.EvalContext) (*relrow.Table, error) {
	names := make([]string, s.schema.Len())
	for i, c := range s.schema.Columns {
		names[i] = quoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), quoteIdent(s.table))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	defer rows.Close()

	t := relrow.NewTable(s.schema)
	scan := make([]any, s.schema.Len())
	for rows.Next() {
		for i := range scan {
			scan[i] = new(any)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		row := make(relrow.Row, s.schema.Len())
		for i, c := range s.schema.Columns {
			v, err := fromSQLite(*scan[i].(*any), c.Type)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		t.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return t, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// fromSQLite maps one driver value onto the declared column type.
// SQLite's dynamic typing means the driver may hand back any of its five
// storage classes regardless of the declared type; the declared type
// decides the target kind and mismatches are TYPE_MISMATCH.
func fromSQLite(v any, kind relval.Kind) (relval.Value, error) {
	if v == nil {
		return relval.Null{}, nil
	}
	switch kind {
	case relval.KindBool:
		if n, ok := v.(int64); ok {
			return relval.Bool(n != 0), nil
		}
	case relval.KindInt:
		if n, ok := v.(int64); ok {
			return relval.Int(n), nil
		}
	case relval.KindDouble:
		switch n := v.(type) {
		case float64:
			return relval.Double(n), nil
		case int64:
			return relval.Double(n), nil
		}
	case relval.KindNumeric:
		switch n := v.(type) {
		case int64:
			return relval.ParseNumeric(fmt.Sprintf("%d", n))
		case float64:
			return relval.ParseNumeric(fmt.Sprintf("%g", n))
		case string:
			return relval.ParseNumeric(n)
		case []byte:
			return relval.ParseNumeric(string(n))
		}
	case relval.KindString:
		switch s := v.(type) {
		case string:
			return relval.NewString(s), nil
		case []byte:
			return relval.NewString(string(s)), nil
		}
	case relval.KindBytes:
		switch b := v.(type) {
		case []byte:
			return relval.Bytes(append([]byte(nil), b...)), nil
		case string:
			return relval.Bytes(b), nil
		}
	case relval.KindJSON:
		switch s := v.(type) {
		case string:
			return relval.JSON(s), nil
		case []byte:
			return relval.JSON(s), nil
		}
	}
	return nil, relerr.New(relerr.CodeTypeMismatch, "sqlite-scan",
		"cannot map sqlite value %T onto %s", v, kind)
}
