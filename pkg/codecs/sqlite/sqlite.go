// Package sqlite provides a SQL-table codec for frameset tables: each
// entity is stored as a single-table SQLite database file. It exists for
// consumers that want table files a SQL tool can open directly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/leapstack-labs/frameset/pkg/dtype"
)

// Format is the registry tag of this codec.
const Format = "sqlite"

// TableName is the single table every entity database contains.
const TableName = "data"

// Codec implements codec.Codec for single-table SQLite files.
type Codec struct {
	logger *slog.Logger
	mem    memory.Allocator
}

// New creates a sqlite codec.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{logger: logger, mem: memory.DefaultAllocator}
}

// Format returns the registry tag.
func (c *Codec) Format() string { return Format }

// Write stores tbl as a SQLite database with one table named "data".
// Values the SQLite type system cannot hold natively (timestamps, dates,
// lists) are stored as text and recovered by the read-side recast.
func (c *Codec) Write(ctx context.Context, tbl *core.Table, root, entityID string, params map[string]any) (core.LoadingInfo, error) {
	if comp, ok := params["compression"]; ok && comp != "" {
		return core.LoadingInfo{}, fmt.Errorf("sqlite format does not support compression")
	}

	basename := codec.Basename(entityID, Format, "")
	path := filepath.Join(root, codec.DataDir, basename)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return core.LoadingInfo{}, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	rec := tbl.Record()
	schema := rec.Schema()

	cols := make([]string, rec.NumCols())
	for i := range cols {
		f := schema.Field(i)
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(f.Name), affinity(f.Type))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(TableName), strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("create table for entity %q: %w", entityID, err)
	}

	if err := c.insertRows(ctx, db, rec); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("insert rows for entity %q: %w", entityID, err)
	}
	if err := db.Close(); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("close sqlite %s: %w", path, err)
	}

	c.logger.Debug("wrote sqlite table", "entity", entityID, "rows", tbl.NumRows(), "file", basename)
	return core.LoadingInfo{
		Location: codec.Location(basename),
		Type:     Format,
		Params:   params,
	}, nil
}

func (c *Codec) insertRows(ctx context.Context, db *sql.DB, rec arrow.Record) error {
	if rec.NumRows() == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", int(rec.NumCols())), ",")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(TableName), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	args := make([]any, rec.NumCols())
	for row := 0; row < int(rec.NumRows()); row++ {
		for col := 0; col < int(rec.NumCols()); col++ {
			args[col] = cellValue(rec.Column(col), row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("row %d: %w", row, err)
		}
	}
	return tx.Commit()
}

// Read loads the single data table back, building each column directly at
// the dtype the manifest recorded.
func (c *Codec) Read(ctx context.Context, info core.LoadingInfo, root string) (*core.Table, error) {
	path := filepath.Join(root, filepath.FromSlash(info.Location))
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", quoteIdent(TableName)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	builders := make([]array.Builder, len(names))
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		dt := arrow.DataType(arrow.BinaryTypes.String)
		if s, ok := info.Properties.DTypes[name]; ok {
			parsed, err := dtype.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			dt = parsed
		}
		builders[i] = array.NewBuilder(c.mem, dt)
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	scanned := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}
	var nrows int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		for i, val := range scanned {
			if err := appendValue(builders[i], val); err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", names[i], nrows, err)
			}
		}
		nrows++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", path, err)
	}

	cols := make([]arrow.Array, len(builders))
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()
	for i, b := range builders {
		cols[i] = b.NewArray()
	}
	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, nrows)
	defer rec.Release()

	cast, err := codec.Recast(c.mem, rec, info.Properties.DTypes)
	if err != nil {
		return nil, fmt.Errorf("recast %s: %w", path, err)
	}
	defer cast.Release()
	return core.NewTable(cast), nil
}

// affinity maps an arrow type to a SQLite column affinity.
func affinity(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.BOOL, arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "INTEGER"
	case arrow.FLOAT32, arrow.FLOAT64:
		return "REAL"
	case arrow.BINARY, arrow.LARGE_BINARY:
		return "BLOB"
	}
	return "TEXT"
}

// cellValue extracts one cell as a database/sql argument. Anything without
// a native SQLite representation goes through its arrow string form.
func cellValue(col arrow.Array, row int) any {
	if col.IsNull(row) {
		return nil
	}
	switch a := col.(type) {
	case *array.Boolean:
		return a.Value(row)
	case *array.Int8:
		return int64(a.Value(row))
	case *array.Int16:
		return int64(a.Value(row))
	case *array.Int32:
		return int64(a.Value(row))
	case *array.Int64:
		return a.Value(row)
	case *array.Uint8:
		return int64(a.Value(row))
	case *array.Uint16:
		return int64(a.Value(row))
	case *array.Uint32:
		return int64(a.Value(row))
	case *array.Uint64:
		return int64(a.Value(row))
	case *array.Float32:
		return float64(a.Value(row))
	case *array.Float64:
		return a.Value(row)
	case *array.String:
		return a.Value(row)
	case *array.Binary:
		return a.Value(row)
	}
	return col.ValueStr(row)
}

// appendValue feeds one scanned SQL value into an arrow builder.
func appendValue(b array.Builder, val any) error {
	if val == nil {
		b.AppendNull()
		return nil
	}
	if bb, ok := b.(*array.BinaryBuilder); ok {
		if raw, isBytes := val.([]byte); isBytes {
			bb.Append(raw)
			return nil
		}
	}
	switch v := val.(type) {
	case int64:
		return b.AppendValueFromString(strconv.FormatInt(v, 10))
	case float64:
		return b.AppendValueFromString(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		return b.AppendValueFromString(strconv.FormatBool(v))
	case []byte:
		return b.AppendValueFromString(string(v))
	case string:
		return b.AppendValueFromString(v)
	}
	return b.AppendValueFromString(fmt.Sprint(val))
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func init() {
	codec.Register(Format, func(logger *slog.Logger) codec.Codec { return New(logger) })
}
