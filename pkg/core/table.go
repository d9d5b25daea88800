package core

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Table is the backing store of an entity: a single arrow record batch.
// Column lookup is by name; duplicate column names are rejected at entity
// construction, not here.
type Table struct {
	rec arrow.Record
}

// NewTable wraps rec, retaining it. Release the table when done.
func NewTable(rec arrow.Record) *Table {
	rec.Retain()
	return &Table{rec: rec}
}

// NewEmptyTable returns a zero-row table with the given schema.
func NewEmptyTable(schema *arrow.Schema) *Table {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	rec := bldr.NewRecord()
	defer rec.Release()
	return NewTable(rec)
}

// Record returns the underlying arrow record. The table keeps ownership.
func (t *Table) Record() arrow.Record { return t.rec }

// Schema returns the table schema.
func (t *Table) Schema() *arrow.Schema { return t.rec.Schema() }

// NumRows returns the row count.
func (t *Table) NumRows() int64 { return t.rec.NumRows() }

// NumCols returns the column count.
func (t *Table) NumCols() int64 { return t.rec.NumCols() }

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, t.rec.NumCols())
	for _, f := range t.rec.Schema().Fields() {
		names = append(names, f.Name)
	}
	return names
}

// Column returns the named column, or false if absent.
func (t *Table) Column(name string) (arrow.Array, bool) {
	idx := t.rec.Schema().FieldIndices(name)
	if len(idx) != 1 {
		return nil, false
	}
	return t.rec.Column(idx[0]), true
}

// Field returns the schema field for the named column.
func (t *Table) Field(name string) (arrow.Field, bool) {
	idx := t.rec.Schema().FieldIndices(name)
	if len(idx) != 1 {
		return arrow.Field{}, false
	}
	return t.rec.Schema().Field(idx[0]), true
}

// Equal reports cell-for-cell and dtype-for-dtype equality with other.
func (t *Table) Equal(other *Table) bool {
	return array.RecordEqual(t.rec, other.rec)
}

// Release releases the underlying record.
func (t *Table) Release() { t.rec.Release() }
