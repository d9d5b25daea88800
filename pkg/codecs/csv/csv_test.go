package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
)

func sampleTable(t *testing.T) (*core.Table, map[string]string) {
	t.Helper()
	mem := memory.DefaultAllocator
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "active", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	bldr.Field(1).(*array.Float64Builder).AppendValues([]float64{1.5, 2.25, 0}, []bool{true, true, false})
	bldr.Field(2).(*array.StringBuilder).AppendValues([]string{"alice", "bob", "carol"}, nil)
	bldr.Field(3).(*array.BooleanBuilder).AppendValues([]bool{true, false, true}, nil)
	rec := bldr.NewRecord()
	defer rec.Release()

	dtypes := map[string]string{
		"id":     "int64",
		"amount": "float64",
		"name":   "utf8",
		"active": "bool",
	}
	return core.NewTable(rec), dtypes
}

func writeRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, codec.DataDir), 0o755))
	return root
}

func TestRoundTrip(t *testing.T) {
	tbl, dtypes := sampleTable(t)
	defer tbl.Release()
	root := writeRoot(t)
	c := New(nil)
	ctx := context.Background()

	info, err := c.Write(ctx, tbl, root, "orders", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "data/orders.csv", info.Location)
	assert.Equal(t, "csv", info.Type)
	info.Properties.DTypes = dtypes

	got, err := c.Read(ctx, info, root)
	require.NoError(t, err)
	defer got.Release()

	assert.Equal(t, int64(3), got.NumRows())
	for name, want := range dtypes {
		f, ok := got.Field(name)
		require.True(t, ok, "column %q missing after round trip", name)
		assert.Equal(t, want, fieldDType(f), "column %q dtype", name)
	}
	amounts, _ := got.Column("amount")
	assert.True(t, amounts.IsNull(2), "null survives the round trip")
	ids, _ := got.Column("id")
	assert.Equal(t, int64(2), ids.(*array.Int64).Value(1))
}

func fieldDType(f arrow.Field) string {
	switch f.Type.ID() {
	case arrow.INT64:
		return "int64"
	case arrow.FLOAT64:
		return "float64"
	case arrow.STRING:
		return "utf8"
	case arrow.BOOL:
		return "bool"
	}
	return f.Type.String()
}

func TestRoundTripGzip(t *testing.T) {
	tbl, dtypes := sampleTable(t)
	defer tbl.Release()
	root := writeRoot(t)
	c := New(nil)
	ctx := context.Background()

	info, err := c.Write(ctx, tbl, root, "orders", map[string]any{"compression": "gzip"})
	require.NoError(t, err)
	assert.Equal(t, "data/orders.csv.gzip", info.Location, "compression tag joins the filename")
	info.Properties.DTypes = dtypes

	got, err := c.Read(ctx, info, root)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, int64(3), got.NumRows())
}

func TestRoundTripEncoding(t *testing.T) {
	mem := memory.DefaultAllocator
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	bldr.Field(1).(*array.StringBuilder).AppendValues([]string{"café", "señor"}, nil)
	rec := bldr.NewRecord()
	defer rec.Release()
	tbl := core.NewTable(rec)
	defer tbl.Release()

	root := writeRoot(t)
	c := New(nil)
	ctx := context.Background()

	info, err := c.Write(ctx, tbl, root, "names", map[string]any{"encoding": "ISO-8859-1"})
	require.NoError(t, err)
	info.Properties.DTypes = map[string]string{"id": "int64", "name": "utf8"}

	// The file body is latin-1, not UTF-8.
	raw, err := os.ReadFile(filepath.Join(root, "data", "names.csv"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "café")
	assert.Contains(t, string(raw), "caf\xe9")

	got, err := c.Read(ctx, info, root)
	require.NoError(t, err)
	defer got.Release()
	assert.True(t, tbl.Equal(got), "charset transform is reversed cell-exactly on read")
}

func TestWriteUnknownEncoding(t *testing.T) {
	tbl, _ := sampleTable(t)
	defer tbl.Release()
	c := New(nil)
	_, err := c.Write(context.Background(), tbl, writeRoot(t), "orders", map[string]any{"encoding": "klingon-8"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding")
}

func TestRoundTripWithIndexColumn(t *testing.T) {
	tbl, dtypes := sampleTable(t)
	defer tbl.Release()
	root := writeRoot(t)
	c := New(nil)
	ctx := context.Background()

	info, err := c.Write(ctx, tbl, root, "orders", map[string]any{"index": true})
	require.NoError(t, err)
	info.Properties.DTypes = dtypes

	got, err := c.Read(ctx, info, root)
	require.NoError(t, err)
	defer got.Release()

	_, hasOrdinal := got.Column(rowIndexColumn)
	assert.False(t, hasOrdinal, "ordinal column is dropped on read")
	assert.Equal(t, int64(4), got.NumCols())
}

func TestUnsupportedCompression(t *testing.T) {
	tbl, _ := sampleTable(t)
	defer tbl.Release()
	root := writeRoot(t)
	c := New(nil)

	_, err := c.Write(context.Background(), tbl, root, "orders", map[string]any{"compression": "zip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip")
}

func TestReadMissingFile(t *testing.T) {
	c := New(nil)
	_, err := c.Read(context.Background(), core.LoadingInfo{Location: "data/ghost.csv", Type: Format}, t.TempDir())
	require.Error(t, err)
}
