package sqlite

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

func writeRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, codec.DataDir), 0o755))
	return root
}

func sampleTable(t *testing.T) (*core.Table, map[string]string) {
	t.Helper()
	mem := memory.DefaultAllocator
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "note", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	bldr.Field(1).(*array.Float64Builder).AppendValues([]float64{1.5, 0, 2.25}, []bool{true, false, true})
	bldr.Field(2).(*array.StringBuilder).AppendValues([]string{"first", "", "third"}, []bool{true, false, true})
	bldr.Field(3).(*array.BooleanBuilder).AppendValues([]bool{true, false, true}, nil)
	rec := bldr.NewRecord()
	defer rec.Release()
	return core.NewTable(rec), map[string]string{
		"id":     "int64",
		"amount": "float64",
		"note":   "utf8",
		"ok":     "bool",
	}
}

func TestRoundTrip(t *testing.T) {
	tbl, dtypes := sampleTable(t)
	defer tbl.Release()
	root := writeRoot(t)
	c := New(nil)
	ctx := context.Background()

	info, err := c.Write(ctx, tbl, root, "payments", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "data/payments.sqlite", info.Location)
	assert.Equal(t, Format, info.Type)
	info.Properties.DTypes = dtypes

	got, err := c.Read(ctx, info, root)
	require.NoError(t, err)
	defer got.Release()

	assert.True(t, tbl.Equal(got), "sqlite round trip recovers dtypes and nulls")
}

func TestEmptyTable(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "note", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	tbl := core.NewEmptyTable(schema)
	defer tbl.Release()
	root := writeRoot(t)
	c := New(nil)
	ctx := context.Background()

	info, err := c.Write(ctx, tbl, root, "empty", map[string]any{})
	require.NoError(t, err)
	info.Properties.DTypes = map[string]string{"id": "int64", "note": "utf8"}

	got, err := c.Read(ctx, info, root)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, int64(0), got.NumRows())
	assert.True(t, tbl.Schema().Equal(got.Schema()))
}

func TestCompressionRejected(t *testing.T) {
	tbl, _ := sampleTable(t)
	defer tbl.Release()
	c := New(nil)
	_, err := c.Write(context.Background(), tbl, writeRoot(t), "payments", map[string]any{"compression": "gzip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compression")
}

func TestReadMissingFile(t *testing.T) {
	c := New(nil)
	info := core.LoadingInfo{Location: "data/absent.sqlite", Type: Format}
	_, err := c.Read(context.Background(), info, t.TempDir())
	require.Error(t, err)
}
