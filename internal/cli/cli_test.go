package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/leapstack-labs/frameset/pkg/serialize"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	mem := memory.DefaultAllocator
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	bldr.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
	rec := bldr.NewRecord()
	defer rec.Release()

	e, err := core.NewEntity("items", core.NewTable(rec), "id",
		[]*core.Variable{
			{ID: "id", TypeTag: "index"},
			{ID: "name", TypeTag: "text"},
		}, nil)
	require.NoError(t, err)
	es := core.NewEntitySet()
	require.NoError(t, es.AddEntity(e))
	defer es.Release()

	root := filepath.Join(t.TempDir(), "es")
	require.NoError(t, serialize.Write(context.Background(), es, root, serialize.WriteOptions{}))
	return root
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDescribeCommand(t *testing.T) {
	root := writeFixture(t)
	out, err := runCommand(t, "describe", root)
	require.NoError(t, err)
	assert.Contains(t, out, "items")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "text")
	assert.Contains(t, out, "(no relationships)")
}

func TestDescribeMissingPath(t *testing.T) {
	_, err := runCommand(t, "describe", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestConvertCommand(t *testing.T) {
	root := writeFixture(t)
	dst := filepath.Join(t.TempDir(), "converted")

	out, err := runCommand(t, "convert", root, dst, "--format", "parquet")
	require.NoError(t, err)
	assert.Contains(t, out, "Converted")
	assert.FileExists(t, filepath.Join(dst, "data", "items.parquet"))

	es, err := serialize.Read(context.Background(), dst, serialize.ReadOptions{})
	require.NoError(t, err)
	defer es.Release()
	e, ok := es.Entity("items")
	require.True(t, ok)
	assert.Equal(t, int64(2), e.Table.NumRows())
}

func TestConvertUnknownFormat(t *testing.T) {
	root := writeFixture(t)
	_, err := runCommand(t, "convert", root, filepath.Join(t.TempDir(), "out"), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported table format")
}
