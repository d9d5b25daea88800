package dtype

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRoundTrip(t *testing.T) {
	types := []arrow.DataType{
		arrow.FixedWidthTypes.Boolean,
		arrow.PrimitiveTypes.Int8,
		arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Uint32,
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.String,
		arrow.BinaryTypes.LargeString,
		arrow.BinaryTypes.Binary,
		arrow.FixedWidthTypes.Date32,
		&arrow.TimestampType{Unit: arrow.Nanosecond},
		&arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"},
		&arrow.TimestampType{Unit: arrow.Second, TimeZone: "America/New_York"},
		&arrow.DurationType{Unit: arrow.Microsecond},
		arrow.ListOf(arrow.PrimitiveTypes.Int64),
		arrow.ListOf(arrow.ListOf(arrow.BinaryTypes.String)),
	}
	for _, dt := range types {
		s := Format(dt)
		got, err := Parse(s)
		require.NoError(t, err, s)
		assert.True(t, arrow.TypeEqual(dt, got), "round trip of %s", s)
	}
}

func TestFormatStrings(t *testing.T) {
	assert.Equal(t, "timestamp[ns, tz=UTC]", Format(&arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}))
	assert.Equal(t, "timestamp[ms]", Format(&arrow.TimestampType{Unit: arrow.Millisecond}))
	assert.Equal(t, "duration[s]", Format(&arrow.DurationType{Unit: arrow.Second}))
	assert.Equal(t, "list<utf8>", Format(arrow.ListOf(arrow.BinaryTypes.String)))
}

func TestParseUnknown(t *testing.T) {
	for _, s := range []string{"object", "timestamp[lightyears]", "list<object>", ""} {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestIsObjectLike(t *testing.T) {
	assert.True(t, IsObjectLike(arrow.ListOf(arrow.PrimitiveTypes.Int64)))
	assert.True(t, IsObjectLike(arrow.StructOf(arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Int64})))
	assert.False(t, IsObjectLike(arrow.BinaryTypes.String))
	assert.False(t, IsObjectLike(&arrow.TimestampType{Unit: arrow.Nanosecond}))
}

func TestCastColumn(t *testing.T) {
	mem := memory.DefaultAllocator

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.Append("1")
	sb.AppendNull()
	sb.Append("3")
	col := sb.NewArray()
	defer col.Release()

	cast, err := CastColumn(mem, col, arrow.PrimitiveTypes.Int64)
	require.NoError(t, err)
	defer cast.Release()

	ints := cast.(*array.Int64)
	assert.Equal(t, int64(1), ints.Value(0))
	assert.True(t, ints.IsNull(1))
	assert.Equal(t, int64(3), ints.Value(2))
}

func TestCastColumnSameTypeIsPassThrough(t *testing.T) {
	mem := memory.DefaultAllocator
	ib := array.NewInt64Builder(mem)
	defer ib.Release()
	ib.AppendValues([]int64{1, 2}, nil)
	col := ib.NewArray()
	defer col.Release()

	cast, err := CastColumn(mem, col, arrow.PrimitiveTypes.Int64)
	require.NoError(t, err)
	defer cast.Release()
	assert.Same(t, col, cast)
}

func TestCastColumnObjectTargetKeepsText(t *testing.T) {
	mem := memory.DefaultAllocator
	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.Append("[1 2]")
	col := sb.NewArray()
	defer col.Release()

	cast, err := CastColumn(mem, col, arrow.ListOf(arrow.PrimitiveTypes.Int64))
	require.NoError(t, err)
	defer cast.Release()
	assert.Equal(t, arrow.STRING, cast.DataType().ID())
}

func TestCastColumnBadValue(t *testing.T) {
	mem := memory.DefaultAllocator
	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.Append("not a number")
	col := sb.NewArray()
	defer col.Release()

	_, err := CastColumn(mem, col, arrow.PrimitiveTypes.Int64)
	assert.Error(t, err)
}

func TestToText(t *testing.T) {
	mem := memory.DefaultAllocator
	ib := array.NewInt64Builder(mem)
	defer ib.Release()
	ib.Append(42)
	ib.AppendNull()
	col := ib.NewArray()
	defer col.Release()

	text := ToText(mem, col)
	defer text.Release()
	s := text.(*array.String)
	assert.Equal(t, "42", s.Value(0))
	assert.True(t, s.IsNull(1))
}
