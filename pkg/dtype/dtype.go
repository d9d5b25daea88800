// Package dtype defines the canonical column-type vocabulary of the
// manifest: a stable string form for every arrow type frameset stores, a
// parser back to live types, and the cast primitive the codecs share.
//
// The string form is the source of truth for round trips. A codec never
// trusts its wire format's own type inference; it re-casts each column to
// the dtype string the manifest recorded at write time.
package dtype

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// primitives maps the canonical string of every fixed-name type in both
// directions. Parameterized types (timestamp, duration, list) are handled
// structurally in Format and Parse.
var primitives = map[string]arrow.DataType{
	"bool":       arrow.FixedWidthTypes.Boolean,
	"int8":       arrow.PrimitiveTypes.Int8,
	"int16":      arrow.PrimitiveTypes.Int16,
	"int32":      arrow.PrimitiveTypes.Int32,
	"int64":      arrow.PrimitiveTypes.Int64,
	"uint8":      arrow.PrimitiveTypes.Uint8,
	"uint16":     arrow.PrimitiveTypes.Uint16,
	"uint32":     arrow.PrimitiveTypes.Uint32,
	"uint64":     arrow.PrimitiveTypes.Uint64,
	"float32":    arrow.PrimitiveTypes.Float32,
	"float64":    arrow.PrimitiveTypes.Float64,
	"utf8":       arrow.BinaryTypes.String,
	"large_utf8": arrow.BinaryTypes.LargeString,
	"binary":     arrow.BinaryTypes.Binary,
	"date32":     arrow.FixedWidthTypes.Date32,
	"date64":     arrow.FixedWidthTypes.Date64,
}

var primitiveNames = func() map[arrow.Type]string {
	names := make(map[arrow.Type]string, len(primitives))
	for name, dt := range primitives {
		names[dt.ID()] = name
	}
	return names
}()

// Format returns the canonical string form of dt. Types outside the
// canonical vocabulary fall back to arrow's own string form, which Parse
// does not accept; such columns can only round-trip through formats that
// store the type natively.
func Format(dt arrow.DataType) string {
	if name, ok := primitiveNames[dt.ID()]; ok {
		return name
	}
	switch t := dt.(type) {
	case *arrow.TimestampType:
		if t.TimeZone == "" {
			return fmt.Sprintf("timestamp[%s]", t.Unit)
		}
		return fmt.Sprintf("timestamp[%s, tz=%s]", t.Unit, t.TimeZone)
	case *arrow.DurationType:
		return fmt.Sprintf("duration[%s]", t.Unit)
	case *arrow.ListType:
		return fmt.Sprintf("list<%s>", Format(t.Elem()))
	}
	return dt.String()
}

// Parse turns a canonical dtype string back into a live arrow type.
func Parse(s string) (arrow.DataType, error) {
	if dt, ok := primitives[s]; ok {
		return dt, nil
	}
	switch {
	case strings.HasPrefix(s, "timestamp[") && strings.HasSuffix(s, "]"):
		return parseTimestamp(strings.TrimSuffix(strings.TrimPrefix(s, "timestamp["), "]"))
	case strings.HasPrefix(s, "duration[") && strings.HasSuffix(s, "]"):
		unit, err := parseUnit(strings.TrimSuffix(strings.TrimPrefix(s, "duration["), "]"))
		if err != nil {
			return nil, fmt.Errorf("dtype %q: %w", s, err)
		}
		return &arrow.DurationType{Unit: unit}, nil
	case strings.HasPrefix(s, "list<") && strings.HasSuffix(s, ">"):
		elem, err := Parse(strings.TrimSuffix(strings.TrimPrefix(s, "list<"), ">"))
		if err != nil {
			return nil, fmt.Errorf("dtype %q: %w", s, err)
		}
		return arrow.ListOf(elem), nil
	}
	return nil, fmt.Errorf("unknown dtype %q", s)
}

func parseTimestamp(inner string) (arrow.DataType, error) {
	unitStr, tz := inner, ""
	if i := strings.Index(inner, ", tz="); i >= 0 {
		unitStr, tz = inner[:i], inner[i+len(", tz="):]
	}
	unit, err := parseUnit(unitStr)
	if err != nil {
		return nil, fmt.Errorf("dtype timestamp[%s]: %w", inner, err)
	}
	return &arrow.TimestampType{Unit: unit, TimeZone: tz}, nil
}

func parseUnit(s string) (arrow.TimeUnit, error) {
	switch s {
	case "s":
		return arrow.Second, nil
	case "ms":
		return arrow.Millisecond, nil
	case "us":
		return arrow.Microsecond, nil
	case "ns":
		return arrow.Nanosecond, nil
	}
	return arrow.Second, fmt.Errorf("unknown time unit %q", s)
}

// IsObjectLike reports whether dt is a nested type with no scalar cell
// representation. Formats built on flat rows render such columns as text.
func IsObjectLike(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST,
		arrow.STRUCT, arrow.MAP, arrow.DENSE_UNION, arrow.SPARSE_UNION:
		return true
	}
	return false
}

// CastColumn returns col re-typed to target. The returned array is always
// a fresh reference the caller must release.
//
// A text column whose recorded dtype is object-like stays text: the nested
// structure was flattened on write and cannot be rebuilt from its string
// form, so manifest truth for that column is the text rendering.
func CastColumn(mem memory.Allocator, col arrow.Array, target arrow.DataType) (arrow.Array, error) {
	if arrow.TypeEqual(col.DataType(), target) {
		col.Retain()
		return col, nil
	}
	if IsObjectLike(target) && col.DataType().ID() == arrow.STRING {
		col.Retain()
		return col, nil
	}

	bldr := array.NewBuilder(mem, target)
	defer bldr.Release()
	bldr.Reserve(col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			bldr.AppendNull()
			continue
		}
		if err := bldr.AppendValueFromString(col.ValueStr(i)); err != nil {
			return nil, fmt.Errorf("cast %s to %s at row %d: %w", col.DataType(), target, i, err)
		}
	}
	return bldr.NewArray(), nil
}

// ToText renders col as a string column, null for null, using each value's
// arrow string form.
func ToText(mem memory.Allocator, col arrow.Array) arrow.Array {
	bldr := array.NewStringBuilder(mem)
	defer bldr.Release()
	bldr.Reserve(col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			bldr.AppendNull()
			continue
		}
		bldr.Append(col.ValueStr(i))
	}
	return bldr.NewArray()
}
