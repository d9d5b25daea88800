package codec

import (
	"fmt"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/frameset/pkg/dtype"
)

// Basename returns the table filename for an entity: <entityID>.<format>,
// with an extra .<compression> suffix when a compression tag is supplied.
func Basename(entityID, format, compression string) string {
	name := entityID + "." + format
	if compression != "" {
		name += "." + compression
	}
	return name
}

// Location returns the manifest-relative location for a table file.
func Location(basename string) string {
	return filepath.ToSlash(filepath.Join(DataDir, basename))
}

// DecodeParams decodes a loose params map into a codec's typed option
// struct. Keys the struct does not define are left alone, as loading-info
// params may carry options meant for other readers.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid codec params: %w", err)
	}
	return nil
}

// Recast returns a new record with every column named in dtypes cast to its
// recorded type. Columns absent from the map pass through unchanged; this
// is how undeclared table columns survive a round trip without being
// subject to manifest truth.
func Recast(mem memory.Allocator, rec arrow.Record, dtypes map[string]string) (arrow.Record, error) {
	schema := rec.Schema()
	fields := make([]arrow.Field, rec.NumCols())
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for i := 0; i < int(rec.NumCols()); i++ {
		field := schema.Field(i)
		col := rec.Column(i)
		if s, ok := dtypes[field.Name]; ok && dtype.Format(field.Type) != s {
			target, err := dtype.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", field.Name, err)
			}
			cast, err := dtype.CastColumn(mem, col, target)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", field.Name, err)
			}
			cols[i] = cast
			field.Type = cast.DataType()
		} else {
			col.Retain()
			cols[i] = col
		}
		fields[i] = field
	}

	out := array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows())
	return out, nil
}
