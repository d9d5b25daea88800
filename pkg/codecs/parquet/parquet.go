// Package parquet provides the columnar binary codec for frameset tables.
//
// Columnar encoders reject heterogeneous/tuple-valued columns, so any
// column whose type is object-like (lists, structs, unions) is coerced to
// text before writing. The coercion happens on a fresh record; the caller's
// table is never mutated.
package parquet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/leapstack-labs/frameset/pkg/dtype"
)

// Format is the registry tag of this codec.
const Format = "parquet"

// Options are the parameters the parquet codec understands. Write honors
// compression; read passes through only the column subset.
type Options struct {
	// Compression selects the parquet page compression codec.
	Compression string `mapstructure:"compression"`
	// Columns restricts a read to the named columns. Empty means all.
	Columns []string `mapstructure:"columns"`
}

// Codec implements codec.Codec for parquet files.
type Codec struct {
	logger *slog.Logger
	mem    memory.Allocator
}

// New creates a parquet codec.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{logger: logger, mem: memory.DefaultAllocator}
}

// Format returns the registry tag.
func (c *Codec) Format() string { return Format }

// Write stores tbl as a parquet file, coercing object-like columns to text
// on a copy first.
func (c *Codec) Write(ctx context.Context, tbl *core.Table, root, entityID string, params map[string]any) (core.LoadingInfo, error) {
	var opts Options
	if err := codec.DecodeParams(params, &opts); err != nil {
		return core.LoadingInfo{}, err
	}
	comp, err := compressionCodec(opts.Compression)
	if err != nil {
		return core.LoadingInfo{}, err
	}

	basename := codec.Basename(entityID, Format, opts.Compression)
	path := filepath.Join(root, codec.DataDir, basename)

	rec, err := coerceObjectColumns(c.mem, tbl.Record())
	if err != nil {
		return core.LoadingInfo{}, fmt.Errorf("coerce columns for entity %q: %w", entityID, err)
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return core.LoadingInfo{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	props := pq.NewWriterProperties(pq.WithCompression(comp))
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	fw, err := pqarrow.NewFileWriter(rec.Schema(), f, props, arrProps)
	if err != nil {
		return core.LoadingInfo{}, fmt.Errorf("open parquet writer for entity %q: %w", entityID, err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return core.LoadingInfo{}, fmt.Errorf("write parquet for entity %q: %w", entityID, err)
	}
	if err := fw.Close(); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("close parquet for entity %q: %w", entityID, err)
	}

	c.logger.Debug("wrote parquet table", "entity", entityID, "rows", tbl.NumRows(), "file", basename)
	return core.LoadingInfo{
		Location: codec.Location(basename),
		Type:     Format,
		Params:   params,
	}, nil
}

// Read loads a parquet file and re-casts every declared column to the
// manifest's recorded dtype. Columns that were coerced to text on write
// stay text: their recorded dtype is object-like, and text is the best
// faithful representation the columnar format kept.
func (c *Codec) Read(ctx context.Context, info core.LoadingInfo, root string) (*core.Table, error) {
	var opts Options
	if err := codec.DecodeParams(info.Params, &opts); err != nil {
		return nil, err
	}

	path := filepath.Join(root, filepath.FromSlash(info.Location))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, pq.NewReaderProperties(c.mem), pqarrow.ArrowReadProperties{}, c.mem)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer tbl.Release()

	rec, err := tableToRecord(c.mem, tbl)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rec.Release()

	if len(opts.Columns) > 0 {
		projected, err := project(rec, opts.Columns)
		if err != nil {
			return nil, err
		}
		rec.Release()
		rec = projected
	}

	cast, err := codec.Recast(c.mem, rec, info.Properties.DTypes)
	if err != nil {
		return nil, fmt.Errorf("recast %s: %w", path, err)
	}
	defer cast.Release()
	return core.NewTable(cast), nil
}

// compressionCodec maps a compression tag to a parquet codec.
func compressionCodec(tag string) (compress.Compression, error) {
	switch tag {
	case "":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	}
	return compress.Codecs.Uncompressed,
		fmt.Errorf("unsupported parquet compression %q: must be one of the following: snappy, gzip, zstd", tag)
}

// coerceObjectColumns returns a record with every object-like column
// rendered as text. The input record is left untouched; when nothing needs
// coercion the input is retained and returned as-is.
func coerceObjectColumns(mem memory.Allocator, rec arrow.Record) (arrow.Record, error) {
	needsWork := false
	for _, f := range rec.Schema().Fields() {
		if dtype.IsObjectLike(f.Type) {
			needsWork = true
			break
		}
	}
	if !needsWork {
		rec.Retain()
		return rec, nil
	}

	schema := rec.Schema()
	fields := make([]arrow.Field, rec.NumCols())
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()
	for i := 0; i < int(rec.NumCols()); i++ {
		field := schema.Field(i)
		if dtype.IsObjectLike(field.Type) {
			cols[i] = dtype.ToText(mem, rec.Column(i))
			field.Type = arrow.BinaryTypes.String
		} else {
			col := rec.Column(i)
			col.Retain()
			cols[i] = col
		}
		fields[i] = field
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// tableToRecord flattens an arrow table into a single record.
func tableToRecord(mem memory.Allocator, tbl arrow.Table) (arrow.Record, error) {
	if tbl.NumRows() == 0 {
		bldr := array.NewRecordBuilder(mem, tbl.Schema())
		defer bldr.Release()
		return bldr.NewRecord(), nil
	}
	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()
	if !tr.Next() {
		return nil, fmt.Errorf("table reader produced no record")
	}
	rec := tr.Record()
	rec.Retain()
	return rec, nil
}

// project restricts rec to the named columns, in the given order.
func project(rec arrow.Record, names []string) (arrow.Record, error) {
	schema := rec.Schema()
	fields := make([]arrow.Field, 0, len(names))
	cols := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		idx := schema.FieldIndices(name)
		if len(idx) != 1 {
			return nil, fmt.Errorf("column %q not present in file", name)
		}
		fields = append(fields, schema.Field(idx[0]))
		cols = append(cols, rec.Column(idx[0]))
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

func init() {
	codec.Register(Format, func(logger *slog.Logger) codec.Codec { return New(logger) })
}
