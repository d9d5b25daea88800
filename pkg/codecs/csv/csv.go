// Package csv provides the row-oriented text codec for frameset tables.
package csv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/leapstack-labs/frameset/pkg/dtype"
)

// Format is the registry tag of this codec.
const Format = "csv"

// rowIndexColumn is the name of the ordinal column written when the index
// option is set. It is dropped again on read.
const rowIndexColumn = "__index__"

// Options are the parameters the csv codec understands. Write honors all of
// them; read passes through only compression and encoding, plus the index
// flag needed to drop the ordinal column again.
type Options struct {
	// Index prepends a row-ordinal column.
	Index bool `mapstructure:"index"`
	// Encoding is an IANA charset name for the file body. Empty means
	// UTF-8.
	Encoding string `mapstructure:"encoding"`
	// Compression is the compression tag. Only "gzip" is supported.
	Compression string `mapstructure:"compression"`
}

// Codec implements codec.Codec for row-oriented text files.
type Codec struct {
	logger *slog.Logger
	mem    memory.Allocator
}

// New creates a csv codec.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{logger: logger, mem: memory.DefaultAllocator}
}

// Format returns the registry tag.
func (c *Codec) Format() string { return Format }

// Write stores tbl as a delimited text file with a header row.
func (c *Codec) Write(ctx context.Context, tbl *core.Table, root, entityID string, params map[string]any) (core.LoadingInfo, error) {
	var opts Options
	if err := codec.DecodeParams(params, &opts); err != nil {
		return core.LoadingInfo{}, err
	}
	if err := validateCompression(opts.Compression); err != nil {
		return core.LoadingInfo{}, err
	}

	basename := codec.Basename(entityID, Format, opts.Compression)
	path := filepath.Join(root, codec.DataDir, basename)

	f, err := os.Create(path)
	if err != nil {
		return core.LoadingInfo{}, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w, closeWrappers, err := wrapWriter(f, opts)
	if err != nil {
		return core.LoadingInfo{}, err
	}

	rec := tbl.Record()
	if opts.Index {
		indexed, err := withRowIndex(c.mem, rec)
		if err != nil {
			return core.LoadingInfo{}, err
		}
		defer indexed.Release()
		rec = indexed
	}

	cw := arrowcsv.NewWriter(w, rec.Schema(),
		arrowcsv.WithHeader(true),
		arrowcsv.WithNullWriter(""),
	)
	if err := cw.Write(rec); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("write csv for entity %q: %w", entityID, err)
	}
	if err := cw.Flush(); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("flush csv for entity %q: %w", entityID, err)
	}
	if err := closeWrappers(); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("finish csv for entity %q: %w", entityID, err)
	}
	if err := f.Close(); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("close %s: %w", path, err)
	}

	c.logger.Debug("wrote csv table", "entity", entityID, "rows", tbl.NumRows(), "file", basename)
	return core.LoadingInfo{
		Location: codec.Location(basename),
		Type:     Format,
		Params:   params,
	}, nil
}

// Read loads a delimited text file and re-casts every declared column to
// the manifest's recorded dtype. The file's own inferred types are never
// trusted.
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

	r, err := wrapReader(f, opts)
	if err != nil {
		return nil, err
	}

	rdr := arrowcsv.NewInferringReader(r,
		arrowcsv.WithHeader(true),
		arrowcsv.WithChunk(-1),
		arrowcsv.WithNullReader(true, ""),
	)
	defer rdr.Release()

	var rec arrow.Record
	if rdr.Next() {
		rec = rdr.Record()
		rec.Retain()
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		if rec != nil {
			rec.Release()
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if rec == nil {
		rec = emptyFromDTypes(c.mem, info.Properties.DTypes)
	}
	defer func() { rec.Release() }()

	if opts.Index && rec.Schema().HasField(rowIndexColumn) {
		trimmed, err := dropColumn(rec, rowIndexColumn)
		if err != nil {
			return nil, err
		}
		rec.Release()
		rec = trimmed
	}

	cast, err := codec.Recast(c.mem, rec, info.Properties.DTypes)
	if err != nil {
		return nil, fmt.Errorf("recast %s: %w", path, err)
	}
	defer cast.Release()
	return core.NewTable(cast), nil
}

// validateCompression rejects compression tags the codec cannot produce.
func validateCompression(tag string) error {
	switch tag {
	case "", "gzip":
		return nil
	}
	return fmt.Errorf("unsupported csv compression %q: must be one of the following: gzip", tag)
}

// wrapWriter layers compression and charset encoding over f. The returned
// close function flushes the wrappers, not the underlying file.
func wrapWriter(f *os.File, opts Options) (io.Writer, func() error, error) {
	var w io.Writer = f
	closers := func() error { return nil }

	if opts.Compression == "gzip" {
		gz := gzip.NewWriter(w)
		w = gz
		closers = gz.Close
	}
	if enc := normalizeEncoding(opts.Encoding); enc != "" {
		e, err := ianaindex.IANA.Encoding(enc)
		if err != nil || e == nil {
			return nil, nil, fmt.Errorf("unknown text encoding %q", opts.Encoding)
		}
		w = e.NewEncoder().Writer(w)
	}
	return w, closers, nil
}

// wrapReader reverses wrapWriter's layering.
func wrapReader(f *os.File, opts Options) (io.Reader, error) {
	var r io.Reader = f
	if opts.Compression == "gzip" {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		r = gz
	}
	if enc := normalizeEncoding(opts.Encoding); enc != "" {
		e, err := ianaindex.IANA.Encoding(enc)
		if err != nil || e == nil {
			return nil, fmt.Errorf("unknown text encoding %q", opts.Encoding)
		}
		r = e.NewDecoder().Reader(r)
	}
	return r, nil
}

// normalizeEncoding maps UTF-8 spellings to "", meaning no transform.
func normalizeEncoding(name string) string {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return ""
	}
	return name
}

// withRowIndex prepends a 0..n-1 ordinal column.
func withRowIndex(mem memory.Allocator, rec arrow.Record) (arrow.Record, error) {
	if rec.Schema().HasField(rowIndexColumn) {
		return nil, fmt.Errorf("table already has a %q column", rowIndexColumn)
	}
	bldr := array.NewInt64Builder(mem)
	defer bldr.Release()
	for i := int64(0); i < rec.NumRows(); i++ {
		bldr.Append(i)
	}
	ordinal := bldr.NewArray()
	defer ordinal.Release()

	fields := append([]arrow.Field{{Name: rowIndexColumn, Type: arrow.PrimitiveTypes.Int64}},
		rec.Schema().Fields()...)
	cols := append([]arrow.Array{ordinal}, rec.Columns()...)
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// dropColumn removes the named column from rec.
func dropColumn(rec arrow.Record, name string) (arrow.Record, error) {
	schema := rec.Schema()
	var fields []arrow.Field
	var cols []arrow.Array
	for i := 0; i < int(rec.NumCols()); i++ {
		if schema.Field(i).Name == name {
			continue
		}
		fields = append(fields, schema.Field(i))
		cols = append(cols, rec.Column(i))
	}
	if len(fields) == int(rec.NumCols()) {
		return nil, fmt.Errorf("column %q not present in file", name)
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// emptyFromDTypes builds a zero-row record when the file had no data rows.
// The dtype map is unordered, so columns come out name-sorted; consumers
// look columns up by name.
func emptyFromDTypes(mem memory.Allocator, dtypes map[string]string) arrow.Record {
	names := make([]string, 0, len(dtypes))
	for name := range dtypes {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		dt, err := dtype.Parse(dtypes[name])
		if err != nil {
			dt = arrow.BinaryTypes.String
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)
	bldr := array.NewRecordBuilder(mem, schema)
	defer bldr.Release()
	return bldr.NewRecord()
}

func init() {
	codec.Register(Format, func(logger *slog.Logger) codec.Codec { return New(logger) })
}
