// Package snapshot provides the native binary snapshot codec for frameset
// tables, built on the arrow IPC file format. It preserves every dtype
// exactly, including types the portable formats cannot carry, at the cost
// of being readable only by arrow implementations.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/klauspost/compress/gzip"

	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
)

// Format is the registry tag of this codec.
const Format = "arrow"

// Options are the parameters the snapshot codec understands.
type Options struct {
	// Compression wraps the whole file. Only "gzip" is supported.
	Compression string `mapstructure:"compression"`
}

// Codec implements codec.Codec for arrow IPC files.
type Codec struct {
	logger *slog.Logger
	mem    memory.Allocator
}

// New creates a snapshot codec.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Codec{logger: logger, mem: memory.DefaultAllocator}
}

// Format returns the registry tag.
func (c *Codec) Format() string { return Format }

// Write stores tbl verbatim. No structural transform is needed.
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

	var w io.Writer = f
	var gz *gzip.Writer
	if opts.Compression == "gzip" {
		gz = gzip.NewWriter(f)
		w = gz
	}

	rec := tbl.Record()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(c.mem))
	if err != nil {
		return core.LoadingInfo{}, fmt.Errorf("open snapshot writer for entity %q: %w", entityID, err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return core.LoadingInfo{}, fmt.Errorf("write snapshot for entity %q: %w", entityID, err)
	}
	if err := fw.Close(); err != nil {
		return core.LoadingInfo{}, fmt.Errorf("close snapshot for entity %q: %w", entityID, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return core.LoadingInfo{}, fmt.Errorf("finish snapshot for entity %q: %w", entityID, err)
		}
	}

	c.logger.Debug("wrote snapshot table", "entity", entityID, "rows", tbl.NumRows(), "file", basename)
	return core.LoadingInfo{
		Location: codec.Location(basename),
		Type:     Format,
		Params:   params,
	}, nil
}

// Read loads an arrow IPC file. The recast against the recorded dtypes is
// a no-op for columns the snapshot preserved exactly, which is all of them;
// it runs anyway so manifest truth stays authoritative for every format.
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

	var src ipc.ReadAtSeeker = f
	if opts.Compression == "gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		raw, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		src = bytes.NewReader(raw)
	}

	rdr, err := ipc.NewFileReader(src, ipc.WithAllocator(c.mem))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rdr.Close()

	var recs []arrow.Record
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rec.Retain()
		recs = append(recs, rec)
	}

	var rec arrow.Record
	switch len(recs) {
	case 0:
		bldr := array.NewRecordBuilder(c.mem, rdr.Schema())
		defer bldr.Release()
		rec = bldr.NewRecord()
	case 1:
		rec = recs[0]
		rec.Retain()
	default:
		tbl := array.NewTableFromRecords(rdr.Schema(), recs)
		defer tbl.Release()
		tr := array.NewTableReader(tbl, tbl.NumRows())
		defer tr.Release()
		if !tr.Next() {
			return nil, fmt.Errorf("read %s: empty table reader", path)
		}
		rec = tr.Record()
		rec.Retain()
	}
	defer rec.Release()

	cast, err := codec.Recast(c.mem, rec, info.Properties.DTypes)
	if err != nil {
		return nil, fmt.Errorf("recast %s: %w", path, err)
	}
	defer cast.Release()
	return core.NewTable(cast), nil
}

func validateCompression(tag string) error {
	switch tag {
	case "", "gzip":
		return nil
	}
	return fmt.Errorf("unsupported snapshot compression %q: must be one of the following: gzip", tag)
}

func init() {
	codec.Register(Format, func(logger *slog.Logger) codec.Codec { return New(logger) })
}
