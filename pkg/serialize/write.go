package serialize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
)

// WriteOptions configures a Write call.
type WriteOptions struct {
	// Format is the table format tag. Defaults to "csv".
	Format string
	// Params are passed to the codec and recorded in the manifest so the
	// reader sees the same ones.
	Params map[string]any
	// ManifestFormat is "json" (default) or "yaml".
	ManifestFormat string
	// Logger receives progress events. Nil discards them.
	Logger *slog.Logger
}

// Write stores es as an entityset directory at path.
//
// Write is destructive: an existing directory at path is removed and
// replaced. The replacement is staged in a sibling directory and moved into
// place only after every table and the manifest have been written, so a
// failed write never leaves a half-written entityset at path.
func Write(ctx context.Context, es *core.EntitySet, path string, opts WriteOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	format := opts.Format
	if format == "" {
		format = "csv"
	}
	manifestExt, err := manifestExtension(opts.ManifestFormat)
	if err != nil {
		return err
	}
	c, err := codec.New(format, logger)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	staging := fmt.Sprintf("%s.staging-%.8s", abs, uuid.NewString())
	if err := os.MkdirAll(filepath.Join(staging, codec.DataDir), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	manifest := DescribeEntitySet(es)

	entities := es.Entities()
	infos := make([]core.LoadingInfo, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entities {
		g.Go(func() error {
			info, err := c.Write(gctx, e.Table, staging, e.ID, opts.Params)
			if err != nil {
				return fmt.Errorf("entity %q: %w", e.ID, err)
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, e := range entities {
		d := manifest.Entities[e.ID]
		d.LoadingInfo.Location = infos[i].Location
		d.LoadingInfo.Type = infos[i].Type
		d.LoadingInfo.Params = infos[i].Params
	}

	data, err := encodeManifest(manifest, manifestExt)
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(staging, ManifestBasename+"."+manifestExt)
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("remove previous entityset at %s: %w", abs, err)
	}
	if err := os.Rename(staging, abs); err != nil {
		return fmt.Errorf("move entityset into place at %s: %w", abs, err)
	}
	committed = true

	logger.Info("wrote entityset", "path", abs, "entities", len(entities),
		"relationships", len(manifest.Relationships), "format", format)
	return nil
}

func manifestExtension(format string) (string, error) {
	switch format {
	case "", "json":
		return "json", nil
	case "yaml":
		return "yaml", nil
	}
	return "", fmt.Errorf("unsupported manifest format %q: must be one of the following: json, yaml", format)
}

func encodeManifest(m *core.Manifest, ext string) ([]byte, error) {
	switch ext {
	case "json":
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported manifest extension %q", ext)
}
