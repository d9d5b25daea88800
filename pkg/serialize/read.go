package serialize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/leapstack-labs/frameset/pkg/codec"
	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/leapstack-labs/frameset/pkg/dtype"
	"github.com/leapstack-labs/frameset/pkg/vartype"
)

// ReadOptions configures a Read call.
type ReadOptions struct {
	// SchemaOnly skips the table files: every entity comes back with a
	// zero-row table typed from the recorded dtypes.
	SchemaOnly bool
	// Logger receives progress and schema-skew warnings. Nil discards them.
	Logger *slog.Logger
}

// ReadManifest locates and decodes the manifest under root. The returned
// manifest has Root set to the absolute root path. A missing root wraps
// fs.ErrNotExist so callers can distinguish "no such entityset" from a
// malformed one.
func ReadManifest(root string) (*core.Manifest, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("entityset root: %w", err)
	}

	var path, ext string
	for _, candidate := range []string{"json", "yaml", "yml"} {
		p := filepath.Join(abs, ManifestBasename+"."+candidate)
		if _, err := os.Stat(p); err == nil {
			path, ext = p, candidate
			break
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no %s manifest found in %s", ManifestBasename, abs)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m core.Manifest
	switch ext {
	case "json":
		err = json.Unmarshal(data, &m)
	default:
		err = yaml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	for id, d := range m.Entities {
		if d.ID == "" {
			d.ID = id
		}
	}
	m.Root = abs
	return &m, nil
}

// EntityFromDescription reconstructs one entity. With a non-empty root the
// table file is loaded through the recorded codec; with an empty root the
// entity gets a zero-row table typed from the recorded dtypes, in variable
// order.
//
// Unknown variable type tags are kept verbatim and logged rather than
// rejected, so a manifest written by a newer schema still loads.
func EntityFromDescription(ctx context.Context, desc *core.EntityDescription, root string, logger *slog.Logger) (*core.Entity, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	vars := make([]*core.Variable, len(desc.Variables))
	for i, vd := range desc.Variables {
		v, known, err := vartype.Instantiate(vd)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", desc.ID, err)
		}
		if !known {
			logger.Warn("unknown variable type tag, keeping as-is",
				"entity", desc.ID, "variable", vd.ID, "type", vd.Type.Value)
		}
		vars[i] = v
	}

	var tbl *core.Table
	if root == "" {
		tbl = emptyTyped(desc)
	} else {
		c, err := codec.New(desc.LoadingInfo.Type, logger)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", desc.ID, err)
		}
		tbl, err = c.Read(ctx, desc.LoadingInfo, root)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", desc.ID, err)
		}
	}

	e, err := core.NewEntity(desc.ID, tbl, desc.Index, vars, &core.EntityOptions{
		TimeIndex:            desc.TimeIndex,
		SecondaryTimeIndexes: desc.Properties.SecondaryTimeIndexes,
		LastTimeIndex:        desc.Properties.LastTimeIndex,
	})
	if err != nil {
		tbl.Release()
		return nil, err
	}
	return e, nil
}

// emptyTyped builds a zero-row table in declared variable order. Variables
// with no recorded dtype, or one the portable vocabulary cannot parse,
// fall back to text.
func emptyTyped(desc *core.EntityDescription) *core.Table {
	fields := make([]arrow.Field, len(desc.Variables))
	for i, vd := range desc.Variables {
		dt := arrow.DataType(arrow.BinaryTypes.String)
		if s, ok := desc.LoadingInfo.Properties.DTypes[vd.ID]; ok {
			if parsed, err := dtype.Parse(s); err == nil {
				dt = parsed
			}
		}
		fields[i] = arrow.Field{Name: vd.ID, Type: dt, Nullable: true}
	}
	return core.NewEmptyTable(arrow.NewSchema(fields, nil))
}

// RelationshipFromDescription resolves the weak-by-id endpoints of desc
// against the entities already registered in es.
func RelationshipFromDescription(es *core.EntitySet, desc core.RelationshipDescription) (*core.Relationship, error) {
	parent, ok := es.Entity(desc.Parent[0])
	if !ok {
		return nil, fmt.Errorf("relationship parent entity %q not found", desc.Parent[0])
	}
	parentVar, ok := parent.Variable(desc.Parent[1])
	if !ok {
		return nil, fmt.Errorf("relationship parent variable %q not declared by entity %q", desc.Parent[1], parent.ID)
	}
	child, ok := es.Entity(desc.Child[0])
	if !ok {
		return nil, fmt.Errorf("relationship child entity %q not found", desc.Child[0])
	}
	childVar, ok := child.Variable(desc.Child[1])
	if !ok {
		return nil, fmt.Errorf("relationship child variable %q not declared by entity %q", desc.Child[1], child.ID)
	}
	return core.NewRelationship(parent, parentVar, child, childVar)
}

// Read loads the entityset stored at root. Loading is two-phase: every
// entity first, then every relationship, so a relationship can reference
// any entity regardless of manifest ordering.
func Read(ctx context.Context, root string, opts ReadOptions) (*core.EntitySet, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m, err := ReadManifest(root)
	if err != nil {
		return nil, err
	}

	dataRoot := m.Root
	if opts.SchemaOnly {
		dataRoot = ""
	}

	ids := make([]string, 0, len(m.Entities))
	for id := range m.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	es := core.NewEntitySet()
	for _, id := range ids {
		e, err := EntityFromDescription(ctx, m.Entities[id], dataRoot, logger)
		if err != nil {
			es.Release()
			return nil, err
		}
		if err := es.AddEntity(e); err != nil {
			e.Table.Release()
			es.Release()
			return nil, err
		}
	}

	for _, rd := range m.Relationships {
		r, err := RelationshipFromDescription(es, rd)
		if err != nil {
			es.Release()
			return nil, err
		}
		if err := es.AddRelationship(r); err != nil {
			es.Release()
			return nil, err
		}
	}

	logger.Info("read entityset", "path", m.Root, "entities", len(ids),
		"relationships", len(m.Relationships), "schema_only", opts.SchemaOnly)
	return es, nil
}
