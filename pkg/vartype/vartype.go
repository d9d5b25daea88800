// Package vartype is the variable-type registry: it maps the semantic type
// tag recorded in a manifest to a descriptor that validates construction
// options and instantiates live variables.
//
// The registry is a static table populated at init, not discovered by
// reflection. Unrecognized tags resolve to the default untyped descriptor
// rather than failing; Resolve reports whether the tag was known so callers
// can surface possible schema skew.
package vartype

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/frameset/pkg/core"
)

// Type describes one semantic variable type.
type Type interface {
	// Tag returns the manifest tag this descriptor is registered under.
	Tag() string

	// ValidateOptions checks type-specific construction options. Options
	// the type does not define are an error.
	ValidateOptions(options map[string]any) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Type)
)

// Register adds a type descriptor to the registry. Called from init.
func Register(t Type) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t.Tag()] = t
}

// Resolve returns the descriptor for tag and whether the tag was known.
// Unknown tags return the default untyped descriptor, never an error.
func Resolve(tag string) (Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if t, ok := registry[tag]; ok {
		return t, true
	}
	return defaultType, false
}

// Tags returns all registered tags, sorted.
func Tags() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Describe emits the manifest type field for v: a bare tag when the
// variable carries no construction options, an object form otherwise.
func Describe(v *core.Variable) core.TypeField {
	return core.TypeField{Value: v.TypeTag, Options: v.Options}
}

// Instantiate turns a variable description into a live variable for
// attachment to a concrete entity. The recorded tag is preserved verbatim
// even when it resolves to the default descriptor, so a round trip never
// rewrites unknown tags.
func Instantiate(desc core.VariableDescription) (*core.Variable, bool, error) {
	t, known := Resolve(desc.Type.Value)
	if known {
		if err := t.ValidateOptions(desc.Type.Options); err != nil {
			return nil, known, fmt.Errorf("variable %q: %w", desc.ID, err)
		}
	}
	return &core.Variable{
		ID:                desc.ID,
		TypeTag:           desc.Type.Value,
		Options:           desc.Type.Options,
		InterestingValues: desc.Properties.InterestingValues,
	}, known, nil
}

// decodeStrict decodes options into out, rejecting keys out does not define.
func decodeStrict(options map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(options); err != nil {
		return fmt.Errorf("invalid type options: %w", err)
	}
	return nil
}
