package core

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the portable form of an entity set: the only part of the
// system with a persistent on-disk lifetime.
type Manifest struct {
	Entities      map[string]*EntityDescription `json:"entities" yaml:"entities"`
	Relationships []RelationshipDescription     `json:"relationships" yaml:"relationships"`

	// Root is the absolute path the manifest was read from. Populated by
	// the reader, never serialized.
	Root string `json:"-" yaml:"-"`
}

// EntityDescription is the manifest fragment for one entity.
type EntityDescription struct {
	ID          string                `json:"id" yaml:"id"`
	Index       string                `json:"index" yaml:"index"`
	TimeIndex   string                `json:"time_index,omitempty" yaml:"time_index,omitempty"`
	Properties  EntityProperties      `json:"properties" yaml:"properties"`
	Variables   []VariableDescription `json:"variables" yaml:"variables"`
	LoadingInfo LoadingInfo           `json:"loading_info" yaml:"loading_info"`
}

// EntityProperties carries the temporal metadata of an entity fragment.
type EntityProperties struct {
	SecondaryTimeIndexes []string `json:"secondary_time_index" yaml:"secondary_time_index"`
	LastTimeIndex        bool     `json:"last_time_index" yaml:"last_time_index"`
}

// VariableDescription is the manifest fragment for one variable.
type VariableDescription struct {
	ID         string             `json:"id" yaml:"id"`
	Type       TypeField          `json:"type" yaml:"type"`
	Properties VariableProperties `json:"properties" yaml:"properties"`
}

// VariableProperties carries per-variable attributes.
type VariableProperties struct {
	InterestingValues []any `json:"interesting_values" yaml:"interesting_values"`
}

// RelationshipDescription is the weak-by-id form of a relationship: each
// endpoint is an [entity id, variable id] pair.
type RelationshipDescription struct {
	Parent [2]string `json:"parent" yaml:"parent,flow"`
	Child  [2]string `json:"child" yaml:"child,flow"`
}

// LoadingInfo records, at write time, everything a reader needs to load an
// entity table back: location, format tag, writer params, and the exact
// column dtype map captured before any codec coercion.
type LoadingInfo struct {
	Location   string            `json:"location,omitempty" yaml:"location,omitempty"`
	Type       string            `json:"type,omitempty" yaml:"type,omitempty"`
	Params     map[string]any    `json:"params" yaml:"params"`
	Properties LoadingProperties `json:"properties" yaml:"properties"`
}

// LoadingProperties holds the recorded dtype map, keyed by column name.
type LoadingProperties struct {
	DTypes map[string]string `json:"dtypes" yaml:"dtypes"`
}

// TypeField is the polymorphic variable-type encoding. On the wire it is a
// bare string when the variable needs no construction options, and an
// object {"value": tag, ...options} when it does. The asymmetry is part of
// the format and is preserved exactly on both read and write.
type TypeField struct {
	Value   string
	Options map[string]any
}

// MarshalJSON emits the bare-string form when there are no options.
func (tf TypeField) MarshalJSON() ([]byte, error) {
	if len(tf.Options) == 0 {
		return json.Marshal(tf.Value)
	}
	obj := make(map[string]any, len(tf.Options)+1)
	for k, v := range tf.Options {
		obj[k] = v
	}
	obj["value"] = tf.Value
	return json.Marshal(obj)
}

// UnmarshalJSON accepts either form. For the object form, "value" is popped
// out as the tag and every remaining key becomes a construction option.
func (tf *TypeField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tf.Value = s
		tf.Options = nil
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("type field must be a string or an object: %w", err)
	}
	raw, ok := obj["value"]
	if !ok {
		return fmt.Errorf("type field object is missing %q", "value")
	}
	tag, ok := raw.(string)
	if !ok {
		return fmt.Errorf("type field %q must be a string, got %T", "value", raw)
	}
	delete(obj, "value")
	tf.Value = tag
	if len(obj) == 0 {
		obj = nil
	}
	tf.Options = obj
	return nil
}

// MarshalYAML mirrors the JSON encoding.
func (tf TypeField) MarshalYAML() (any, error) {
	if len(tf.Options) == 0 {
		return tf.Value, nil
	}
	obj := make(map[string]any, len(tf.Options)+1)
	for k, v := range tf.Options {
		obj[k] = v
	}
	obj["value"] = tf.Value
	return obj, nil
}

// UnmarshalYAML mirrors the JSON decoding.
func (tf *TypeField) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		tf.Value = s
		tf.Options = nil
		return nil
	}
	var obj map[string]any
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("type field must be a string or a mapping: %w", err)
	}
	raw, ok := obj["value"]
	if !ok {
		return fmt.Errorf("type field mapping is missing %q", "value")
	}
	tag, ok := raw.(string)
	if !ok {
		return fmt.Errorf("type field %q must be a string, got %T", "value", raw)
	}
	delete(obj, "value")
	tf.Value = tag
	if len(obj) == 0 {
		obj = nil
	}
	tf.Options = obj
	return nil
}
