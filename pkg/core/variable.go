package core

// Variable is one typed column descriptor within an entity. It is owned by
// its entity and never shared.
type Variable struct {
	// ID is the column name this variable describes.
	ID string
	// TypeTag selects the semantic type in the vartype registry. The tag
	// written to a manifest is preserved verbatim even when the registry
	// resolves it to the default descriptor.
	TypeTag string
	// Options are type-specific construction parameters, meaningful only
	// when the variable is instantiated against a live entity.
	Options map[string]any
	// InterestingValues are column values flagged as notable. Empty by
	// default.
	InterestingValues []any
}
