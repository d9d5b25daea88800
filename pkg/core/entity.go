package core

import "fmt"

// EntityOptions carries the optional temporal metadata of an entity.
type EntityOptions struct {
	// TimeIndex is the primary time-index column, if any.
	TimeIndex string
	// SecondaryTimeIndexes are additional time-index columns.
	SecondaryTimeIndexes []string
	// LastTimeIndex records whether a last-seen-time index exists.
	LastTimeIndex bool
}

// Entity is one table plus its schema metadata. Construct with NewEntity so
// the variable/column invariants hold from the start.
type Entity struct {
	ID                   string
	Variables            []*Variable
	Index                string
	TimeIndex            string
	SecondaryTimeIndexes []string
	LastTimeIndex        bool
	Table                *Table

	varsByID map[string]*Variable
}

// NewEntity builds an entity over tbl. Every variable must correspond to
// exactly one table column, and index must name one of the variables.
// Variable order is preserved; it need not match table column order.
func NewEntity(id string, tbl *Table, index string, vars []*Variable, opts *EntityOptions) (*Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("entity id must not be empty")
	}
	if tbl == nil {
		return nil, fmt.Errorf("entity %q: table must not be nil", id)
	}

	byID := make(map[string]*Variable, len(vars))
	for _, v := range vars {
		if _, dup := byID[v.ID]; dup {
			return nil, fmt.Errorf("entity %q: duplicate variable %q", id, v.ID)
		}
		if _, ok := tbl.Column(v.ID); !ok {
			return nil, fmt.Errorf("entity %q: variable %q has no matching table column", id, v.ID)
		}
		byID[v.ID] = v
	}
	if _, ok := byID[index]; !ok {
		return nil, fmt.Errorf("entity %q: index %q is not a declared variable", id, index)
	}

	e := &Entity{
		ID:        id,
		Variables: vars,
		Index:     index,
		Table:     tbl,
		varsByID:  byID,
	}
	if opts != nil {
		e.TimeIndex = opts.TimeIndex
		e.SecondaryTimeIndexes = opts.SecondaryTimeIndexes
		e.LastTimeIndex = opts.LastTimeIndex
	}
	return e, nil
}

// Variable returns the named variable, or false if the entity does not
// declare it.
func (e *Entity) Variable(id string) (*Variable, bool) {
	v, ok := e.varsByID[id]
	return v, ok
}

// IndexVariable returns the entity's index variable.
func (e *Entity) IndexVariable() *Variable {
	return e.varsByID[e.Index]
}
