package core

import "fmt"

// Relationship links a parent entity's index variable to a foreign-key
// variable in a child entity. It holds live references; the weak-by-id form
// lives only in RelationshipDescription.
type Relationship struct {
	ParentEntity   *Entity
	ParentVariable *Variable
	ChildEntity    *Entity
	ChildVariable  *Variable
}

// NewRelationship validates and builds a relationship. The parent variable
// must be the parent entity's index variable; that is the referenced key.
func NewRelationship(parent *Entity, parentVar *Variable, child *Entity, childVar *Variable) (*Relationship, error) {
	if parent == nil || parentVar == nil || child == nil || childVar == nil {
		return nil, fmt.Errorf("relationship endpoints must not be nil")
	}
	if parent.Index != parentVar.ID {
		return nil, fmt.Errorf("relationship parent variable %q is not the index of entity %q (index is %q)",
			parentVar.ID, parent.ID, parent.Index)
	}
	if _, ok := child.Variable(childVar.ID); !ok {
		return nil, fmt.Errorf("relationship child variable %q is not declared by entity %q", childVar.ID, child.ID)
	}
	return &Relationship{
		ParentEntity:   parent,
		ParentVariable: parentVar,
		ChildEntity:    child,
		ChildVariable:  childVar,
	}, nil
}
