package core

import "fmt"

// EntitySet is the full multi-table dataset: an ordered set of entities
// plus their relationships. Entity ids are unique within a set.
type EntitySet struct {
	entities []*Entity
	byID     map[string]*Entity

	relationships []*Relationship
}

// NewEntitySet returns an empty entity set.
func NewEntitySet() *EntitySet {
	return &EntitySet{byID: make(map[string]*Entity)}
}

// AddEntity registers e. Duplicate ids are an error.
func (es *EntitySet) AddEntity(e *Entity) error {
	if _, exists := es.byID[e.ID]; exists {
		return fmt.Errorf("entity %q already registered", e.ID)
	}
	es.entities = append(es.entities, e)
	es.byID[e.ID] = e
	return nil
}

// Entity returns the entity with the given id.
func (es *EntitySet) Entity(id string) (*Entity, bool) {
	e, ok := es.byID[id]
	return e, ok
}

// Entities returns the entities in registration order.
func (es *EntitySet) Entities() []*Entity {
	return es.entities
}

// AddRelationship validates endpoint membership and stores r. Relationships
// belong to the set, not to either entity.
func (es *EntitySet) AddRelationship(r *Relationship) error {
	for _, e := range []*Entity{r.ParentEntity, r.ChildEntity} {
		registered, ok := es.byID[e.ID]
		if !ok || registered != e {
			return fmt.Errorf("relationship references entity %q not registered in this set", e.ID)
		}
	}
	es.relationships = append(es.relationships, r)
	return nil
}

// Relationships returns the relationships in insertion order.
func (es *EntitySet) Relationships() []*Relationship {
	return es.relationships
}

// Release releases every entity table in the set.
func (es *EntitySet) Release() {
	for _, e := range es.entities {
		if e.Table != nil {
			e.Table.Release()
		}
	}
}
