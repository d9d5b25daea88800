package serialize

import (
	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/leapstack-labs/frameset/pkg/dtype"
	"github.com/leapstack-labs/frameset/pkg/vartype"
)

// DescribeEntity builds the manifest fragment for e. The dtype map covers
// declared variables only; undeclared table columns are the codec's
// business, not the schema's. Location, format tag and params are filled in
// by the writer after the table file exists.
func DescribeEntity(e *core.Entity) *core.EntityDescription {
	vars := make([]core.VariableDescription, len(e.Variables))
	dtypes := make(map[string]string, len(e.Variables))
	for i, v := range e.Variables {
		vars[i] = core.VariableDescription{
			ID:   v.ID,
			Type: vartype.Describe(v),
			Properties: core.VariableProperties{
				InterestingValues: v.InterestingValues,
			},
		}
		if f, ok := e.Table.Field(v.ID); ok {
			dtypes[v.ID] = dtype.Format(f.Type)
		}
	}
	return &core.EntityDescription{
		ID:        e.ID,
		Index:     e.Index,
		TimeIndex: e.TimeIndex,
		Properties: core.EntityProperties{
			SecondaryTimeIndexes: e.SecondaryTimeIndexes,
			LastTimeIndex:        e.LastTimeIndex,
		},
		Variables: vars,
		LoadingInfo: core.LoadingInfo{
			Properties: core.LoadingProperties{DTypes: dtypes},
		},
	}
}

// DescribeRelationship reduces r to its weak-by-id form.
func DescribeRelationship(r *core.Relationship) core.RelationshipDescription {
	return core.RelationshipDescription{
		Parent: [2]string{r.ParentEntity.ID, r.ParentVariable.ID},
		Child:  [2]string{r.ChildEntity.ID, r.ChildVariable.ID},
	}
}

// DescribeEntitySet builds the full manifest for es. Root is left empty;
// it is an in-memory property of where a manifest was read from, never a
// recorded one.
func DescribeEntitySet(es *core.EntitySet) *core.Manifest {
	m := &core.Manifest{
		Entities:      make(map[string]*core.EntityDescription, len(es.Entities())),
		Relationships: make([]core.RelationshipDescription, 0, len(es.Relationships())),
	}
	for _, e := range es.Entities() {
		m.Entities[e.ID] = DescribeEntity(e)
	}
	for _, r := range es.Relationships() {
		m.Relationships = append(m.Relationships, DescribeRelationship(r))
	}
	return m
}
