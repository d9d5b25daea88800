package vartype

import (
	"testing"

	"github.com/leapstack-labs/frameset/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnown(t *testing.T) {
	for _, tag := range []string{"index", "id", "numeric", "categorical", "datetime", "unknown"} {
		typ, known := Resolve(tag)
		assert.True(t, known, "tag %q should be registered", tag)
		assert.Equal(t, tag, typ.Tag())
	}
}

func TestResolveUnknownFallsBack(t *testing.T) {
	typ, known := Resolve("not-a-real-type")
	assert.False(t, known)
	assert.Equal(t, "unknown", typ.Tag(), "unrecognized tags degrade to the default descriptor")
}

func TestTagsSorted(t *testing.T) {
	tags := Tags()
	require.NotEmpty(t, tags)
	assert.IsType(t, []string{}, tags)
	for i := 1; i < len(tags); i++ {
		assert.LessOrEqual(t, tags[i-1], tags[i], "tags must be sorted")
	}
	assert.Contains(t, tags, "numeric")
}

func TestDescribeAsymmetry(t *testing.T) {
	bare := Describe(&core.Variable{ID: "amount", TypeTag: "numeric"})
	assert.Equal(t, "numeric", bare.Value)
	assert.Empty(t, bare.Options)

	withOpts := Describe(&core.Variable{
		ID:      "signup",
		TypeTag: "datetime",
		Options: map[string]any{"format": "%Y-%m-%d"},
	})
	assert.Equal(t, "datetime", withOpts.Value)
	assert.Equal(t, "%Y-%m-%d", withOpts.Options["format"])
}

func TestInstantiate(t *testing.T) {
	v, known, err := Instantiate(core.VariableDescription{
		ID:   "signup",
		Type: core.TypeField{Value: "datetime", Options: map[string]any{"format": "%Y-%m-%d"}},
		Properties: core.VariableProperties{
			InterestingValues: []any{"2020-01-01"},
		},
	})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, "datetime", v.TypeTag)
	assert.Equal(t, "%Y-%m-%d", v.Options["format"])
	assert.Equal(t, []any{"2020-01-01"}, v.InterestingValues)
}

func TestInstantiateRejectsUnknownOptions(t *testing.T) {
	_, _, err := Instantiate(core.VariableDescription{
		ID:   "signup",
		Type: core.TypeField{Value: "datetime", Options: map[string]any{"bogus": true}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signup")
}

func TestInstantiateUnknownTagPreservesTag(t *testing.T) {
	v, known, err := Instantiate(core.VariableDescription{
		ID:   "mystery",
		Type: core.TypeField{Value: "hologram", Options: map[string]any{"dimensions": 3}},
	})
	require.NoError(t, err, "unknown tags load with the default descriptor, never fail")
	assert.False(t, known)
	assert.Equal(t, "hologram", v.TypeTag, "a round trip must not rewrite unknown tags")
	assert.Equal(t, 3, v.Options["dimensions"])
}
