package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphValidation(t *testing.T) {
	tests := []struct {
		name        string
		steps       []Step
		transitions map[Step][]Step
	}{
		{"too short", []Step{"only"}, nil},
		{"duplicate step", []Step{"a", "a", "done"}, map[Step][]Step{"a": {"done"}}},
		{"unknown target", []Step{"a", "done"}, map[Step][]Step{"a": {"nowhere"}}},
		{"unknown source", []Step{"a", "done"}, map[Step][]Step{"a": {"done"}, "ghost": {"a"}}},
		{"terminal with edge", []Step{"a", "done"}, map[Step][]Step{"a": {"done"}, "done": {"a"}}},
		{"dead end", []Step{"a", "b", "done"}, map[Step][]Step{"a": {"done"}}},
		{"unreachable", []Step{"a", "b", "done"}, map[Step][]Step{"a": {"done"}, "b": {"done"}}},
		{"self loop", []Step{"a", "done"}, map[Step][]Step{"a": {"a", "done"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.steps, tt.transitions)
			assert.ErrorIs(t, err, ErrInvalidGraph)
		})
	}
}

func TestGraphBranches(t *testing.T) {
	g, err := NewGraph(
		[]Step{"catalog", "cart", "prescription", "address", "confirmation"},
		map[Step][]Step{
			"catalog":      {"cart"},
			"cart":         {"prescription", "address"},
			"prescription": {"address"},
			"address":      {"confirmation"},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, Step("catalog"), g.First())
	assert.Equal(t, Step("confirmation"), g.Terminal())
	assert.True(t, g.Allows("cart", "address"))
	assert.True(t, g.Allows("cart", "prescription"))
	assert.False(t, g.Allows("catalog", "address"))
	assert.Equal(t, 2, g.Index("prescription"))
	assert.Equal(t, -1, g.Index("missing"))
}

func TestLinear(t *testing.T) {
	g, err := Linear("a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, []Step{"b"}, g.Next("a"))
	assert.Empty(t, g.Next("c"))

	assert.Panics(t, func() { MustLinear("a") })
}
