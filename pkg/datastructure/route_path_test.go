package datastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutePathContiguity(t *testing.T) {
	ab := NewEdge("A", "B", 10, 100)
	bc := NewBridgeEdge("B", "C", 20, 300, "b1")
	cd := NewBridgeEdge("C", "D", 5, 50, "b2")

	testCases := []struct {
		name       string
		nodes      []string
		edges      []Edge
		contiguous bool
	}{
		{"valid", []string{"A", "B", "C", "D"}, []Edge{ab, bc, cd}, true},
		{"empty", []string{}, []Edge{}, false},
		{"single node", []string{"A"}, []Edge{}, false},
		{"missing edge", []string{"A", "B", "C"}, []Edge{ab}, false},
		{"too many edges", []string{"A", "B"}, []Edge{ab, bc}, false},
		{"gap", []string{"A", "B", "C", "D"}, []Edge{ab, cd, cd}, false},
		{"wrong direction", []string{"B", "A"}, []Edge{ab}, false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRoutePath(tt.nodes, tt.edges)
			assert.Equal(t, tt.contiguous, p.IsContiguous())
			if tt.contiguous {
				assert.NoError(t, p.Validate())
			} else {
				assert.ErrorIs(t, p.Validate(), ErrInvalidPath)
			}
		})
	}
}

func TestRoutePathDerived(t *testing.T) {
	p := NewRoutePath([]string{"A", "B", "C", "D"}, []Edge{
		NewEdge("A", "B", 10, 100),
		NewBridgeEdge("B", "C", 20, 300, "b1"),
		NewBridgeEdge("C", "D", 5, 50, "b2"),
	})

	assert.Equal(t, 35, p.TotalTravelTime())
	assert.Equal(t, 450, p.TotalDistance())
	assert.Equal(t, 2, p.BridgeCount())
	assert.Equal(t, []string{"b1", "b2"}, p.BridgeIDs())
	assert.Equal(t, "A->B->C->D", p.String())
	assert.True(t, p.Equal(NewRoutePath([]string{"A", "B", "C", "D"}, nil)))
	assert.False(t, p.Equal(NewRoutePath([]string{"A", "B", "D"}, nil)))
}
