package datastructure

import (
	"fmt"
	"strings"

	"github.com/lintang-b-s/bridgeroute/pkg/util"
)

// RoutePath is an ordered node sequence and the edges connecting consecutive nodes.
// edge i must connect nodes[i] to nodes[i+1].
type RoutePath struct {
	nodes []string
	edges []Edge
}

func NewRoutePath(nodes []string, edges []Edge) RoutePath {
	p := RoutePath{
		nodes: make([]string, len(nodes)),
		edges: make([]Edge, len(edges)),
	}
	copy(p.nodes, nodes)
	copy(p.edges, edges)
	return p
}

// newRoutePathFromEdges builds the path start -> ... following edges. edges must already be contiguous.
func newRoutePathFromEdges(start string, edges []Edge) RoutePath {
	nodes := make([]string, 0, len(edges)+1)
	nodes = append(nodes, start)
	for _, e := range edges {
		nodes = append(nodes, e.to)
	}
	return RoutePath{nodes: nodes, edges: edges}
}

func (p RoutePath) GetNodes() []string {
	return p.nodes
}

func (p RoutePath) GetEdges() []Edge {
	return p.edges
}

func (p RoutePath) NumberOfEdges() int {
	return len(p.edges)
}

// IsContiguous reports whether the path is structurally valid. paths with zero or one node are never contiguous.
func (p RoutePath) IsContiguous() bool {
	return p.contiguityViolation() == ""
}

// Validate returns an ErrInvalidPath describing the first contiguity violation.
func (p RoutePath) Validate() error {
	if reason := p.contiguityViolation(); reason != "" {
		return util.WrapErrorf(ErrInvalidPath, util.ErrBadParamInput, "invalid route path %s: %s", p, reason)
	}
	return nil
}

func (p RoutePath) contiguityViolation() string {
	if len(p.nodes) < 2 {
		return fmt.Sprintf("path has %d node(s), at least 2 are required", len(p.nodes))
	}
	if len(p.edges) != len(p.nodes)-1 {
		return fmt.Sprintf("path has %d edges for %d nodes, expected %d", len(p.edges), len(p.nodes), len(p.nodes)-1)
	}
	for i, e := range p.edges {
		if e.from != p.nodes[i] || e.to != p.nodes[i+1] {
			return fmt.Sprintf("edge %d connects %s->%s, expected %s->%s", i, e.from, e.to, p.nodes[i], p.nodes[i+1])
		}
	}
	return ""
}

// TotalTravelTime in seconds.
func (p RoutePath) TotalTravelTime() int {
	total := 0
	for _, e := range p.edges {
		total += e.travelTime
	}
	return total
}

// TotalDistance in meters.
func (p RoutePath) TotalDistance() int {
	total := 0
	for _, e := range p.edges {
		total += e.distance
	}
	return total
}

func (p RoutePath) BridgeCount() int {
	count := 0
	for _, e := range p.edges {
		if e.isBridge {
			count++
		}
	}
	return count
}

// BridgeIDs returns the bridge ids in crossing order. a bridge crossed twice appears twice.
func (p RoutePath) BridgeIDs() []string {
	ids := make([]string, 0, p.BridgeCount())
	for _, e := range p.edges {
		if e.isBridge {
			ids = append(ids, e.bridgeID)
		}
	}
	return ids
}

// Equal compares node sequences.
func (p RoutePath) Equal(other RoutePath) bool {
	if len(p.nodes) != len(other.nodes) {
		return false
	}
	for i := range p.nodes {
		if p.nodes[i] != other.nodes[i] {
			return false
		}
	}
	return true
}

func (p RoutePath) String() string {
	return strings.Join(p.nodes, "->")
}
