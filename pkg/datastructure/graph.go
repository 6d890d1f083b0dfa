package datastructure

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/bridgeroute/pkg/util"
)

type Index uint32

// Graph is the road network of one query context. static: nodes & edges can't be added after NewGraph,
// so it is safe for concurrent read-only queries.
type Graph struct {
	nodes     []Node
	nodeIndex map[string]Index
	edges     []Edge

	outEdges [][]Edge // outEdges[u] = outgoing edges of node u, in input order
	inEdges  [][]Edge // inEdges[v] = incoming edges of node v, used by the backward search

	bridgeIDs []string
}

// NewGraph validates nodes & edges and builds the adjacency index.
func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:     make([]Node, len(nodes)),
		nodeIndex: make(map[string]Index, len(nodes)),
		edges:     make([]Edge, len(edges)),
		outEdges:  make([][]Edge, len(nodes)),
		inEdges:   make([][]Edge, len(nodes)),
	}
	copy(g.nodes, nodes)
	copy(g.edges, edges)

	for i, n := range g.nodes {
		if n.id == "" {
			return nil, invalidGraphf("node at position %d has an empty id", i)
		}
		if _, ok := g.nodeIndex[n.id]; ok {
			return nil, invalidGraphf("duplicate node id %q", n.id)
		}
		g.nodeIndex[n.id] = Index(i)
	}

	bridges := make(map[string]struct{})
	for i, e := range g.edges {
		u, ok := g.nodeIndex[e.from]
		if !ok {
			return nil, invalidGraphf("edge %d (%s) references unknown node %q", i, e, e.from)
		}
		v, ok := g.nodeIndex[e.to]
		if !ok {
			return nil, invalidGraphf("edge %d (%s) references unknown node %q", i, e, e.to)
		}
		if e.travelTime < 0 {
			return nil, invalidGraphf("edge %d (%s) has negative travel time %d", i, e, e.travelTime)
		}
		if e.distance < 0 {
			return nil, invalidGraphf("edge %d (%s) has negative distance %d", i, e, e.distance)
		}
		if e.isBridge && e.bridgeID == "" {
			return nil, invalidGraphf("bridge edge %d (%s) has no bridge id", i, e)
		}
		if !e.isBridge && e.bridgeID != "" {
			return nil, invalidGraphf("edge %d (%s) has bridge id %q but is not a bridge", i, e, e.bridgeID)
		}

		g.outEdges[u] = append(g.outEdges[u], e)
		g.inEdges[v] = append(g.inEdges[v], e)
		if e.isBridge {
			bridges[e.bridgeID] = struct{}{}
		}
	}

	g.bridgeIDs = make([]string, 0, len(bridges))
	for id := range bridges {
		g.bridgeIDs = append(g.bridgeIDs, id)
	}
	sort.Strings(g.bridgeIDs)

	return g, nil
}

func invalidGraphf(format string, a ...interface{}) error {
	return util.WrapErrorf(ErrInvalidGraph, util.ErrBadParamInput, "invalid graph: "+format, a...)
}

func nodeNotFound(id string) error {
	return util.WrapErrorf(&NodeNotFoundError{ID: id}, util.ErrNotFound, "node %q not found in graph", id)
}

func (g *Graph) NumberOfNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

// GetNodes returns the nodes in input order.
func (g *Graph) GetNodes() []Node {
	nodes := make([]Node, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodeIndex[id]
	return ok
}

func (g *Graph) GetNode(id string) (Node, bool) {
	u, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[u], true
}

// OutgoingEdges returns a copy of the outgoing edges of from, empty if from has none or is unknown.
func (g *Graph) OutgoingEdges(from string) []Edge {
	u, ok := g.nodeIndex[from]
	if !ok {
		return []Edge{}
	}
	out := make([]Edge, len(g.outEdges[u]))
	copy(out, g.outEdges[u])
	return out
}

// BridgeIDs returns the distinct bridge ids of the graph, sorted.
func (g *Graph) BridgeIDs() []string {
	ids := make([]string, len(g.bridgeIDs))
	copy(ids, g.bridgeIDs)
	return ids
}

// forOutEdgesOf iterates over outgoing edges of node u without copying.
func (g *Graph) forOutEdgesOf(u Index, handle func(e *Edge, head Index)) {
	for i := range g.outEdges[u] {
		e := &g.outEdges[u][i]
		handle(e, g.nodeIndex[e.to])
	}
}

func (g *Graph) forInEdgesOf(v Index, handle func(e *Edge, tail Index)) {
	for i := range g.inEdges[v] {
		e := &g.inEdges[v][i]
		handle(e, g.nodeIndex[e.from])
	}
}

// PathExists reports whether to is reachable from from. false if either node is unknown.
func (g *Graph) PathExists(from, to string) bool {
	s, ok := g.nodeIndex[from]
	if !ok {
		return false
	}
	t, ok := g.nodeIndex[to]
	if !ok {
		return false
	}
	if s == t {
		return true
	}

	visited := make([]bool, len(g.nodes))
	visited[s] = true
	queue := []Index{s}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		found := false
		g.forOutEdgesOf(u, func(e *Edge, head Index) {
			if visited[head] {
				return
			}
			if head == t {
				found = true
			}
			visited[head] = true
			queue = append(queue, head)
		})
		if found {
			return true
		}
	}
	return false
}

func (g *Graph) String() string {
	return fmt.Sprintf("Graph(nodes=%d, edges=%d, bridges=%d)", len(g.nodes), len(g.edges), len(g.bridgeIDs))
}
