package datastructure

import (
	"sort"
)

// StronglyConnectedComponents runs kosaraju's algorithm over the node graph. components come largest first,
// ties ordered by their smallest node position. node ids inside a component keep graph order.
func (g *Graph) StronglyConnectedComponents() [][]string {
	components := g.runKosaraju()

	sccs := make([][]string, len(components))
	for i, component := range components {
		ids := make([]string, len(component))
		for j, v := range component {
			ids[j] = g.nodes[v].id
		}
		sccs[i] = ids
	}
	return sccs
}

// LargestStronglyConnectedComponent returns the subgraph induced by the largest component. osm extracts are
// cut at the bounding box, so boundary fragments can only be entered or only be left.
func (g *Graph) LargestStronglyConnectedComponent() (*Graph, error) {
	components := g.runKosaraju()
	if len(components) <= 1 {
		return g, nil
	}

	keep := make([]bool, len(g.nodes))
	for _, v := range components[0] {
		keep[v] = true
	}

	nodes := make([]Node, 0, len(components[0]))
	for i, n := range g.nodes {
		if keep[i] {
			nodes = append(nodes, n)
		}
	}
	edges := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if keep[g.nodeIndex[e.from]] && keep[g.nodeIndex[e.to]] {
			edges = append(edges, e)
		}
	}
	return NewGraph(nodes, edges)
}

type dfsFrame struct {
	v    Index
	next int // next outgoing edge to visit
}

func (g *Graph) runKosaraju() [][]Index {
	n := len(g.nodes)

	// forward pass, iterative so long road chains don't grow the goroutine stack.
	order := make([]Index, 0, n)
	visited := make([]bool, n)
	for s := 0; s < n; s++ {
		if visited[s] {
			continue
		}
		visited[s] = true
		stack := []dfsFrame{{v: Index(s)}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.outEdges[top.v]) {
				w := g.nodeIndex[g.outEdges[top.v][top.next].to]
				top.next++
				if !visited[w] {
					visited[w] = true
					stack = append(stack, dfsFrame{v: w})
				}
				continue
			}
			order = append(order, top.v)
			stack = stack[:len(stack)-1]
		}
	}

	// reversed pass in decreasing finish time.
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	components := make([][]Index, 0)
	for i := len(order) - 1; i >= 0; i-- {
		root := order[i]
		if comp[root] >= 0 {
			continue
		}
		id := len(components)
		comp[root] = id
		component := make([]Index, 0, 1)
		stack := []Index{root}
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, u)
			for _, e := range g.inEdges[u] {
				w := g.nodeIndex[e.from]
				if comp[w] < 0 {
					comp[w] = id
					stack = append(stack, w)
				}
			}
		}
		sort.Slice(component, func(a, b int) bool { return component[a] < component[b] })
		components = append(components, component)
	}

	sort.SliceStable(components, func(a, b int) bool {
		if len(components[a]) != len(components[b]) {
			return len(components[a]) > len(components[b])
		}
		return components[a][0] < components[b][0]
	})
	return components
}
