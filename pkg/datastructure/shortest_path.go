package datastructure

import (
	"math"

	"github.com/lintang-b-s/bridgeroute/pkg/util"
)

const unreached = math.MaxInt

// searchSpace is the label storage of one dijkstra direction.
type searchSpace struct {
	dist      []int
	parent    []*Edge // edge used to label the vertex: forward = edge into v, backward = edge out of v
	heapNodes []*PriorityQueueNode[Index]
	settled   []bool
	pq        *MinHeap[Index]
}

func newSearchSpace(n int) *searchSpace {
	ss := &searchSpace{
		dist:      make([]int, n),
		parent:    make([]*Edge, n),
		heapNodes: make([]*PriorityQueueNode[Index], n),
		settled:   make([]bool, n),
		pq:        NewFourAryHeap[Index](),
	}
	for i := range ss.dist {
		ss.dist[i] = unreached
	}
	ss.pq.Preallocate(n)
	return ss
}

// relax labels v with travel time d if it improves the current label.
func (ss *searchSpace) relax(v Index, d int, e *Edge) bool {
	if ss.settled[v] || d >= ss.dist[v] {
		return false
	}
	ss.dist[v] = d
	ss.parent[v] = e
	if ss.heapNodes[v] == nil {
		ss.heapNodes[v] = NewPriorityQueueNode(float64(d), v)
		ss.pq.Insert(ss.heapNodes[v])
	} else {
		_ = ss.pq.DecreaseKey(ss.heapNodes[v], float64(d))
	}
	return true
}

func (ss *searchSpace) settleMin() Index {
	node, _ := ss.pq.ExtractMin()
	u := node.GetItem()
	ss.settled[u] = true
	return u
}

func (g *Graph) endpoints(from, to string) (Index, Index, error) {
	s, ok := g.nodeIndex[from]
	if !ok {
		return 0, 0, nodeNotFound(from)
	}
	t, ok := g.nodeIndex[to]
	if !ok {
		return 0, 0, nodeNotFound(to)
	}
	return s, t, nil
}

// ShortestPath runs dijkstra from -> to with travel time as edge weight.
// found is false when to is unreachable. from == to yields the trivial one-node path.
func (g *Graph) ShortestPath(from, to string) (RoutePath, bool, error) {
	s, t, err := g.endpoints(from, to)
	if err != nil {
		return RoutePath{}, false, err
	}
	if s == t {
		return RoutePath{nodes: []string{from}, edges: []Edge{}}, true, nil
	}

	fw := newSearchSpace(len(g.nodes))
	fw.relax(s, 0, nil)
	for !fw.pq.IsEmpty() {
		u := fw.settleMin()
		if u == t {
			break
		}
		du := fw.dist[u]
		g.forOutEdgesOf(u, func(e *Edge, head Index) {
			fw.relax(head, du+e.travelTime, e)
		})
	}

	if fw.dist[t] == unreached {
		return RoutePath{}, false, nil
	}
	return newRoutePathFromEdges(from, g.forwardEdgePath(fw, t)), true, nil
}

// ShortestPathBidirectional has the same contract as ShortestPath. it alternates a forward search over
// outgoing edges and a backward search over incoming edges, stopping once the sum of both queue minimums
// can't improve the best meeting point.
func (g *Graph) ShortestPathBidirectional(from, to string) (RoutePath, bool, error) {
	s, t, err := g.endpoints(from, to)
	if err != nil {
		return RoutePath{}, false, err
	}
	if s == t {
		return RoutePath{nodes: []string{from}, edges: []Edge{}}, true, nil
	}

	n := len(g.nodes)
	fw := newSearchSpace(n)
	bw := newSearchSpace(n)
	fw.relax(s, 0, nil)
	bw.relax(t, 0, nil)

	mu := unreached
	meet := Index(0)
	updateMeeting := func(v Index) {
		if fw.dist[v] == unreached || bw.dist[v] == unreached {
			return
		}
		if cand := fw.dist[v] + bw.dist[v]; cand < mu {
			mu = cand
			meet = v
		}
	}

	for !fw.pq.IsEmpty() || !bw.pq.IsEmpty() {
		if mu != unreached && fw.pq.GetMinRank()+bw.pq.GetMinRank() >= float64(mu) {
			break
		}

		if !fw.pq.IsEmpty() && (bw.pq.IsEmpty() || fw.pq.Size() <= bw.pq.Size()) {
			u := fw.settleMin()
			du := fw.dist[u]
			g.forOutEdgesOf(u, func(e *Edge, head Index) {
				if fw.relax(head, du+e.travelTime, e) {
					updateMeeting(head)
				}
			})
			updateMeeting(u)
		} else {
			v := bw.settleMin()
			dv := bw.dist[v]
			g.forInEdgesOf(v, func(e *Edge, tail Index) {
				if bw.relax(tail, dv+e.travelTime, e) {
					updateMeeting(tail)
				}
			})
			updateMeeting(v)
		}
	}

	if mu == unreached {
		return RoutePath{}, false, nil
	}

	edges := g.forwardEdgePath(fw, meet)
	for v := meet; v != t; {
		e := bw.parent[v]
		edges = append(edges, *e)
		v = g.nodeIndex[e.to]
	}
	return newRoutePathFromEdges(from, edges), true, nil
}

// forwardEdgePath unpacks the parent edges from the search source to v.
func (g *Graph) forwardEdgePath(fw *searchSpace, v Index) []Edge {
	reversed := make([]Edge, 0)
	for e := fw.parent[v]; e != nil; e = fw.parent[v] {
		reversed = append(reversed, *e)
		v = g.nodeIndex[e.from]
	}
	return util.ReverseG(reversed)
}
