package routing

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/config"
	da "github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/metrics"
	"go.uber.org/zap"
)

// deadline is checked every budgetCheckInterval expansions
const budgetCheckInterval = 256

// PathEnumerationService returns the loopless candidate routes between two nodes, bounded by
// PathEnumConfig, in a deterministic order. it holds no mutable state and is safe for concurrent use.
type PathEnumerationService struct {
	cfg  config.PathEnumConfig
	perf config.PerformanceConfig
	sink metrics.Sink
	log  *zap.Logger
}

func NewPathEnumerationService(cfg config.PathEnumConfig, perf config.PerformanceConfig, sink metrics.Sink,
	log *zap.Logger) *PathEnumerationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PathEnumerationService{
		cfg:  cfg,
		perf: perf,
		sink: metrics.OrNoop(sink),
		log:  log,
	}
}

func (s *PathEnumerationService) GetConfig() config.PathEnumConfig {
	return s.cfg
}

// ShortestPath delegates to the graph and ignores the enumeration bounds.
func (s *PathEnumerationService) ShortestPath(from, to string, g *da.Graph) (da.RoutePath, bool, error) {
	if s.cfg.UseBidirectionalSearch {
		return g.ShortestPathBidirectional(from, to)
	}
	return g.ShortestPath(from, to)
}

/*
EnumeratePaths. exhaustive depth-first search from -> to. a partial path is extended by one outgoing edge at a
time and every extension is checked before it is explored:
 1. edge count <= MaxDepth, when MaxDepth > 0
 2. no node revisited unless AllowCycles
 3. cumulative travel time <= MaxTravelTime, when MaxTravelTime > 0
 4. cumulative travel time <= T* x MaxTimeOverShortest, T* = shortest travel time from -> to

a path is accepted once it reaches to and is never extended past it. accepted paths are stably sorted by
travel time (ties keep discovery order) and truncated to MaxPaths when MaxPaths > 0.
*/
func (s *PathEnumerationService) EnumeratePaths(from, to string, g *da.Graph) ([]da.RoutePath, error) {
	start := time.Now()

	shortest, found, err := s.ShortestPath(from, to, g)
	if err != nil {
		return nil, err
	}
	if !found || from == to {
		s.sink.ObserveEnumeration(0, time.Since(start))
		return []da.RoutePath{}, nil
	}

	search := newEnumerationSearch(g, to, s.cfg)
	if s.cfg.MaxTimeOverShortest > 0 {
		search.relativeBound = float64(shortest.TotalTravelTime()) * s.cfg.MaxTimeOverShortest
	}
	if s.perf.MaxEnumerationTime > 0 {
		search.deadline = start.Add(s.perf.MaxEnumerationTime)
	}

	search.onPath[from] = 1
	search.dfs(from, 0)

	paths := search.accepted
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].TotalTravelTime() < paths[j].TotalTravelTime()
	})
	if s.cfg.MaxPaths > 0 && len(paths) > s.cfg.MaxPaths {
		paths = paths[:s.cfg.MaxPaths]
	}

	elapsed := time.Since(start)
	if search.aborted {
		s.log.Warn("path enumeration stopped by time budget",
			zap.String("from", from), zap.String("to", to),
			zap.Duration("budget", s.perf.MaxEnumerationTime),
			zap.Int("expansions", search.expansions),
			zap.Int("accepted", len(search.accepted)))
	}
	s.log.Debug("path enumeration finished",
		zap.String("from", from), zap.String("to", to),
		zap.Int("shortestTravelTime", shortest.TotalTravelTime()),
		zap.Int("expansions", search.expansions),
		zap.Int("paths", len(paths)),
		zap.Duration("elapsed", elapsed))
	s.sink.ObserveEnumeration(len(paths), elapsed)

	return paths, nil
}

type enumerationSearch struct {
	g   *da.Graph
	to  string
	cfg config.PathEnumConfig

	relativeBound float64 // +Inf when disabled
	deadline      time.Time

	path     []da.Edge
	onPath   map[string]int
	accepted []da.RoutePath

	edgeOrders map[string][]int

	expansions int
	aborted    bool
}

func newEnumerationSearch(g *da.Graph, to string, cfg config.PathEnumConfig) *enumerationSearch {
	return &enumerationSearch{
		g:             g,
		to:            to,
		cfg:           cfg,
		relativeBound: infBound,
		path:          make([]da.Edge, 0, max(cfg.MaxDepth, 0)),
		onPath:        make(map[string]int),
		accepted:      make([]da.RoutePath, 0),
		edgeOrders:    make(map[string][]int),
	}
}

func (es *enumerationSearch) dfs(u string, travelTime int) {
	if es.aborted {
		return
	}
	es.expansions++
	if es.expansions%budgetCheckInterval == 0 && !es.deadline.IsZero() && time.Now().After(es.deadline) {
		es.aborted = true
		return
	}

	edges := es.g.OutgoingEdges(u)
	for _, i := range es.edgeOrder(u, len(edges)) {
		e := edges[i]
		newTravelTime := travelTime + e.GetTravelTime()
		if !es.admissible(e, newTravelTime) {
			continue
		}

		es.path = append(es.path, e)
		v := e.GetTo()
		if v == es.to {
			es.accept()
		} else {
			es.onPath[v]++
			es.dfs(v, newTravelTime)
			es.onPath[v]--
		}
		es.path = es.path[:len(es.path)-1]

		if es.aborted {
			return
		}
	}
}

// admissible checks the pruning bounds for extending the current path with e.
func (es *enumerationSearch) admissible(e da.Edge, newTravelTime int) bool {
	if es.cfg.MaxDepth > 0 && len(es.path)+1 > es.cfg.MaxDepth {
		return false
	}
	if !es.cfg.AllowCycles && es.onPath[e.GetTo()] > 0 {
		return false
	}
	if es.cfg.MaxTravelTime > 0 && newTravelTime > es.cfg.MaxTravelTime {
		return false
	}
	if float64(newTravelTime) > es.relativeBound {
		return false
	}
	return true
}

func (es *enumerationSearch) accept() {
	edges := make([]da.Edge, len(es.path))
	copy(edges, es.path)
	nodes := make([]string, 0, len(edges)+1)
	nodes = append(nodes, edges[0].GetFrom())
	for _, e := range edges {
		nodes = append(nodes, e.GetTo())
	}
	es.accepted = append(es.accepted, da.NewRoutePath(nodes, edges))
}

// edgeOrder is the exploration order of u's outgoing edges: input order, or a permutation fixed by
// RandomSeed and the node id.
func (es *enumerationSearch) edgeOrder(u string, n int) []int {
	if order, ok := es.edgeOrders[u]; ok && len(order) == n {
		return order
	}
	var order []int
	if es.cfg.RandomSeed == 0 {
		order = make([]int, n)
		for i := range order {
			order[i] = i
		}
	} else {
		h := fnv.New64a()
		h.Write([]byte(u))
		rng := rand.New(rand.NewPCG(es.cfg.RandomSeed, h.Sum64()))
		order = rng.Perm(n)
	}
	es.edgeOrders[u] = order
	return order
}
