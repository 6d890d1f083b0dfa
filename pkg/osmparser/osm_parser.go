package osmparser

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/geo"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

type Format int

const (
	FormatPBF Format = iota
	FormatXML
	FormatXMLBzip2
)

// FormatFromFilename picks the decoder by file suffix: .osm.pbf, .osm or .osm.bz2.
func FormatFromFilename(filename string) (Format, error) {
	switch {
	case strings.HasSuffix(filename, ".pbf"):
		return FormatPBF, nil
	case strings.HasSuffix(filename, ".osm.bz2"):
		return FormatXMLBzip2, nil
	case strings.HasSuffix(filename, ".osm"), strings.HasSuffix(filename, ".xml"):
		return FormatXML, nil
	default:
		return 0, util.WrapErrorf(nil, util.ErrBadParamInput, "unsupported openstreetmap file %q", filename)
	}
}

type NodeCoord struct {
	lat float64
	lon float64
}

type OsmParser struct {
	wayNodeMap      map[int64]struct{}
	acceptedNodeMap map[int64]NodeCoord
	nodeNames       map[int64]string
	nodeOrder       []int64
	ways            []osmWay
	useMaxSpeed     bool
	log             *zap.Logger
}

func NewOSMParser(useMaxSpeed bool, log *zap.Logger) *OsmParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &OsmParser{
		wayNodeMap:      make(map[int64]struct{}),
		acceptedNodeMap: make(map[int64]NodeCoord),
		nodeNames:       make(map[int64]string),
		nodeOrder:       make([]int64, 0),
		ways:            make([]osmWay, 0),
		useMaxSpeed:     useMaxSpeed,
		log:             log,
	}
}

// ParseFile builds the road graph of an openstreetmap extract. node ids are the osm node ids, every movable
// bridge way becomes a run of bridge edges.
func (p *OsmParser) ParseFile(ctx context.Context, mapFile string) (*datastructure.Graph, error) {
	format, err := FormatFromFilename(mapFile)
	if err != nil {
		return nil, err
	}

	open := func() (io.ReadCloser, error) {
		return os.Open(mapFile)
	}
	return p.parse(ctx, open, format)
}

// Parse reads the extract from r. r is rewound between the way pass and the node pass.
func (p *OsmParser) Parse(ctx context.Context, r io.ReadSeeker, format Format) (*datastructure.Graph, error) {
	open := func() (io.ReadCloser, error) {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	}
	return p.parse(ctx, open, format)
}

func (p *OsmParser) parse(ctx context.Context, open func() (io.ReadCloser, error),
	format Format) (*datastructure.Graph, error) {

	// ways first so the node pass only keeps nodes that are part of the road network.
	countWays := 0
	err := p.scan(ctx, open, format, func(o osm.Object) error {
		way, ok := o.(*osm.Way)
		if !ok {
			return nil
		}
		if (countWays+1)%50000 == 0 {
			p.log.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
		}
		countWays++
		if !acceptOsmWay(way) {
			return nil
		}
		p.processWay(way)
		return nil
	})
	if err != nil {
		return nil, err
	}

	countNodes := 0
	err = p.scan(ctx, open, format, func(o osm.Object) error {
		node, ok := o.(*osm.Node)
		if !ok {
			return nil
		}
		if (countNodes+1)%500000 == 0 {
			p.log.Sugar().Infof("processing openstreetmap nodes: %d...", countNodes+1)
		}
		countNodes++
		id := int64(node.ID)
		if _, ok := p.wayNodeMap[id]; !ok {
			return nil
		}
		p.acceptedNodeMap[id] = NodeCoord{lat: node.Lat, lon: node.Lon}
		if name := node.Tags.Find("name"); name != "" {
			p.nodeNames[id] = name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g, err := p.buildGraph()
	if err != nil {
		return nil, err
	}
	p.log.Info("openstreetmap graph built",
		zap.Int("ways", len(p.ways)),
		zap.Int("nodes", g.NumberOfNodes()),
		zap.Int("edges", g.NumberOfEdges()),
		zap.Int("bridges", len(g.BridgeIDs())),
	)
	return g, nil
}

func (p *OsmParser) scan(ctx context.Context, open func() (io.ReadCloser, error), format Format,
	handle func(o osm.Object) error) error {
	f, err := open()
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		in      io.Reader = f
		scanner osm.Scanner
	)
	switch format {
	case FormatPBF:
		// must not be parallel, the handlers mutate the parser.
		scanner = osmpbf.New(ctx, in, 1)
	case FormatXMLBzip2:
		bz, err := bzip2.NewReader(in, nil)
		if err != nil {
			return err
		}
		defer bz.Close()
		scanner = osmxml.New(ctx, bz)
	default:
		scanner = osmxml.New(ctx, in)
	}
	defer scanner.Close()

	for scanner.Scan() {
		if err := handle(scanner.Object()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanning openstreetmap data: %w", err)
	}
	return nil
}

func (p *OsmParser) processWay(way *osm.Way) {
	if len(way.Nodes) < 2 {
		return
	}

	w := osmWay{
		id:       int64(way.ID),
		nodes:    make([]int64, 0, len(way.Nodes)),
		forward:  true,
		backward: true,
		speed:    roadTypeSpeed(way.Tags.Find("highway")),
	}

	if p.useMaxSpeed {
		if speed, ok := parseMaxSpeed(way.Tags.Find("maxspeed")); ok {
			w.speed = speed
		}
	}

	switch way.Tags.Find("oneway") {
	case "yes", "true", "1":
		w.backward = false
	case "-1", "reverse":
		w.forward = false
	case "no", "false", "0":
	default:
		if way.Tags.Find("junction") == "roundabout" || way.Tags.Find("highway") == "motorway" {
			w.backward = false
		}
	}

	if isMovableBridge(way) {
		w.bridgeID = bridgeID(way)
	}

	for _, wn := range way.Nodes {
		id := int64(wn.ID)
		w.nodes = append(w.nodes, id)
		if _, ok := p.wayNodeMap[id]; !ok {
			p.wayNodeMap[id] = struct{}{}
			p.nodeOrder = append(p.nodeOrder, id)
		}
	}
	p.ways = append(p.ways, w)
}

func (p *OsmParser) buildGraph() (*datastructure.Graph, error) {
	nodes := make([]datastructure.Node, 0, len(p.acceptedNodeMap))
	for _, id := range p.nodeOrder {
		c, ok := p.acceptedNodeMap[id]
		if !ok {
			continue
		}
		nodes = append(nodes, datastructure.NewNode(strconv.FormatInt(id, 10), p.nodeNames[id], c.lat, c.lon))
	}

	// parallel ways between the same two nodes keep the fastest segment.
	edgeIndex := make(map[wayEdge]int)
	edges := make([]datastructure.Edge, 0)
	addEdge := func(from, to int64, travelTime, distance int, bridge string) {
		key := wayEdge{from: from, to: to}
		e := newGraphEdge(from, to, travelTime, distance, bridge)
		if i, ok := edgeIndex[key]; ok {
			if travelTime < edges[i].GetTravelTime() {
				edges[i] = e
			}
			return
		}
		edgeIndex[key] = len(edges)
		edges = append(edges, e)
	}

	for _, w := range p.ways {
		for i := 0; i+1 < len(w.nodes); i++ {
			from, to := w.nodes[i], w.nodes[i+1]
			if from == to {
				continue
			}
			a, okA := p.acceptedNodeMap[from]
			b, okB := p.acceptedNodeMap[to]
			if !okA || !okB {
				// the way leaves the extract.
				continue
			}

			dist := geo.S2Distance(geo.NewCoordinate(a.lat, a.lon), geo.NewCoordinate(b.lat, b.lon))
			distance := int(math.Round(dist))
			travelTime := segmentTravelTime(dist, w.speed)

			if w.forward {
				addEdge(from, to, travelTime, distance, w.bridgeID)
			}
			if w.backward {
				addEdge(to, from, travelTime, distance, w.bridgeID)
			}
		}
	}

	return datastructure.NewGraph(nodes, edges)
}

func newGraphEdge(from, to int64, travelTime, distance int, bridge string) datastructure.Edge {
	fromID, toID := strconv.FormatInt(from, 10), strconv.FormatInt(to, 10)
	if bridge != "" {
		return datastructure.NewBridgeEdge(fromID, toID, travelTime, distance, bridge)
	}
	return datastructure.NewEdge(fromID, toID, travelTime, distance)
}

// segmentTravelTime returns whole seconds to drive dist meters at speed km/h.
func segmentTravelTime(dist, speed float64) int {
	if dist <= 0 {
		return 0
	}
	if speed <= 0 {
		speed = fallbackSpeed
	}
	return int(math.Ceil(dist / (speed / 3.6)))
}

func acceptOsmWay(way *osm.Way) bool {
	if isRestricted(way.Tags.Find("access")) || isRestricted(way.Tags.Find("motor_vehicle")) {
		return false
	}
	highway := way.Tags.Find("highway")
	if highway != "" {
		if _, ok := acceptedHighway[highway]; ok {
			return true
		}
	}
	return false
}

func isRestricted(value string) bool {
	return value == "no" || value == "private"
}

func isMovableBridge(way *osm.Way) bool {
	if way.Tags.Find("bridge") == "movable" {
		return true
	}
	movable := way.Tags.Find("bridge:movable")
	return movable != "" && movable != "no"
}

// bridgeID prefers the bridge reference, then the way ref and name, so that every way of one bridge
// shares the id.
func bridgeID(way *osm.Way) string {
	for _, key := range []string{"bridge:ref", "bridge:name", "ref", "name"} {
		if v := way.Tags.Find(key); v != "" {
			return v
		}
	}
	return "way/" + strconv.FormatInt(int64(way.ID), 10)
}
