package datastructure

import "fmt"

// Edge is a directed road segment. bidirectional streets are two edges.
type Edge struct {
	from       string
	to         string
	travelTime int // second
	distance   int // meter
	isBridge   bool
	bridgeID   string
}

func NewEdge(from, to string, travelTime, distance int) Edge {
	return Edge{
		from:       from,
		to:         to,
		travelTime: travelTime,
		distance:   distance,
	}
}

// NewBridgeEdge returns an edge that crosses the movable bridge bridgeID.
func NewBridgeEdge(from, to string, travelTime, distance int, bridgeID string) Edge {
	return Edge{
		from:       from,
		to:         to,
		travelTime: travelTime,
		distance:   distance,
		isBridge:   true,
		bridgeID:   bridgeID,
	}
}

func (e Edge) GetFrom() string {
	return e.from
}

func (e Edge) GetTo() string {
	return e.to
}

func (e Edge) GetTravelTime() int {
	return e.travelTime
}

func (e Edge) GetDistance() int {
	return e.distance
}

func (e Edge) IsBridge() bool {
	return e.isBridge
}

func (e Edge) GetBridgeID() string {
	return e.bridgeID
}

func (e Edge) IsSelfLoop() bool {
	return e.from == e.to
}

func (e Edge) String() string {
	if e.isBridge {
		return fmt.Sprintf("%s->%s[bridge %s, %ds]", e.from, e.to, e.bridgeID, e.travelTime)
	}
	return fmt.Sprintf("%s->%s[%ds]", e.from, e.to, e.travelTime)
}
