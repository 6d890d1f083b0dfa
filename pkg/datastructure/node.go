package datastructure

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

func (c Coordinate) GetLat() float64 {
	return c.Lat
}

func (c Coordinate) GetLon() float64 {
	return c.Lon
}

// Node is a road network intersection or way endpoint. identity = id.
type Node struct {
	id          string
	name        string
	coordinates Coordinate
}

func NewNode(id, name string, lat, lon float64) Node {
	return Node{
		id:          id,
		name:        name,
		coordinates: NewCoordinate(lat, lon),
	}
}

func (n Node) GetID() string {
	return n.id
}

func (n Node) GetName() string {
	return n.name
}

func (n Node) GetCoordinates() Coordinate {
	return n.coordinates
}
