package datastructure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
)

/*
graph snapshot, bzip2 compressed text:

	<numNodes> <numEdges>
	<id>\t<name>\t<lat>\t<lon>                          x numNodes
	<from>\t<to>\t<travelTime>\t<distance>\t<bridgeID>  x numEdges

ids, names and bridge ids are go-quoted strings. an empty bridge id marks a regular edge.
*/

func (g *Graph) WriteGraphFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.WriteGraph(f)
}

func (g *Graph) WriteGraph(out io.Writer) error {
	bz, err := bzip2.NewWriter(out, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)
	fmt.Fprintf(w, "%d %d\n", len(g.nodes), len(g.edges))

	for _, n := range g.nodes {
		latF := strconv.FormatFloat(n.coordinates.Lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(n.coordinates.Lon, 'f', -1, 64)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", strconv.Quote(n.id), strconv.Quote(n.name), latF, lonF)
	}

	for _, e := range g.edges {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			strconv.Quote(e.from), strconv.Quote(e.to), e.travelTime, e.distance, strconv.Quote(e.bridgeID))
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return bz.Close()
}

func ReadGraphFile(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraph(f)
}

// ReadGraph decodes a snapshot written by WriteGraph and validates it like NewGraph.
func ReadGraph(in io.Reader) (*Graph, error) {
	bz, err := bzip2.NewReader(in, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	sc := bufio.NewScanner(bz)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	next := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("graph snapshot truncated after line %d", lineNo)
		}
		lineNo++
		return sc.Text(), nil
	}

	header, err := next()
	if err != nil {
		return nil, err
	}
	var numNodes, numEdges int
	if _, err := fmt.Sscanf(header, "%d %d", &numNodes, &numEdges); err != nil {
		return nil, fmt.Errorf("graph snapshot header %q: %w", header, err)
	}

	nodes := make([]Node, numNodes)
	for i := range nodes {
		line, err := next()
		if err != nil {
			return nil, err
		}
		nodes[i], err = parseNode(line)
		if err != nil {
			return nil, fmt.Errorf("graph snapshot line %d: %w", lineNo, err)
		}
	}

	edges := make([]Edge, numEdges)
	for i := range edges {
		line, err := next()
		if err != nil {
			return nil, err
		}
		edges[i], err = parseEdge(line)
		if err != nil {
			return nil, fmt.Errorf("graph snapshot line %d: %w", lineNo, err)
		}
	}

	return NewGraph(nodes, edges)
}

func parseNode(line string) (Node, error) {
	tokens := strings.Split(line, "\t")
	if len(tokens) != 4 {
		return Node{}, fmt.Errorf("node record has %d fields, expected 4", len(tokens))
	}
	id, err := strconv.Unquote(tokens[0])
	if err != nil {
		return Node{}, err
	}
	name, err := strconv.Unquote(tokens[1])
	if err != nil {
		return Node{}, err
	}
	lat, err := strconv.ParseFloat(tokens[2], 64)
	if err != nil {
		return Node{}, err
	}
	lon, err := strconv.ParseFloat(tokens[3], 64)
	if err != nil {
		return Node{}, err
	}
	return NewNode(id, name, lat, lon), nil
}

func parseEdge(line string) (Edge, error) {
	tokens := strings.Split(line, "\t")
	if len(tokens) != 5 {
		return Edge{}, fmt.Errorf("edge record has %d fields, expected 5", len(tokens))
	}
	from, err := strconv.Unquote(tokens[0])
	if err != nil {
		return Edge{}, err
	}
	to, err := strconv.Unquote(tokens[1])
	if err != nil {
		return Edge{}, err
	}
	travelTime, err := strconv.Atoi(tokens[2])
	if err != nil {
		return Edge{}, err
	}
	distance, err := strconv.Atoi(tokens[3])
	if err != nil {
		return Edge{}, err
	}
	bridgeID, err := strconv.Unquote(tokens[4])
	if err != nil {
		return Edge{}, err
	}
	if bridgeID != "" {
		return NewBridgeEdge(from, to, travelTime, distance, bridgeID), nil
	}
	return NewEdge(from, to, travelTime, distance), nil
}
