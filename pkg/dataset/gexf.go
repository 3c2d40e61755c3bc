package dataset

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/graph/formats/gexf12"
)

// ReadGEXF parses a GEXF 1.2 document into a Graph with the given
// identifier. Node identifiers in the document must be integers since
// they index the model's dense tensors.
func ReadGEXF(r io.Reader, id string) (*Graph, error) {
	var doc gexf12.Content
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("graph %s: failed to decode GEXF: %w", id, err)
	}

	nodes := make([]int, 0, len(doc.Graph.Nodes.Nodes))
	for _, node := range doc.Graph.Nodes.Nodes {
		v, err := strconv.Atoi(node.ID)
		if err != nil {
			return nil, fmt.Errorf("graph %s: non-integer node id %q", id, node.ID)
		}
		nodes = append(nodes, v)
	}

	edges := make([][2]int, 0, len(doc.Graph.Edges.Edges))
	for _, edge := range doc.Graph.Edges.Edges {
		u, err := strconv.Atoi(edge.Source)
		if err != nil {
			return nil, fmt.Errorf("graph %s: non-integer edge source %q", id, edge.Source)
		}
		w, err := strconv.Atoi(edge.Target)
		if err != nil {
			return nil, fmt.Errorf("graph %s: non-integer edge target %q", id, edge.Target)
		}
		edges = append(edges, [2]int{u, w})
	}

	return NewGraph(id, nodes, edges)
}
