package dataset

import (
	"fmt"
)

// Graph is an undirected, unweighted graph read from a single dataset file.
// Node identifiers are non-negative integers that double as row/column
// indices into the model's fixed-capacity tensors. A Graph is immutable
// after construction; WithNodeRemoved derives modified copies.
type Graph struct {
	id      string
	nodes   []int
	edges   [][2]int
	present map[int]bool
}

// NewGraph builds a graph from node identifiers and undirected edges,
// both kept in the order given (document order for loaded files).
func NewGraph(id string, nodes []int, edges [][2]int) (*Graph, error) {
	g := &Graph{
		id:      id,
		nodes:   make([]int, 0, len(nodes)),
		edges:   make([][2]int, 0, len(edges)),
		present: make(map[int]bool, len(nodes)),
	}

	for _, node := range nodes {
		if node < 0 {
			return nil, fmt.Errorf("graph %s: negative node id %d", id, node)
		}
		if g.present[node] {
			return nil, fmt.Errorf("graph %s: duplicate node id %d", id, node)
		}
		g.present[node] = true
		g.nodes = append(g.nodes, node)
	}

	for _, edge := range edges {
		if !g.present[edge[0]] || !g.present[edge[1]] {
			return nil, fmt.Errorf("graph %s: edge (%d,%d) references unknown node", id, edge[0], edge[1])
		}
		g.edges = append(g.edges, edge)
	}

	return g, nil
}

// ID returns the graph identifier parsed from the source filename.
func (g *Graph) ID() string { return g.id }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// HasNode reports whether the node id is part of the graph.
func (g *Graph) HasNode(node int) bool { return g.present[node] }

// Nodes returns the node identifiers in document order.
func (g *Graph) Nodes() []int {
	nodes := make([]int, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Edges returns the undirected edges in document order.
func (g *Graph) Edges() [][2]int {
	edges := make([][2]int, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// MaxNodeID returns the largest node identifier, or -1 for an empty graph.
func (g *Graph) MaxNodeID() int {
	max := -1
	for _, node := range g.nodes {
		if node > max {
			max = node
		}
	}
	return max
}

// WithNodeRemoved returns a copy of the graph without the given node and
// without its incident edges. The receiver is never mutated, so repeated
// removal trials on the same graph stay independent of each other.
func (g *Graph) WithNodeRemoved(node int) *Graph {
	reduced := &Graph{
		id:      g.id,
		nodes:   make([]int, 0, len(g.nodes)),
		edges:   make([][2]int, 0, len(g.edges)),
		present: make(map[int]bool, len(g.nodes)),
	}

	for _, n := range g.nodes {
		if n == node {
			continue
		}
		reduced.nodes = append(reduced.nodes, n)
		reduced.present[n] = true
	}

	for _, edge := range g.edges {
		if edge[0] == node || edge[1] == node {
			continue
		}
		reduced.edges = append(reduced.edges, edge)
	}

	return reduced
}
