package explain

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-explain-service/pkg/dataset"
)

// ErrCapacityExceeded reports a graph that does not fit the fixed
// tensor capacity the model was trained with.
var ErrCapacityExceeded = errors.New("graph exceeds tensor capacity")

// DenseAdjacency builds the zero-padded capacity x capacity adjacency
// matrix for a graph. Entries are indexed by node id and set to 1
// symmetrically for every undirected edge.
func DenseAdjacency(g *dataset.Graph, capacity int) (*mat.Dense, error) {
	if g.NodeCount() > capacity {
		return nil, fmt.Errorf("%w: graph %s has %d nodes, capacity is %d",
			ErrCapacityExceeded, g.ID(), g.NodeCount(), capacity)
	}
	if max := g.MaxNodeID(); max >= capacity {
		return nil, fmt.Errorf("%w: graph %s has node id %d, capacity is %d",
			ErrCapacityExceeded, g.ID(), max, capacity)
	}

	adj := mat.NewDense(capacity, capacity, nil)
	for _, edge := range g.Edges() {
		adj.Set(edge[0], edge[1], 1)
		adj.Set(edge[1], edge[0], 1)
	}
	return adj, nil
}

// FeatureMatrix returns the constant all-ones node feature matrix the
// model expects.
func FeatureMatrix(capacity, numFeatures int) *mat.Dense {
	x := mat.NewDense(capacity, numFeatures, nil)
	for i := 0; i < capacity; i++ {
		for j := 0; j < numFeatures; j++ {
			x.Set(i, j, 1)
		}
	}
	return x
}

// maskedAdjacency spreads per-node importances onto the edges of the
// original graph: the N x N output holds importance[u]+importance[v]
// at (u,v) and (v,u) for every edge, zero everywhere else.
func maskedAdjacency(g *dataset.Graph, importance map[int]float64) (*mat.Dense, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, fmt.Errorf("graph %s has no nodes", g.ID())
	}

	masked := mat.NewDense(n, n, nil)
	for _, edge := range g.Edges() {
		u, v := edge[0], edge[1]
		if u >= n || v >= n {
			return nil, fmt.Errorf("graph %s: edge (%d,%d) outside %d-node importance matrix", g.ID(), u, v, n)
		}
		w := importance[u] + importance[v]
		masked.Set(u, v, w)
		masked.Set(v, u, w)
	}
	return masked, nil
}
