package explain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-explain-service/pkg/dataset"
	"github.com/gilchrisn/graph-explain-service/pkg/gcn"
)

// OcclusionExplanation attributes importance through leave-one-node-out
// trials: each node's score is the absolute change of the true class
// probability when that node (and its incident edges) is removed from
// the graph. Every trial works on a fresh copy of the graph, so the
// result is independent of visit order. Costs one forward pass per
// node plus the baseline.
func (e *Engine) OcclusionExplanation(g *dataset.Graph, label int) (*mat.Dense, error) {
	capacity := e.config.MaxNodes()
	x := FeatureMatrix(capacity, e.config.NumFeatures())

	adj, err := DenseAdjacency(g, capacity)
	if err != nil {
		return nil, err
	}
	fw, err := e.model.Forward(x, adj)
	if err != nil {
		return nil, err
	}
	if label < 0 || label >= len(fw.Scores) {
		return nil, fmt.Errorf("label %d out of range for %d classes", label, len(fw.Scores))
	}
	baseline := gcn.Softmax(fw.Scores)[label]

	importance := make(map[int]float64, g.NodeCount())
	for _, node := range g.Nodes() {
		reduced := g.WithNodeRemoved(node)

		occludedAdj, err := DenseAdjacency(reduced, capacity)
		if err != nil {
			return nil, err
		}
		occludedFw, err := e.model.Forward(x, occludedAdj)
		if err != nil {
			return nil, err
		}

		p := gcn.Softmax(occludedFw.Scores)[label]
		importance[node] = math.Abs(p - baseline)
	}

	return maskedAdjacency(g, importance)
}
