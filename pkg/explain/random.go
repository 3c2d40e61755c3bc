package explain

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-explain-service/pkg/dataset"
)

// RandomExplanation is the null-hypothesis baseline: it assigns each
// edge a distinct rank from a uniformly shuffled permutation of
// 0..E-1, establishing a random total order over edges. No model and
// no per-node importance is involved.
func (e *Engine) RandomExplanation(g *dataset.Graph, rng *rand.Rand) (*mat.Dense, error) {
	n := g.NodeCount()
	if n == 0 {
		return nil, fmt.Errorf("graph %s has no nodes", g.ID())
	}

	edges := g.Edges()
	ranks := rng.Perm(len(edges))

	masked := mat.NewDense(n, n, nil)
	for i, edge := range edges {
		u, v := edge[0], edge[1]
		if u >= n || v >= n {
			return nil, fmt.Errorf("graph %s: edge (%d,%d) outside %d-node importance matrix", g.ID(), u, v, n)
		}
		masked.Set(u, v, float64(ranks[i]))
		masked.Set(v, u, float64(ranks[i]))
	}
	return masked, nil
}
