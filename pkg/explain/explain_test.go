package explain

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-explain-service/pkg/dataset"
	"github.com/gilchrisn/graph-explain-service/pkg/gcn"
)

const (
	testCapacity = 6
	testFeatures = 3
)

// newTestConfig shrinks the tensor capacity so tests stay small and
// silences logging and progress output.
func newTestConfig() *Config {
	config := NewConfig()
	config.Set("tensor.max_nodes", testCapacity)
	config.Set("tensor.num_features", testFeatures)
	config.Set("model.hidden_dim", 4)
	config.Set("model.embedding_dim", 3)
	config.Set("algorithm.random_seed", int64(42))
	config.Set("logging.level", "error")
	config.Set("logging.enable_progress", false)
	return config
}

// newTestModel builds a small classifier with deterministic
// pseudo-random weights over the test capacity.
func newTestModel(seed int64) *gcn.Model {
	rng := rand.New(rand.NewSource(seed))

	randMatrix := func(rows, cols int) *mat.Dense {
		data := make([]float64, rows*cols)
		for i := range data {
			data[i] = rng.NormFloat64() * 0.5
		}
		return mat.NewDense(rows, cols, data)
	}
	randVector := func(length int) []float64 {
		data := make([]float64, length)
		for i := range data {
			data[i] = rng.NormFloat64() * 0.1
		}
		return data
	}

	return &gcn.Model{
		InputDim:     testFeatures,
		HiddenDim:    4,
		EmbeddingDim: 3,
		NumClasses:   2,
		NumLayers:    3,
		ConvWeights:  []*mat.Dense{randMatrix(testFeatures, 4), randMatrix(4, 4), randMatrix(4, 3)},
		ConvBiases:   [][]float64{randVector(4), randVector(4), randVector(3)},
		PredWeight:   randMatrix(3, 2),
		PredBias:     randVector(2),
	}
}

func buildGraph(t *testing.T, id string, nodes []int, edges [][2]int) *dataset.Graph {
	t.Helper()
	g, err := dataset.NewGraph(id, nodes, edges)
	if err != nil {
		t.Fatalf("failed to build graph %s: %v", id, err)
	}
	return g
}

func buildTriangle(t *testing.T) *dataset.Graph {
	return buildGraph(t, "g1", []int{0, 1, 2}, [][2]int{{0, 1}, {1, 2}, {2, 0}})
}

// checkMaskedMatrix asserts the shared output contract of every
// strategy: N x N shape, symmetry, zero everywhere except edges.
func checkMaskedMatrix(t *testing.T, g *dataset.Graph, masked *mat.Dense) {
	t.Helper()

	n := g.NodeCount()
	rows, cols := masked.Dims()
	if rows != n || cols != n {
		t.Fatalf("matrix shape = %dx%d, want %dx%d", rows, cols, n, n)
	}

	isEdge := make(map[[2]int]bool)
	for _, edge := range g.Edges() {
		isEdge[edge] = true
		isEdge[[2]int{edge[1], edge[0]}] = true
	}

	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if masked.At(u, v) != masked.At(v, u) {
				t.Errorf("matrix not symmetric at (%d,%d): %v vs %v", u, v, masked.At(u, v), masked.At(v, u))
			}
			if !isEdge[[2]int{u, v}] && masked.At(u, v) != 0 {
				t.Errorf("non-edge position (%d,%d) = %v, want 0", u, v, masked.At(u, v))
			}
		}
	}
}

func TestDenseAdjacency(t *testing.T) {
	g := buildTriangle(t)

	adj, err := DenseAdjacency(g, testCapacity)
	if err != nil {
		t.Fatalf("DenseAdjacency failed: %v", err)
	}

	rows, cols := adj.Dims()
	if rows != testCapacity || cols != testCapacity {
		t.Fatalf("adjacency shape = %dx%d, want %dx%d", rows, cols, testCapacity, testCapacity)
	}
	for _, edge := range g.Edges() {
		if adj.At(edge[0], edge[1]) != 1 || adj.At(edge[1], edge[0]) != 1 {
			t.Errorf("edge %v not set symmetrically", edge)
		}
	}
	// Padding stays zero.
	for j := 0; j < testCapacity; j++ {
		if adj.At(testCapacity-1, j) != 0 || adj.At(j, testCapacity-1) != 0 {
			t.Errorf("padding row/column touched at %d", j)
		}
	}
}

func TestDenseAdjacency_CapacityExceeded(t *testing.T) {
	t.Run("too many nodes", func(t *testing.T) {
		nodes := make([]int, testCapacity+1)
		for i := range nodes {
			nodes[i] = i
		}
		g := buildGraph(t, "big", nodes, nil)

		_, err := DenseAdjacency(g, testCapacity)
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("error = %v, want ErrCapacityExceeded", err)
		}
	})

	t.Run("node id beyond capacity", func(t *testing.T) {
		g := buildGraph(t, "sparse", []int{0, testCapacity}, nil)

		_, err := DenseAdjacency(g, testCapacity)
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("error = %v, want ErrCapacityExceeded", err)
		}
	})
}

func TestFeatureMatrix(t *testing.T) {
	x := FeatureMatrix(testCapacity, testFeatures)
	rows, cols := x.Dims()
	if rows != testCapacity || cols != testFeatures {
		t.Fatalf("feature shape = %dx%d, want %dx%d", rows, cols, testCapacity, testFeatures)
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if x.At(i, j) != 1 {
				t.Fatalf("feature (%d,%d) = %v, want 1", i, j, x.At(i, j))
			}
		}
	}
}

func TestSensitivityExplanation(t *testing.T) {
	engine := NewEngine(newTestConfig(), newTestModel(7), nil)
	g := buildTriangle(t)

	masked, err := engine.SensitivityExplanation(g, 1)
	if err != nil {
		t.Fatalf("SensitivityExplanation failed: %v", err)
	}
	checkMaskedMatrix(t, g, masked)

	// Deterministic: repeated runs are bit-identical.
	again, err := engine.SensitivityExplanation(g, 1)
	if err != nil {
		t.Fatalf("SensitivityExplanation failed: %v", err)
	}
	if !mat.Equal(masked, again) {
		t.Error("repeated sensitivity runs differ")
	}
}

func TestOcclusionExplanation(t *testing.T) {
	engine := NewEngine(newTestConfig(), newTestModel(7), nil)
	g := buildGraph(t, "g1", []int{0, 1, 2, 3}, [][2]int{{0, 1}, {1, 2}, {2, 0}, {2, 3}})

	masked, err := engine.OcclusionExplanation(g, 0)
	if err != nil {
		t.Fatalf("OcclusionExplanation failed: %v", err)
	}
	checkMaskedMatrix(t, g, masked)

	// The source graph must survive all removal trials untouched.
	if g.NodeCount() != 4 || g.EdgeCount() != 4 {
		t.Errorf("graph mutated by occlusion: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
}

func TestOcclusionExplanation_NoEdges(t *testing.T) {
	engine := NewEngine(newTestConfig(), newTestModel(7), nil)
	g := buildGraph(t, "isolated", []int{0, 1, 2}, nil)

	masked, err := engine.OcclusionExplanation(g, 0)
	if err != nil {
		t.Fatalf("OcclusionExplanation failed: %v", err)
	}

	rows, cols := masked.Dims()
	if rows != 3 || cols != 3 {
		t.Fatalf("matrix shape = %dx%d, want 3x3", rows, cols)
	}
	for u := 0; u < 3; u++ {
		for v := 0; v < 3; v++ {
			if masked.At(u, v) != 0 {
				t.Errorf("edgeless graph produced non-zero entry at (%d,%d)", u, v)
			}
		}
	}
}

func TestOcclusionExplanation_BadLabel(t *testing.T) {
	engine := NewEngine(newTestConfig(), newTestModel(7), nil)
	g := buildTriangle(t)

	if _, err := engine.OcclusionExplanation(g, 9); err == nil {
		t.Fatal("expected error for out-of-range label")
	}
}

func TestRandomExplanation_Permutation(t *testing.T) {
	engine := NewEngine(newTestConfig(), nil, nil)
	g := buildTriangle(t)
	rng := rand.New(rand.NewSource(42))

	masked, err := engine.RandomExplanation(g, rng)
	if err != nil {
		t.Fatalf("RandomExplanation failed: %v", err)
	}
	checkMaskedMatrix(t, g, masked)

	// The edge values must be exactly the ranks 0..E-1.
	ranks := make([]float64, 0, g.EdgeCount())
	for _, edge := range g.Edges() {
		ranks = append(ranks, masked.At(edge[0], edge[1]))
	}
	sort.Float64s(ranks)
	for i, r := range ranks {
		if r != float64(i) {
			t.Fatalf("edge ranks = %v, want permutation of 0..%d", ranks, g.EdgeCount()-1)
		}
	}
}

func TestRandomExplanation_SeedDeterminism(t *testing.T) {
	engine := NewEngine(newTestConfig(), nil, nil)
	g := buildTriangle(t)

	first, err := engine.RandomExplanation(g, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("RandomExplanation failed: %v", err)
	}
	second, err := engine.RandomExplanation(g, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("RandomExplanation failed: %v", err)
	}
	if !mat.Equal(first, second) {
		t.Error("same seed produced different rankings")
	}
}

func TestMaskedAdjacency_EndpointSum(t *testing.T) {
	g := buildTriangle(t)
	importance := map[int]float64{0: 1, 1: 2, 2: 4}

	masked, err := maskedAdjacency(g, importance)
	if err != nil {
		t.Fatalf("maskedAdjacency failed: %v", err)
	}

	want := map[[2]int]float64{{0, 1}: 3, {1, 2}: 6, {2, 0}: 5}
	for edge, w := range want {
		if got := masked.At(edge[0], edge[1]); math.Abs(got-w) > 1e-15 {
			t.Errorf("edge %v = %v, want %v", edge, got, w)
		}
	}
}

func TestMaskedAdjacency_OutOfRangeNode(t *testing.T) {
	// Node ids 0 and 5 with only 2 nodes: id 5 cannot index a 2x2 matrix.
	g := buildGraph(t, "sparse", []int{0, 5}, [][2]int{{0, 5}})

	if _, err := maskedAdjacency(g, map[int]float64{0: 1, 5: 1}); err == nil {
		t.Fatal("expected error for node id outside importance matrix")
	}
}
