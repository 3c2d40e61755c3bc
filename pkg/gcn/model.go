package gcn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is a pre-trained GCN graph classifier restored from a
// checkpoint. The stack is NumLayers graph convolutions computing
// adj.h.W + b, with ReLU between layers but not after the last, a max
// pooling over node rows, and a linear prediction head.
type Model struct {
	InputDim     int
	HiddenDim    int
	EmbeddingDim int
	NumClasses   int
	NumLayers    int

	ConvWeights []*mat.Dense // per layer: in->hidden, hidden->hidden, ..., hidden->embedding
	ConvBiases  [][]float64
	PredWeight  *mat.Dense // embedding x classes
	PredBias    []float64
}

// Forward holds the prediction scores of one inference pass together
// with the intermediate state needed for backpropagation.
type Forward struct {
	Scores []float64

	preActs []*mat.Dense // pre-activation z per conv layer
	pooled  []float64
	argmax  []int // row selected by max pooling, per embedding column
}

// Forward runs inference on a prepared feature matrix x (capacity x
// InputDim) and padded adjacency matrix adj (capacity x capacity).
func (m *Model) Forward(x, adj *mat.Dense) (*Forward, error) {
	xr, xc := x.Dims()
	ar, ac := adj.Dims()
	if ar != ac {
		return nil, fmt.Errorf("adjacency matrix must be square, got %dx%d", ar, ac)
	}
	if xr != ar {
		return nil, fmt.Errorf("feature rows (%d) must match adjacency size (%d)", xr, ar)
	}
	if xc != m.InputDim {
		return nil, fmt.Errorf("feature width (%d) must match model input dim (%d)", xc, m.InputDim)
	}

	fw := &Forward{preActs: make([]*mat.Dense, m.NumLayers)}

	h := x
	for l := 0; l < m.NumLayers; l++ {
		var prop, z mat.Dense
		prop.Mul(adj, h)
		z.Mul(&prop, m.ConvWeights[l])
		addBias(&z, m.ConvBiases[l])
		fw.preActs[l] = &z

		if l < m.NumLayers-1 {
			relu := mat.DenseCopyOf(&z)
			reluInPlace(relu)
			h = relu
		} else {
			h = &z
		}
	}

	// Max pooling over all rows, padded ones included, mirroring the
	// fixed-capacity input contract.
	fw.pooled = make([]float64, m.EmbeddingDim)
	fw.argmax = make([]int, m.EmbeddingDim)
	for j := 0; j < m.EmbeddingDim; j++ {
		best := h.At(0, j)
		bestRow := 0
		for i := 1; i < xr; i++ {
			if v := h.At(i, j); v > best {
				best = v
				bestRow = i
			}
		}
		fw.pooled[j] = best
		fw.argmax[j] = bestRow
	}

	fw.Scores = make([]float64, m.NumClasses)
	for c := 0; c < m.NumClasses; c++ {
		s := m.PredBias[c]
		for j := 0; j < m.EmbeddingDim; j++ {
			s += fw.pooled[j] * m.PredWeight.At(j, c)
		}
		fw.Scores[c] = s
	}

	return fw, nil
}

// Loss computes the softmax cross-entropy of prediction scores against
// the true class label.
func (m *Model) Loss(scores []float64, label int) (float64, error) {
	if label < 0 || label >= len(scores) {
		return 0, fmt.Errorf("label %d out of range for %d classes", label, len(scores))
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - max)
	}
	return math.Log(sum) + max - scores[label], nil
}

// InputGradient computes the gradient of the cross-entropy loss with
// respect to every entry of the feature matrix x, the differentiable
// contract the sensitivity strategy relies on.
func (m *Model) InputGradient(x, adj *mat.Dense, label int) (*mat.Dense, error) {
	fw, err := m.Forward(x, adj)
	if err != nil {
		return nil, err
	}
	if label < 0 || label >= m.NumClasses {
		return nil, fmt.Errorf("label %d out of range for %d classes", label, m.NumClasses)
	}

	n, _ := adj.Dims()

	// dLoss/dScores = softmax(scores) - onehot(label)
	dScores := Softmax(fw.Scores)
	dScores[label] -= 1

	// Through the prediction head.
	dPooled := make([]float64, m.EmbeddingDim)
	for j := 0; j < m.EmbeddingDim; j++ {
		for c := 0; c < m.NumClasses; c++ {
			dPooled[j] += m.PredWeight.At(j, c) * dScores[c]
		}
	}

	// Max pooling routes each column gradient to the selected row.
	grad := mat.NewDense(n, m.EmbeddingDim, nil)
	for j := 0; j < m.EmbeddingDim; j++ {
		grad.Set(fw.argmax[j], j, dPooled[j])
	}

	// Through the conv stack. grad enters as dLoss/dh_l; the last layer
	// has no activation, earlier layers gate through the ReLU.
	for l := m.NumLayers - 1; l >= 0; l-- {
		if l < m.NumLayers-1 {
			maskByPositive(grad, fw.preActs[l])
		}
		var prop, prev mat.Dense
		prop.Mul(adj.T(), grad)
		prev.Mul(&prop, m.ConvWeights[l].T())
		grad = &prev
	}

	return grad, nil
}

// Softmax converts prediction scores into class probabilities.
func Softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// addBias adds the bias vector to every row of z.
func addBias(z *mat.Dense, bias []float64) {
	r, c := z.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			z.Set(i, j, z.At(i, j)+bias[j])
		}
	}
}

func reluInPlace(z *mat.Dense) {
	r, c := z.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if z.At(i, j) < 0 {
				z.Set(i, j, 0)
			}
		}
	}
}

// maskByPositive zeroes grad entries where the pre-activation was not
// positive (the ReLU derivative).
func maskByPositive(grad, preAct *mat.Dense) {
	r, c := grad.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if preAct.At(i, j) <= 0 {
				grad.Set(i, j, 0)
			}
		}
	}
}
