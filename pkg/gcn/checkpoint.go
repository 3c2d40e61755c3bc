package gcn

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// Params fixes the architecture dimensions a checkpoint must match.
// Input feature width and class count are read from the checkpoint's
// stored computation-graph record instead.
type Params struct {
	HiddenDim    int
	EmbeddingDim int
	NumLayers    int
}

// checkpointTensor is one stored array: a shape, plus row-major data
// for weight tensors. Computation-graph entries carry only the shape.
type checkpointTensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data,omitempty"`
}

// checkpointGraphRecord mirrors the stored computation graph of the
// training run; only the tensor shapes are consumed here.
type checkpointGraphRecord struct {
	Feat checkpointTensor `json:"feat"`
	Pred checkpointTensor `json:"pred"`
}

type checkpoint struct {
	CG         checkpointGraphRecord       `json:"cg"`
	ModelState map[string]checkpointTensor `json:"model_state"`
}

// Load reads a serialized checkpoint, infers input feature width and
// class count from the stored computation-graph record, and restores a
// model with the architecture fixed by params. Any missing weight or
// shape mismatch aborts the load.
func Load(path string, params Params) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer file.Close()

	var ckpt checkpoint
	if err := json.NewDecoder(file).Decode(&ckpt); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	if len(ckpt.CG.Feat.Shape) != 3 {
		return nil, fmt.Errorf("checkpoint cg.feat has shape %v, expected rank 3", ckpt.CG.Feat.Shape)
	}
	if len(ckpt.CG.Pred.Shape) < 1 {
		return nil, fmt.Errorf("checkpoint cg.pred has empty shape")
	}
	if params.NumLayers < 2 {
		return nil, fmt.Errorf("model needs at least 2 layers, got %d", params.NumLayers)
	}

	inputDim := ckpt.CG.Feat.Shape[2]
	numClasses := ckpt.CG.Pred.Shape[len(ckpt.CG.Pred.Shape)-1]
	if inputDim <= 0 || numClasses <= 0 {
		return nil, fmt.Errorf("checkpoint reports input dim %d and %d classes", inputDim, numClasses)
	}

	model := &Model{
		InputDim:     inputDim,
		HiddenDim:    params.HiddenDim,
		EmbeddingDim: params.EmbeddingDim,
		NumClasses:   numClasses,
		NumLayers:    params.NumLayers,
		ConvWeights:  make([]*mat.Dense, params.NumLayers),
		ConvBiases:   make([][]float64, params.NumLayers),
	}

	layerDims := convLayerDims(inputDim, params)
	for l := 0; l < params.NumLayers; l++ {
		name := convLayerName(l, params.NumLayers)
		in, out := layerDims[l][0], layerDims[l][1]

		model.ConvWeights[l], err = ckpt.matrix(name+".weight", in, out)
		if err != nil {
			return nil, err
		}
		model.ConvBiases[l], err = ckpt.vector(name+".bias", out)
		if err != nil {
			return nil, err
		}
	}

	model.PredWeight, err = ckpt.matrix("pred.weight", params.EmbeddingDim, numClasses)
	if err != nil {
		return nil, err
	}
	model.PredBias, err = ckpt.vector("pred.bias", numClasses)
	if err != nil {
		return nil, err
	}

	return model, nil
}

// convLayerDims returns the (in, out) width of each conv layer.
func convLayerDims(inputDim int, params Params) [][2]int {
	dims := make([][2]int, params.NumLayers)
	for l := range dims {
		in, out := params.HiddenDim, params.HiddenDim
		if l == 0 {
			in = inputDim
		}
		if l == params.NumLayers-1 {
			out = params.EmbeddingDim
		}
		dims[l] = [2]int{in, out}
	}
	return dims
}

// convLayerName maps a layer index onto the checkpoint's naming scheme:
// conv_first, conv_block.0..conv_block.k, conv_last.
func convLayerName(l, numLayers int) string {
	switch {
	case l == 0:
		return "conv_first"
	case l == numLayers-1:
		return "conv_last"
	default:
		return fmt.Sprintf("conv_block.%d", l-1)
	}
}

func (c *checkpoint) matrix(name string, rows, cols int) (*mat.Dense, error) {
	tensor, ok := c.ModelState[name]
	if !ok {
		return nil, fmt.Errorf("checkpoint is missing weight %q", name)
	}
	if len(tensor.Shape) != 2 || tensor.Shape[0] != rows || tensor.Shape[1] != cols {
		return nil, fmt.Errorf("weight %q has shape %v, expected [%d %d]", name, tensor.Shape, rows, cols)
	}
	if len(tensor.Data) != rows*cols {
		return nil, fmt.Errorf("weight %q has %d values, expected %d", name, len(tensor.Data), rows*cols)
	}
	data := make([]float64, len(tensor.Data))
	copy(data, tensor.Data)
	return mat.NewDense(rows, cols, data), nil
}

func (c *checkpoint) vector(name string, length int) ([]float64, error) {
	tensor, ok := c.ModelState[name]
	if !ok {
		return nil, fmt.Errorf("checkpoint is missing weight %q", name)
	}
	if len(tensor.Shape) != 1 || tensor.Shape[0] != length {
		return nil, fmt.Errorf("weight %q has shape %v, expected [%d]", name, tensor.Shape, length)
	}
	if len(tensor.Data) != length {
		return nil, fmt.Errorf("weight %q has %d values, expected %d", name, len(tensor.Data), length)
	}
	data := make([]float64, length)
	copy(data, tensor.Data)
	return data, nil
}
