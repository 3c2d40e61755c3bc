package explain

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/graph-explain-service/pkg/dataset"
	"github.com/gilchrisn/graph-explain-service/pkg/gcn"
)

// Method selects one of the explanation strategies.
type Method string

const (
	Sensitivity Method = "sensitivity"
	Occlusion   Method = "occlusion"
	Random      Method = "random"
)

// RequiresModel reports whether the method needs a loaded model.
func (m Method) RequiresModel() bool { return m != Random }

// ProgressCallback reports per-graph progress during a run
type ProgressCallback func(current, total int, message string)

// Result summarizes a completed explanation run.
type Result struct {
	Method    Method `json:"method"`
	Processed int    `json:"processed"`
	RuntimeMS int64  `json:"runtime_ms"`
	OutputDir string `json:"output_dir"`
}

// Engine runs one explanation strategy over every graph of a dataset
// and persists one importance matrix per graph.
type Engine struct {
	config     *Config
	model      *gcn.Model
	logger     zerolog.Logger
	progressCb ProgressCallback
}

// NewEngine creates an explanation engine. The model may be nil for
// methods that do not consult it.
func NewEngine(config *Config, model *gcn.Model, progressCb ProgressCallback) *Engine {
	return &Engine{
		config:     config,
		model:      model,
		logger:     config.CreateLogger(),
		progressCb: progressCb,
	}
}

// Run explains every graph in the dataset with the chosen method,
// writing <graph_id>.npy files into outputPath. Any per-graph failure
// aborts the whole run.
func (e *Engine) Run(method Method, ds *dataset.Dataset, outputPath string) (*Result, error) {
	start := time.Now()

	if method.RequiresModel() && e.model == nil {
		return nil, fmt.Errorf("method %q requires a model", method)
	}
	if err := e.ensureOutputDir(outputPath); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(e.config.RandomSeed()))

	ids := ds.IDs()
	for i, id := range ids {
		graph := ds.Graphs[id]
		label, ok := ds.Labels[id]
		if !ok {
			return nil, fmt.Errorf("graph %s has no label", id)
		}

		masked, err := e.explain(method, graph, label, rng)
		if err != nil {
			return nil, fmt.Errorf("explanation failed for graph %s: %w", id, err)
		}

		if err := SaveImportanceMatrix(filepath.Join(outputPath, id+".npy"), masked); err != nil {
			return nil, fmt.Errorf("failed to save result for graph %s: %w", id, err)
		}

		e.reportProgress(i+1, len(ids), fmt.Sprintf("explained %s", id))
	}

	result := &Result{
		Method:    method,
		Processed: len(ids),
		RuntimeMS: time.Since(start).Milliseconds(),
		OutputDir: outputPath,
	}

	e.logger.Info().
		Str("method", string(method)).
		Int("processed", result.Processed).
		Int64("runtime_ms", result.RuntimeMS).
		Msg("explanation run complete")

	return result, nil
}

// explain dispatches a single graph to the chosen strategy.
func (e *Engine) explain(method Method, g *dataset.Graph, label int, rng *rand.Rand) (*mat.Dense, error) {
	switch method {
	case Sensitivity:
		return e.SensitivityExplanation(g, label)
	case Occlusion:
		return e.OcclusionExplanation(g, label)
	case Random:
		return e.RandomExplanation(g, rng)
	default:
		return nil, fmt.Errorf("unknown explanation method %q", method)
	}
}

// ensureOutputDir checks the output directory, creating it only when
// output.auto_create is enabled.
func (e *Engine) ensureOutputDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if !e.config.AutoCreate() {
			return fmt.Errorf("output path %s does not exist (enable output.auto_create or pass --create-output)", path)
		}
		e.logger.Info().Str("path", path).Msg("creating output directory")
		return os.MkdirAll(path, 0755)
	}
	if err != nil {
		return fmt.Errorf("failed to stat output path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", path)
	}
	return nil
}

// reportProgress calls the progress callback if one is provided
func (e *Engine) reportProgress(current, total int, message string) {
	if e.progressCb != nil && e.config.EnableProgress() {
		e.progressCb(current, total, message)
	}
}
