package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-explain-service/pkg/dataset"
	"github.com/gilchrisn/graph-explain-service/pkg/explain"
	"github.com/gilchrisn/graph-explain-service/pkg/gcn"
)

var (
	configFile   string
	createOutput bool
	logLevel     string
	randomSeed   int64
)

var rootCmd = &cobra.Command{
	Use:   "graph-explain",
	Short: "Edge importance explanations for graph classification models",
	Long: `graph-explain computes per-edge importance matrices for the
predictions of a pre-trained graph classification model. Each graph in
the dataset directory yields one <graph_id>.npy artifact in the output
directory.`,
	SilenceUsage: true,
}

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity <dataset_path> <model_path> <output_path>",
	Short: "Run sensitivity analysis explanation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithModel(explain.Sensitivity, args[0], args[1], args[2])
	},
}

var occlusionCmd = &cobra.Command{
	Use:   "occlusion <dataset_path> <model_path> <output_path>",
	Short: "Run occlusion explanation",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithModel(explain.Occlusion, args[0], args[1], args[2])
	},
}

var randomCmd = &cobra.Command{
	Use:   "random <dataset_path> <output_path>",
	Short: "Run random baseline explanation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRandom(args[0], args[1])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&createOutput, "create-output", false, "create the output directory if it does not exist")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "seed", 0, "seed for the random baseline")

	rootCmd.AddCommand(sensitivityCmd, occlusionCmd, randomCmd)
}

func buildConfig() (*explain.Config, error) {
	config := explain.NewConfig()
	if configFile != "" {
		if err := config.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if createOutput {
		config.Set("output.auto_create", true)
	}
	if logLevel != "" {
		config.Set("logging.level", logLevel)
	}
	if randomSeed != 0 {
		config.Set("algorithm.random_seed", randomSeed)
	}
	return config, nil
}

func runWithModel(method explain.Method, datasetPath, modelPath, outputPath string) error {
	config, err := buildConfig()
	if err != nil {
		return err
	}
	logger := config.CreateLogger()

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	fmt.Printf("Found %d samples\n", ds.Len())

	model, err := gcn.Load(modelPath, gcn.Params{
		HiddenDim:    config.HiddenDim(),
		EmbeddingDim: config.EmbeddingDim(),
		NumLayers:    config.NumLayers(),
	})
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	logger.Info().
		Int("input_dim", model.InputDim).
		Int("num_classes", model.NumClasses).
		Msg("model loaded")

	engine := explain.NewEngine(config, model, consoleProgress(config))
	result, err := engine.Run(method, ds, outputPath)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Explained %d graphs in %d ms\n", result.Processed, result.RuntimeMS)
	return nil
}

func runRandom(datasetPath, outputPath string) error {
	config, err := buildConfig()
	if err != nil {
		return err
	}

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	fmt.Printf("Found %d samples\n", ds.Len())

	engine := explain.NewEngine(config, nil, consoleProgress(config))
	result, err := engine.Run(explain.Random, ds, outputPath)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Explained %d graphs in %d ms\n", result.Processed, result.RuntimeMS)
	return nil
}

// consoleProgress returns the \r-style console progress printer, or nil
// when progress reporting is disabled.
func consoleProgress(config *explain.Config) explain.ProgressCallback {
	if !config.EnableProgress() {
		return nil
	}
	return func(current, total int, message string) {
		if total > 0 {
			percentage := float64(current) / float64(total) * 100
			fmt.Printf("\rProgress: %.1f%% (%d/%d) - %s", percentage, current, total, message)
		} else {
			fmt.Printf("\r%s", message)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
