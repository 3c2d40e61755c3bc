package explain

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config manages explanation pipeline configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Tensor capacity parameters. The model consumes fixed-size dense
	// tensors; graphs beyond this capacity are rejected, not truncated.
	v.SetDefault("tensor.max_nodes", 100)
	v.SetDefault("tensor.num_features", 10)

	// Model architecture parameters
	v.SetDefault("model.hidden_dim", 20)
	v.SetDefault("model.embedding_dim", 20)
	v.SetDefault("model.num_layers", 3)

	// Algorithm parameters
	v.SetDefault("algorithm.random_seed", time.Now().UnixNano())

	// Output parameters
	v.SetDefault("output.auto_create", false)

	// Logging parameters
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.enable_progress", true)

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for tensor parameters
func (c *Config) MaxNodes() int    { return c.v.GetInt("tensor.max_nodes") }
func (c *Config) NumFeatures() int { return c.v.GetInt("tensor.num_features") }

// Getters for model architecture parameters
func (c *Config) HiddenDim() int    { return c.v.GetInt("model.hidden_dim") }
func (c *Config) EmbeddingDim() int { return c.v.GetInt("model.embedding_dim") }
func (c *Config) NumLayers() int    { return c.v.GetInt("model.num_layers") }

func (c *Config) RandomSeed() int64 { return c.v.GetInt64("algorithm.random_seed") }

func (c *Config) AutoCreate() bool { return c.v.GetBool("output.auto_create") }

func (c *Config) LogLevel() string     { return c.v.GetString("logging.level") }
func (c *Config) EnableProgress() bool { return c.v.GetBool("logging.enable_progress") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "explain").Logger()
}
