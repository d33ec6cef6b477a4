package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration schema version Load accepts.
const CurrentVersion = 1

const (
	defaultTickRate          = 60
	defaultWorkerQueueSize   = 256
	defaultParallelThreshold = 32
	defaultEndEpsilon        = 0.001
	defaultClipFrameRate     = 60
	defaultLogLevel          = "info"
	defaultLogEncoding       = "json"
)

// Config is the runtime configuration of a scene and its driver loop.
type Config struct {
	Version int `yaml:"version"`

	// TickRate is the number of scene updates per second.
	TickRate float64 `yaml:"tick_rate"`

	// Workers is the maximum number of workers planning animation updates in parallel.
	Workers int `yaml:"workers"`

	// WorkerQueueSize is the task queue capacity of the worker pool.
	WorkerQueueSize int `yaml:"worker_queue_size"`

	// ParallelThreshold is the animated entity count from which planning runs on the worker pool.
	ParallelThreshold int `yaml:"parallel_threshold"`

	// EndEpsilon is how far before its end a finished clip is sampled, in seconds.
	EndEpsilon float32 `yaml:"end_epsilon"`

	// ClipFrameRate converts frame numbers to clip time for SetAnimationFrame.
	ClipFrameRate float32 `yaml:"clip_frame_rate"`

	// Profiling logs tick statistics once a second.
	Profiling bool `yaml:"profiling"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the logger's level and output encoding.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level"`

	// Encoding is "json" or "console".
	Encoding string `yaml:"encoding"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a YAML configuration file. Unset keys take their defaults.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Config: the configuration
//   - error: error if the file cannot be read or parsed, or holds an unsupported version or invalid value
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration document.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Validate rejects negative values. Zero values mean "use the default".
func (c *Config) Validate() error {
	switch {
	case c.TickRate < 0:
		return fmt.Errorf("tick_rate %v: %w", c.TickRate, common.ErrInvalidArgument)
	case c.Workers < 0:
		return fmt.Errorf("workers %d: %w", c.Workers, common.ErrInvalidArgument)
	case c.WorkerQueueSize < 0:
		return fmt.Errorf("worker_queue_size %d: %w", c.WorkerQueueSize, common.ErrInvalidArgument)
	case c.ParallelThreshold < 0:
		return fmt.Errorf("parallel_threshold %d: %w", c.ParallelThreshold, common.ErrInvalidArgument)
	case c.EndEpsilon < 0:
		return fmt.Errorf("end_epsilon %v: %w", c.EndEpsilon, common.ErrInvalidArgument)
	case c.ClipFrameRate < 0:
		return fmt.Errorf("clip_frame_rate %v: %w", c.ClipFrameRate, common.ErrInvalidArgument)
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.encoding %q: %w", c.Log.Encoding, common.ErrInvalidArgument)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.TickRate = common.Coalesce(c.TickRate, defaultTickRate)
	c.Workers = common.Coalesce(c.Workers, max(runtime.NumCPU()-1, 1))
	c.WorkerQueueSize = common.Coalesce(c.WorkerQueueSize, defaultWorkerQueueSize)
	c.ParallelThreshold = common.Coalesce(c.ParallelThreshold, defaultParallelThreshold)
	c.EndEpsilon = common.Coalesce(c.EndEpsilon, defaultEndEpsilon)
	c.ClipFrameRate = common.Coalesce(c.ClipFrameRate, defaultClipFrameRate)
	c.Log.Level = common.Coalesce(c.Log.Level, defaultLogLevel)
	c.Log.Encoding = common.Coalesce(c.Log.Encoding, defaultLogEncoding)
}
