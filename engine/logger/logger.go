package logger

import (
	"fmt"

	"github.com/RajatDBazaar/thermion-3d-360/engine/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger from the log section of the configuration.
//
// Parameters:
//   - cfg: the level and encoding; empty fields default to info and json
//   - outputs: output paths, defaulting to stderr
//
// Returns:
//   - *zap.Logger: the logger
//   - error: error if the level is unknown or the outputs cannot be opened
func New(cfg config.LogConfig, outputs ...string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logger: level %q: %w", cfg.Level, err)
		}
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zc := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	return zc.Build()
}
