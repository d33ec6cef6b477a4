package engine

import (
	"github.com/RajatDBazaar/thermion-3d-360/engine/profiler"
	"github.com/RajatDBazaar/thermion-3d-360/engine/scene"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables tick statistics output.
//
// Parameters:
//   - enabled: if true, enables profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithScene registers a scene at the given key during engine construction.
//
// Parameters:
//   - key: the update order (lower updates first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithConfigWatch makes Run follow the configuration file at path, applying the tick rate, profiling switch
// and scene settings of every successful reload.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfigWatch(path string) EngineBuilderOption {
	return func(e *engine) {
		e.configPath = path
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger.Named("engine")
		}
	}
}
