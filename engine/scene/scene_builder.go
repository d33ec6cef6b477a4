package scene

import (
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/RajatDBazaar/thermion-3d-360/engine/collision"
	"github.com/RajatDBazaar/thermion-3d-360/engine/config"
	"github.com/RajatDBazaar/thermion-3d-360/engine/profiler"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithClock sets the time source tracks are started and advanced with. Defaults to the system clock.
//
// Parameters:
//   - clock: the clock
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithClock(clock common.Clock) SceneBuilderOption {
	return func(s *scene) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the scene's logger. Components log through named children of it.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger.Named("scene")
		}
	}
}

// WithWorkers sets the number of workers planning animation updates in parallel.
// Defaults to runtime.NumCPU()-1. Zero plans every tick serially without a pool.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.workers = max(n, 0)
	}
}

// WithWorkerQueueSize sets the task queue capacity of the worker pool.
func WithWorkerQueueSize(n int) SceneBuilderOption {
	return func(s *scene) {
		if n > 0 {
			s.workerQueueSize = n
		}
	}
}

// WithParallelThreshold sets the animated entity count from which the tick plans on the worker pool.
func WithParallelThreshold(n int) SceneBuilderOption {
	return func(s *scene) {
		if n > 0 {
			s.parallelThreshold = n
		}
	}
}

// WithEndEpsilon sets how far before its end a finished clip is sampled, in seconds.
func WithEndEpsilon(epsilon float32) SceneBuilderOption {
	return func(s *scene) {
		if epsilon >= 0 {
			s.endEpsilon = epsilon
		}
	}
}

// WithClipFrameRate sets the frame rate SetAnimationFrame converts frame numbers with.
func WithClipFrameRate(fps float32) SceneBuilderOption {
	return func(s *scene) {
		if fps > 0 {
			s.clipFrameRate = fps
		}
	}
}

// WithCollider replaces the default collision collaborator.
//
// Parameters:
//   - c: the collider, reading world transforms from the scene's transform store
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCollider(c collision.Collider) SceneBuilderOption {
	return func(s *scene) {
		s.collider = c
	}
}

// WithProfiler reports the cost of every Update to p.
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.profiler = p
	}
}

// WithInstances registers hierarchical instances during construction.
//
// Parameters:
//   - instances: the instances, keyed by their root entity
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithInstances(instances ...common.Instance) SceneBuilderOption {
	return func(s *scene) {
		for _, inst := range instances {
			s.instances[inst.Root()] = inst
		}
	}
}

// WithConfig applies the worker, tick and clip settings of a loaded configuration.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithConfig(cfg *config.Config) SceneBuilderOption {
	return func(s *scene) {
		if cfg == nil {
			return
		}
		WithWorkers(cfg.Workers)(s)
		WithWorkerQueueSize(cfg.WorkerQueueSize)(s)
		WithParallelThreshold(cfg.ParallelThreshold)(s)
		WithEndEpsilon(cfg.EndEpsilon)(s)
		WithClipFrameRate(cfg.ClipFrameRate)(s)
	}
}
