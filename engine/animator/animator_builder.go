package animator

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLogger is an option builder that sets the logger track failures and lifecycle events are reported to.
// A nil logger keeps the default no-op logger.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger option to an animator
func WithLogger(logger *zap.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger.Named("animator")
		}
	}
}

// WithWorkerPool is an option builder that plans components in parallel on pool during Update once at least
// threshold components exist. The pool is borrowed; the caller stops it.
//
// Parameters:
//   - pool: the worker pool, nil to always plan serially
//   - threshold: the minimum component count for parallel planning (values < 1 are treated as 1)
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the pool option to an animator
func WithWorkerPool(pool worker.DynamicWorkerPool, threshold int) AnimatorBuilderOption {
	return func(a *animator) {
		a.planPool = pool
		a.parallelThreshold = max(threshold, 1)
	}
}

// WithEndEpsilon is an option builder that sets how far before its end a finished non-looping clip is sampled.
// Negative values are treated as 0.
//
// Parameters:
//   - epsilon: the offset in seconds
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the epsilon option to an animator
func WithEndEpsilon(epsilon float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.endEpsilon = max(epsilon, 0)
	}
}
