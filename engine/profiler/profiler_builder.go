package profiler

import (
	"time"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"go.uber.org/zap"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger stats are written to, named "profiler".
func WithLogger(logger *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger.Named("profiler")
		}
	}
}

// WithClock sets the time source used to measure the reporting interval.
func WithClock(clock common.Clock) ProfilerBuilderOption {
	return func(p *Profiler) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithInterval sets how often stats are reported. Non-positive values keep the 1 second default.
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}
