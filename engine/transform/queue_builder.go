package transform

import "go.uber.org/zap"

// QueueBuilderOption is a functional option for configuring a Queue.
type QueueBuilderOption func(*queue)

// WithLogger sets the logger dropped updates are reported to.
//
// Parameters:
//   - logger: the parent logger, named "transform"
//
// Returns:
//   - QueueBuilderOption: functional option to set the logger
func WithLogger(logger *zap.Logger) QueueBuilderOption {
	return func(q *queue) {
		if logger != nil {
			q.logger = logger.Named("transform")
		}
	}
}
