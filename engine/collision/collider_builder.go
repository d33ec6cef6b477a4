package collision

import "go.uber.org/zap"

// ColliderBuilderOption is a functional option for configuring a Collider.
type ColliderBuilderOption func(*collider)

// WithLogger sets the collider's logger.
//
// Parameters:
//   - logger: the parent logger, named "collision"
//
// Returns:
//   - ColliderBuilderOption: functional option to set the logger
func WithLogger(logger *zap.Logger) ColliderBuilderOption {
	return func(c *collider) {
		if logger != nil {
			c.logger = logger.Named("collision")
		}
	}
}

// CollidableOption is a functional option for a single registered collidable.
type CollidableOption func(*collidable)

// WithCallback sets the function TestAll invokes when the collidable overlaps another.
func WithCallback(cb Callback) CollidableOption {
	return func(c *collidable) {
		c.callback = cb
	}
}

// WithAffectsTransform sets whether the collidable clamps its own queued movement. Defaults to true.
// A collidable that does not affect its transform still blocks others.
func WithAffectsTransform(affects bool) CollidableOption {
	return func(c *collidable) {
		c.affectsTransform = affects
	}
}
