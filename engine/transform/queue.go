package transform

import (
	"fmt"
	"sort"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

type queue struct {
	pending map[common.Entity]PendingUpdate
	logger  *zap.Logger
}

// Queue collects transform requests per entity and resolves them against the collision collaborator once a frame.
//
// Queue is not safe for concurrent use; the owning scene serializes every call behind its lock.
type Queue interface {
	// EnqueuePosition sets the translation field of the entity's pending update.
	//
	// Parameters:
	//   - e: the entity to move
	//   - x, y, z: the offset or position
	//   - relative: move by an offset in the entity's orientation instead of to a world position
	EnqueuePosition(e common.Entity, x, y, z float32, relative bool)

	// EnqueueRotation sets the rotation field of the entity's pending update.
	// A non-zero rads is an angle around the axis (x, y, z); otherwise (x, y, z, w) is a quaternion.
	//
	// Parameters:
	//   - e: the entity to rotate
	//   - rads: the axis-angle angle, or 0 for a quaternion
	//   - x, y, z, w: the axis or quaternion
	//   - relative: compose onto the current rotation instead of replacing it
	EnqueueRotation(e common.Entity, rads, x, y, z, w float32, relative bool)

	// EnqueueScale sets the uniform scale multiplier of the entity's pending update.
	//
	// Returns:
	//   - error: ErrInvalidArgument for a non-positive factor
	EnqueueScale(e common.Entity, factor float32) error

	// Pending returns the entity's merged update.
	//
	// Returns:
	//   - PendingUpdate: the update
	//   - bool: false if nothing is queued for the entity
	Pending(e common.Entity) (PendingUpdate, bool)

	// Len returns the number of entities with a pending update.
	Len() int

	// Drop discards the entity's pending update.
	Drop(e common.Entity)

	// Resolve commits every pending update, clamping movement against the collider, and empties the queue.
	// Entities are resolved in ascending order.
	//
	// Parameters:
	//   - store: the transform store to read and write
	//   - collider: the collision collaborator, may be nil
	//
	// Returns:
	//   - []Result: one result per resolved entity
	Resolve(store common.TransformStore, collider common.Collider) []Result
}

var _ Queue = &queue{}

// NewQueue creates an empty Queue.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Queue: the new queue
func NewQueue(options ...QueueBuilderOption) Queue {
	q := &queue{
		pending: make(map[common.Entity]PendingUpdate),
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		opt(q)
	}
	return q
}

func (q *queue) entry(e common.Entity) PendingUpdate {
	if u, ok := q.pending[e]; ok {
		return u
	}
	return DefaultUpdate()
}

func (q *queue) EnqueuePosition(e common.Entity, x, y, z float32, relative bool) {
	u := q.entry(e)
	u.Translation = mgl32.Vec3{x, y, z}
	u.TranslationRelative = relative
	q.pending[e] = u
}

func (q *queue) EnqueueRotation(e common.Entity, rads, x, y, z, w float32, relative bool) {
	u := q.entry(e)
	u.Rotation = common.AxisAngleOrQuat(rads, x, y, z, w)
	u.RotationRelative = relative
	q.pending[e] = u
}

func (q *queue) EnqueueScale(e common.Entity, factor float32) error {
	if !(factor > 0) {
		return fmt.Errorf("transform: scale factor %v: %w", factor, common.ErrInvalidArgument)
	}
	u := q.entry(e)
	u.Scale = factor
	q.pending[e] = u
	return nil
}

func (q *queue) Pending(e common.Entity) (PendingUpdate, bool) {
	u, ok := q.pending[e]
	return u, ok
}

func (q *queue) Len() int {
	return len(q.pending)
}

func (q *queue) Drop(e common.Entity) {
	delete(q.pending, e)
}

func (q *queue) Resolve(store common.TransformStore, collider common.Collider) []Result {
	if len(q.pending) == 0 {
		return nil
	}
	entities := make([]common.Entity, 0, len(q.pending))
	for e := range q.pending {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	results := make([]Result, 0, len(entities))
	for _, e := range entities {
		r := resolveOne(store, collider, e, q.pending[e])
		if r.Outcome == Skipped {
			q.logger.Warn("transform update dropped", zap.Uint32("entity", uint32(e)))
		}
		results = append(results, r)
	}
	clear(q.pending)
	return results
}
