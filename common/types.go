package common

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// Entity is an opaque handle to a node in the scene graph. The core never creates or destroys entities;
// it only operates on handles given to it by the host.
type Entity uint32

// TransformStore is the scene graph's transform storage.
// Local transforms are parent-relative; world transforms are the accumulated product up to the root.
type TransformStore interface {
	// LocalTransform returns the parent-relative transform of the entity.
	//
	// Parameters:
	//   - e: the entity to query
	//
	// Returns:
	//   - mgl32.Mat4: the local transform
	//   - bool: false if the entity has no transform
	LocalTransform(e Entity) (mgl32.Mat4, bool)

	// WorldTransform returns the accumulated transform of the entity.
	//
	// Parameters:
	//   - e: the entity to query
	//
	// Returns:
	//   - mgl32.Mat4: the world transform
	//   - bool: false if the entity has no transform
	WorldTransform(e Entity) (mgl32.Mat4, bool)

	// SetLocalTransform replaces the parent-relative transform of the entity.
	//
	// Parameters:
	//   - e: the entity to update
	//   - m: the new local transform
	//
	// Returns:
	//   - error: ErrNotFound if the entity has no transform
	SetLocalTransform(e Entity, m mgl32.Mat4) error

	// Parent returns the entity's parent.
	//
	// Returns:
	//   - Entity: the parent
	//   - bool: false for root entities
	Parent(e Entity) (Entity, bool)

	// Children returns the direct children of the entity.
	Children(e Entity) []Entity
}

// RenderableStore receives morph target weights for renderable entities.
type RenderableStore interface {
	// SetMorphWeights writes weights into the entity's morph weight array starting at firstIndex.
	//
	// Parameters:
	//   - e: the renderable entity
	//   - weights: the weights to write
	//   - firstIndex: the first morph target index to overwrite
	//
	// Returns:
	//   - error: ErrNotFound if the entity is not renderable, ErrInvalidArgument if the range is out of bounds
	SetMorphWeights(e Entity, weights []float32, firstIndex int) error
}

// Instance is a hierarchical (possibly skinned) asset instance. It exposes joints per skin,
// inverse-bind matrices and pre-authored clips, and knows how to pose its joints from them.
type Instance interface {
	// Root returns the root entity of the instance.
	Root() Entity

	// SkinCount returns the number of independent joint hierarchies.
	SkinCount() int

	// Joints returns the joint entities of a skin in skin order.
	//
	// Returns:
	//   - []Entity: the joints
	//   - error: ErrNotFound if the skin index is out of range
	Joints(skin int) ([]Entity, error)

	// InverseBindMatrices returns one inverse-bind matrix per joint of a skin.
	//
	// Returns:
	//   - []mgl32.Mat4: the matrices in joint order
	//   - error: ErrNotFound if the skin index is out of range
	InverseBindMatrices(skin int) ([]mgl32.Mat4, error)

	// ClipCount returns the number of clips authored on the instance.
	ClipCount() int

	// ClipName returns the name of a clip, or an empty string if out of range.
	ClipName(clip int) string

	// ClipDuration returns a clip's duration in seconds, or 0 if out of range.
	ClipDuration(clip int) float32

	// ApplyClip poses the joints animated by the clip at the given time in seconds.
	ApplyClip(clip int, t float32) error

	// ApplyCrossFade blends the pose of the source clip at t into the current pose.
	// A weight of 0 keeps the source pose, 1 keeps the current pose.
	ApplyCrossFade(source int, t, weight float32) error

	// UpdateBoneMatrices recomputes skinning matrices from the current joint transforms.
	UpdateBoneMatrices()
}

// Collider answers overlap queries for the transform resolver.
type Collider interface {
	// Box returns the entity's collidable bounding box in its local space.
	//
	// Returns:
	//   - AABB: the local bounding box
	//   - bool: false if the entity is not a movement-clamping collidable
	Box(e Entity) (AABB, bool)

	// Test returns the unique world axes on which box overlaps any other registered collidable.
	//
	// Parameters:
	//   - e: the entity being moved (excluded from the test)
	//   - box: the entity's box transformed into world space at its candidate transform
	//
	// Returns:
	//   - []mgl32.Vec3: unit world axes, empty when there is no overlap
	Test(e Entity, box AABB) []mgl32.Vec3
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
