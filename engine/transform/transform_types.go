package transform

import (
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// PendingUpdate is the merged transform request of one entity, applied at the next Resolve.
type PendingUpdate struct {
	// Translation is an offset in the entity's orientation when TranslationRelative, otherwise a world position.
	Translation         mgl32.Vec3
	TranslationRelative bool

	// Rotation is composed onto the current rotation when RotationRelative, otherwise it replaces it.
	Rotation         mgl32.Quat
	RotationRelative bool

	// Scale multiplies the current scale uniformly.
	Scale float32
}

// DefaultUpdate is the record an entity starts with: no movement, no rotation, unit scale.
func DefaultUpdate() PendingUpdate {
	return PendingUpdate{
		TranslationRelative: true,
		Rotation:            mgl32.QuatIdent(),
		RotationRelative:    true,
		Scale:               1,
	}
}

// Outcome classifies how a pending update was committed.
type Outcome int

const (
	// Accepted means the candidate transform was committed unchanged.
	Accepted Outcome = iota

	// Slid means one colliding axis was removed from the movement.
	Slid

	// Blocked means the movement was dropped and only rotation and scale were committed.
	Blocked

	// Skipped means nothing was committed because the entity has no transform.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Slid:
		return "slid"
	case Blocked:
		return "blocked"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Result reports what Resolve did for one entity.
type Result struct {
	Entity common.Entity

	// Requested is the world-space movement the update asked for.
	Requested mgl32.Vec3

	// Applied is the world-space movement that was committed.
	Applied mgl32.Vec3

	// Axes are the colliding world axes reported for the candidate transform.
	Axes []mgl32.Vec3

	Outcome Outcome
}
