package model

import (
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Skin Types ---

// Skin is one joint hierarchy of a model.
type Skin struct {
	// Name is the skin's identifier (for debugging).
	Name string

	// Joints are the joint entities in skin order.
	Joints []common.Entity

	// InverseBindMatrices transform from model space to joint space at bind pose, one per joint.
	InverseBindMatrices []mgl32.Mat4
}

// --- Animation Types ---

// AnimationClip represents a single animation (walk, run, attack, etc.).
type AnimationClip struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the animation in seconds.
	Duration float32

	// Channels contains animation data for each animated node.
	Channels []AnimationChannel
}

// AnimationChannel contains keyframe data for a single node.
// Components without keys are left as they are when the channel is applied.
type AnimationChannel struct {
	// Target is the node entity this channel animates.
	Target common.Entity

	// PositionKeys are keyframes for translation, sorted by time.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation, sorted by time.
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale, sorted by time.
	ScaleKeys []VectorKeyframe
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a quaternion rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in seconds.
	Time float32

	// Value is the rotation at this keyframe.
	Value mgl32.Quat
}

// pose is a decomposed local transform.
type pose struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3
}

func decompose(m mgl32.Mat4) pose {
	t, r, s := common.Decompose(m)
	return pose{translation: t, rotation: r, scale: s}
}

func (p pose) matrix() mgl32.Mat4 {
	return common.Compose(p.translation, p.rotation, p.scale)
}
