package game_object

import (
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithName sets the debug name of the GameObject.
//
// Parameters:
//   - name: the name to assign
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the name
func WithName(name string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.name = name
	}
}

// WithEnabled sets whether the GameObject is enabled.
//
// Parameters:
//   - enabled: true to enable the object
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithParent attaches the GameObject under an existing parent. The registry links the parent's child list
// when the object is created; an unknown parent leaves the object at the root.
//
// Parameters:
//   - parent: the parent entity
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the parent
func WithParent(parent common.Entity) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.parent = parent
		obj.hasParent = true
	}
}

// WithLocalTransform sets the initial parent-relative transform.
//
// Parameters:
//   - m: the local transform
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the transform
func WithLocalTransform(m mgl32.Mat4) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.local = m
	}
}

// WithPosition sets the initial local transform to a pure translation.
//
// Parameters:
//   - x, y, z: the translation
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.local = mgl32.Translate3D(x, y, z)
	}
}

// WithMorphTargets makes the GameObject renderable with the given number of morph targets, all weighted 0.
//
// Parameters:
//   - count: the number of morph targets
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the morph target count
func WithMorphTargets(count int) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.morphWeights = make([]float32, max(count, 0))
	}
}
