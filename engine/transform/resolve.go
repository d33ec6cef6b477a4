package transform

import (
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// resolveOne builds the candidate world transform of e, clamps its movement against the collider
// and commits it to the store as a local transform.
func resolveOne(store common.TransformStore, collider common.Collider, e common.Entity, u PendingUpdate) Result {
	res := Result{Entity: e}

	world, ok := store.WorldTransform(e)
	if !ok {
		res.Outcome = Skipped
		return res
	}
	translation, rotation, scale := common.Decompose(world)

	if u.RotationRelative {
		rotation = rotation.Mul(u.Rotation).Normalize()
	} else {
		rotation = u.Rotation.Normalize()
	}
	scale = scale.Mul(u.Scale)

	var delta mgl32.Vec3
	if u.TranslationRelative {
		delta = rotation.Rotate(u.Translation)
	} else {
		delta = u.Translation.Sub(translation)
	}
	res.Requested = delta

	candidate := common.Compose(translation.Add(delta), rotation, scale)
	if collider != nil {
		if box, ok := collider.Box(e); ok {
			res.Axes = collider.Test(e, box.Transform(candidate))
		}
	}

	switch len(res.Axes) {
	case 0:
		res.Outcome = Accepted
	case 1:
		axis := res.Axes[0].Normalize()
		delta = delta.Sub(axis.Mul(delta.Dot(axis)))
		candidate = common.Compose(translation.Add(delta), rotation, scale)
		res.Outcome = Slid
	default:
		delta = mgl32.Vec3{}
		candidate = common.Compose(translation, rotation, scale)
		res.Outcome = Blocked
	}
	res.Applied = delta

	local := candidate
	if parent, ok := store.Parent(e); ok {
		parentWorld, ok := store.WorldTransform(parent)
		if !ok {
			res.Outcome = Skipped
			return res
		}
		inv, ok := common.Invert4(parentWorld)
		if !ok {
			res.Outcome = Skipped
			return res
		}
		local = inv.Mul4(candidate)
	}
	if err := store.SetLocalTransform(e, local); err != nil {
		res.Outcome = Skipped
	}
	return res
}
