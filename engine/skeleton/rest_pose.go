package skeleton

import (
	"fmt"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// RestPose is the parent-relative transform that puts a joint back into its authored bind pose.
type RestPose struct {
	// Joint is the joint entity.
	Joint common.Entity

	// Index is the joint's position in the skin's joint list.
	Index int

	// Local is the rest transform relative to the joint's parent.
	Local mgl32.Mat4
}

// Resolve computes the rest-pose local transform of every joint in a skin.
//
// For each joint, localRest = inverse(parentModelSpace) * inverse(inverseBind), where parentModelSpace is the
// product of the already-resolved rest transforms of the joint's ancestors inside the skin. Joints may be listed
// in any order; parents are resolved before children with an explicit work stack. A parent outside the skin
// contributes an identity model-space transform.
//
// Parameters:
//   - joints: the joint entities of the skin
//   - inverseBind: one inverse-bind matrix per joint
//   - parents: the hierarchy the joints live in
//
// Returns:
//   - []RestPose: one entry per joint, in resolution order (parents first)
//   - error: ErrInvalidArgument for mismatched lengths, a singular matrix or a parent cycle
func Resolve(joints []common.Entity, inverseBind []mgl32.Mat4, parents common.TransformStore) ([]RestPose, error) {
	if len(joints) != len(inverseBind) {
		return nil, fmt.Errorf("skeleton: %d joints but %d inverse-bind matrices: %w", len(joints), len(inverseBind), common.ErrInvalidArgument)
	}

	index := make(map[common.Entity]int, len(joints))
	for i, j := range joints {
		index[j] = i
	}

	locals := make([]mgl32.Mat4, len(joints))
	completed := make(map[common.Entity]bool, len(joints))
	pending := make(map[common.Entity]bool, len(joints))
	order := make([]RestPose, 0, len(joints))

	stack := make([]common.Entity, 0, len(joints))
	for i := len(joints) - 1; i >= 0; i-- {
		stack = append(stack, joints[i])
	}

	for len(stack) > 0 {
		joint := stack[len(stack)-1]
		if completed[joint] {
			stack = stack[:len(stack)-1]
			continue
		}

		parent, hasParent := parents.Parent(joint)
		if _, inSkin := index[parent]; hasParent && inSkin && !completed[parent] {
			if pending[parent] {
				return nil, fmt.Errorf("skeleton: joint %d is its own ancestor: %w", parent, common.ErrInvalidArgument)
			}
			pending[joint] = true
			stack = append(stack, parent)
			continue
		}

		// Ascend through resolved ancestors to build the parent's model-space transform.
		model := mgl32.Ident4()
		for hasParent {
			pi, inSkin := index[parent]
			if !inSkin {
				break
			}
			model = locals[pi].Mul4(model)
			parent, hasParent = parents.Parent(parent)
		}

		bind, ok := common.Invert4(inverseBind[index[joint]])
		if !ok {
			return nil, fmt.Errorf("skeleton: inverse-bind matrix of joint %d is singular: %w", joint, common.ErrInvalidArgument)
		}
		inverseModel, ok := common.Invert4(model)
		if !ok {
			return nil, fmt.Errorf("skeleton: model-space transform above joint %d is singular: %w", joint, common.ErrInvalidArgument)
		}

		i := index[joint]
		locals[i] = inverseModel.Mul4(bind)
		completed[joint] = true
		delete(pending, joint)
		order = append(order, RestPose{Joint: joint, Index: i, Local: locals[i]})
		stack = stack[:len(stack)-1]
	}

	return order, nil
}

// ResolveSkin resolves the rest pose of one skin of an instance.
//
// Parameters:
//   - inst: the hierarchical instance
//   - skin: the skin index
//   - store: the transform store holding the joint hierarchy
//
// Returns:
//   - []RestPose: the rest poses in resolution order
//   - error: ErrNotFound for an unknown skin, or any error from Resolve
func ResolveSkin(inst common.Instance, skin int, store common.TransformStore) ([]RestPose, error) {
	joints, err := inst.Joints(skin)
	if err != nil {
		return nil, err
	}
	inverseBind, err := inst.InverseBindMatrices(skin)
	if err != nil {
		return nil, err
	}
	return Resolve(joints, inverseBind, store)
}

// Reset writes the rest pose of every skin of an instance into the transform store and recomputes its bone
// matrices once. Nothing is written if any skin fails to resolve.
func Reset(inst common.Instance, store common.TransformStore) error {
	var all []RestPose
	for skin := 0; skin < inst.SkinCount(); skin++ {
		poses, err := ResolveSkin(inst, skin, store)
		if err != nil {
			return fmt.Errorf("skeleton: skin %d: %w", skin, err)
		}
		all = append(all, poses...)
	}
	for _, p := range all {
		if err := store.SetLocalTransform(p.Joint, p.Local); err != nil {
			return fmt.Errorf("skeleton: joint %d: %w", p.Joint, err)
		}
	}
	inst.UpdateBoneMatrices()
	return nil
}

// ByIndex reorders resolved poses into skin joint order.
func ByIndex(poses []RestPose) []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(poses))
	for _, p := range poses {
		out[p.Index] = p.Local
	}
	return out
}
