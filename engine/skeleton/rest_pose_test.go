package skeleton

import (
	"testing"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/RajatDBazaar/thermion-3d-360/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

// chain builds root -> j0 -> j1 -> j2 with every joint bound one unit above its parent and rotated a
// quarter turn about Z, so the rest locals are all the same non-trivial transform.
func chain(t *testing.T) (game_object.Registry, []common.Entity, []mgl32.Mat4, mgl32.Mat4) {
	t.Helper()

	r := game_object.NewRegistry()
	root := r.Create(game_object.WithPosition(10, 0, 0))
	j0 := r.Create(game_object.WithParent(root))
	j1 := r.Create(game_object.WithParent(j0))
	j2 := r.Create(game_object.WithParent(j1))

	step := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(90)))
	bind := mgl32.Ident4()
	inverseBind := make([]mgl32.Mat4, 3)
	for i := range inverseBind {
		bind = bind.Mul4(step)
		inv, ok := common.Invert4(bind)
		require.True(t, ok)
		inverseBind[i] = inv
	}
	return r, []common.Entity{j0, j1, j2}, inverseBind, step
}

func TestResolve(t *testing.T) {
	t.Run("Parent first regardless of input order", func(t *testing.T) {
		r, joints, inverseBind, step := chain(t)

		shuffled := []common.Entity{joints[2], joints[0], joints[1]}
		shuffledIBM := []mgl32.Mat4{inverseBind[2], inverseBind[0], inverseBind[1]}

		poses, err := Resolve(shuffled, shuffledIBM, r)
		require.NoError(t, err)
		require.Len(t, poses, 3)

		require.Equal(t, joints[0], poses[0].Joint)
		require.Equal(t, joints[1], poses[1].Joint)
		require.Equal(t, joints[2], poses[2].Joint)

		seen := map[common.Entity]int{}
		for _, p := range poses {
			seen[p.Joint]++
			require.True(t, p.Local.ApproxEqualThreshold(step, 1e-5), "joint %d", p.Joint)
		}
		for _, j := range joints {
			require.Equal(t, 1, seen[j])
		}

		locals := ByIndex(poses)
		require.Equal(t, poses[0].Local, locals[1])
	})

	t.Run("Idempotent", func(t *testing.T) {
		r, joints, inverseBind, _ := chain(t)

		first, err := Resolve(joints, inverseBind, r)
		require.NoError(t, err)
		for _, p := range first {
			require.NoError(t, r.SetLocalTransform(p.Joint, p.Local))
		}
		second, err := Resolve(joints, inverseBind, r)
		require.NoError(t, err)

		for i := range first {
			require.Equal(t, first[i].Joint, second[i].Joint)
			require.True(t, first[i].Local.ApproxEqualThreshold(second[i].Local, 1e-6))
		}
	})

	t.Run("Length mismatch", func(t *testing.T) {
		r, joints, inverseBind, _ := chain(t)
		_, err := Resolve(joints, inverseBind[:2], r)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("Singular inverse bind", func(t *testing.T) {
		r, joints, inverseBind, _ := chain(t)
		inverseBind[1] = mgl32.Mat4{}
		_, err := Resolve(joints, inverseBind, r)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("Cycle", func(t *testing.T) {
		store := cyclicStore{1: 2, 2: 1}
		_, err := Resolve([]common.Entity{1, 2}, []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4()}, store)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
	})
}

func TestReset(t *testing.T) {
	r, joints, inverseBind, step := chain(t)
	for _, j := range joints {
		require.NoError(t, r.SetLocalTransform(j, mgl32.Scale3D(3, 3, 3)))
	}

	inst := &fakeInstance{joints: joints, inverseBind: inverseBind}
	require.NoError(t, Reset(inst, r))
	require.Equal(t, 1, inst.boneUpdates)

	for _, j := range joints {
		local, ok := r.LocalTransform(j)
		require.True(t, ok)
		require.True(t, local.ApproxEqualThreshold(step, 1e-5))
	}

	_, err := ResolveSkin(inst, 3, r)
	require.ErrorIs(t, err, common.ErrNotFound)
}

type cyclicStore map[common.Entity]common.Entity

func (c cyclicStore) LocalTransform(common.Entity) (mgl32.Mat4, bool) { return mgl32.Ident4(), true }
func (c cyclicStore) WorldTransform(common.Entity) (mgl32.Mat4, bool) { return mgl32.Ident4(), true }
func (c cyclicStore) SetLocalTransform(common.Entity, mgl32.Mat4) error { return nil }
func (c cyclicStore) Children(common.Entity) []common.Entity           { return nil }
func (c cyclicStore) Parent(e common.Entity) (common.Entity, bool) {
	p, ok := c[e]
	return p, ok
}

type fakeInstance struct {
	joints      []common.Entity
	inverseBind []mgl32.Mat4
	boneUpdates int
}

func (f *fakeInstance) Root() common.Entity { return 0 }
func (f *fakeInstance) SkinCount() int      { return 1 }
func (f *fakeInstance) Joints(skin int) ([]common.Entity, error) {
	if skin != 0 {
		return nil, common.ErrNotFound
	}
	return f.joints, nil
}
func (f *fakeInstance) InverseBindMatrices(skin int) ([]mgl32.Mat4, error) {
	if skin != 0 {
		return nil, common.ErrNotFound
	}
	return f.inverseBind, nil
}
func (f *fakeInstance) ClipCount() int                           { return 0 }
func (f *fakeInstance) ClipName(int) string                      { return "" }
func (f *fakeInstance) ClipDuration(int) float32                 { return 0 }
func (f *fakeInstance) ApplyClip(int, float32) error             { return nil }
func (f *fakeInstance) ApplyCrossFade(int, float32, float32) error { return nil }
func (f *fakeInstance) UpdateBoneMatrices()                      { f.boneUpdates++ }
