package animator

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/RajatDBazaar/thermion-3d-360/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(s float64) time.Time {
	return t0.Add(time.Duration(s * float64(time.Second)))
}

type call struct {
	kind   string
	clip   int
	t      float32
	weight float32
}

// recordingInstance is an Instance that records the clip calls made on it.
type recordingInstance struct {
	root        common.Entity
	durations   []float32
	joints      []common.Entity
	calls       []call
	boneUpdates int
}

func (r *recordingInstance) Root() common.Entity { return r.root }
func (r *recordingInstance) SkinCount() int      { return 1 }
func (r *recordingInstance) Joints(skin int) ([]common.Entity, error) {
	if skin != 0 {
		return nil, common.ErrNotFound
	}
	return r.joints, nil
}
func (r *recordingInstance) InverseBindMatrices(skin int) ([]mgl32.Mat4, error) {
	if skin != 0 {
		return nil, common.ErrNotFound
	}
	out := make([]mgl32.Mat4, len(r.joints))
	for i := range out {
		out[i] = mgl32.Ident4()
	}
	return out, nil
}
func (r *recordingInstance) ClipCount() int      { return len(r.durations) }
func (r *recordingInstance) ClipName(int) string { return "" }
func (r *recordingInstance) ClipDuration(clip int) float32 {
	if clip < 0 || clip >= len(r.durations) {
		return 0
	}
	return r.durations[clip]
}
func (r *recordingInstance) ApplyClip(clip int, t float32) error {
	r.calls = append(r.calls, call{kind: "apply", clip: clip, t: t})
	return nil
}
func (r *recordingInstance) ApplyCrossFade(clip int, t, weight float32) error {
	r.calls = append(r.calls, call{kind: "fade", clip: clip, t: t, weight: weight})
	return nil
}
func (r *recordingInstance) UpdateBoneMatrices() { r.boneUpdates++ }

func (r *recordingInstance) reset() {
	r.calls = nil
	r.boneUpdates = 0
}

func newTestAnimator(t *testing.T, options ...AnimatorBuilderOption) (Animator, game_object.Registry, *recordingInstance) {
	t.Helper()

	reg := game_object.NewRegistry()
	root := reg.Create(game_object.WithName("root"))
	joint := reg.Create(game_object.WithParent(root))
	inst := &recordingInstance{root: root, durations: []float32{2.0, 1.0, 3.0}, joints: []common.Entity{joint}}

	a := NewAnimator(reg, reg, options...)
	a.AddComponent(InstanceTarget(inst))
	return a, reg, inst
}

func TestComponentStore(t *testing.T) {
	t.Run("Add and remove are idempotent", func(t *testing.T) {
		a, reg, inst := newTestAnimator(t)
		a.AddComponent(InstanceTarget(inst))
		require.Equal(t, []common.Entity{inst.root}, a.Entities())

		plain := reg.Create()
		a.AddComponent(EntityTarget(plain))
		target, ok := a.Target(plain)
		require.True(t, ok)
		require.Equal(t, TargetEntity, target.Kind())
		_, isInstance := target.Instance()
		require.False(t, isInstance)

		require.True(t, a.RemoveComponent(plain))
		require.False(t, a.RemoveComponent(plain))
		require.False(t, a.HasComponent(plain))
	})

	t.Run("Plain component upgrades to an instance", func(t *testing.T) {
		a, reg, inst := newTestAnimator(t)
		mesh := reg.Create(game_object.WithMorphTargets(1))
		meshInst := &recordingInstance{root: mesh, durations: []float32{1}, joints: inst.joints}
		require.NoError(t, a.AddMorphTrack(mesh, MorphOptions{Weights: []float32{1}, Indices: []int{0}, FrameCount: 1, FrameLengthMs: 100}, t0))
		require.ErrorIs(t, a.PlaySkeletalClip(mesh, 0, PlayOptions{}, t0), common.ErrPreconditionFailed)

		a.AddComponent(InstanceTarget(meshInst))
		target, _ := a.Target(mesh)
		require.Equal(t, TargetInstance, target.Kind())
		require.Len(t, a.MorphTracks(mesh), 1)
		require.NoError(t, a.PlaySkeletalClip(mesh, 0, PlayOptions{}, t0))

		// an instance component is never downgraded
		a.AddComponent(EntityTarget(inst.root))
		target, _ = a.Target(inst.root)
		require.Equal(t, TargetInstance, target.Kind())
	})

	t.Run("Play validation", func(t *testing.T) {
		a, reg, inst := newTestAnimator(t)
		plain := reg.Create()
		a.AddComponent(EntityTarget(plain))

		require.ErrorIs(t, a.PlaySkeletalClip(inst.root, -1, PlayOptions{}, t0), common.ErrInvalidArgument)
		require.ErrorIs(t, a.PlaySkeletalClip(inst.root, 7, PlayOptions{}, t0), common.ErrNotFound)
		require.ErrorIs(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{Crossfade: 0.5}, t0), common.ErrInvalidArgument)
		require.ErrorIs(t, a.PlaySkeletalClip(plain, 0, PlayOptions{}, t0), common.ErrPreconditionFailed)
		require.ErrorIs(t, a.PlaySkeletalClip(999, 0, PlayOptions{}, t0), common.ErrPreconditionFailed)
		require.Empty(t, a.ClipTracks(inst.root))
	})

	t.Run("Duplicate play is a no-op", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 1, PlayOptions{Loop: true}, t0))
		require.NoError(t, a.PlaySkeletalClip(inst.root, 1, PlayOptions{}, at(0.5)))

		tracks := a.ClipTracks(inst.root)
		require.Len(t, tracks, 1)
		require.True(t, tracks[0].Loop)
		require.Equal(t, t0, tracks[0].Start)
		require.Equal(t, float32(1.0), tracks[0].Duration)
	})

	t.Run("Replace captures fade source", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{}, t0))
		require.NoError(t, a.PlaySkeletalClip(inst.root, 2, PlayOptions{ReplaceActive: true, Crossfade: 0.5}, at(1)))

		tracks := a.ClipTracks(inst.root)
		require.Len(t, tracks, 1)
		require.Equal(t, 2, tracks[0].ClipIndex)

		fade, ok := a.Fade(inst.root)
		require.True(t, ok)
		require.Equal(t, 0, fade.FromClip)
		require.Equal(t, float32(0.5), fade.Duration)
		require.InDelta(t, 1.0, fade.FromElapsedAtSwitch, 1e-6)
	})

	t.Run("Replace with nothing active clears fade", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{ReplaceActive: true, Crossfade: 1}, t0))
		fade, _ := a.Fade(inst.root)
		require.False(t, fade.Active())
	})

	t.Run("Start offset", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{StartOffset: 0.25}, at(1)))
		require.Equal(t, at(0.75), a.ClipTracks(inst.root)[0].Start)
	})

	t.Run("Stop removes matching tracks", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{}, t0))
		require.NoError(t, a.PlaySkeletalClip(inst.root, 1, PlayOptions{}, t0))

		require.NoError(t, a.StopSkeletalClip(inst.root, 0))
		require.NoError(t, a.StopSkeletalClip(inst.root, 2))
		tracks := a.ClipTracks(inst.root)
		require.Len(t, tracks, 1)
		require.Equal(t, 1, tracks[0].ClipIndex)

		require.ErrorIs(t, a.StopSkeletalClip(999, 0), common.ErrPreconditionFailed)
	})

	t.Run("Morph validation", func(t *testing.T) {
		a, reg, _ := newTestAnimator(t)
		mesh := reg.Create(game_object.WithMorphTargets(2))

		err := a.AddMorphTrack(mesh, MorphOptions{Weights: []float32{0, 1, 0.5}, Indices: []int{0, 1}, FrameCount: 2, FrameLengthMs: 500}, t0)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
		err = a.AddMorphTrack(mesh, MorphOptions{Weights: []float32{0, 1}, Indices: []int{0, 1}, FrameCount: 1}, t0)
		require.ErrorIs(t, err, common.ErrInvalidArgument)
		require.False(t, a.HasComponent(mesh))

		require.NoError(t, a.AddMorphTrack(mesh, MorphOptions{Weights: []float32{0, 1}, Indices: []int{0, 1}, FrameCount: 1, FrameLengthMs: 100}, t0))
		require.True(t, a.HasComponent(mesh))
		require.Len(t, a.MorphTracks(mesh), 1)
		require.InDelta(t, 0.1, a.MorphTracks(mesh)[0].Duration, 1e-6)

		require.NoError(t, a.ClearMorphTracks(mesh))
		require.Empty(t, a.MorphTracks(mesh))
		require.ErrorIs(t, a.ClearMorphTracks(999), common.ErrPreconditionFailed)
	})

	t.Run("Bone track validation", func(t *testing.T) {
		a, reg, inst := newTestAnimator(t)
		plain := reg.Create()
		a.AddComponent(EntityTarget(plain))
		frames := []mgl32.Mat4{mgl32.Ident4()}

		require.ErrorIs(t, a.AddBoneFrameTrack(999, BoneFrameOptions{Frames: frames, FrameLengthMs: 10}, t0), common.ErrPreconditionFailed)
		require.ErrorIs(t, a.AddBoneFrameTrack(plain, BoneFrameOptions{Frames: frames, FrameLengthMs: 10}, t0), common.ErrPreconditionFailed)
		require.ErrorIs(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{FrameLengthMs: 10}, t0), common.ErrInvalidArgument)
		require.ErrorIs(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{Frames: frames}, t0), common.ErrInvalidArgument)
		require.ErrorIs(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{Frames: frames, FrameLengthMs: 10, BoneIndex: 3}, t0), common.ErrNotFound)
		require.ErrorIs(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{Frames: frames, FrameLengthMs: 10, SkinIndex: 1}, t0), common.ErrNotFound)

		require.NoError(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{Frames: frames, FrameLengthMs: 10, MaxDelta: 2}, t0))
		tracks := a.BoneTracks(inst.root)
		require.Len(t, tracks, 1)
		require.Equal(t, float32(2), tracks[0].MaxDelta)
		require.InDelta(t, 0.01, tracks[0].Duration, 1e-6)
	})
}

func TestUpdateSkeletalClips(t *testing.T) {
	t.Run("Non-looping clip retires at its end", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{}, t0))

		a.Update(at(1))
		require.Equal(t, []call{{kind: "apply", clip: 0, t: 1}}, inst.calls)
		require.Equal(t, 1, inst.boneUpdates)

		inst.reset()
		res := a.Update(at(2.1))
		require.Empty(t, a.ClipTracks(inst.root))
		require.Equal(t, 1, res.Retired)
		require.Len(t, inst.calls, 1)
		require.InDelta(t, 2.0-DefaultEndEpsilon, inst.calls[0].t, 1e-6)
		require.Equal(t, 2, inst.boneUpdates)

		inst.reset()
		a.Update(at(3))
		require.Empty(t, inst.calls)
		require.Empty(t, a.ClipTracks(inst.root))
	})

	t.Run("Looping clip restarts", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 1, PlayOptions{Loop: true}, t0))

		res := a.Update(at(1.5))
		require.Equal(t, 1, res.Restarted)
		require.InDelta(t, 0.5, inst.calls[0].t, 1e-5)

		tracks := a.ClipTracks(inst.root)
		require.Len(t, tracks, 1)
		require.Equal(t, at(1.5), tracks[0].Start)

		inst.reset()
		a.Update(at(1.6))
		require.InDelta(t, 0.1, inst.calls[0].t, 1e-5)
	})

	t.Run("Cross-fade blends the fade source", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{}, t0))
		require.NoError(t, a.PlaySkeletalClip(inst.root, 2, PlayOptions{ReplaceActive: true, Crossfade: 0.5}, at(1)))

		a.Update(at(1.25))
		require.Len(t, inst.calls, 2)
		assert.Equal(t, "apply", inst.calls[0].kind)
		assert.Equal(t, 2, inst.calls[0].clip)
		assert.Equal(t, "fade", inst.calls[1].kind)
		assert.Equal(t, 0, inst.calls[1].clip)
		assert.InDelta(t, 1.25, inst.calls[1].t, 1e-5)
		assert.InDelta(t, 0.5, inst.calls[1].weight, 1e-5)

		inst.reset()
		a.Update(at(1.6))
		require.Len(t, inst.calls, 1)
		fade, _ := a.Fade(inst.root)
		require.False(t, fade.Active())
	})

	t.Run("Finishing clip clears fade", func(t *testing.T) {
		a, _, inst := newTestAnimator(t)
		require.NoError(t, a.PlaySkeletalClip(inst.root, 0, PlayOptions{}, t0))
		require.NoError(t, a.PlaySkeletalClip(inst.root, 1, PlayOptions{ReplaceActive: true, Crossfade: 5}, t0))

		a.Update(at(1.5))
		fade, _ := a.Fade(inst.root)
		require.False(t, fade.Active())
		require.Empty(t, a.ClipTracks(inst.root))
	})
}

func TestCrossFadeWeight(t *testing.T) {
	prev := float32(-1)
	for i := 0; i <= 20; i++ {
		w := CrossFadeWeight(float32(i)*0.05, 0.5)
		require.GreaterOrEqual(t, w, prev)
		prev = w
	}
	require.Equal(t, float32(1), CrossFadeWeight(0.5, 0.5))
	require.Equal(t, float32(0), CrossFadeWeight(0, 0.5))
	require.Equal(t, float32(1), CrossFadeWeight(0, 0))
}

func TestUpdateMorphTracks(t *testing.T) {
	t.Run("Frame weights are written", func(t *testing.T) {
		a, reg, _ := newTestAnimator(t)
		mesh := reg.Create(game_object.WithMorphTargets(2))
		require.NoError(t, a.AddMorphTrack(mesh, MorphOptions{
			Weights:       []float32{0, 1, 0.5, 0.5},
			Indices:       []int{0, 1},
			FrameCount:    2,
			FrameLengthMs: 500,
		}, t0))

		a.Update(at(0.6))
		obj, ok := reg.Get(mesh)
		require.True(t, ok)
		require.Equal(t, []float32{0.5, 0.5}, obj.MorphWeights())

		res := a.Update(at(1.0))
		require.Equal(t, 1, res.Retired)
		require.Empty(t, a.MorphTracks(mesh))
	})

	t.Run("Reverse and looping", func(t *testing.T) {
		a, reg, _ := newTestAnimator(t)
		mesh := reg.Create(game_object.WithMorphTargets(1))
		require.NoError(t, a.AddMorphTrack(mesh, MorphOptions{
			Weights:       []float32{0.1, 0.2, 0.3},
			Indices:       []int{0},
			FrameCount:    3,
			FrameLengthMs: 100,
			Loop:          true,
			Reverse:       true,
		}, t0))

		a.Update(at(0.15))
		obj, _ := reg.Get(mesh)
		require.Equal(t, []float32{0.3}, obj.MorphWeights())

		res := a.Update(at(0.35))
		require.Equal(t, 1, res.Restarted)
		require.Equal(t, at(0.35), a.MorphTracks(mesh)[0].Start)
	})

	t.Run("Failure is local to the track", func(t *testing.T) {
		a, reg, _ := newTestAnimator(t)
		notRenderable := reg.Create()
		mesh := reg.Create(game_object.WithMorphTargets(1))
		opts := MorphOptions{Weights: []float32{0.75}, Indices: []int{0}, FrameCount: 1, FrameLengthMs: 1000}
		require.NoError(t, a.AddMorphTrack(notRenderable, opts, t0))
		require.NoError(t, a.AddMorphTrack(mesh, opts, t0))

		res := a.Update(at(0.5))
		require.Equal(t, 1, res.Skipped)
		require.Equal(t, 1, res.Applied)
		obj, _ := reg.Get(mesh)
		require.Equal(t, []float32{0.75}, obj.MorphWeights())
	})
}

func TestUpdateBoneTracks(t *testing.T) {
	frames := []mgl32.Mat4{mgl32.Translate3D(0, 0, 0), mgl32.Translate3D(2, 0, 0)}

	t.Run("Blends frames and retires", func(t *testing.T) {
		a, reg, inst := newTestAnimator(t)
		require.NoError(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{Frames: frames, FrameLengthMs: 100}, t0))

		a.Update(at(0.05))
		local, ok := reg.LocalTransform(inst.joints[0])
		require.True(t, ok)
		require.True(t, local.ApproxEqualThreshold(mgl32.Translate3D(1, 0, 0), 1e-5))
		require.Equal(t, 1, inst.boneUpdates)

		res := a.Update(at(0.2))
		require.Equal(t, 1, res.Retired)
		require.Empty(t, a.BoneTracks(inst.root))
	})

	t.Run("Looping track restarts", func(t *testing.T) {
		a, reg, inst := newTestAnimator(t)
		require.NoError(t, a.AddBoneFrameTrack(inst.root, BoneFrameOptions{Frames: frames, FrameLengthMs: 100, Loop: true}, t0))

		res := a.Update(at(0.25))
		require.Equal(t, 1, res.Restarted)
		require.Zero(t, res.Retired)
		tracks := a.BoneTracks(inst.root)
		require.Len(t, tracks, 1)
		require.Equal(t, at(0.25), tracks[0].Start)
		local, _ := reg.LocalTransform(inst.joints[0])
		require.True(t, local.ApproxEqualThreshold(mgl32.Translate3D(1, 0, 0), 1e-4))

		res = a.Update(at(0.32))
		require.Zero(t, res.Restarted)
		elapsed := a.BoneTracks(inst.root)[0].elapsed(at(0.32))
		require.GreaterOrEqual(t, elapsed, float32(0))
		require.Less(t, elapsed, a.BoneTracks(inst.root)[0].Duration)
		local, _ = reg.LocalTransform(inst.joints[0])
		require.True(t, local.ApproxEqualThreshold(mgl32.Translate3D(1.4, 0, 0), 1e-4))
	})
}

func TestUpdateOnWorkerPool(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(4, 64, time.Second)
	defer pool.Stop()

	reg := game_object.NewRegistry()
	a := NewAnimator(reg, reg, WithWorkerPool(pool, 1))

	meshes := make([]common.Entity, 16)
	for i := range meshes {
		meshes[i] = reg.Create(game_object.WithMorphTargets(1))
		require.NoError(t, a.AddMorphTrack(meshes[i], MorphOptions{
			Weights:       []float32{0.25, float32(i)},
			Indices:       []int{0},
			FrameCount:    2,
			FrameLengthMs: 100,
		}, t0))
	}

	res := a.Update(at(0.15))
	require.Equal(t, 16, res.Entities)
	require.Equal(t, 16, res.Applied)
	for i, m := range meshes {
		obj, _ := reg.Get(m)
		require.Equal(t, []float32{float32(i)}, obj.MorphWeights())
	}
}

func TestNewAnimatorRequiresStores(t *testing.T) {
	reg := game_object.NewRegistry()
	require.Panics(t, func() { NewAnimator(nil, reg) })
	require.Panics(t, func() { NewAnimator(reg, nil) })
}
