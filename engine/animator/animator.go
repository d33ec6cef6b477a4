package animator

import (
	"fmt"
	"sort"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"go.uber.org/zap"
)

// DefaultEndEpsilon is how far before its end a finished non-looping clip is sampled, in seconds.
const DefaultEndEpsilon float32 = 0.001

// DefaultParallelThreshold is the component count from which Update plans entities on the worker pool.
const DefaultParallelThreshold = 32

type animator struct {
	components  map[common.Entity]*component
	transforms  common.TransformStore
	renderables common.RenderableStore
	logger      *zap.Logger

	// planPool runs the per-entity planning phase of Update. Nil means plan serially.
	planPool          worker.DynamicWorkerPool
	parallelThreshold int
	endEpsilon        float32
}

// Animator is the animation component store and the per-frame tick engine.
// It keeps one component per animated entity, each holding skeletal clip, bone-frame and morph tracks,
// and writes their poses into the transform and renderable stores on Update.
//
// Animator is not safe for concurrent use; the owning scene serializes every call behind its lock.
type Animator interface {
	// AddComponent attaches animation support to the target's entity. Adding an existing component is a no-op,
	// except that a plain component is switched to an instance target, keeping its tracks.
	//
	// Parameters:
	//   - target: the instance or plain entity to animate
	AddComponent(target Target)

	// RemoveComponent drops the entity's component and all of its tracks. Removing an absent component is a no-op.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - bool: true if a component was removed
	RemoveComponent(e common.Entity) bool

	// HasComponent reports whether the entity has animation support.
	HasComponent(e common.Entity) bool

	// Target returns the target the entity's component drives.
	//
	// Returns:
	//   - Target: the target
	//   - bool: false if the entity has no component
	Target(e common.Entity) (Target, bool)

	// PlaySkeletalClip starts a clip on an instance component.
	// With ReplaceActive, the most recently added active clip becomes the cross-fade source and the active list
	// is cleared. Requesting a clip that is already active without ReplaceActive is a no-op.
	//
	// Parameters:
	//   - e: the entity whose component plays the clip
	//   - clipIndex: the clip index on the instance
	//   - opts: loop, reverse, replace, crossfade and start offset
	//   - now: the current time
	//
	// Returns:
	//   - error: ErrInvalidArgument for a negative index or a crossfade without replace, ErrNotFound for an index
	//     beyond the instance's clips, ErrPreconditionFailed for a missing component or a plain entity target
	PlaySkeletalClip(e common.Entity, clipIndex int, opts PlayOptions, now time.Time) error

	// StopSkeletalClip removes every active track playing clipIndex.
	//
	// Returns:
	//   - error: ErrPreconditionFailed if the entity has no component
	StopSkeletalClip(e common.Entity, clipIndex int) error

	// AddMorphTrack appends a morph weight sequence that writes into the entity's own morph targets.
	// An entity without a component is given a plain one.
	//
	// Returns:
	//   - error: ErrInvalidArgument for a malformed buffer
	AddMorphTrack(e common.Entity, opts MorphOptions, now time.Time) error

	// ClearMorphTracks removes every morph track of the entity.
	//
	// Returns:
	//   - error: ErrPreconditionFailed if the entity has no component
	ClearMorphTracks(e common.Entity) error

	// AddBoneFrameTrack appends a procedural joint animation to an instance component.
	//
	// Returns:
	//   - error: ErrPreconditionFailed for a missing component or plain target, ErrInvalidArgument for no frames
	//     or a non-positive frame length, ErrNotFound for an unknown skin or bone
	AddBoneFrameTrack(e common.Entity, opts BoneFrameOptions, now time.Time) error

	// ClipTracks returns a copy of the entity's active skeletal clip tracks in insertion order.
	ClipTracks(e common.Entity) []SkeletalClipTrack

	// MorphTracks returns a copy of the entity's morph tracks in insertion order.
	MorphTracks(e common.Entity) []MorphTrack

	// BoneTracks returns a copy of the entity's bone-frame tracks in insertion order.
	BoneTracks(e common.Entity) []BoneFrameTrack

	// Fade returns the entity's cross-fade state.
	//
	// Returns:
	//   - FadeState: the fade state
	//   - bool: false if the entity has no component
	Fade(e common.Entity) (FadeState, bool)

	// Entities returns every entity with a component in ascending order.
	Entities() []common.Entity

	// Update advances every component to now and writes the resulting poses and weights.
	// A failing track is logged and skipped; it never stops other tracks or entities.
	//
	// Parameters:
	//   - now: the current time
	//
	// Returns:
	//   - UpdateResult: counts of the work done
	Update(now time.Time) UpdateResult
}

var _ Animator = &animator{}

// NewAnimator creates an Animator writing joint transforms into transforms and morph weights into renderables.
// Panics if either store is nil.
//
// Parameters:
//   - transforms: the transform store joints live in
//   - renderables: the renderable store morph weights are written to
//   - options: functional options for logging, parallelism and end-of-clip sampling
//
// Returns:
//   - Animator: the new animator
func NewAnimator(transforms common.TransformStore, renderables common.RenderableStore, options ...AnimatorBuilderOption) Animator {
	if transforms == nil {
		panic("animator: NewAnimator requires a transform store")
	}
	if renderables == nil {
		panic("animator: NewAnimator requires a renderable store")
	}

	a := &animator{
		components:        make(map[common.Entity]*component),
		transforms:        transforms,
		renderables:       renderables,
		logger:            zap.NewNop(),
		parallelThreshold: DefaultParallelThreshold,
		endEpsilon:        DefaultEndEpsilon,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) AddComponent(target Target) {
	if c, ok := a.components[target.Entity()]; ok {
		// A plain component created by a morph submission is upgraded once the entity resolves to an instance.
		if c.target.Kind() == TargetEntity && target.Kind() == TargetInstance {
			c.target = target
			a.logger.Debug("animation component upgraded to instance", zap.Uint32("entity", uint32(target.Entity())))
		}
		return
	}
	a.components[target.Entity()] = newComponent(target)
	a.logger.Debug("animation component added",
		zap.Uint32("entity", uint32(target.Entity())),
		zap.Bool("instance", target.Kind() == TargetInstance))
}

func (a *animator) RemoveComponent(e common.Entity) bool {
	if _, ok := a.components[e]; !ok {
		return false
	}
	delete(a.components, e)
	a.logger.Debug("animation component removed", zap.Uint32("entity", uint32(e)))
	return true
}

func (a *animator) HasComponent(e common.Entity) bool {
	_, ok := a.components[e]
	return ok
}

func (a *animator) Target(e common.Entity) (Target, bool) {
	c, ok := a.components[e]
	if !ok {
		return Target{}, false
	}
	return c.target, true
}

func (a *animator) PlaySkeletalClip(e common.Entity, clipIndex int, opts PlayOptions, now time.Time) error {
	if clipIndex < 0 {
		return fmt.Errorf("animator: clip index %d: %w", clipIndex, common.ErrInvalidArgument)
	}
	c, inst, err := a.instanceComponent(e)
	if err != nil {
		return err
	}
	if clipIndex >= inst.ClipCount() {
		return fmt.Errorf("animator: clip %d of %d on entity %d: %w", clipIndex, inst.ClipCount(), e, common.ErrNotFound)
	}
	if opts.Crossfade < 0 {
		return fmt.Errorf("animator: crossfade %v: %w", opts.Crossfade, common.ErrInvalidArgument)
	}
	if !opts.ReplaceActive && opts.Crossfade > 0 {
		return fmt.Errorf("animator: crossfade requires replacing the active clip: %w", common.ErrInvalidArgument)
	}

	if !opts.ReplaceActive {
		for _, t := range c.clips {
			if t.ClipIndex == clipIndex {
				return nil
			}
		}
	}

	if opts.ReplaceActive && len(c.clips) > 0 {
		last := c.clips[len(c.clips)-1]
		c.fade = FadeState{
			FromClip:            last.ClipIndex,
			Duration:            opts.Crossfade,
			FromElapsedAtSwitch: last.elapsed(now),
		}
		c.clips = c.clips[:0]
	} else {
		c.clearFade()
	}

	c.clips = append(c.clips, SkeletalClipTrack{
		AnimationStatus: AnimationStatus{
			Start:    now.Add(-seconds(opts.StartOffset)),
			Loop:     opts.Loop,
			Reverse:  opts.Reverse,
			Duration: inst.ClipDuration(clipIndex),
		},
		ClipIndex: clipIndex,
	})
	a.logger.Debug("skeletal clip started",
		zap.Uint32("entity", uint32(e)),
		zap.Int("clip", clipIndex),
		zap.Bool("loop", opts.Loop),
		zap.Int("fadeFrom", c.fade.FromClip))
	return nil
}

func (a *animator) StopSkeletalClip(e common.Entity, clipIndex int) error {
	c, ok := a.components[e]
	if !ok {
		return fmt.Errorf("animator: entity %d has no animation component: %w", e, common.ErrPreconditionFailed)
	}
	kept := c.clips[:0]
	for _, t := range c.clips {
		if t.ClipIndex != clipIndex {
			kept = append(kept, t)
		}
	}
	c.clips = kept
	return nil
}

func (a *animator) AddMorphTrack(e common.Entity, opts MorphOptions, now time.Time) error {
	if opts.FrameCount <= 0 || len(opts.Indices) == 0 {
		return fmt.Errorf("animator: %d frames of %d morph targets: %w", opts.FrameCount, len(opts.Indices), common.ErrInvalidArgument)
	}
	if want := opts.FrameCount * len(opts.Indices); len(opts.Weights) != want {
		return fmt.Errorf("animator: morph buffer has %d weights, want %d: %w", len(opts.Weights), want, common.ErrInvalidArgument)
	}
	if !(opts.FrameLengthMs > 0) {
		return fmt.Errorf("animator: frame length %vms: %w", opts.FrameLengthMs, common.ErrInvalidArgument)
	}
	for _, idx := range opts.Indices {
		if idx < 0 {
			return fmt.Errorf("animator: morph target index %d: %w", idx, common.ErrInvalidArgument)
		}
	}

	c, ok := a.components[e]
	if !ok {
		c = newComponent(EntityTarget(e))
		a.components[e] = c
	}
	c.morphs = append(c.morphs, MorphTrack{
		AnimationStatus: AnimationStatus{
			Start:    now,
			Loop:     opts.Loop,
			Reverse:  opts.Reverse,
			Duration: opts.FrameLengthMs * float32(opts.FrameCount) / 1000,
		},
		Target:        e,
		FrameCount:    opts.FrameCount,
		FrameLengthMs: opts.FrameLengthMs,
		Weights:       append([]float32(nil), opts.Weights...),
		Indices:       append([]int(nil), opts.Indices...),
	})
	return nil
}

func (a *animator) ClearMorphTracks(e common.Entity) error {
	c, ok := a.components[e]
	if !ok {
		return fmt.Errorf("animator: entity %d has no animation component: %w", e, common.ErrPreconditionFailed)
	}
	c.morphs = nil
	return nil
}

func (a *animator) AddBoneFrameTrack(e common.Entity, opts BoneFrameOptions, now time.Time) error {
	c, inst, err := a.instanceComponent(e)
	if err != nil {
		return err
	}
	if len(opts.Frames) == 0 {
		return fmt.Errorf("animator: bone animation without frames: %w", common.ErrInvalidArgument)
	}
	if !(opts.FrameLengthMs > 0) {
		return fmt.Errorf("animator: frame length %vms: %w", opts.FrameLengthMs, common.ErrInvalidArgument)
	}
	joints, err := inst.Joints(opts.SkinIndex)
	if err != nil {
		return fmt.Errorf("animator: %w", err)
	}
	if opts.BoneIndex < 0 || opts.BoneIndex >= len(joints) {
		return fmt.Errorf("animator: bone %d of %d in skin %d: %w", opts.BoneIndex, len(joints), opts.SkinIndex, common.ErrNotFound)
	}

	c.bones = append(c.bones, BoneFrameTrack{
		AnimationStatus: AnimationStatus{
			Start:    now,
			Loop:     opts.Loop,
			Duration: opts.FrameLengthMs * float32(len(opts.Frames)) / 1000,
		},
		SkinIndex:      opts.SkinIndex,
		BoneIndex:      opts.BoneIndex,
		FrameLengthMs:  opts.FrameLengthMs,
		Frames:         append(opts.Frames[:0:0], opts.Frames...),
		FadeInSeconds:  opts.FadeInSeconds,
		FadeOutSeconds: opts.FadeOutSeconds,
		MaxDelta:       opts.MaxDelta,
	})
	return nil
}

func (a *animator) ClipTracks(e common.Entity) []SkeletalClipTrack {
	c, ok := a.components[e]
	if !ok {
		return nil
	}
	return append([]SkeletalClipTrack(nil), c.clips...)
}

func (a *animator) MorphTracks(e common.Entity) []MorphTrack {
	c, ok := a.components[e]
	if !ok {
		return nil
	}
	return append([]MorphTrack(nil), c.morphs...)
}

func (a *animator) BoneTracks(e common.Entity) []BoneFrameTrack {
	c, ok := a.components[e]
	if !ok {
		return nil
	}
	return append([]BoneFrameTrack(nil), c.bones...)
}

func (a *animator) Fade(e common.Entity) (FadeState, bool) {
	c, ok := a.components[e]
	if !ok {
		return FadeState{}, false
	}
	return c.fade, true
}

func (a *animator) Entities() []common.Entity {
	out := make([]common.Entity, 0, len(a.components))
	for e := range a.components {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// instanceComponent returns the entity's component and instance, failing for missing components and plain targets.
func (a *animator) instanceComponent(e common.Entity) (*component, common.Instance, error) {
	c, ok := a.components[e]
	if !ok {
		return nil, nil, fmt.Errorf("animator: entity %d has no animation component: %w", e, common.ErrPreconditionFailed)
	}
	inst, ok := c.target.Instance()
	if !ok {
		return nil, nil, fmt.Errorf("animator: entity %d is not a hierarchical instance: %w", e, common.ErrPreconditionFailed)
	}
	return c, inst, nil
}

func seconds(s float32) time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}
