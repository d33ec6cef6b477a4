package animator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/RajatDBazaar/thermion-3d-360/engine/keyframe"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// UpdateResult counts the work done by one Update.
type UpdateResult struct {
	// Entities is the number of components visited.
	Entities int

	// Applied is the number of track samples written to the stores.
	Applied int

	// Retired is the number of non-looping tracks that finished and were removed.
	Retired int

	// Restarted is the number of looping tracks that wrapped.
	Restarted int

	// Skipped is the number of track samples dropped because of an error.
	Skipped int
}

// CrossFadeWeight is the weight of the incoming clip elapsed seconds into a fade of the given duration.
// It rises linearly from 0 and reaches exactly 1 at elapsed == duration.
func CrossFadeWeight(elapsed, duration float32) float32 {
	if duration <= 0 {
		return 1
	}
	return mgl32.Clamp(elapsed/duration, 0, 1)
}

type clipStep struct {
	clip     int
	t        float32
	finished bool

	// cross-fade from the fade source; only meaningful when fading is set
	fading     bool
	fadeClip   int
	fadeTime   float32
	fadeWeight float32
}

type boneStep struct {
	skin  int
	bone  int
	local mgl32.Mat4
}

type morphStep struct {
	target  common.Entity
	weights []float32
	indices []int
}

// plan is the work computed for one component in the parallel phase and applied in the serial phase.
type plan struct {
	entity      common.Entity
	instance    common.Instance
	updateBones bool
	clips       []clipStep
	bones       []boneStep
	morphs      []morphStep
	retired     int
	restarted   int
	failures    []error
}

func (a *animator) Update(now time.Time) UpdateResult {
	entities := a.Entities()
	plans := make([]*plan, len(entities))

	if a.planPool != nil && len(entities) >= a.parallelThreshold {
		// Phase 1: plan each component on the pool. Every task touches only its own component.
		var wg sync.WaitGroup
		for i, e := range entities {
			wg.Add(1)
			idx, c := i, a.components[e]
			a.planPool.SubmitTask(worker.Task{
				ID: idx,
				Do: func() (any, error) {
					defer wg.Done()
					plans[idx] = a.planComponent(c, now)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		for i, e := range entities {
			plans[i] = a.planComponent(a.components[e], now)
		}
	}

	// Phase 2: apply to the stores in entity order.
	result := UpdateResult{Entities: len(entities)}
	for _, p := range plans {
		a.commit(p, &result)
	}
	return result
}

// planComponent advances the component's track state to now and records what to write.
// Finished tracks are collected first and removed once at the end.
func (a *animator) planComponent(c *component, now time.Time) *plan {
	p := &plan{entity: c.target.Entity()}

	if inst, ok := c.target.Instance(); ok {
		p.instance = inst
		a.planClips(c, p, now)
		a.planBones(c, p, now)
	}
	a.planMorphs(c, p, now)
	return p
}

func (a *animator) planClips(c *component, p *plan, now time.Time) {
	if len(c.clips) == 0 {
		return
	}
	p.updateBones = true

	retire := make([]bool, len(c.clips))
	for i := len(c.clips) - 1; i >= 0; i-- {
		t := &c.clips[i]
		elapsed := t.elapsed(now)

		if !t.Loop && elapsed >= t.Duration {
			p.clips = append(p.clips, clipStep{clip: t.ClipIndex, t: max(t.Duration-a.endEpsilon, 0), finished: true})
			retire[i] = true
			p.retired++
			c.clearFade()
			continue
		}

		step := clipStep{clip: t.ClipIndex, t: elapsed}
		if t.Loop && t.Duration > 0 && elapsed >= t.Duration {
			step.t = float32(math.Mod(float64(elapsed), float64(t.Duration)))
			t.Start = now
			p.restarted++
		}

		if c.fade.Active() {
			if elapsed < c.fade.Duration {
				step.fading = true
				step.fadeClip = c.fade.FromClip
				step.fadeTime = c.fade.FromElapsedAtSwitch + elapsed
				step.fadeWeight = CrossFadeWeight(elapsed, c.fade.Duration)
			} else {
				c.clearFade()
			}
		}
		p.clips = append(p.clips, step)
	}
	c.clips = retain(c.clips, retire)
}

func (a *animator) planBones(c *component, p *plan, now time.Time) {
	if len(c.bones) == 0 {
		return
	}
	retire := make([]bool, len(c.bones))
	for i := len(c.bones) - 1; i >= 0; i-- {
		t := &c.bones[i]
		elapsed := t.elapsed(now)

		if !t.Loop && elapsed >= t.Duration {
			retire[i] = true
			p.retired++
			continue
		}

		s, err := keyframe.Interpolate(elapsed, t.FrameLengthMs, len(t.Frames), t.Reverse)
		if err != nil {
			p.failures = append(p.failures, fmt.Errorf("bone track %d/%d: %w", t.SkinIndex, t.BoneIndex, err))
			continue
		}
		local, err := keyframe.Blend(t.Frames, s)
		if err != nil {
			p.failures = append(p.failures, fmt.Errorf("bone track %d/%d: %w", t.SkinIndex, t.BoneIndex, err))
			continue
		}
		p.bones = append(p.bones, boneStep{skin: t.SkinIndex, bone: t.BoneIndex, local: local})

		if t.Loop && elapsed >= t.Duration {
			t.Start = now
			p.restarted++
		}
	}
	c.bones = retain(c.bones, retire)
}

func (a *animator) planMorphs(c *component, p *plan, now time.Time) {
	if len(c.morphs) == 0 {
		return
	}
	retire := make([]bool, len(c.morphs))
	for i := len(c.morphs) - 1; i >= 0; i-- {
		t := &c.morphs[i]
		elapsed := t.elapsed(now)

		if !t.Loop && elapsed >= t.Duration {
			retire[i] = true
			p.retired++
			continue
		}

		frame, err := keyframe.FrameIndex(elapsed, t.FrameLengthMs, t.FrameCount, t.Reverse)
		if err != nil {
			p.failures = append(p.failures, fmt.Errorf("morph track on %d: %w", t.Target, err))
			continue
		}
		n := len(t.Indices)
		base := frame * n
		if base+n > len(t.Weights) {
			p.failures = append(p.failures, fmt.Errorf("morph track on %d: frame %d past %d weights: %w",
				t.Target, frame, len(t.Weights), common.ErrInvalidArgument))
			continue
		}
		p.morphs = append(p.morphs, morphStep{target: t.Target, weights: t.Weights[base : base+n], indices: t.Indices})

		if t.Loop && elapsed >= t.Duration {
			t.Start = now
			p.restarted++
		}
	}
	c.morphs = retain(c.morphs, retire)
}

// commit writes a plan into the instance and stores. Errors are logged per track.
func (a *animator) commit(p *plan, result *UpdateResult) {
	result.Retired += p.retired
	result.Restarted += p.restarted
	for _, err := range p.failures {
		result.Skipped++
		a.logger.Warn("animation track skipped", zap.Uint32("entity", uint32(p.entity)), zap.Error(err))
	}

	for _, s := range p.clips {
		if err := p.instance.ApplyClip(s.clip, s.t); err != nil {
			result.Skipped++
			a.logger.Warn("skeletal clip skipped", zap.Uint32("entity", uint32(p.entity)), zap.Int("clip", s.clip), zap.Error(err))
			continue
		}
		result.Applied++
		if s.finished {
			p.instance.UpdateBoneMatrices()
			continue
		}
		if s.fading {
			if err := p.instance.ApplyCrossFade(s.fadeClip, s.fadeTime, s.fadeWeight); err != nil {
				a.logger.Warn("cross-fade skipped", zap.Uint32("entity", uint32(p.entity)), zap.Int("clip", s.fadeClip), zap.Error(err))
			}
		}
	}
	if p.updateBones {
		p.instance.UpdateBoneMatrices()
	}

	for _, s := range p.bones {
		if err := a.applyBone(p.instance, s); err != nil {
			result.Skipped++
			a.logger.Warn("bone track skipped", zap.Uint32("entity", uint32(p.entity)), zap.Error(err))
			continue
		}
		result.Applied++
		p.instance.UpdateBoneMatrices()
	}

	for _, s := range p.morphs {
		failed := false
		for i, idx := range s.indices {
			if err := a.renderables.SetMorphWeights(s.target, s.weights[i:i+1], idx); err != nil {
				failed = true
				a.logger.Warn("morph weight skipped", zap.Uint32("entity", uint32(s.target)), zap.Int("target", idx), zap.Error(err))
			}
		}
		if failed {
			result.Skipped++
			continue
		}
		result.Applied++
	}
}

func (a *animator) applyBone(inst common.Instance, s boneStep) error {
	joints, err := inst.Joints(s.skin)
	if err != nil {
		return err
	}
	if s.bone < 0 || s.bone >= len(joints) {
		return fmt.Errorf("bone %d of %d in skin %d: %w", s.bone, len(joints), s.skin, common.ErrNotFound)
	}
	return a.transforms.SetLocalTransform(joints[s.bone], s.local)
}

// retain drops the flagged entries, keeping the order of the rest.
func retain[T any](tracks []T, retire []bool) []T {
	kept := tracks[:0]
	for i, t := range tracks {
		if !retire[i] {
			kept = append(kept, t)
		}
	}
	clear(tracks[len(kept):])
	return kept
}
