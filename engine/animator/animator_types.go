package animator

import (
	"time"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// TargetKind distinguishes the two things an animation component can drive.
type TargetKind int

const (
	// TargetEntity is a bare scene node. It supports morph tracks only.
	TargetEntity TargetKind = iota

	// TargetInstance is a hierarchical instance. It supports skeletal clips and bone-frame tracks as well.
	TargetInstance
)

// Target is the tagged union of a hierarchical instance and a plain entity.
type Target struct {
	kind     TargetKind
	entity   common.Entity
	instance common.Instance
}

// InstanceTarget wraps a hierarchical instance. The component is keyed by the instance root.
func InstanceTarget(inst common.Instance) Target {
	return Target{kind: TargetInstance, entity: inst.Root(), instance: inst}
}

// EntityTarget wraps a plain scene node.
func EntityTarget(e common.Entity) Target {
	return Target{kind: TargetEntity, entity: e}
}

// Kind returns which variant the target holds.
func (t Target) Kind() TargetKind {
	return t.kind
}

// Entity returns the entity the component is keyed by: the plain entity, or the instance root.
func (t Target) Entity() common.Entity {
	return t.entity
}

// Instance returns the hierarchical instance, or false for a plain entity target.
func (t Target) Instance() (common.Instance, bool) {
	return t.instance, t.kind == TargetInstance
}

// AnimationStatus is the timing state shared by every track.
type AnimationStatus struct {
	// Start is when the track (re)started.
	Start time.Time

	// Loop restarts the track when Duration elapses instead of retiring it.
	Loop bool

	// Reverse plays frames from the end.
	Reverse bool

	// Duration is the track length in seconds.
	Duration float32
}

// elapsed returns seconds since Start.
func (s AnimationStatus) elapsed(now time.Time) float32 {
	return float32(now.Sub(s.Start).Seconds())
}

// SkeletalClipTrack plays a clip authored on a hierarchical instance.
type SkeletalClipTrack struct {
	AnimationStatus

	// ClipIndex is the clip's index on the instance.
	ClipIndex int
}

// MorphTrack steps through a flat buffer of morph weights, one sub-buffer per frame.
type MorphTrack struct {
	AnimationStatus

	// Target is the renderable entity that receives the weights.
	Target common.Entity

	// FrameCount is the number of frames in Weights.
	FrameCount int

	// FrameLengthMs is the length of one frame in milliseconds.
	FrameLengthMs float32

	// Weights holds FrameCount * len(Indices) values, frame-major.
	Weights []float32

	// Indices are the morph target indices written by each frame, in sub-buffer order.
	Indices []int
}

// BoneFrameTrack drives a single joint through a sequence of local transforms.
type BoneFrameTrack struct {
	AnimationStatus

	// SkinIndex selects the skin the joint belongs to.
	SkinIndex int

	// BoneIndex is the joint's index within the skin.
	BoneIndex int

	// FrameLengthMs is the length of one frame in milliseconds.
	FrameLengthMs float32

	// Frames are the joint's local transforms, one per frame.
	Frames []mgl32.Mat4

	// FadeInSeconds, FadeOutSeconds and MaxDelta are carried for the host; playback does not consume them.
	FadeInSeconds  float32
	FadeOutSeconds float32
	MaxDelta       float32
}

// FadeState is the cross-fade bookkeeping of a component.
type FadeState struct {
	// FromClip is the clip fading out, or -1 when no fade is in progress.
	FromClip int

	// Duration is the fade length in seconds.
	Duration float32

	// FromElapsedAtSwitch is how far the fading clip had played when it was replaced.
	FromElapsedAtSwitch float32
}

// Active reports whether a fade source is set.
func (f FadeState) Active() bool {
	return f.FromClip != -1
}

// PlayOptions are the parameters of a skeletal clip play request.
type PlayOptions struct {
	// Loop restarts the clip when it ends.
	Loop bool

	// Reverse is recorded on the track.
	Reverse bool

	// ReplaceActive clears the active clips and turns the most recent one into the fade source.
	ReplaceActive bool

	// Crossfade is the fade length in seconds. Requires ReplaceActive when positive.
	Crossfade float32

	// StartOffset starts the clip this many seconds in.
	StartOffset float32
}

// MorphOptions describe a morph weight sequence.
type MorphOptions struct {
	// Weights holds FrameCount * len(Indices) values, frame-major.
	Weights []float32

	// Indices are the morph target indices each frame writes.
	Indices []int

	// FrameCount is the number of frames.
	FrameCount int

	// FrameLengthMs is the length of one frame in milliseconds.
	FrameLengthMs float32

	// Loop repeats the sequence.
	Loop bool

	// Reverse plays the frames from the end.
	Reverse bool
}

// BoneFrameOptions describe a procedural joint animation.
type BoneFrameOptions struct {
	SkinIndex      int
	BoneIndex      int
	Frames         []mgl32.Mat4
	FrameLengthMs  float32
	FadeOutSeconds float32
	FadeInSeconds  float32
	MaxDelta       float32
	Loop           bool
}

// component is the per-entity aggregate of tracks.
type component struct {
	target Target
	clips  []SkeletalClipTrack
	morphs []MorphTrack
	bones  []BoneFrameTrack
	fade   FadeState
}

func newComponent(target Target) *component {
	return &component{target: target, fade: FadeState{FromClip: -1}}
}

func (c *component) clearFade() {
	c.fade = FadeState{FromClip: -1}
}
