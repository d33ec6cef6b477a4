package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// model is the implementation of the Model interface.
type model struct {
	name         string
	root         common.Entity
	store        common.TransformStore
	skins        []Skin
	animations   []*AnimationClip
	boneMatrices [][]mgl32.Mat4
	boneUpdates  int
}

// Model is an in-memory hierarchical instance. Its joints and animated nodes live in a TransformStore;
// clips are sampled on the CPU and written back as local transforms.
type Model interface {
	common.Instance

	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Skins returns the model's joint hierarchies.
	//
	// Returns:
	//   - []Skin: the skins
	Skins() []Skin

	// Animations retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// AnimationNames returns the names of all animation clips.
	//
	// Returns:
	//   - []string: clip names in index order
	AnimationNames() []string

	// BoneMatrices returns the skinning matrices computed by the last UpdateBoneMatrices call.
	// Each matrix is inverse(rootWorld) * jointWorld * inverseBind.
	//
	// Parameters:
	//   - skin: the skin index
	//
	// Returns:
	//   - []mgl32.Mat4: one matrix per joint, nil before the first update or for an unknown skin
	BoneMatrices(skin int) []mgl32.Mat4

	// BoneMatrixUpdates returns how many times UpdateBoneMatrices has run.
	//
	// Returns:
	//   - int: the update count
	BoneMatrixUpdates() int
}

var _ Model = &model{}

// NewModel creates a Model rooted at root whose nodes live in store.
// Panics if store is nil; a model cannot pose anything without one.
//
// Parameters:
//   - root: the instance's root entity
//   - store: the transform store holding every joint and animated node
//   - options: functional options for skins and clips
//
// Returns:
//   - Model: the new model
func NewModel(root common.Entity, store common.TransformStore, options ...ModelBuilderOption) Model {
	if store == nil {
		panic("model: NewModel requires a transform store")
	}
	m := &model{
		root:  root,
		store: store,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Root() common.Entity {
	return m.root
}

func (m *model) Skins() []Skin {
	return m.skins
}

func (m *model) SkinCount() int {
	return len(m.skins)
}

func (m *model) Joints(skin int) ([]common.Entity, error) {
	if skin < 0 || skin >= len(m.skins) {
		return nil, fmt.Errorf("model %q: skin %d: %w", m.name, skin, common.ErrNotFound)
	}
	return m.skins[skin].Joints, nil
}

func (m *model) InverseBindMatrices(skin int) ([]mgl32.Mat4, error) {
	if skin < 0 || skin >= len(m.skins) {
		return nil, fmt.Errorf("model %q: skin %d: %w", m.name, skin, common.ErrNotFound)
	}
	return m.skins[skin].InverseBindMatrices, nil
}

func (m *model) Animations() []*AnimationClip {
	return m.animations
}

func (m *model) ClipCount() int {
	return len(m.animations)
}

func (m *model) AnimationNames() []string {
	names := make([]string, len(m.animations))
	for i, a := range m.animations {
		names[i] = a.Name
	}
	return names
}

func (m *model) ClipName(clip int) string {
	if clip < 0 || clip >= len(m.animations) {
		return ""
	}
	return m.animations[clip].Name
}

func (m *model) ClipDuration(clip int) float32 {
	if clip < 0 || clip >= len(m.animations) {
		return 0
	}
	return m.animations[clip].Duration
}

// ApplyClip samples every channel of the clip at t and writes the result as local transforms.
// Times past the clip's duration wrap around.
func (m *model) ApplyClip(clip int, t float32) error {
	a, err := m.clip(clip)
	if err != nil {
		return err
	}
	t = a.wrap(t)
	for _, ch := range a.Channels {
		current, ok := m.store.LocalTransform(ch.Target)
		if !ok {
			return fmt.Errorf("model %q: channel target %d: %w", m.name, ch.Target, common.ErrNotFound)
		}
		p := sample(ch, decompose(current), t)
		if err := m.store.SetLocalTransform(ch.Target, p.matrix()); err != nil {
			return err
		}
	}
	return nil
}

// ApplyCrossFade blends the source clip's pose at t into the current local transforms of the nodes it animates.
// t wraps like in ApplyClip, so a looping fade source keeps moving past its end.
// weight 0 yields the source pose, weight 1 keeps the current pose.
func (m *model) ApplyCrossFade(source int, t, weight float32) error {
	a, err := m.clip(source)
	if err != nil {
		return err
	}
	t = a.wrap(t)
	weight = mgl32.Clamp(weight, 0, 1)
	for _, ch := range a.Channels {
		current, ok := m.store.LocalTransform(ch.Target)
		if !ok {
			return fmt.Errorf("model %q: channel target %d: %w", m.name, ch.Target, common.ErrNotFound)
		}
		cur := decompose(current)
		src := sample(ch, cur, t)
		blended := pose{
			translation: lerpVec3(src.translation, cur.translation, weight),
			rotation:    mgl32.QuatSlerp(src.rotation, cur.rotation, weight).Normalize(),
			scale:       lerpVec3(src.scale, cur.scale, weight),
		}
		if err := m.store.SetLocalTransform(ch.Target, blended.matrix()); err != nil {
			return err
		}
	}
	return nil
}

func (m *model) UpdateBoneMatrices() {
	m.boneUpdates++

	rootInverse := mgl32.Ident4()
	if rootWorld, ok := m.store.WorldTransform(m.root); ok {
		if inv, ok := common.Invert4(rootWorld); ok {
			rootInverse = inv
		}
	}

	if len(m.boneMatrices) != len(m.skins) {
		m.boneMatrices = make([][]mgl32.Mat4, len(m.skins))
	}
	for s, skin := range m.skins {
		out := m.boneMatrices[s][:0]
		for j, joint := range skin.Joints {
			world, ok := m.store.WorldTransform(joint)
			if !ok {
				world = mgl32.Ident4()
			}
			bone := rootInverse.Mul4(world)
			if j < len(skin.InverseBindMatrices) {
				bone = bone.Mul4(skin.InverseBindMatrices[j])
			}
			out = append(out, bone)
		}
		m.boneMatrices[s] = out
	}
}

func (m *model) BoneMatrices(skin int) []mgl32.Mat4 {
	if skin < 0 || skin >= len(m.boneMatrices) {
		return nil
	}
	return append([]mgl32.Mat4(nil), m.boneMatrices[skin]...)
}

func (m *model) BoneMatrixUpdates() int {
	return m.boneUpdates
}

func (m *model) clip(index int) (*AnimationClip, error) {
	if index < 0 || index >= len(m.animations) {
		return nil, fmt.Errorf("model %q: clip %d of %d: %w", m.name, index, len(m.animations), common.ErrNotFound)
	}
	return m.animations[index], nil
}

// wrap folds t into the clip when it runs past the end. t == Duration stays on the last key.
func (a *AnimationClip) wrap(t float32) float32 {
	if a.Duration <= 0 || t <= a.Duration {
		return t
	}
	return float32(math.Mod(float64(t), float64(a.Duration)))
}

// sample evaluates a channel at t. Components without keys keep the base pose.
func sample(ch AnimationChannel, base pose, t float32) pose {
	out := base
	if len(ch.PositionKeys) > 0 {
		i, f := locate(len(ch.PositionKeys), func(k int) float32 { return ch.PositionKeys[k].Time }, t)
		out.translation = lerpVec3(ch.PositionKeys[i].Value, ch.PositionKeys[min(i+1, len(ch.PositionKeys)-1)].Value, f)
	}
	if len(ch.RotationKeys) > 0 {
		i, f := locate(len(ch.RotationKeys), func(k int) float32 { return ch.RotationKeys[k].Time }, t)
		a := ch.RotationKeys[i].Value
		b := ch.RotationKeys[min(i+1, len(ch.RotationKeys)-1)].Value
		out.rotation = mgl32.QuatSlerp(a, b, f).Normalize()
	}
	if len(ch.ScaleKeys) > 0 {
		i, f := locate(len(ch.ScaleKeys), func(k int) float32 { return ch.ScaleKeys[k].Time }, t)
		out.scale = lerpVec3(ch.ScaleKeys[i].Value, ch.ScaleKeys[min(i+1, len(ch.ScaleKeys)-1)].Value, f)
	}
	return out
}

// locate finds the key segment containing t and the fraction through it.
// Times before the first key or after the last clamp to that key.
func locate(n int, timeAt func(int) float32, t float32) (int, float32) {
	next := sort.Search(n, func(k int) bool { return timeAt(k) > t })
	if next == 0 {
		return 0, 0
	}
	if next == n {
		return n - 1, 0
	}
	i := next - 1
	span := timeAt(next) - timeAt(i)
	if span <= 0 {
		return i, 0
	}
	return i, (t - timeAt(i)) / span
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
