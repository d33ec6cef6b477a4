package scene

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/RajatDBazaar/thermion-3d-360/engine/animator"
	"github.com/RajatDBazaar/thermion-3d-360/engine/collision"
	"github.com/RajatDBazaar/thermion-3d-360/engine/config"
	"github.com/RajatDBazaar/thermion-3d-360/engine/profiler"
	"github.com/RajatDBazaar/thermion-3d-360/engine/skeleton"
	"github.com/RajatDBazaar/thermion-3d-360/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// DefaultClipFrameRate is the frame rate SetAnimationFrame converts frame numbers with.
const DefaultClipFrameRate float32 = 60

// TickResult is what one Update did.
type TickResult struct {
	Animation  animator.UpdateResult
	Transforms []transform.Result
	Busy       time.Duration
}

// Scene is the scene-update context: it owns the animation component store, the pending transform queue,
// the collision collaborator and the instances registered by the host, and runs them once per frame.
// Every method takes the scene lock, so requests may be submitted from any goroutine while a frame is
// being resolved on another.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// RegisterInstance marks the instance's root entity as a hierarchical instance. Animation components
	// added for that entity afterwards drive the instance.
	//
	// Parameters:
	//   - inst: the instance
	RegisterInstance(inst common.Instance)

	// UnregisterInstance forgets the instance rooted at root.
	//
	// Returns:
	//   - bool: true if an instance was registered for root
	UnregisterInstance(root common.Entity) bool

	// AddAnimationComponent adds animation support for the entity. An entity that resolves to a registered
	// instance becomes an instance component; any other entity becomes a plain component.
	AddAnimationComponent(e common.Entity)

	// RemoveAnimationComponent removes the entity's animation support and all of its tracks.
	//
	// Returns:
	//   - bool: true if a component was removed
	RemoveAnimationComponent(e common.Entity) bool

	// HasAnimationComponent reports whether the entity has animation support.
	HasAnimationComponent(e common.Entity) bool

	// PlayAnimation starts a skeletal clip on the entity's instance component.
	//
	// Parameters:
	//   - e: the instance root
	//   - clipIndex: the clip to play
	//   - opts: loop, reverse, replace, crossfade and start offset
	//
	// Returns:
	//   - error: see animator.Animator.PlaySkeletalClip
	PlayAnimation(e common.Entity, clipIndex int, opts animator.PlayOptions) error

	// StopAnimation stops every active track playing clipIndex.
	StopAnimation(e common.Entity, clipIndex int) error

	// SetMorphAnimation appends a morph weight sequence written into the entity's own morph targets.
	SetMorphAnimation(e common.Entity, opts animator.MorphOptions) error

	// ClearMorphAnimation removes the entity's morph sequences.
	ClearMorphAnimation(e common.Entity) error

	// AddBoneAnimation appends a procedural bone-frame animation to the entity's instance component.
	AddBoneAnimation(e common.Entity, opts animator.BoneFrameOptions) error

	// ClipTracks returns the entity's active skeletal clip tracks.
	ClipTracks(e common.Entity) []animator.SkeletalClipTrack

	// MorphTracks returns the entity's morph tracks.
	MorphTracks(e common.Entity) []animator.MorphTrack

	// ResetToRestPose puts every joint of the entity's instance back into its bind pose.
	//
	// Returns:
	//   - error: ErrNotFound if the entity is not a registered instance, or the resolver's error
	ResetToRestPose(e common.Entity) error

	// BoneRestTransforms returns the local rest transform of every joint of a skin, in joint order.
	BoneRestTransforms(e common.Entity, skin int) ([]mgl32.Mat4, error)

	// SetBoneTransform sets one joint's local transform and recomputes the instance's bone matrices.
	SetBoneTransform(e common.Entity, skin, bone int, m mgl32.Mat4) error

	// UpdateBoneMatrices recomputes the instance's bone matrices from its current joint transforms.
	UpdateBoneMatrices(e common.Entity) error

	// AnimationCount returns the number of clips on the entity's instance.
	AnimationCount(e common.Entity) (int, error)

	// AnimationNames returns the clip names of the entity's instance in clip order.
	AnimationNames(e common.Entity) ([]string, error)

	// AnimationDuration returns a clip's duration in seconds.
	AnimationDuration(e common.Entity, clipIndex int) (float32, error)

	// SetAnimationFrame poses the instance at a frame of a clip and recomputes its bone matrices.
	// Frames are converted to clip time at the configured clip frame rate.
	SetAnimationFrame(e common.Entity, clipIndex, frame int) error

	// SetMorphTargetWeights writes morph weights immediately.
	SetMorphTargetWeights(e common.Entity, weights []float32, firstIndex int) error

	// QueuePositionUpdate merges a translation into the entity's pending transform update.
	QueuePositionUpdate(e common.Entity, x, y, z float32, relative bool)

	// QueueRotationUpdate merges a rotation into the entity's pending transform update.
	// A non-zero rads is an angle around (x, y, z); otherwise (x, y, z, w) is a quaternion.
	QueueRotationUpdate(e common.Entity, rads, x, y, z, w float32, relative bool)

	// QueueScaleUpdate merges a uniform scale multiplier into the entity's pending transform update.
	QueueScaleUpdate(e common.Entity, factor float32) error

	// PendingTransform returns the entity's merged pending transform update.
	PendingTransform(e common.Entity) (transform.PendingUpdate, bool)

	// SetPosition replaces the translation of the entity's local transform immediately.
	SetPosition(e common.Entity, x, y, z float32) error

	// SetRotation replaces the rotation of the entity's local transform immediately.
	SetRotation(e common.Entity, rads, x, y, z, w float32) error

	// SetScale replaces the scale of the entity's local transform immediately.
	SetScale(e common.Entity, x, y, z float32) error

	// AddCollisionComponent registers a local-space bounding box for the entity.
	//
	// Returns:
	//   - error: ErrNotFound if the entity has no transform
	AddCollisionComponent(e common.Entity, box common.AABB, options ...collision.CollidableOption) error

	// RemoveCollisionComponent unregisters the entity's bounding box.
	RemoveCollisionComponent(e common.Entity) bool

	// HasCollisionComponent reports whether the entity has a bounding box.
	HasCollisionComponent(e common.Entity) bool

	// TestCollisions tests every pair of collidables and fires their callbacks.
	TestCollisions() []collision.Pair

	// Remove releases the animation component, collidable, pending update and instance registration of the
	// entity and all of its descendants. The entities themselves belong to the host.
	//
	// Returns:
	//   - []common.Entity: the entities visited, root first
	Remove(e common.Entity) []common.Entity

	// Update runs one animation tick followed by one transform resolution.
	//
	// Returns:
	//   - TickResult: what the tick did
	Update() TickResult

	// Reconfigure applies the settings of a reloaded configuration that can change while running:
	// the clip frame rate and a larger worker count.
	Reconfigure(cfg *config.Config)

	// Close stops the worker pool. Update is a no-op afterwards.
	Close()
}

type scene struct {
	mu *sync.Mutex

	name string

	clock       common.Clock
	transforms  common.TransformStore
	renderables common.RenderableStore
	instances   map[common.Entity]common.Instance

	animator animator.Animator
	queue    transform.Queue
	collider collision.Collider

	// planPool runs the parallel planning phase of the animation tick.
	planPool          worker.DynamicWorkerPool
	workers           int
	workerQueueSize   int
	parallelThreshold int
	endEpsilon        float32
	clipFrameRate     float32

	logger   *zap.Logger
	profiler *profiler.Profiler

	closed    bool
	closeOnce sync.Once
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a Scene over the host's transform and renderable stores.
// Panics if either store is nil.
//
// Parameters:
//   - name: the name of the scene
//   - transforms: the transform store (must not be nil)
//   - renderables: the renderable store (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, transforms common.TransformStore, renderables common.RenderableStore, options ...SceneBuilderOption) Scene {
	if transforms == nil {
		panic("scene: NewScene requires a non-nil transform store")
	}
	if renderables == nil {
		panic("scene: NewScene requires a non-nil renderable store")
	}

	s := &scene{
		mu:                &sync.Mutex{},
		name:              name,
		clock:             common.SystemClock{},
		transforms:        transforms,
		renderables:       renderables,
		instances:         make(map[common.Entity]common.Instance),
		workers:           max(runtime.NumCPU()-1, 1),
		workerQueueSize:   256,
		parallelThreshold: animator.DefaultParallelThreshold,
		endEpsilon:        animator.DefaultEndEpsilon,
		clipFrameRate:     DefaultClipFrameRate,
		logger:            zap.NewNop(),
	}

	for _, option := range options {
		option(s)
	}

	animatorOpts := []animator.AnimatorBuilderOption{
		animator.WithLogger(s.logger),
		animator.WithEndEpsilon(s.endEpsilon),
	}
	// Initialize the pool after options so WithWorkers can override the default.
	if s.workers > 0 {
		s.planPool = worker.NewDynamicWorkerPool(s.workers, s.workerQueueSize, time.Second)
		animatorOpts = append(animatorOpts, animator.WithWorkerPool(s.planPool, s.parallelThreshold))
	}
	s.animator = animator.NewAnimator(transforms, renderables, animatorOpts...)
	s.queue = transform.NewQueue(transform.WithLogger(s.logger))
	if s.collider == nil {
		s.collider = collision.NewCollider(transforms, collision.WithLogger(s.logger))
	}

	s.logger.Info("scene created",
		zap.String("scene", name),
		zap.Int("workers", s.workers),
		zap.Int("parallelThreshold", s.parallelThreshold))
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) RegisterInstance(inst common.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.Root()] = inst
}

func (s *scene) UnregisterInstance(root common.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[root]; !ok {
		return false
	}
	delete(s.instances, root)
	return true
}

// resolve maps an entity to its animation target, falling back to a plain entity.
func (s *scene) resolve(e common.Entity) animator.Target {
	if inst, ok := s.instances[e]; ok {
		return animator.InstanceTarget(inst)
	}
	return animator.EntityTarget(e)
}

func (s *scene) instance(e common.Entity) (common.Instance, error) {
	inst, ok := s.instances[e]
	if !ok {
		return nil, fmt.Errorf("scene: entity %d is not a registered instance: %w", e, common.ErrNotFound)
	}
	return inst, nil
}

func (s *scene) AddAnimationComponent(e common.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animator.AddComponent(s.resolve(e))
}

func (s *scene) RemoveAnimationComponent(e common.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.RemoveComponent(e)
}

func (s *scene) HasAnimationComponent(e common.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.HasComponent(e)
}

func (s *scene) PlayAnimation(e common.Entity, clipIndex int, opts animator.PlayOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.PlaySkeletalClip(e, clipIndex, opts, s.clock.Now())
}

func (s *scene) StopAnimation(e common.Entity, clipIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.StopSkeletalClip(e, clipIndex)
}

func (s *scene) SetMorphAnimation(e common.Entity, opts animator.MorphOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := !s.animator.HasComponent(e)
	if err := s.animator.AddMorphTrack(e, opts, s.clock.Now()); err != nil {
		return err
	}
	if created {
		s.animator.AddComponent(s.resolve(e))
	}
	return nil
}

func (s *scene) ClearMorphAnimation(e common.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.ClearMorphTracks(e)
}

func (s *scene) AddBoneAnimation(e common.Entity, opts animator.BoneFrameOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.AddBoneFrameTrack(e, opts, s.clock.Now())
}

func (s *scene) ClipTracks(e common.Entity) []animator.SkeletalClipTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.ClipTracks(e)
}

func (s *scene) MorphTracks(e common.Entity) []animator.MorphTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.animator.MorphTracks(e)
}

func (s *scene) ResetToRestPose(e common.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(e)
	if err != nil {
		return err
	}
	return skeleton.Reset(inst, s.transforms)
}

func (s *scene) BoneRestTransforms(e common.Entity, skin int) ([]mgl32.Mat4, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(e)
	if err != nil {
		return nil, err
	}
	poses, err := skeleton.ResolveSkin(inst, skin, s.transforms)
	if err != nil {
		return nil, err
	}
	return skeleton.ByIndex(poses), nil
}

func (s *scene) SetBoneTransform(e common.Entity, skin, bone int, m mgl32.Mat4) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(e)
	if err != nil {
		return err
	}
	joints, err := inst.Joints(skin)
	if err != nil {
		return err
	}
	if bone < 0 || bone >= len(joints) {
		return fmt.Errorf("scene: bone %d of %d in skin %d: %w", bone, len(joints), skin, common.ErrNotFound)
	}
	if err := s.transforms.SetLocalTransform(joints[bone], m); err != nil {
		return err
	}
	inst.UpdateBoneMatrices()
	return nil
}

func (s *scene) UpdateBoneMatrices(e common.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(e)
	if err != nil {
		return err
	}
	inst.UpdateBoneMatrices()
	return nil
}

func (s *scene) AnimationCount(e common.Entity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(e)
	if err != nil {
		return 0, err
	}
	return inst.ClipCount(), nil
}

func (s *scene) AnimationNames(e common.Entity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.instance(e)
	if err != nil {
		return nil, err
	}
	names := make([]string, inst.ClipCount())
	for i := range names {
		names[i] = inst.ClipName(i)
	}
	return names, nil
}

func (s *scene) AnimationDuration(e common.Entity, clipIndex int) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, err := s.clip(e, clipIndex)
	if err != nil {
		return 0, err
	}
	return inst.ClipDuration(clipIndex), nil
}

func (s *scene) SetAnimationFrame(e common.Entity, clipIndex, frame int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame < 0 {
		return fmt.Errorf("scene: frame %d: %w", frame, common.ErrInvalidArgument)
	}
	inst, err := s.clip(e, clipIndex)
	if err != nil {
		return err
	}
	if err := inst.ApplyClip(clipIndex, float32(frame)/s.clipFrameRate); err != nil {
		return err
	}
	inst.UpdateBoneMatrices()
	return nil
}

// clip returns the entity's instance after checking that clipIndex names one of its clips.
func (s *scene) clip(e common.Entity, clipIndex int) (common.Instance, error) {
	inst, err := s.instance(e)
	if err != nil {
		return nil, err
	}
	if clipIndex < 0 {
		return nil, fmt.Errorf("scene: clip index %d: %w", clipIndex, common.ErrInvalidArgument)
	}
	if clipIndex >= inst.ClipCount() {
		return nil, fmt.Errorf("scene: clip %d of %d: %w", clipIndex, inst.ClipCount(), common.ErrNotFound)
	}
	return inst, nil
}

func (s *scene) SetMorphTargetWeights(e common.Entity, weights []float32, firstIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderables.SetMorphWeights(e, weights, firstIndex)
}

func (s *scene) QueuePositionUpdate(e common.Entity, x, y, z float32, relative bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.EnqueuePosition(e, x, y, z, relative)
}

func (s *scene) QueueRotationUpdate(e common.Entity, rads, x, y, z, w float32, relative bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.EnqueueRotation(e, rads, x, y, z, w, relative)
}

func (s *scene) QueueScaleUpdate(e common.Entity, factor float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.EnqueueScale(e, factor)
}

func (s *scene) PendingTransform(e common.Entity) (transform.PendingUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Pending(e)
}

func (s *scene) SetPosition(e common.Entity, x, y, z float32) error {
	return s.editLocal(e, func(t *mgl32.Vec3, _ *mgl32.Quat, _ *mgl32.Vec3) {
		*t = mgl32.Vec3{x, y, z}
	})
}

func (s *scene) SetRotation(e common.Entity, rads, x, y, z, w float32) error {
	return s.editLocal(e, func(_ *mgl32.Vec3, r *mgl32.Quat, _ *mgl32.Vec3) {
		*r = common.AxisAngleOrQuat(rads, x, y, z, w)
	})
}

func (s *scene) SetScale(e common.Entity, x, y, z float32) error {
	return s.editLocal(e, func(_ *mgl32.Vec3, _ *mgl32.Quat, sc *mgl32.Vec3) {
		*sc = mgl32.Vec3{x, y, z}
	})
}

// editLocal decomposes the entity's local transform, lets edit change a part and writes it back.
func (s *scene) editLocal(e common.Entity, edit func(t *mgl32.Vec3, r *mgl32.Quat, sc *mgl32.Vec3)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	local, ok := s.transforms.LocalTransform(e)
	if !ok {
		return fmt.Errorf("scene: entity %d has no transform: %w", e, common.ErrNotFound)
	}
	t, r, sc := common.Decompose(local)
	edit(&t, &r, &sc)
	return s.transforms.SetLocalTransform(e, common.Compose(t, r, sc))
}

func (s *scene) AddCollisionComponent(e common.Entity, box common.AABB, options ...collision.CollidableOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transforms.LocalTransform(e); !ok {
		return fmt.Errorf("scene: entity %d has no transform: %w", e, common.ErrNotFound)
	}
	s.collider.Register(e, box, options...)
	return nil
}

func (s *scene) RemoveCollisionComponent(e common.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collider.Unregister(e)
}

func (s *scene) HasCollisionComponent(e common.Entity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collider.Registered(e)
}

func (s *scene) TestCollisions() []collision.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collider.TestAll()
}

func (s *scene) Remove(e common.Entity) []common.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	visited := []common.Entity{e}
	for i := 0; i < len(visited); i++ {
		visited = append(visited, s.transforms.Children(visited[i])...)
	}
	for _, v := range visited {
		s.animator.RemoveComponent(v)
		s.collider.Unregister(v)
		s.queue.Drop(v)
		delete(s.instances, v)
	}
	s.logger.Debug("entity released", zap.Uint32("entity", uint32(e)), zap.Int("count", len(visited)))
	return visited
}

func (s *scene) Update() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return TickResult{}
	}

	start := s.clock.Now()
	var res TickResult
	res.Animation = s.animator.Update(start)
	res.Transforms = s.queue.Resolve(s.transforms, s.collider)
	res.Busy = s.clock.Now().Sub(start)

	if s.profiler != nil {
		s.profiler.Tick(res.Busy)
	}
	return res
}

func (s *scene) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ClipFrameRate > 0 {
		s.clipFrameRate = cfg.ClipFrameRate
	}
	if s.planPool == nil || s.closed || cfg.Workers <= 0 {
		return
	}
	// The pool cannot shrink safely while running; fewer workers apply on the next start.
	if cur := s.planPool.GetMaxWorkers(); cfg.Workers > cur {
		s.planPool.IncreaseMaxWorkers(cfg.Workers - cur)
		s.workers = cfg.Workers
		s.logger.Info("worker pool grown", zap.Int("workers", cfg.Workers))
	} else if cfg.Workers < cur {
		s.logger.Info("worker pool shrink deferred to restart", zap.Int("workers", cur), zap.Int("requested", cfg.Workers))
	}
}

func (s *scene) Close() {
	s.closeOnce.Do(func() {
		// Waits for a running Update so the pool is never stopped mid-tick.
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if s.planPool != nil {
			s.planPool.Stop()
		}
		s.logger.Info("scene closed", zap.String("scene", s.name))
	})
}
