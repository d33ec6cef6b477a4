package collision

import (
	"sort"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Callback is invoked when two collidables overlap during TestAll. self is the collidable the callback was
// registered on. Callbacks run under the scene lock and must not call back into the scene.
type Callback func(self, other common.Entity)

type collidable struct {
	box              common.AABB
	affectsTransform bool
	callback         Callback
}

// Pair is an overlapping pair found by TestAll, with A < B.
type Pair struct {
	A common.Entity
	B common.Entity
}

type collider struct {
	store       common.TransformStore
	collidables map[common.Entity]*collidable
	logger      *zap.Logger
}

// Collider is the default collision collaborator: a registry of local-space bounding boxes
// tested against each other at their world transforms.
//
// Collider is not safe for concurrent use; the owning scene serializes every call behind its lock.
type Collider interface {
	common.Collider

	// Register adds or replaces the entity's collidable.
	//
	// Parameters:
	//   - e: the entity
	//   - box: the bounding box in the entity's local space
	//   - options: callback and movement-clamping options
	Register(e common.Entity, box common.AABB, options ...CollidableOption)

	// Unregister removes the entity's collidable.
	//
	// Returns:
	//   - bool: true if a collidable was removed
	Unregister(e common.Entity) bool

	// Registered reports whether the entity has a collidable.
	Registered(e common.Entity) bool

	// Entities returns every entity with a collidable in ascending order.
	Entities() []common.Entity

	// TestAll tests every pair of collidables at their current world transforms and fires their callbacks.
	//
	// Returns:
	//   - []Pair: the overlapping pairs in ascending order
	TestAll() []Pair
}

var _ Collider = &collider{}

// NewCollider creates a Collider that reads world transforms from store.
// Panics if store is nil.
//
// Parameters:
//   - store: the transform store
//   - options: functional options
//
// Returns:
//   - Collider: the new collider
func NewCollider(store common.TransformStore, options ...ColliderBuilderOption) Collider {
	if store == nil {
		panic("collision: NewCollider requires a transform store")
	}
	c := &collider{
		store:       store,
		collidables: make(map[common.Entity]*collidable),
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *collider) Register(e common.Entity, box common.AABB, options ...CollidableOption) {
	col := &collidable{box: box, affectsTransform: true}
	for _, opt := range options {
		opt(col)
	}
	c.collidables[e] = col
	c.logger.Debug("collidable registered", zap.Uint32("entity", uint32(e)), zap.Bool("affectsTransform", col.affectsTransform))
}

func (c *collider) Unregister(e common.Entity) bool {
	if _, ok := c.collidables[e]; !ok {
		return false
	}
	delete(c.collidables, e)
	return true
}

func (c *collider) Registered(e common.Entity) bool {
	_, ok := c.collidables[e]
	return ok
}

func (c *collider) Entities() []common.Entity {
	out := make([]common.Entity, 0, len(c.collidables))
	for e := range c.collidables {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *collider) Box(e common.Entity) (common.AABB, bool) {
	col, ok := c.collidables[e]
	if !ok || !col.affectsTransform {
		return common.AABB{}, false
	}
	return col.box, true
}

// Test reports, for every other collidable the box overlaps, the world axis of least penetration.
func (c *collider) Test(e common.Entity, box common.AABB) []mgl32.Vec3 {
	var hit [3]bool
	for _, other := range c.Entities() {
		if other == e {
			continue
		}
		world, ok := c.worldBox(other)
		if !ok || !box.Overlaps(world) {
			continue
		}
		hit[minAxis(box.Penetration(world))] = true
	}

	var axes []mgl32.Vec3
	for a, ok := range hit {
		if ok {
			axes = append(axes, common.WorldAxes[a])
		}
	}
	return axes
}

func (c *collider) TestAll() []Pair {
	entities := c.Entities()
	boxes := make([]common.AABB, len(entities))
	valid := make([]bool, len(entities))
	for i, e := range entities {
		boxes[i], valid[i] = c.worldBox(e)
	}

	var pairs []Pair
	for i := range entities {
		if !valid[i] {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			if !valid[j] || !boxes[i].Overlaps(boxes[j]) {
				continue
			}
			a, b := entities[i], entities[j]
			pairs = append(pairs, Pair{A: a, B: b})
			if cb := c.collidables[a].callback; cb != nil {
				cb(a, b)
			}
			if cb := c.collidables[b].callback; cb != nil {
				cb(b, a)
			}
		}
	}
	return pairs
}

func (c *collider) worldBox(e common.Entity) (common.AABB, bool) {
	world, ok := c.store.WorldTransform(e)
	if !ok {
		return common.AABB{}, false
	}
	return c.collidables[e].box.Transform(world), true
}

func minAxis(depth mgl32.Vec3) int {
	axis := 0
	for a := 1; a < 3; a++ {
		if depth[a] < depth[axis] {
			axis = a
		}
	}
	return axis
}
