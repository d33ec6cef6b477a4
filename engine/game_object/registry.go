package game_object

import (
	"fmt"
	"sort"
	"sync"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Registry is an in-memory scene graph. It is the transform store and renderable store the animation core
// writes into when no external engine provides them.
type Registry interface {
	common.TransformStore
	common.RenderableStore

	// Create adds a new GameObject and returns its entity handle. Handles start at 1 and are never reused.
	//
	// Parameters:
	//   - options: functional options to configure the object
	//
	// Returns:
	//   - common.Entity: the new entity
	Create(options ...GameObjectBuilderOption) common.Entity

	// Destroy removes an object and all of its descendants.
	//
	// Parameters:
	//   - e: the entity to remove
	//
	// Returns:
	//   - []common.Entity: every removed entity, root first
	Destroy(e common.Entity) []common.Entity

	// Get returns a snapshot view of an object.
	//
	// Parameters:
	//   - e: the entity to look up
	//
	// Returns:
	//   - GameObject: the view
	//   - bool: false if the entity does not exist
	Get(e common.Entity) (GameObject, bool)

	// SetParent re-parents an object, keeping its local transform. Pass ok=false to detach it to the root.
	//
	// Returns:
	//   - error: ErrNotFound for an unknown entity, ErrInvalidArgument if the parent is a descendant
	SetParent(child, parent common.Entity, ok bool) error

	// Descendants returns e and every entity below it, parents before children.
	Descendants(e common.Entity) []common.Entity

	// Entities returns every live entity in ascending order.
	Entities() []common.Entity
}

type registry struct {
	mu      *sync.RWMutex
	nextID  common.Entity
	objects map[common.Entity]*gameObject
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Returns:
//   - Registry: the new registry
func NewRegistry() Registry {
	return &registry{
		mu:      &sync.RWMutex{},
		nextID:  1,
		objects: make(map[common.Entity]*gameObject),
	}
}

func (r *registry) Create(options ...GameObjectBuilderOption) common.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	g := newGameObject(id, options...)
	if g.hasParent {
		if p, ok := r.objects[g.parent]; ok {
			p.children = append(p.children, id)
		} else {
			g.hasParent = false
			g.parent = 0
		}
	}
	r.objects[id] = g
	return id
}

func (r *registry) Destroy(e common.Entity) []common.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.objects[e]
	if !ok {
		return nil
	}
	removed := r.descendants(e)
	if g.hasParent {
		if p, ok := r.objects[g.parent]; ok {
			p.children = removeEntity(p.children, e)
		}
	}
	for _, d := range removed {
		delete(r.objects, d)
	}
	return removed
}

func (r *registry) Get(e common.Entity) (GameObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.objects[e]
	if !ok {
		return nil, false
	}
	return g.snapshot(), true
}

func (r *registry) SetParent(child, parent common.Entity, ok bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.objects[child]
	if !exists {
		return fmt.Errorf("game_object: entity %d: %w", child, common.ErrNotFound)
	}
	var p *gameObject
	if ok {
		if p, exists = r.objects[parent]; !exists {
			return fmt.Errorf("game_object: parent %d: %w", parent, common.ErrNotFound)
		}
		for _, d := range r.descendants(child) {
			if d == parent {
				return fmt.Errorf("game_object: %d is a descendant of %d: %w", parent, child, common.ErrInvalidArgument)
			}
		}
	}

	if c.hasParent {
		if old, exists := r.objects[c.parent]; exists {
			old.children = removeEntity(old.children, child)
		}
	}
	c.parent, c.hasParent = 0, false
	if p != nil {
		c.parent, c.hasParent = parent, true
		p.children = append(p.children, child)
	}
	return nil
}

func (r *registry) Descendants(e common.Entity) []common.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descendants(e)
}

func (r *registry) Entities() []common.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]common.Entity, 0, len(r.objects))
	for id := range r.objects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *registry) LocalTransform(e common.Entity) (mgl32.Mat4, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.objects[e]
	if !ok {
		return mgl32.Mat4{}, false
	}
	return g.local, true
}

func (r *registry) WorldTransform(e common.Entity) (mgl32.Mat4, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.objects[e]
	if !ok {
		return mgl32.Mat4{}, false
	}
	world := g.local
	for g.hasParent {
		p, ok := r.objects[g.parent]
		if !ok {
			break
		}
		world = p.local.Mul4(world)
		g = p
	}
	return world, true
}

func (r *registry) SetLocalTransform(e common.Entity, m mgl32.Mat4) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.objects[e]
	if !ok {
		return fmt.Errorf("game_object: entity %d: %w", e, common.ErrNotFound)
	}
	g.local = m
	return nil
}

func (r *registry) Parent(e common.Entity) (common.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.objects[e]
	if !ok || !g.hasParent {
		return 0, false
	}
	return g.parent, true
}

func (r *registry) Children(e common.Entity) []common.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.objects[e]
	if !ok {
		return nil
	}
	return append([]common.Entity(nil), g.children...)
}

func (r *registry) SetMorphWeights(e common.Entity, weights []float32, firstIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.objects[e]
	if !ok || g.morphWeights == nil {
		return fmt.Errorf("game_object: renderable %d: %w", e, common.ErrNotFound)
	}
	if firstIndex < 0 || firstIndex+len(weights) > len(g.morphWeights) {
		return fmt.Errorf("game_object: morph range [%d,%d) exceeds %d targets: %w",
			firstIndex, firstIndex+len(weights), len(g.morphWeights), common.ErrInvalidArgument)
	}
	copy(g.morphWeights[firstIndex:], weights)
	return nil
}

// descendants walks the subtree breadth first. Callers must hold the lock.
func (r *registry) descendants(e common.Entity) []common.Entity {
	if _, ok := r.objects[e]; !ok {
		return nil
	}
	out := []common.Entity{e}
	for i := 0; i < len(out); i++ {
		if g, ok := r.objects[out[i]]; ok {
			out = append(out, g.children...)
		}
	}
	return out
}

func removeEntity(list []common.Entity, e common.Entity) []common.Entity {
	for i, v := range list {
		if v == e {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
