package game_object

import (
	"sync/atomic"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	id        common.Entity
	name      string
	enabled   atomic.Bool
	parent    common.Entity
	hasParent bool
	children  []common.Entity
	local     mgl32.Mat4

	// renderable state; nil morphWeights means the object is not renderable
	morphWeights []float32
}

// GameObject is a read-only view of a node in the in-memory scene graph.
type GameObject interface {
	// ID returns the object's entity handle.
	//
	// Returns:
	//   - common.Entity: the entity
	ID() common.Entity

	// Name returns the object's debug name.
	//
	// Returns:
	//   - string: the name, possibly empty
	Name() string

	// Enabled returns whether this object is enabled.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Renderable reports whether the object accepts morph weights.
	//
	// Returns:
	//   - bool: true if the object was created with at least one morph target
	Renderable() bool

	// Local returns the object's parent-relative transform at the time the view was taken.
	//
	// Returns:
	//   - mgl32.Mat4: the local transform
	Local() mgl32.Mat4

	// MorphWeights returns a copy of the object's morph weights at the time the view was taken.
	//
	// Returns:
	//   - []float32: the weights, nil if the object is not renderable
	MorphWeights() []float32
}

var _ GameObject = &gameObject{}

// newGameObject creates a node with an identity transform and applies the options.
func newGameObject(id common.Entity, options ...GameObjectBuilderOption) *gameObject {
	g := &gameObject{
		id:    id,
		local: mgl32.Ident4(),
	}
	g.enabled.Store(true)

	for _, opt := range options {
		opt(g)
	}
	return g
}

// snapshot copies the mutable parts of the node so the view can leave the registry lock.
func (g *gameObject) snapshot() *gameObject {
	cp := &gameObject{
		id:        g.id,
		name:      g.name,
		parent:    g.parent,
		hasParent: g.hasParent,
		children:  append([]common.Entity(nil), g.children...),
		local:     g.local,
	}
	if g.morphWeights != nil {
		cp.morphWeights = append([]float32(nil), g.morphWeights...)
	}
	cp.enabled.Store(g.enabled.Load())
	return cp
}

func (g *gameObject) ID() common.Entity {
	return g.id
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Renderable() bool {
	return g.morphWeights != nil
}

func (g *gameObject) Local() mgl32.Mat4 {
	return g.local
}

func (g *gameObject) MorphWeights() []float32 {
	if g.morphWeights == nil {
		return nil
	}
	return append([]float32(nil), g.morphWeights...)
}
