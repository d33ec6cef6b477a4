package collision

import (
	"testing"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"github.com/RajatDBazaar/thermion-3d-360/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

var unitCube = common.NewAABB(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})

func TestCollider(t *testing.T) {
	t.Run("Register and unregister", func(t *testing.T) {
		reg := game_object.NewRegistry()
		c := NewCollider(reg)
		a := reg.Create()
		b := reg.Create()

		c.Register(a, unitCube)
		c.Register(b, unitCube, WithAffectsTransform(false))
		require.Equal(t, []common.Entity{a, b}, c.Entities())

		box, ok := c.Box(a)
		require.True(t, ok)
		require.Equal(t, unitCube, box)
		_, ok = c.Box(b)
		require.False(t, ok)
		require.True(t, c.Registered(b))

		require.True(t, c.Unregister(a))
		require.False(t, c.Unregister(a))
		require.False(t, c.Registered(a))
	})

	t.Run("Test picks the axis of least penetration", func(t *testing.T) {
		reg := game_object.NewRegistry()
		c := NewCollider(reg)
		mover := reg.Create()
		wall := reg.Create(game_object.WithPosition(1.5, 0, 0))
		floor := reg.Create(game_object.WithPosition(0, -1.8, 0))
		c.Register(mover, unitCube)
		c.Register(wall, unitCube)

		axes := c.Test(mover, unitCube)
		require.Equal(t, []mgl32.Vec3{{1, 0, 0}}, axes)

		c.Register(floor, unitCube, WithAffectsTransform(false))
		axes = c.Test(mover, unitCube)
		require.Equal(t, []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}}, axes)

		far := common.NewAABB(mgl32.Vec3{20, 20, 20}, mgl32.Vec3{1, 1, 1})
		require.Empty(t, c.Test(mover, far))
	})

	t.Run("Touching boxes do not overlap", func(t *testing.T) {
		reg := game_object.NewRegistry()
		c := NewCollider(reg)
		a := reg.Create()
		b := reg.Create(game_object.WithPosition(2, 0, 0))
		c.Register(a, unitCube)
		c.Register(b, unitCube)
		require.Empty(t, c.Test(a, unitCube))
		require.Empty(t, c.TestAll())
	})

	t.Run("TestAll fires callbacks on both sides", func(t *testing.T) {
		reg := game_object.NewRegistry()
		c := NewCollider(reg)
		a := reg.Create()
		b := reg.Create(game_object.WithPosition(1, 0, 0))
		d := reg.Create(game_object.WithPosition(10, 0, 0))

		var hits [][2]common.Entity
		record := func(self, other common.Entity) {
			hits = append(hits, [2]common.Entity{self, other})
		}
		c.Register(a, unitCube, WithCallback(record))
		c.Register(b, unitCube, WithCallback(record))
		c.Register(d, unitCube, WithCallback(record))

		pairs := c.TestAll()
		require.Equal(t, []Pair{{A: a, B: b}}, pairs)
		require.Equal(t, [][2]common.Entity{{a, b}, {b, a}}, hits)
	})

	t.Run("Destroyed entities are ignored", func(t *testing.T) {
		reg := game_object.NewRegistry()
		c := NewCollider(reg)
		a := reg.Create()
		b := reg.Create()
		c.Register(a, unitCube)
		c.Register(b, unitCube)
		reg.Destroy(b)

		require.Empty(t, c.Test(a, unitCube))
		require.Empty(t, c.TestAll())
	})

	t.Run("Requires a store", func(t *testing.T) {
		require.Panics(t, func() { NewCollider(nil) })
	})
}
