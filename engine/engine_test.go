package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RajatDBazaar/thermion-3d-360/engine/game_object"
	"github.com/RajatDBazaar/thermion-3d-360/engine/scene"
	"github.com/stretchr/testify/require"
)

func newScene(t *testing.T, name string) (scene.Scene, game_object.Registry) {
	t.Helper()
	reg := game_object.NewRegistry()
	s := scene.NewScene(name, reg, reg, scene.WithWorkers(0))
	t.Cleanup(s.Close)
	return s, reg
}

func TestTickRate(t *testing.T) {
	e := NewEngine(WithTickRate(0))
	require.Equal(t, time.Second/60, e.TickRate())

	e.SetTickRate(50)
	require.Equal(t, 20*time.Millisecond, e.TickRate())
}

func TestScenes(t *testing.T) {
	a, _ := newScene(t, "a")
	b, _ := newScene(t, "b")
	e := NewEngine(WithScene(2, b))
	e.AddScene(1, a)

	require.Equal(t, a, e.Scene(1))
	require.Len(t, e.Scenes(), 2)
	e.RemoveScene(2)
	require.Nil(t, e.Scene(2))
	require.Len(t, e.Scenes(), 1)
}

func TestTick(t *testing.T) {
	s, reg := newScene(t, "main")
	ent := reg.Create()
	s.QueuePositionUpdate(ent, 3, 0, 0, false)

	e := NewEngine(WithScene(0, s))
	e.Tick()

	world, ok := reg.WorldTransform(ent)
	require.True(t, ok)
	require.InDelta(t, 3, world.Col(3).X(), 1e-5)
}

func TestRun(t *testing.T) {
	t.Run("Stops on context cancel", func(t *testing.T) {
		s, reg := newScene(t, "main")
		ent := reg.Create()
		s.QueuePositionUpdate(ent, 1, 0, 0, true)

		var ticks atomic.Int32
		e := NewEngine(WithTickRate(500), WithScene(0, s), WithProfiling(true))
		e.SetTickCallback(func(float32) { ticks.Add(1) })

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- e.Run(ctx) }()

		require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 5*time.Second, time.Millisecond)
		world, _ := reg.WorldTransform(ent)
		require.InDelta(t, 1, world.Col(3).X(), 1e-5)

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop")
		}
	})

	t.Run("Stops on Quit", func(t *testing.T) {
		e := NewEngine(WithTickRate(500))
		done := make(chan error, 1)
		go func() { done <- e.Run(context.Background()) }()

		e.Quit()
		e.Quit()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop")
		}
	})

	t.Run("Follows the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scene.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\ntick_rate: 30\n"), 0o644))

		e := NewEngine(WithTickRate(30), WithConfigWatch(path))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- e.Run(ctx) }()

		require.Eventually(t, func() bool {
			// rewrite until the watcher has picked it up; the first write may race the watch setup
			_ = os.WriteFile(path, []byte("version: 1\ntick_rate: 120\n"), 0o644)
			return e.TickRate() == tickInterval(120)
		}, 5*time.Second, 200*time.Millisecond)

		cancel()
		require.NoError(t, <-done)
	})

	t.Run("Unwatchable config path", func(t *testing.T) {
		e := NewEngine(WithConfigWatch(filepath.Join(t.TempDir(), "missing", "scene.yaml")))
		require.Error(t, e.Run(context.Background()))
	})
}
