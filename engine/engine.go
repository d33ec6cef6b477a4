package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RajatDBazaar/thermion-3d-360/engine/config"
	"github.com/RajatDBazaar/thermion-3d-360/engine/profiler"
	"github.com/RajatDBazaar/thermion-3d-360/engine/scene"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// engine implements the Engine interface.
// Drives registered scenes at a fixed tick rate and optionally follows a configuration file.
type engine struct {
	mu *sync.RWMutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	scenes map[int]scene.Scene

	configPath string
	logger     *zap.Logger
}

// Engine is the main entry point for the engine.
// It runs the scene update loop and, when configured, the configuration watcher.
type Engine interface {
	// EnableProfiler enables tick statistics output to the logger.
	EnableProfiler()

	// DisableProfiler disables tick statistics output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// TickRate returns the interval between ticks.
	TickRate() time.Duration

	// SetTickCallback registers the function called each engine tick after every scene has updated.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddScene registers a scene at the given key.
	// Scenes are updated in ascending key order every tick.
	//
	// Parameters:
	//   - key: the update order (lower updates first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes by key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Tick updates every scene once, in key order.
	Tick()

	// Run drives the tick loop, and the configuration watcher when a config path is set, until ctx is
	// cancelled or Quit is called.
	//
	// Parameters:
	//   - ctx: stops the engine when done
	//
	// Returns:
	//   - error: the first error of the watcher, nil on a normal stop
	Run(ctx context.Context) error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, scenes, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.RWMutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  time.Second / 60,
		logger:          zap.NewNop(),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	return e
}

func (e *engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-e.quitChannel:
		}
		e.signalQuit()
		return nil
	})
	g.Go(func() error {
		e.handleEngine()
		return nil
	})

	if e.configPath != "" {
		w, err := config.NewWatcher(e.configPath, e.logger)
		if err != nil {
			e.signalQuit()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			watchCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				<-e.quitChannel
				cancel()
			}()
			return w.Run(watchCtx, e.applyConfig)
		})
	}

	e.logger.Info("engine started", zap.Duration("tickRate", e.TickRate()))
	err := g.Wait()
	e.logger.Info("engine stopped")
	return err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleEngine runs the fixed-rate engine tick loop.
// Updates every scene at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	ticker := time.NewTicker(e.TickRate())
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.Tick()
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
			if e.profilingEnabled.Load() {
				e.profiler.Tick(time.Since(now))
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

func (e *engine) Tick() {
	for _, s := range e.orderedScenes() {
		res := s.Update()
		if res.Animation.Skipped > 0 {
			e.logger.Debug("tick skipped tracks", zap.String("scene", s.Name()), zap.Int("skipped", res.Animation.Skipped))
		}
	}
}

func (e *engine) orderedScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]scene.Scene, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.scenes[k])
	}
	return out
}

// applyConfig pushes a reloaded configuration into the tick rate, the profiler switch and every scene.
func (e *engine) applyConfig(cfg *config.Config) {
	e.SetTickRate(cfg.TickRate)
	e.profilingEnabled.Store(cfg.Profiling)
	for _, s := range e.orderedScenes() {
		s.Reconfigure(cfg)
	}
}

// EnableProfiler enables tick statistics output to the logger.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables tick statistics output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
		return
	}
	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()
}

func (e *engine) TickRate() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engineTickRate
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

// tickInterval converts ticks per second to a ticker interval, defaulting to 60.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}
