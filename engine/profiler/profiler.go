package profiler

import (
	"runtime"
	"time"

	"github.com/RajatDBazaar/thermion-3d-360/common"
	"go.uber.org/zap"
)

// Stats is one reporting interval's worth of tick and memory statistics.
type Stats struct {
	TicksPerSecond float64
	AvgTick        time.Duration
	MaxTick        time.Duration
	HeapMB         float64
	AllocRateMB    float64
	SysMB          float64
	GCCount        uint32
	LastPauseUs    uint64
	MaxPauseUs     uint64
}

// Profiler tracks tick rate, tick cost and memory statistics for performance monitoring.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	tickCount      int
	busy           time.Duration
	maxBusy        time.Duration
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	clock          common.Clock
	logger         *zap.Logger
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options for the logger, clock and interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		clock:          common.SystemClock{},
		logger:         zap.NewNop(),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.clock.Now()
	return p
}

// Tick should be called once per scene update with the time the update took.
// Logs performance statistics when the update interval has elapsed.
//
// Parameters:
//   - busy: how long the tick took
//
// Returns:
//   - Stats: the statistics of the interval that just closed
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(busy time.Duration) (Stats, bool) {
	p.tickCount++
	p.busy += busy
	p.maxBusy = max(p.maxBusy, busy)

	currentTime := p.clock.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		TicksPerSecond: float64(p.tickCount) / elapsed.Seconds(),
		AvgTick:        p.busy / time.Duration(p.tickCount),
		MaxTick:        p.maxBusy,
		// Alloc is live heap, Sys is the process footprint obtained from the OS
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		stats.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("tick stats",
		zap.Float64("tps", stats.TicksPerSecond),
		zap.Duration("avgTick", stats.AvgTick),
		zap.Duration("maxTick", stats.MaxTick),
		zap.Float64("heapMB", stats.HeapMB),
		zap.Float64("allocRateMB", stats.AllocRateMB),
		zap.Uint32("gc", stats.GCCount),
		zap.Uint64("lastPauseUs", stats.LastPauseUs),
		zap.Uint64("maxPauseUs", stats.MaxPauseUs),
		zap.Float64("sysMB", stats.SysMB))

	p.tickCount = 0
	p.busy = 0
	p.maxBusy = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
