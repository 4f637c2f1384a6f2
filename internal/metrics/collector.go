package metrics

import (
	"runtime"
	"time"

	"family-media/internal/logging"
)

// StatsProvider reports point-in-time state that is cheaper to sample than
// to track on every change.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	GenerationLocksHeld int
	// BreakerStates maps backend name to 0 (closed), 1 (half-open), 2 (open).
	BreakerStates map[string]int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	collectRuntimeMetrics()

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	GenerationLocksHeld.Set(float64(stats.GenerationLocksHeld))
	for backend, state := range stats.BreakerStates {
		StorageBreakerState.WithLabelValues(backend).Set(float64(state))
	}

	logging.Debug("Metrics collected: locks_held=%d, breakers=%v",
		stats.GenerationLocksHeld, stats.BreakerStates)
}

func collectRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoMemAllocBytes.Set(float64(m.Alloc))
	GoGoroutines.Set(float64(runtime.NumGoroutine()))
}
