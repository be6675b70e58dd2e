package search

import (
	"runtime"
	"runtime/debug"
)

// pressureBreaches is the number of consecutive threshold breaches that raise the pressure flag
const pressureBreaches = 3

// MemoryMonitor samples heap usage every interval ticks.
// The first breach in a run requests a collection; three consecutive breaches set the
// pressure flag, after which the engine stops backtracking and keeps its partial result.
type MemoryMonitor struct {
	interval       int
	thresholdBytes uint64

	ticks       int
	consecutive int
	pressure    bool

	// sample and collect are replaceable for tests
	sample  func() uint64
	collect func()
}

// NewMemoryMonitor creates a monitor. A zero interval or threshold disables sampling.
func NewMemoryMonitor(interval int, thresholdBytes uint64) *MemoryMonitor {
	return &MemoryMonitor{
		interval:       interval,
		thresholdBytes: thresholdBytes,
		sample:         heapInUse,
		collect:        forceCollect,
	}
}

func heapInUse() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapInuse
}

func forceCollect() {
	runtime.GC()
	debug.FreeOSMemory()
}

// Tick counts one attempt and samples when the interval is reached.
// Returns whether a sample was taken and whether a collection was requested.
func (m *MemoryMonitor) Tick() (sampled bool, collected bool) {
	if m.interval <= 0 || m.thresholdBytes == 0 {
		return false, false
	}
	m.ticks++
	if m.ticks%m.interval != 0 {
		return false, false
	}

	if m.sample() <= m.thresholdBytes {
		m.consecutive = 0
		return true, false
	}

	m.consecutive++
	if m.consecutive == 1 {
		m.collect()
		collected = true
	}
	if m.consecutive >= pressureBreaches {
		m.pressure = true
	}
	return true, collected
}

// Pressure reports whether the pressure flag has been raised
func (m *MemoryMonitor) Pressure() bool {
	return m.pressure
}
