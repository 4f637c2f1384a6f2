package workers

import (
	"runtime"
)

// Count returns how many workers to run for a task type. It respects
// container CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks such as ffmpeg frame extraction
//   - 2.0 for I/O-bound tasks such as storage probing
//
// A positive override, usually from THUMBNAIL_WORKERS, replaces the
// calculation. limit caps the result either way; use 0 for no cap.
func Count(multiplier float64, limit, override int) int {
	workers := override
	if workers <= 0 {
		// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
		workers = int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	}

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit, override int) int {
	return Count(1.0, limit, override)
}
