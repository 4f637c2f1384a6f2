/*
Package workers sizes concurrency limits in containerized environments.

runtime.NumCPU reports the host's CPUs even when a cgroup limits the
container to two of them. GOMAXPROCS follows the container limit (Go 1.19+),
so the helpers here derive worker counts from it.

	import "family-media/internal/workers"

	// ffmpeg processes allowed at once, at most 4
	slots := workers.ForCPU(4, cfg.ThumbnailWorkers)

A positive override (the THUMBNAIL_WORKERS setting) replaces the
calculation but is still capped by the limit.
*/
package workers
