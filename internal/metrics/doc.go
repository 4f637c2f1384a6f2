// Package metrics provides Prometheus instrumentation for the family media
// service.
//
// All metrics are prefixed with "family_media_" and registered with the
// default registry through promauto. The HTTP server exposes them on the
// dedicated metrics port.
//
// # Metric Categories
//
// ## HTTP
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Storage
//   - StorageOperationsTotal: by backend, operation and status
//   - StorageOperationDuration, StorageBytesTransferred
//   - StorageBreakerState: circuit breaker state per backend
//
// ## Filesystem (local backend)
//   - FilesystemOperationDuration, FilesystemOperationErrors
//   - FilesystemRetry*: NFS stale handle retry behaviour
//
// ## Path Resolution
//   - ResolutionsTotal, ResolutionMatchedStrategy, ResolutionProbes,
//     ResolutionProbeErrors
//
// ## Generation Locks
//   - GenerationLockWait, GenerationLockTimeouts, GenerationLocksHeld
//
// ## Thumbnails
//   - ThumbnailOutcomesTotal: reused, generated, placeholder,
//     fallback_original, error
//   - ThumbnailGenerationDuration, ThumbnailPlaceholderSentinels
//   - ThumbnailFFmpegDuration, ThumbnailFFmpegInFlight
//
// ## Streaming
//   - StreamResponsesTotal: by status (200/206/302/416) and media type
//   - StreamBytesTotal, StreamWriteTimeouts
//
// # Initialization
//
// InitializeMetrics pre-creates the expected label combinations so series
// exist from the first scrape. Collector samples state that is polled rather
// than pushed (held locks, breaker state, Go runtime memory).
package metrics
