package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_media_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_media_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Storage metrics
var (
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_storage_operations_total",
			Help: "Total number of storage backend operations",
		},
		[]string{"backend", "operation", "status"}, // status: success, not_found, unsupported, error, rejected
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_media_storage_operation_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend", "operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_storage_bytes_total",
			Help: "Bytes read from or written to the storage backend",
		},
		[]string{"backend", "direction"}, // direction: download, upload
	)

	StorageBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "family_media_storage_breaker_state",
			Help: "Storage circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"backend"},
	)
)

// Filesystem metrics (local backend)
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_media_filesystem_operation_duration_seconds",
			Help:    "Duration of local filesystem operations",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_filesystem_operation_errors_total",
			Help: "Total number of failed local filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_filesystem_retry_attempts_total",
			Help: "Total number of retried filesystem operations after a stale NFS handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_media_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a filesystem operation including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Path resolution metrics
var (
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_path_resolutions_total",
			Help: "Total number of logical path resolutions by result",
		},
		[]string{"result"}, // resolved, not_found
	)

	ResolutionMatchedStrategy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_path_resolution_strategy_total",
			Help: "Which candidate strategy produced the resolved key",
		},
		[]string{"strategy"},
	)

	ResolutionProbes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "family_media_path_resolution_probes",
			Help:    "Number of existence probes issued per resolution",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
	)

	ResolutionProbeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "family_media_path_resolution_probe_errors_total",
			Help: "Existence probes that failed and were treated as a miss",
		},
	)
)

// Generation lock metrics
var (
	GenerationLockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_media_generation_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a generation lock",
			Buckets: []float64{0, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"backend"},
	)

	GenerationLockTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_generation_lock_timeouts_total",
			Help: "Lock acquisitions that gave up waiting and proceeded without exclusivity",
		},
		[]string{"backend"},
	)

	GenerationLocksHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_media_generation_locks_held",
			Help: "Number of generation locks currently held in this process",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_thumbnail_outcomes_total",
			Help: "Thumbnail requests by media type and terminal outcome",
		},
		[]string{"type", "outcome"}, // outcome: reused, generated, placeholder, fallback_original, error
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "family_media_thumbnail_generation_duration_seconds",
			Help:    "Time taken to generate a thumbnail, excluding lock wait",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	ThumbnailPlaceholderSentinels = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "family_media_thumbnail_placeholder_sentinels_total",
			Help: "Stored artifacts found below the minimum size and regenerated",
		},
	)

	ThumbnailFFmpegDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "family_media_thumbnail_ffmpeg_duration_seconds",
			Help:    "Duration of ffmpeg frame extraction",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ThumbnailFFmpegInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_media_thumbnail_ffmpeg_in_flight",
			Help: "Number of ffmpeg processes currently running",
		},
	)
)

// Streaming metrics
var (
	StreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_stream_responses_total",
			Help: "Media responses by status code and media type",
		},
		[]string{"status", "type"},
	)

	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "family_media_stream_bytes_total",
			Help: "Total body bytes written to clients",
		},
	)

	StreamWriteTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "family_media_stream_write_timeouts_total",
			Help: "Responses aborted because a client stopped reading",
		},
	)
)

// Authorization metrics
var (
	AuthDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "family_media_auth_decisions_total",
			Help: "Authorization decisions by result",
		},
		[]string{"result"}, // allowed, unauthorized, forbidden
	)
)

// Runtime metrics
var (
	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_media_go_memalloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)

	GoGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "family_media_goroutines",
			Help: "Number of goroutines",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "family_media_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version", "storage_backend"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion, storageBackend string) {
	AppInfo.WithLabelValues(version, commit, goVersion, storageBackend).Set(1)
}
