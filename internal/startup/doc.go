// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - STORAGE_BACKEND: local, s3, azure or memory (default: local)
//   - LOCAL_ROOT: Root directory of the local backend (default: /media)
//   - PUBLIC_BASE_URL: Origin used in signed direct URLs of the local backend
//   - URL_SIGNING_KEY: HMAC key for those URLs, at least 16 bytes
//   - S3_ENDPOINT, S3_BUCKET, S3_REGION, S3_ACCESS_KEY, S3_SECRET_KEY
//   - AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY, AZURE_STORAGE_CONTAINER
//   - LOCK_BACKEND: memory or redis (default: memory)
//   - REDIS_URL: Redis connection URL when LOCK_BACKEND=redis
//   - IMAGE_PROCESSOR: vips, imaging or none (default: vips)
//   - FFMPEG_PATH: ffmpeg binary (default: looked up on PATH)
//   - FFMPEG_INPUT_ARGS: Extra shell-quoted arguments placed before -i
//   - THUMBNAIL_WORKERS: Concurrent ffmpeg processes (default: CPU based)
//   - API_KEYS: Comma separated name:role:bcrypt-hash entries
//   - ANONYMOUS_ROLE: Role of callers without a key
//
// Secrets are masked in the configuration log. [Config.Validate] rejects
// combinations that cannot work, such as S3 without a bucket.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X family-media/internal/startup.Version=1.2.0"
//
// # Lifecycle Logging
//
// [LogStorageInit], [LogGeneratorInit], [LogFFmpegInit], [LogHTTPRoutes] and
// [LogServerStarted] print the sectioned startup log; [LogShutdownInitiated]
// and friends cover graceful shutdown.
package startup
