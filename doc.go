// Family Media serves the originals and thumbnails of a family photo and
// video library kept in object storage.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates them
//  2. Storage: Opens the local, S3, Azure or memory backend behind a circuit
//     breaker
//  3. Thumbnail Pipeline:
//     - Generation lock: in-process map or a Redis lease
//     - Image processor: libvips, with the pure Go imaging fallback
//     - Frame extractor: ffmpeg, bounded by THUMBNAIL_WORKERS
//  4. Metrics Collector: Samples lock and breaker state every minute
//  5. HTTP Server Setup: Routes, auth, logging, metrics and gzip middleware
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080):
//     - /api/media/{path} and /media/{path}: originals, ranged video,
//     redirects for large video, ?thumbnail=true for thumbnails
//     - /api/direct: signed direct access for the local backend
//     - Thumbnail diagnostics and maintenance endpoints
//     - /health, /healthz, /livez, /readyz, /version
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// See [family-media/internal/startup] for the environment variables.
//
// # Graceful Shutdown
//
//  1. Mark the service not ready
//  2. Shutdown main HTTP server (30s timeout)
//  3. Shutdown metrics server (if running)
//  4. Stop metrics collector
//  5. Close the generation lock backend
//  6. Shut down libvips
//
// # Build Requirements
//
// libvips needs CGO. Without it set IMAGE_PROCESSOR=imaging. FFmpeg is
// optional; without it video thumbnails are a placeholder image.
//
// # Related Packages
//
//   - [family-media/internal/handlers]: HTTP request handlers
//   - [family-media/internal/media]: Thumbnail generation
//   - [family-media/internal/resolver]: Request path to storage key resolution
//   - [family-media/internal/storage]: Storage backends
//   - [family-media/internal/streaming]: Serving originals and ranges
//   - [family-media/internal/middleware]: HTTP middleware
//   - [family-media/internal/startup]: Configuration and initialization
package main
