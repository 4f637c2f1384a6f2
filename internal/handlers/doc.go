// Package handlers provides the HTTP handlers of the family media service.
//
// It includes handlers for:
//   - Originals and thumbnails under /api/media/{path}
//   - Signed direct downloads for the local backend
//   - Thumbnail diagnostics and in-place rotation
//   - Health, readiness and version probes
package handlers
