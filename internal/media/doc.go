// Package media produces thumbnails for photos and videos kept in blob
// storage.
//
// A Generator serves the stored artifact at thumbnails/<key> when one
// exists, and otherwise generates it under a per-artifact lock:
//   - Images: EXIF auto-rotation, resize to 300px wide, metadata strip, JPEG.
//     On any processing error the original bytes are served and nothing is
//     stored.
//   - Videos: a frame taken at one second via ffmpeg, processed like an
//     image. When no frame can be produced an SVG play icon is stored.
//
// Stored artifacts shorter than MinThumbnailBytes are sentinels from
// earlier failures and are regenerated.
//
// Image work is done by an ImageProcessor: VipsProcessor (libvips) or
// ImagingProcessor (pure Go).
package media
