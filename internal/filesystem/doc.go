/*
Package filesystem provides resilient file operations for the local storage
backend, which is typically an NFS export of the family archive.

Stat and Open are retried with exponential backoff when they fail with
ESTALE (stale NFS file handle); any other error is returned immediately.
Writes go through a temp file and rename so a concurrent reader never
observes a half-written thumbnail.

	info, err := filesystem.StatWithRetry(p, filesystem.DefaultRetryConfig())

	data, err := filesystem.ReadRange(p, 200, 100, filesystem.DefaultRetryConfig())

	err := filesystem.WriteFileAtomic(p, jpegBytes, filesystem.DefaultRetryConfig())

Metrics are reported through an Observer installed with SetObserver, keyed
by the volume label a VolumeResolver assigns to each path.
*/
package filesystem
