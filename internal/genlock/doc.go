// Package genlock provides the per-key advisory lock that keeps a process
// from generating the same thumbnail twice at once.
//
// Acquire waits cooperatively, polling every 100ms, and gives up after 30s.
// Giving up is not an error: the caller proceeds without exclusivity and a
// warning is logged. Release clears the key unconditionally.
//
// Memory, the default, only coordinates requests handled by the same
// process. Under horizontal scale-out two instances may generate the same
// artifact; both write identical bytes to the same key. Redis moves the marker into a
// leased key for deployments that want cross-instance exclusion, with the
// same best-effort semantics.
package genlock
