package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"family-media/internal/logging"
)

// VolumeResolver maps file paths to volume labels for metrics, using
// longest-prefix matching on absolute paths.
type VolumeResolver struct {
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute, with trailing slash
	name string
}

// NewVolumeResolver creates a resolver from a map of volume name to path.
//
//	NewVolumeResolver(map[string]string{
//	    "media":      "/srv/album/media",
//	    "thumbnails": "/srv/album/thumbnails",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, p := range volumes {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if !strings.HasSuffix(abs, "/") {
			abs += "/"
		}
		mounts = append(mounts, volumeMount{path: abs, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for a path, or "unknown".
func (vr *VolumeResolver) Resolve(p string) string {
	if vr == nil {
		return "unknown"
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "unknown"
	}

	for _, m := range vr.mounts {
		if strings.HasPrefix(abs+"/", m.path) {
			return m.name
		}
	}
	return "unknown"
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
// Call this once at startup after loading configuration.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver when set.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(p string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(p)
	}
	return defaultResolver.Resolve(p)
}

// isNFSStaleError checks for ESTALE (errno 116 on Linux).
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// withRetry runs fn until it succeeds, fails with a non-ESTALE error, or
// exhausts config.MaxRetries.
func withRetry[T any](op, p string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(p)
	obs := observe()
	backoff := config.InitialBackoff

	var zero T
	var lastErr error

	done := func() {
		if obs != nil {
			obs.ObserveRetryDuration(op, volume, time.Since(start).Seconds())
		}
	}

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		v, err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, p)
				if obs != nil {
					obs.ObserveRetrySuccess(op, volume)
				}
			}
			done()
			return v, nil
		}

		lastErr = err
		if !isNFSStaleError(err) {
			done()
			return zero, err
		}

		if obs != nil {
			obs.ObserveStaleError(op, volume)
		}

		if attempt < config.MaxRetries {
			if obs != nil {
				obs.ObserveRetryAttempt(op, volume)
			}
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, p, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, p, lastErr)
	if obs != nil {
		obs.ObserveRetryFailure(op, volume)
	}
	done()
	return zero, lastErr
}

// StatWithRetry performs os.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(p string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", p, config, func() (os.FileInfo, error) {
		return os.Stat(p)
	})
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(p string, config RetryConfig) (*os.File, error) {
	return withRetry("open", p, config, func() (*os.File, error) {
		return os.Open(p)
	})
}
