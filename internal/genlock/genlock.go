package genlock

import (
	"context"
	"sync"
	"time"

	"family-media/internal/logging"
	"family-media/internal/metrics"
)

const (
	// DefaultPollInterval is how often a waiter re-checks a held key.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultTimeout bounds how long Acquire waits before proceeding anyway.
	DefaultTimeout = 30 * time.Second
)

// Acquisition describes how a lock was obtained.
type Acquisition struct {
	Waited time.Duration
	// TimedOut is true when the previous holder was still active and the
	// caller proceeded without exclusivity.
	TimedOut bool
}

// Contended reports whether the caller had to wait for another holder.
func (a Acquisition) Contended() bool {
	return a.Waited > 0 || a.TimedOut
}

// Locker is an advisory, key-scoped mutex. Acquire never fails: when the
// wait bound is reached the caller proceeds and the result says so.
// Release must be called on every exit path once Acquire returns.
type Locker interface {
	Acquire(ctx context.Context, key string) Acquisition
	Release(ctx context.Context, key string)
}

// Memory is the default Locker. It only excludes holders inside this
// process; separate instances can still generate the same artifact
// concurrently.
type Memory struct {
	PollInterval time.Duration
	Timeout      time.Duration

	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemory creates an in-process locker with the default poll interval
// and timeout.
func NewMemory() *Memory {
	return &Memory{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		held:         make(map[string]time.Time),
	}
}

func (m *Memory) tryTake(key string, force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy && !force {
		return false
	}
	m.held[key] = time.Now()
	return true
}

// Acquire polls until key is free or Timeout elapses.
func (m *Memory) Acquire(ctx context.Context, key string) Acquisition {
	start := time.Now()
	defer func() {
		metrics.GenerationLockWait.WithLabelValues("memory").Observe(time.Since(start).Seconds())
	}()

	if m.tryTake(key, false) {
		return Acquisition{}
	}

	ticker := time.NewTicker(m.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(m.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			if m.tryTake(key, false) {
				return Acquisition{Waited: time.Since(start)}
			}
		case <-deadline.C:
			return m.proceed(key, start, "timed out")
		case <-ctx.Done():
			return m.proceed(key, start, ctx.Err().Error())
		}
	}
}

func (m *Memory) proceed(key string, start time.Time, reason string) Acquisition {
	waited := time.Since(start)
	m.mu.Lock()
	since := m.held[key]
	m.mu.Unlock()
	logging.Warn("Generation lock for %q %s after %v (held since %s), proceeding without exclusivity",
		key, reason, waited.Round(time.Millisecond), since.Format(time.RFC3339))
	metrics.GenerationLockTimeouts.WithLabelValues("memory").Inc()
	m.tryTake(key, true)
	return Acquisition{Waited: waited, TimedOut: true}
}

// Release clears the marker for key regardless of who set it.
func (m *Memory) Release(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.held, key)
	m.mu.Unlock()
}

// Held returns the number of keys currently marked.
func (m *Memory) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.held)
}

// IsHeld reports whether key is currently marked.
func (m *Memory) IsHeld(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}
