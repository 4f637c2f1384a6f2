package genlock

import (
	"context"
	"fmt"
	"os"
	"time"

	"family-media/internal/logging"
	"family-media/internal/metrics"

	"github.com/redis/go-redis/v9"
)

// DefaultLease is how long a Redis lock survives a holder that never
// releases it.
const DefaultLease = 2 * time.Minute

// Redis is a Locker backed by a leased Redis key, for deployments that run
// several instances against the same storage. It keeps the same
// proceed-on-timeout policy as Memory, and a Redis outage degrades to no
// exclusivity rather than failing requests.
type Redis struct {
	client       redis.UniversalClient
	prefix       string
	PollInterval time.Duration
	Timeout      time.Duration
	Lease        time.Duration
	holder       string
}

// NewRedis creates a Redis locker. Keys are stored as prefix+key.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	host, _ := os.Hostname()
	return &Redis{
		client:       client,
		prefix:       prefix,
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		Lease:        DefaultLease,
		holder:       fmt.Sprintf("%s:%d", host, os.Getpid()),
	}
}

// NewRedisFromURL parses a redis:// URL and creates a locker.
func NewRedisFromURL(rawURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts), prefix), nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) take(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+key, r.holder+"@"+time.Now().UTC().Format(time.RFC3339Nano), r.Lease).Result()
}

// Acquire polls SET NX until it succeeds or Timeout elapses.
func (r *Redis) Acquire(ctx context.Context, key string) Acquisition {
	start := time.Now()
	defer func() {
		metrics.GenerationLockWait.WithLabelValues("redis").Observe(time.Since(start).Seconds())
	}()

	ok, err := r.take(ctx, key)
	if err != nil {
		logging.Warn("Redis lock for %q unavailable, proceeding without exclusivity: %v", key, err)
		return Acquisition{}
	}
	if ok {
		return Acquisition{}
	}

	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(r.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ticker.C:
			ok, err := r.take(ctx, key)
			if err != nil {
				logging.Warn("Redis lock for %q unavailable while waiting: %v", key, err)
				return Acquisition{Waited: time.Since(start)}
			}
			if ok {
				return Acquisition{Waited: time.Since(start)}
			}
		case <-deadline.C:
			return r.proceed(ctx, key, start)
		case <-ctx.Done():
			return r.proceed(context.WithoutCancel(ctx), key, start)
		}
	}
}

func (r *Redis) proceed(ctx context.Context, key string, start time.Time) Acquisition {
	waited := time.Since(start)
	holder, _ := r.client.Get(ctx, r.prefix+key).Result()
	logging.Warn("Generation lock for %q timed out after %v (held by %s), proceeding without exclusivity",
		key, waited.Round(time.Millisecond), holder)
	metrics.GenerationLockTimeouts.WithLabelValues("redis").Inc()
	if err := r.client.Set(ctx, r.prefix+key, r.holder, r.Lease).Err(); err != nil {
		logging.Debug("Redis lock overwrite for %q failed: %v", key, err)
	}
	return Acquisition{Waited: waited, TimedOut: true}
}

// Release deletes the key unconditionally.
func (r *Redis) Release(ctx context.Context, key string) {
	if err := r.client.Del(context.WithoutCancel(ctx), r.prefix+key).Err(); err != nil {
		logging.Warn("Redis lock release for %q failed (lease will expire): %v", key, err)
	}
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
