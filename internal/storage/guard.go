package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"family-media/internal/logging"
	"family-media/internal/metrics"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker around a backend.
type BreakerConfig struct {
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // cyclic period for clearing counts while closed
	Timeout      time.Duration // open duration before probing again
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  10,
	}
}

// Guard wraps a Store with a circuit breaker and Prometheus instrumentation.
// Missing objects, invalid ranges and a backend that cannot sign URLs are
// answers, not failures, and never trip the breaker.
type Guard struct {
	inner   Store
	cb      *gobreaker.CircuitBreaker
	backend string
}

// NewGuard wraps inner.
func NewGuard(inner Store, cfg BreakerConfig) *Guard {
	backend := inner.Type()
	settings := gobreaker.Settings{
		Name:        "storage-" + backend,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Circuit breaker %s: %s -> %s", name, from, to)
			metrics.StorageBreakerState.WithLabelValues(backend).Set(float64(stateValue(to)))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRange) ||
				errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrSigningUnavailable) ||
				errors.Is(err, context.Canceled)
		},
	}
	return &Guard{inner: inner, cb: gobreaker.NewCircuitBreaker(settings), backend: backend}
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// BreakerState returns 0 (closed), 1 (half-open) or 2 (open).
func (g *Guard) BreakerState() int {
	return stateValue(g.cb.State())
}

// Unwrap returns the guarded backend.
func (g *Guard) Unwrap() Store { return g.inner }

func (g *Guard) run(op string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	v, err := g.cb.Execute(fn)
	metrics.StorageOperationDuration.WithLabelValues(g.backend, op).Observe(time.Since(start).Seconds())

	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "rejected"
		err = errors.Join(ErrUnavailable, err)
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrSigningUnavailable):
		status = "unsupported"
	default:
		status = "error"
	}
	metrics.StorageOperationsTotal.WithLabelValues(g.backend, op, status).Inc()
	return v, err
}

func (g *Guard) Exists(ctx context.Context, key string) (bool, error) {
	v, err := g.run("exists", func() (interface{}, error) {
		return g.inner.Exists(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (g *Guard) Properties(ctx context.Context, key string) (Properties, error) {
	v, err := g.run("properties", func() (interface{}, error) {
		return g.inner.Properties(ctx, key)
	})
	if err != nil {
		return Properties{}, err
	}
	return v.(Properties), nil
}

func (g *Guard) Download(ctx context.Context, key string, rng *ByteRange) ([]byte, error) {
	v, err := g.run("download", func() (interface{}, error) {
		return g.inner.Download(ctx, key, rng)
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)
	metrics.StorageBytesTransferred.WithLabelValues(g.backend, "download").Add(float64(len(data)))
	return data, nil
}

// Open only guards opening the stream. Bytes are counted as they are read.
func (g *Guard) Open(ctx context.Context, key string, rng *ByteRange) (io.ReadCloser, error) {
	v, err := g.run("open", func() (interface{}, error) {
		return g.inner.Open(ctx, key, rng)
	})
	if err != nil {
		return nil, err
	}
	return &countingReader{ReadCloser: v.(io.ReadCloser), backend: g.backend}, nil
}

type countingReader struct {
	io.ReadCloser
	backend string
	n       int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) Close() error {
	metrics.StorageBytesTransferred.WithLabelValues(c.backend, "download").Add(float64(c.n))
	c.n = 0
	return c.ReadCloser.Close()
}

func (g *Guard) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	v, err := g.run("upload", func() (interface{}, error) {
		return g.inner.Upload(ctx, key, data, contentType)
	})
	if err != nil {
		return "", err
	}
	metrics.StorageBytesTransferred.WithLabelValues(g.backend, "upload").Add(float64(len(data)))
	return v.(string), nil
}

func (g *Guard) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	v, err := g.run("signed_url", func() (interface{}, error) {
		return g.inner.SignedURL(ctx, key, ttl)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Guard) Type() string { return g.backend }
