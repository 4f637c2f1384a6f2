package storage

import (
	"context"
	"fmt"
)

// Config selects and configures a backend.
type Config struct {
	Backend string // local, s3, azure, memory
	Local   LocalConfig
	S3      S3Config
	Azure   AzureConfig
	Breaker BreakerConfig
}

// Open constructs the configured backend wrapped in a Guard.
func Open(ctx context.Context, cfg Config) (*Guard, error) {
	var (
		inner Store
		err   error
	)

	switch cfg.Backend {
	case "local", "":
		inner, err = NewLocal(cfg.Local)
	case "s3":
		inner, err = NewS3(ctx, cfg.S3)
	case "azure":
		inner, err = NewAzure(cfg.Azure)
	case "memory":
		inner = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}

	breaker := cfg.Breaker
	if breaker.MaxRequests == 0 {
		breaker = DefaultBreakerConfig()
	}
	return NewGuard(inner, breaker), nil
}
