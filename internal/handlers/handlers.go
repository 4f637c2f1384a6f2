package handlers

import (
	"sync/atomic"
	"time"

	"family-media/internal/media"
	"family-media/internal/resolver"
	"family-media/internal/storage"
	"family-media/internal/streaming"
)

// breakerReporter is implemented by storage.Guard.
type breakerReporter interface {
	BreakerState() int
}

// Config wires Handlers to the rest of the service.
type Config struct {
	Store     storage.Store
	Generator *media.Generator
	Streaming streaming.Config
	// Signer is set for the local backend only; it enables /api/direct.
	Signer *storage.URLSigner
}

type Handlers struct {
	store     storage.Store
	resolver  *resolver.Resolver
	generator *media.Generator
	streamer  *streaming.Server
	signer    *storage.URLSigner
	breaker   breakerReporter

	startTime time.Time
	ready     atomic.Bool
}

func New(cfg Config) *Handlers {
	h := &Handlers{
		store:     cfg.Store,
		resolver:  resolver.New(cfg.Store),
		generator: cfg.Generator,
		streamer:  streaming.NewServer(cfg.Store, cfg.Streaming),
		signer:    cfg.Signer,
		startTime: time.Now(),
	}
	if b, ok := cfg.Store.(breakerReporter); ok {
		h.breaker = b
	}
	return h
}

// SetReady marks the service as accepting traffic.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}
