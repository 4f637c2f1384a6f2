// Package resolver finds which stored key a logical media path refers to.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"family-media/internal/logging"
	"family-media/internal/metrics"
	"family-media/internal/pathvariant"
)

// ErrNotResolved is returned when no candidate key exists in storage.
var ErrNotResolved = errors.New("no candidate path exists in storage")

// Prober is the part of storage the resolver needs.
type Prober interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Logical  string
	Key      string
	Strategy string
	// Tried lists every candidate probed, the matching key last.
	Tried []string
}

// NotResolvedError reports the candidates that were tried.
type NotResolvedError struct {
	Logical string
	Tried   []string
}

func (e *NotResolvedError) Error() string {
	return fmt.Sprintf("%s: tried %d candidates: %v", e.Logical, len(e.Tried), ErrNotResolved)
}

func (e *NotResolvedError) Unwrap() error { return ErrNotResolved }

// ProbeResult is one row of a diagnostic probe.
type ProbeResult struct {
	Path     string  `json:"path"`
	Strategy string  `json:"strategy"`
	Exists   bool    `json:"exists"`
	Error    *string `json:"error"`
}

// Resolver probes candidate keys in order.
type Resolver struct {
	store Prober
}

// New creates a Resolver over store.
func New(store Prober) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the first candidate of logical that exists. A probe that
// fails is logged and treated as a miss so a transient error on one
// candidate cannot hide a later one.
func (r *Resolver) Resolve(ctx context.Context, logical string) (Resolution, error) {
	cands := pathvariant.GenerateDetailed(logical)
	tried := make([]string, 0, len(cands))

	for _, c := range cands {
		tried = append(tried, c.Key)

		ok, err := r.store.Exists(ctx, c.Key)
		if err != nil {
			metrics.ResolutionProbeErrors.Inc()
			logging.Warn("Probe failed for %q (candidate %d/%d, %s): %v",
				c.Key, len(tried), len(cands), c.Strategy, err)
			continue
		}
		if !ok {
			continue
		}

		metrics.ResolutionsTotal.WithLabelValues("resolved").Inc()
		metrics.ResolutionMatchedStrategy.WithLabelValues(c.Strategy).Inc()
		metrics.ResolutionProbes.Observe(float64(len(tried)))
		if c.Strategy != "as-given" {
			logging.Debug("Resolved %q to %q via %s", logical, c.Key, c.Strategy)
		}
		return Resolution{Logical: logical, Key: c.Key, Strategy: c.Strategy, Tried: tried}, nil
	}

	metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
	metrics.ResolutionProbes.Observe(float64(len(tried)))
	logging.Info("No stored object for %q after %d candidates: %s", logical, len(tried), strings.Join(tried, " | "))
	return Resolution{}, &NotResolvedError{Logical: logical, Tried: tried}
}

// Probe checks every candidate without stopping at the first hit. It backs
// the path diagnostics endpoint.
func (r *Resolver) Probe(ctx context.Context, logical string) []ProbeResult {
	cands := pathvariant.GenerateDetailed(logical)
	results := make([]ProbeResult, 0, len(cands))

	for _, c := range cands {
		res := ProbeResult{Path: c.Key, Strategy: c.Strategy}
		ok, err := r.store.Exists(ctx, c.Key)
		if err != nil {
			msg := err.Error()
			res.Error = &msg
		} else {
			res.Exists = ok
		}
		results = append(results, res)
	}
	return results
}
