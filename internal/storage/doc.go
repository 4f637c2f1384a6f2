// Package storage defines the blob Store the media service resolves,
// reads and writes through, with local filesystem, S3, Azure Blob and
// in-memory backends.
//
// Every backend is used behind a Guard, which adds a gobreaker circuit
// breaker and Prometheus metrics. Missing keys are reported as ErrNotFound
// and do not count as breaker failures, so a burst of path-variant probes
// that miss cannot open the circuit.
//
// Time-limited direct URLs come from the backend: presigned GetObject for
// S3, a read-only SAS for Azure, and a signed token served by
// /api/direct for the local backend (see URLSigner).
package storage
