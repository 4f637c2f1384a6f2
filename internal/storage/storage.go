package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when the key does not exist in the backend.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidRange is returned when a requested byte span lies outside the object.
	ErrInvalidRange = errors.New("invalid byte range")
	// ErrInvalidKey is returned for keys that would escape the backend root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("storage backend unavailable")
	// ErrSigningUnavailable is returned by SignedURL when the backend has no
	// way to issue time-limited URLs. Callers proxy the object instead.
	ErrSigningUnavailable = errors.New("signed urls not available")
)

// ByteRange is an inclusive span [Start, End] of an object.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// HTTPHeader renders the range as an HTTP Range header value.
func (r ByteRange) HTTPHeader() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// Properties describes a stored object.
type Properties struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the blob storage the service reads originals from and writes
// derived artifacts to. Keys are backend-relative and used verbatim, so
// legacy keys containing backslashes or literal %20 sequences are distinct
// objects.
type Store interface {
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Properties returns size and stored content type, or ErrNotFound.
	Properties(ctx context.Context, key string) (Properties, error)
	// Download returns the whole object, or only rng when it is non-nil.
	Download(ctx context.Context, key string, rng *ByteRange) ([]byte, error)
	// Open is Download as a stream. The caller closes the reader.
	Open(ctx context.Context, key string, rng *ByteRange) (io.ReadCloser, error)
	// Upload overwrites key and returns the object's URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// SignedURL returns a URL granting read access to key until ttl elapses.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Type names the backend, used as a metrics label.
	Type() string
}

func notFound(key string) error {
	return fmt.Errorf("%s: %w", key, ErrNotFound)
}

func checkRange(key string, rng *ByteRange, size int64) error {
	if rng == nil {
		return nil
	}
	if rng.Start < 0 || rng.End < rng.Start || rng.End >= size {
		return fmt.Errorf("%s [%d-%d] of %d: %w", key, rng.Start, rng.End, size, ErrInvalidRange)
	}
	return nil
}
