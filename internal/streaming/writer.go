package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"family-media/internal/logging"
	"family-media/internal/metrics"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write operation exceeded the configured timeout.
	// This typically occurs when a client is receiving data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was closed before the write.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout is the deadline applied to each chunk
	WriteTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited)
	MaxDuration time.Duration
	// ChunkSize is the size of chunks to write (0 = write as received)
	ChunkSize int
}

// DefaultTimeoutWriterConfig returns sensible defaults
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		MaxDuration:  0,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter and sets a fresh write
// deadline before every chunk, so a client that stops reading is cut off
// after WriteTimeout instead of pinning the handler.
type TimeoutWriter struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	ctx          context.Context
	config       TimeoutWriterConfig
	startTime    time.Time
	bytesWritten int64
	deadlines    bool
	mu           sync.Mutex
	closed       bool
}

// NewTimeoutWriter creates a new timeout-protected writer
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	return &TimeoutWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       ctx,
		config:    config,
		startTime: time.Now(),
		deadlines: config.WriteTimeout > 0,
	}
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return 0, ErrStreamCanceled
	}

	chunkSize := tw.config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = len(p)
	}

	total := 0
	for len(p) > 0 {
		if err := tw.ctx.Err(); err != nil {
			return total, ErrClientGone
		}
		if tw.config.MaxDuration > 0 && time.Since(tw.startTime) > tw.config.MaxDuration {
			metrics.StreamWriteTimeouts.Inc()
			return total, ErrWriteTimeout
		}

		n := chunkSize
		if len(p) < n {
			n = len(p)
		}

		tw.setDeadline()
		written, err := tw.w.Write(p[:n])
		total += written
		tw.bytesWritten += int64(written)
		if err != nil {
			return total, tw.classify(err)
		}
		p = p[n:]

		if len(p) > 0 {
			if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return total, tw.classify(err)
			}
		}
	}
	return total, nil
}

func (tw *TimeoutWriter) setDeadline() {
	if !tw.deadlines {
		return
	}
	err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout))
	if errors.Is(err, http.ErrNotSupported) {
		// Recorders and some middleware wrappers cannot take deadlines.
		tw.deadlines = false
	}
}

func (tw *TimeoutWriter) classify(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		metrics.StreamWriteTimeouts.Inc()
		return ErrWriteTimeout
	}
	if tw.ctx.Err() != nil {
		return ErrClientGone
	}
	return err
}

// Close marks the writer as closed and clears the write deadline
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true

	if tw.deadlines {
		if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}

// writeBody sends data through a TimeoutWriter and records the bytes sent.
func writeBody(ctx context.Context, w http.ResponseWriter, data []byte, config TimeoutWriterConfig) error {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	_, err := tw.Write(data)

	bytesWritten, duration := tw.Stats()
	metrics.StreamBytesTotal.Add(float64(bytesWritten))
	logging.Debug("Stream completed: %d bytes in %v", bytesWritten, duration)

	return err
}

// copyBody streams r through a TimeoutWriter in ChunkSize reads, so at most
// one chunk of the object is held in memory.
func copyBody(ctx context.Context, w http.ResponseWriter, r io.Reader, config TimeoutWriterConfig) error {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	size := config.ChunkSize
	if size <= 0 {
		size = 32 * 1024
	}
	_, err := io.CopyBuffer(tw, r, make([]byte, size))

	bytesWritten, duration := tw.Stats()
	metrics.StreamBytesTotal.Add(float64(bytesWritten))
	logging.Debug("Stream completed: %d bytes in %v", bytesWritten, duration)

	return err
}
