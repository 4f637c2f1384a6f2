package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"family-media/internal/logging"
)

// responseWriter records what the handler sent for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the access log middleware.
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultLoggingConfig logs everything, health checks included.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// accessEntry collects fields that only handlers deeper in the chain know.
type accessEntry struct {
	user    string
	outcome string
}

type accessKey struct{}

// SetAccessUser records who made the request. It is a no-op outside Logger.
func SetAccessUser(ctx context.Context, user string) {
	if e, ok := ctx.Value(accessKey{}).(*accessEntry); ok {
		e.user = user
	}
}

// SetAccessOutcome records how a thumbnail request was satisfied
// (reused, generated, placeholder, fallback_original).
func SetAccessOutcome(ctx context.Context, outcome string) {
	if e, ok := ctx.Value(accessKey{}).(*accessEntry); ok {
		e.outcome = outcome
	}
}

// Logger writes one W3C extended log line per request:
//
//	date time c-ip cs-username cs-method cs-uri-stem cs-uri-query cs(Range)
//	sc-status sc-bytes time-taken sc(Content-Encoding) x-outcome
//	cs(User-Agent) cs(Referer)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			entry := &accessEntry{}
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), accessKey{}, entry)))

			logging.Info("%s", formatAccessLine(time.Now().UTC(), r, wrapped, entry, time.Since(start)))
		})
	}
}

// formatAccessLine builds the log line. Every request-controlled field goes
// through sanitizeLogField.
func formatAccessLine(now time.Time, r *http.Request, rw *responseWriter, entry *accessEntry, took time.Duration) string {
	return fmt.Sprintf("%s %s %s %s %s %s %s %s %d %d %d %s %s %s %s",
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(sanitizeLogField(getClientIP(r))),
		orDash(escapeW3CField(sanitizeLogField(entry.user))),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		orDash(sanitizeLogField(r.URL.RawQuery)),
		orDash(escapeW3CField(sanitizeLogField(r.Header.Get("Range")))),
		rw.statusCode,
		rw.bytesWritten,
		took.Milliseconds(),
		orDash(rw.Header().Get("Content-Encoding")),
		orDash(entry.outcome),
		orDash(escapeW3CField(sanitizeLogField(r.Header.Get("User-Agent")))),
		orDash(sanitizeLogField(r.Header.Get("Referer"))),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sanitizeLogField drops control characters so a client cannot forge log
// lines or inject terminal escapes. Newlines become spaces.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return !config.LogHealthChecks && healthCheckPaths[path]
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// escapeW3CField quotes values containing blanks or quotes, doubling any
// embedded quote.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
