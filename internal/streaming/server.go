package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"family-media/internal/logging"
	"family-media/internal/mediatypes"
	"family-media/internal/metrics"
	"family-media/internal/storage"
)

const (
	// DefaultLargeVideoThreshold is the size above which videos are
	// redirected to a signed URL instead of proxied.
	DefaultLargeVideoThreshold int64 = 50 * 1024 * 1024
	// DefaultSignedURLTTL is the lifetime of redirect URLs.
	DefaultSignedURLTTL = time.Hour
	// CacheControlImmutable is sent with every served body.
	CacheControlImmutable = "public, max-age=31536000"
)

// Config configures a Server.
type Config struct {
	LargeVideoThreshold int64
	SignedURLTTL        time.Duration
	Writer              TimeoutWriterConfig
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		LargeVideoThreshold: DefaultLargeVideoThreshold,
		SignedURLTTL:        DefaultSignedURLTTL,
		Writer:              DefaultTimeoutWriterConfig(),
	}
}

// Server writes stored objects to HTTP responses with the service's
// caching, redirect and range policy.
type Server struct {
	store  storage.Store
	config Config
}

// NewServer creates a Server reading from store.
func NewServer(store storage.Store, config Config) *Server {
	if config.LargeVideoThreshold <= 0 {
		config.LargeVideoThreshold = DefaultLargeVideoThreshold
	}
	if config.SignedURLTTL <= 0 {
		config.SignedURLTTL = DefaultSignedURLTTL
	}
	return &Server{store: store, config: config}
}

// ServeObject answers r with the object at key. Videos larger than the
// threshold are redirected to a signed URL, or proxied when the store cannot
// sign one. Range requests are honored for videos only. Thumbnails are never
// redirected or ranged.
//
// A returned error means nothing has been written and the caller still
// owns the response. Failures while sending the body are logged here.
func (s *Server) ServeObject(w http.ResponseWriter, r *http.Request, key string, isThumbnail bool) error {
	return s.serve(w, r, key, isThumbnail, true)
}

// ServeDirect is ServeObject for requests that already arrived through a
// signed URL: large videos are proxied instead of redirected again.
func (s *Server) ServeDirect(w http.ResponseWriter, r *http.Request, key string) error {
	return s.serve(w, r, key, false, false)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, key string, isThumbnail, allowRedirect bool) error {
	ctx := r.Context()

	props, err := s.store.Properties(ctx, key)
	if err != nil {
		return err
	}

	contentType := mediatypes.ContentTypeFor(key)
	video := !isThumbnail && mediatypes.IsVideo(key)
	kind := string(mediatypes.Classify(key))

	if allowRedirect && video && props.Size > s.config.LargeVideoThreshold {
		err := s.redirect(w, r, key, props.Size, kind)
		if !errors.Is(err, storage.ErrSigningUnavailable) {
			return err
		}
		logging.Debug("Proxying %s (%d bytes): %v", key, props.Size, err)
	}

	h := w.Header()
	bodyHeaders := func() {
		setBodyHeaders(h, key, contentType)
		if video {
			h.Set("Accept-Ranges", "bytes")
		}
	}

	if video && r.Header.Get("Range") != "" {
		rng, err := ParseRange(r.Header.Get("Range"), props.Size)
		switch {
		case errors.Is(err, ErrRangeNotSatisfiable):
			logging.Debug("Unsatisfiable range for %s: %v", key, err)
			bodyHeaders()
			h.Set("Content-Range", UnsatisfiedRange(props.Size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			record(http.StatusRequestedRangeNotSatisfiable, kind)
			return nil
		case rng != nil:
			var body io.ReadCloser
			if r.Method != http.MethodHead {
				if body, err = s.store.Open(ctx, key, rng); err != nil {
					return err
				}
			}
			bodyHeaders()
			h.Set("Content-Range", ContentRange(*rng, props.Size))
			h.Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
			w.WriteHeader(http.StatusPartialContent)
			record(http.StatusPartialContent, kind)
			if body != nil {
				s.copy(ctx, w, key, body)
			}
			return nil
		default:
			logging.Debug("Ignoring malformed Range %q for %s", r.Header.Get("Range"), key)
		}
	}

	if r.Method == http.MethodHead {
		bodyHeaders()
		h.Set("Content-Length", strconv.FormatInt(props.Size, 10))
		w.WriteHeader(http.StatusOK)
		record(http.StatusOK, kind)
		return nil
	}

	body, err := s.store.Open(ctx, key, nil)
	if err != nil {
		return err
	}
	bodyHeaders()
	h.Set("Content-Length", strconv.FormatInt(props.Size, 10))
	w.WriteHeader(http.StatusOK)
	record(http.StatusOK, kind)
	s.copy(ctx, w, key, body)
	return nil
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, key string, size int64, kind string) error {
	signed, err := s.store.SignedURL(r.Context(), key, s.config.SignedURLTTL)
	if err != nil {
		return err
	}
	logging.Debug("Redirecting %s (%d bytes) to a signed URL", key, size)

	// Signed URLs expire.
	h := w.Header()
	h.Set("Location", signed)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusFound)
	record(http.StatusFound, kind)
	return nil
}

// ServeBytes answers r with already materialized content, such as a
// generated thumbnail, using the same header policy as ServeObject.
func (s *Server) ServeBytes(w http.ResponseWriter, r *http.Request, name string, data []byte, contentType string) {
	h := w.Header()
	setBodyHeaders(h, name, contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	record(http.StatusOK, "thumbnail")

	if r.Method == http.MethodHead {
		return
	}
	s.write(r.Context(), w, name, data)
}

func (s *Server) write(ctx context.Context, w http.ResponseWriter, key string, data []byte) {
	logStreamErr(key, writeBody(ctx, w, data, s.config.Writer))
}

// copy streams body to w and closes it.
func (s *Server) copy(ctx context.Context, w http.ResponseWriter, key string, body io.ReadCloser) {
	defer body.Close()
	logStreamErr(key, copyBody(ctx, w, body, s.config.Writer))
}

func logStreamErr(key string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrClientGone):
		logging.Debug("Client went away while streaming %s", key)
	default:
		logging.Warn("Streaming %s failed: %v", key, err)
	}
}

func setBodyHeaders(h http.Header, key, contentType string) {
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", ContentDisposition(path.Base(key)))
	h.Set("Cache-Control", CacheControlImmutable)
}

// ContentDisposition renders an inline disposition for name. Names outside
// printable ASCII also get an RFC 5987 filename* parameter.
func ContentDisposition(name string) string {
	ascii := true
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case r > 0x7e:
			ascii = false
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	v := `inline; filename="` + b.String() + `"`
	if !ascii {
		v += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return v
}

func record(status int, kind string) {
	metrics.StreamResponsesTotal.WithLabelValues(strconv.Itoa(status), kind).Inc()
}
