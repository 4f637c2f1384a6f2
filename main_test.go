package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"family-media/internal/auth"
	"family-media/internal/genlock"
	"family-media/internal/handlers"
	"family-media/internal/media"
	"family-media/internal/startup"
	"family-media/internal/storage"
	"family-media/internal/streaming"

	"github.com/alicebob/miniredis/v2"
	"golang.org/x/crypto/bcrypt"
)

func TestNewServerTimeouts(t *testing.T) {
	srv := newServer("8080", http.NotFoundHandler())

	if srv.Addr != ":8080" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadTimeout <= 0 || srv.ReadHeaderTimeout <= 0 || srv.IdleTimeout <= 0 {
		t.Errorf("read/idle timeouts must be positive: %+v", srv)
	}
	// Long video responses rely on the streaming writer's deadlines.
	if srv.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want 0", srv.WriteTimeout)
	}
}

func TestNewMetricsServer(t *testing.T) {
	srv := newMetricsServer("9090", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}))

	if srv.WriteTimeout <= 0 {
		t.Error("metrics server should bound writes")
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Errorf("/metrics = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/media/a.jpg", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Errorf("metrics server must not serve media, got %d", rec.Code)
	}
}

func TestShutdownTimeout(t *testing.T) {
	if shutdownTimeout < 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want at least 10s", shutdownTimeout)
	}
}

func TestNewSigner(t *testing.T) {
	tests := []struct {
		name     string
		config   startup.Config
		wantNil  bool
		wantErr  bool
		wantHost string
	}{
		{name: "cloud backend", config: startup.Config{StorageBackend: "s3", URLSigningKey: "0123456789abcdef"}, wantNil: true},
		{name: "no key", config: startup.Config{StorageBackend: "local"}, wantNil: true},
		{name: "short key", config: startup.Config{StorageBackend: "local", URLSigningKey: "short"}, wantErr: true},
		{name: "public url", config: startup.Config{StorageBackend: "local", URLSigningKey: "0123456789abcdef", PublicBaseURL: "https://album.example.com/"}, wantHost: "https://album.example.com/api/direct"},
		{name: "localhost fallback", config: startup.Config{StorageBackend: "local", URLSigningKey: "0123456789abcdef", Port: "8081"}, wantHost: "http://localhost:8081/api/direct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := newSigner(&tt.config)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newSigner() error = %v", err)
			}
			if tt.wantNil {
				if signer != nil {
					t.Error("expected no signer")
				}
				return
			}

			u, err := signer.Sign("media/a.mp4", time.Minute)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix([]byte(u), []byte(tt.wantHost+"?token=")) {
				t.Errorf("signed url = %q, want prefix %q", u, tt.wantHost)
			}
		})
	}
}

func TestStorageConfig(t *testing.T) {
	cfg := storageConfig(&startup.Config{
		StorageBackend: "azure",
		AzureAccount:   "family",
		AzureKey:       "c2VjcmV0",
		AzureContainer: "photos",
		S3Bucket:       "unused",
	}, nil)

	if cfg.Backend != "azure" || cfg.Azure.Account != "family" || cfg.Azure.Container != "photos" {
		t.Errorf("azure config = %+v", cfg.Azure)
	}
	if cfg.Breaker.MaxRequests == 0 {
		t.Error("breaker settings not filled")
	}
}

func TestLocalVolumes(t *testing.T) {
	root := t.TempDir()
	vr := localVolumes(root)

	tests := []struct {
		key  string
		want string
	}{
		{key: "media/2024/a.jpg", want: "media"},
		{key: "thumbnails/media/2024/a.jpg", want: "thumbnails"},
		{key: "2024/a.jpg", want: "unknown"},
	}
	for _, tt := range tests {
		if got := vr.Resolve(filepath.Join(root, tt.key)); got != tt.want {
			t.Errorf("Resolve(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestOpenLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		locker, closeFn, err := openLocker(ctx, &startup.Config{LockBackend: "memory"})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := locker.(*genlock.Memory); !ok {
			t.Errorf("locker = %T, want *genlock.Memory", locker)
		}
		if err := closeFn(); err != nil {
			t.Error(err)
		}
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		locker, closeFn, err := openLocker(ctx, &startup.Config{LockBackend: "redis", RedisURL: "redis://" + mr.Addr()})
		if err != nil {
			t.Fatal(err)
		}
		defer closeFn()

		locker.Acquire(ctx, "thumbnails/media/a.jpg")
		if !mr.Exists(lockKeyPrefix + "thumbnails/media/a.jpg") {
			t.Error("lease not written with the service prefix")
		}
		locker.Release(ctx, "thumbnails/media/a.jpg")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		if _, _, err := openLocker(ctx, &startup.Config{LockBackend: "redis", RedisURL: "redis://" + addr}); err == nil {
			t.Error("expected ping failure")
		}
	})
}

func TestNewImageProcessor(t *testing.T) {
	if p := newImageProcessor("none"); p != nil {
		t.Errorf("none = %T, want nil", p)
	}
	if got := processorName(newImageProcessor("none")); got != "none" {
		t.Errorf("processorName(nil) = %q", got)
	}
	if got := processorName(newImageProcessor("imaging")); got != "imaging" {
		t.Errorf("imaging processor name = %q", got)
	}
}

func TestNewAuthorizer(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("grandma-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	keys := "Read:grandma:" + string(hash)

	tests := []struct {
		name      string
		config    startup.Config
		key       string
		wantRole  auth.Role
		wantError bool
	}{
		{name: "open install", config: startup.Config{}, wantRole: auth.RoleRead},
		{name: "keys close anonymous access", config: startup.Config{APIKeys: keys}, wantRole: auth.RoleNone},
		{name: "explicit anonymous role", config: startup.Config{APIKeys: keys, AnonymousRole: "read"}, wantRole: auth.RoleRead},
		{name: "valid key", config: startup.Config{APIKeys: keys}, key: "grandma-key", wantRole: auth.RoleRead},
		{name: "bad role", config: startup.Config{AnonymousRole: "owner"}, wantError: true},
		{name: "bad keys", config: startup.Config{APIKeys: "Read:not-a-hash"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authz, err := newAuthorizer(&tt.config)
			if tt.wantError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newAuthorizer() error = %v", err)
			}

			req := httptest.NewRequest("GET", "/api/media/a.jpg", http.NoBody)
			if tt.key != "" {
				req.Header.Set(auth.APIKeyHeader, tt.key)
			}
			if d := authz.Authorize(req); d.Role != tt.wantRole {
				t.Errorf("role = %s, want %s", d.Role, tt.wantRole)
			}
		})
	}
}

func TestStatsAdapter(t *testing.T) {
	ctx := context.Background()
	guard, err := storage.Open(ctx, storage.Config{Backend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	locker := genlock.NewMemory()
	locker.Acquire(ctx, "thumbnails/media/a.jpg")
	defer locker.Release(ctx, "thumbnails/media/a.jpg")

	stats := (&statsAdapter{locker: locker, guard: guard}).GetStats()
	if stats.GenerationLocksHeld != 1 {
		t.Errorf("GenerationLocksHeld = %d, want 1", stats.GenerationLocksHeld)
	}
	if state, ok := stats.BreakerStates["memory"]; !ok || state != 0 {
		t.Errorf("BreakerStates = %v, want memory closed", stats.BreakerStates)
	}
}

func TestMiddlewareStack(t *testing.T) {
	ctx := context.Background()
	guard, err := storage.Open(ctx, storage.Config{Backend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	mem := guard.Unwrap().(*storage.Memory)
	original := bytes.Repeat([]byte("frame"), 400)
	mem.Put("media/2024/clip.mp4", original, "video/mp4")

	h := handlers.New(handlers.Config{
		Store:     guard,
		Generator: media.NewGenerator(media.Config{Store: guard, Images: media.NewImagingProcessor()}),
		Streaming: streaming.DefaultConfig(),
	})
	h.SetReady(true)

	handler := withMiddleware(h.Router(auth.NewKeyAuthorizer(nil, auth.RoleRead)), &startup.Config{LogHealthChecks: false})

	t.Run("media bytes are never gzipped", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/media/2024/clip.mp4", http.NoBody)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("video response was compressed")
		}
		if !bytes.Equal(rec.Body.Bytes(), original) {
			t.Error("body differs from the original")
		}
	})

	t.Run("ranged video", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/media/2024/clip.mp4", http.NoBody)
		req.Header.Set("Range", "bytes=0-99")
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusPartialContent || rec.Body.Len() != 100 {
			t.Errorf("status = %d, body = %d bytes", rec.Code, rec.Body.Len())
		}
	})

	t.Run("readiness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", http.NoBody))
		if rec.Code != http.StatusOK {
			t.Errorf("/readyz = %d", rec.Code)
		}
	})
}
