package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"family-media/internal/auth"
	"family-media/internal/filesystem"
	"family-media/internal/genlock"
	"family-media/internal/handlers"
	"family-media/internal/logging"
	"family-media/internal/media"
	"family-media/internal/metrics"
	"family-media/internal/middleware"
	"family-media/internal/startup"
	"family-media/internal/storage"
	"family-media/internal/streaming"
	"family-media/internal/workers"

	"github.com/gorilla/mux"
)

const (
	// ffmpegTimeout bounds a single frame extraction.
	ffmpegTimeout = 60 * time.Second
	// maxFFmpegWorkers caps THUMBNAIL_WORKERS=auto on large hosts.
	maxFFmpegWorkers = 4
	lockKeyPrefix    = "family-media:genlock:"
	metricsInterval  = time.Minute
	shutdownTimeout  = 30 * time.Second
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	// Storage
	signer, err := newSigner(config)
	if err != nil {
		startup.LogFatal("URL signer: %v", err)
	}
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	if config.StorageBackend == "local" {
		filesystem.SetDefaultVolumeResolver(localVolumes(config.LocalRoot))
	}
	storeStart := time.Now()
	store, err := storage.Open(ctx, storageConfig(config, signer))
	if err != nil {
		startup.LogFatal("Failed to open storage: %v", err)
	}
	startup.LogStorageInit(store.Type(), time.Since(storeStart))

	// Generation
	locker, lockCloser, err := openLocker(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to set up generation lock: %v", err)
	}

	images := newImageProcessor(config.ImageProcessor)
	ffmpegWorkers := workers.ForCPU(maxFFmpegWorkers, config.ThumbnailWorkers)
	startup.LogGeneratorInit(processorName(images), config.LockBackend, ffmpegWorkers)

	genCfg := media.Config{Store: store, Locker: locker, Images: images}
	if startup.LogFFmpegInit(config.FFmpegPath) {
		extractor, err := media.NewFFmpegExtractor(media.FFmpegConfig{
			Path:          config.FFmpegPath,
			InputArgs:     config.FFmpegInputArgs,
			MaxConcurrent: ffmpegWorkers,
			Timeout:       ffmpegTimeout,
		})
		if err != nil {
			logging.Warn("  FFmpeg extractor disabled: %v", err)
		} else {
			genCfg.Frames = extractor
		}
	}
	generator := media.NewGenerator(genCfg)

	// Metrics
	metrics.InitializeMetrics(store.Type(), config.LockBackend)
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion, store.Type())
	collector := metrics.NewCollector(&statsAdapter{locker: locker, guard: store}, metricsInterval)
	collector.Start()

	// HTTP
	authz, err := newAuthorizer(config)
	if err != nil {
		startup.LogFatal("Invalid API key configuration: %v", err)
	}

	h := handlers.New(handlers.Config{
		Store:     store,
		Generator: generator,
		Streaming: streaming.DefaultConfig(),
		Signer:    signer,
	})

	router := h.Router(authz)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)
	handler := withMiddleware(router, config)

	srv := newServer(config.Port, handler)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, h, collector, lockCloser)

	h.SetReady(true)
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

// newSigner returns the direct URL signer for the local backend, or nil when
// the backend issues its own signed URLs or no key is configured.
func newSigner(config *startup.Config) (*storage.URLSigner, error) {
	if config.StorageBackend != "local" || config.URLSigningKey == "" {
		return nil, nil
	}
	baseURL := config.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + config.Port
	}
	return storage.NewURLSigner(config.URLSigningKey, baseURL)
}

// localVolumes labels filesystem metrics of the local backend by the top
// level key prefix.
func localVolumes(root string) *filesystem.VolumeResolver {
	return filesystem.NewVolumeResolver(map[string]string{
		"media":      filepath.Join(root, "media"),
		"thumbnails": filepath.Join(root, "thumbnails"),
	})
}

func storageConfig(config *startup.Config, signer *storage.URLSigner) storage.Config {
	return storage.Config{
		Backend: config.StorageBackend,
		Local: storage.LocalConfig{
			Root:   config.LocalRoot,
			Signer: signer,
		},
		S3: storage.S3Config{
			Endpoint:  config.S3Endpoint,
			Bucket:    config.S3Bucket,
			Region:    config.S3Region,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
		},
		Azure: storage.AzureConfig{
			Account:   config.AzureAccount,
			Key:       config.AzureKey,
			Container: config.AzureContainer,
		},
		Breaker: storage.DefaultBreakerConfig(),
	}
}

// openLocker returns the generation lock and a func releasing its
// resources.
func openLocker(ctx context.Context, config *startup.Config) (genlock.Locker, func() error, error) {
	if config.LockBackend != "redis" {
		return genlock.NewMemory(), func() error { return nil }, nil
	}

	r, err := genlock.NewRedisFromURL(config.RedisURL, lockKeyPrefix)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		_ = r.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return r, r.Close, nil
}

// newImageProcessor returns nil for "none". A vips processor that cannot
// start falls back to the pure Go one.
func newImageProcessor(name string) media.ImageProcessor {
	switch name {
	case "none":
		return nil
	case "imaging":
		return media.NewImagingProcessor()
	}

	if err := media.InitVips(); err != nil {
		logging.Warn("  libvips unavailable (%v), using imaging", err)
		return media.NewImagingProcessor()
	}
	p, err := media.NewVipsProcessor()
	if err != nil {
		logging.Warn("  libvips processor failed (%v), using imaging", err)
		return media.NewImagingProcessor()
	}
	return p
}

func processorName(p media.ImageProcessor) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}

// newAuthorizer reads API_KEYS and ANONYMOUS_ROLE. Without keys anonymous
// callers can read, so an unconfigured install still works; once keys exist
// the default flips to no access.
func newAuthorizer(config *startup.Config) (*auth.KeyAuthorizer, error) {
	keys, err := auth.ParseKeys(config.APIKeys)
	if err != nil {
		return nil, err
	}

	anonymous := auth.RoleRead
	if len(keys) > 0 {
		anonymous = auth.RoleNone
	}
	if config.AnonymousRole != "" {
		if anonymous, err = auth.ParseRole(config.AnonymousRole); err != nil {
			return nil, fmt.Errorf("ANONYMOUS_ROLE: %w", err)
		}
	}

	logging.Info("  Access: %d API key(s), anonymous role %s", len(keys), anonymous)
	return auth.NewKeyAuthorizer(keys, anonymous), nil
}

// withMiddleware wraps the router. Metrics runs inside the router so it can
// label requests by route template.
func withMiddleware(router *mux.Router, config *startup.Config) http.Handler {
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(router)

	return middleware.Compression(middleware.DefaultCompressionConfig())(logged)
}

func newServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Video bodies are bounded by the per-write deadline of the
		// streaming writer instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
}

func newMetricsServer(port string, handler http.Handler) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// heldCounter is implemented by genlock.Memory.
type heldCounter interface {
	Held() int
}

// statsAdapter feeds the metrics collector.
type statsAdapter struct {
	locker genlock.Locker
	guard  *storage.Guard
}

func (a *statsAdapter) GetStats() metrics.Stats {
	var stats metrics.Stats
	if c, ok := a.locker.(heldCounter); ok {
		stats.GenerationLocksHeld = c.Held()
	}
	if a.guard != nil {
		stats.BreakerStates = map[string]int{a.guard.Type(): a.guard.BreakerState()}
	}
	return stats
}

func handleShutdown(srv, metricsSrv *http.Server, h *handlers.Handlers, collector *metrics.Collector, closeLock func() error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

		h.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Closing generation lock")
	if err := closeLock(); err != nil {
		logging.Warn("Generation lock close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Generation lock closed")
	}

	media.ShutdownVips()
	logging.Sync()
	startup.LogShutdownComplete()
}
