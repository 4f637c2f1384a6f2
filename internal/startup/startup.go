package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"family-media/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	// Storage
	StorageBackend string
	LocalRoot      string
	PublicBaseURL  string
	URLSigningKey  string
	S3Endpoint     string
	S3Bucket       string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	// Generation
	LockBackend      string
	RedisURL         string
	ImageProcessor   string
	FFmpegPath       string
	FFmpegInputArgs  string
	ThumbnailWorkers int

	// Access
	APIKeys       string
	AnonymousRole string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := readConfig()

	logging.Info("  PORT:                 %s", config.Port)
	logging.Info("  METRICS_PORT:         %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", config.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:    %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
	logging.Info("  STORAGE_BACKEND:      %s", config.StorageBackend)
	switch config.StorageBackend {
	case "local":
		logging.Info("  LOCAL_ROOT:           %s", config.LocalRoot)
		logging.Info("  PUBLIC_BASE_URL:      %s", config.PublicBaseURL)
		logging.Info("  URL_SIGNING_KEY:      %s", maskSecret(config.URLSigningKey))
	case "s3":
		logging.Info("  S3_ENDPOINT:          %s", config.S3Endpoint)
		logging.Info("  S3_BUCKET:            %s", config.S3Bucket)
		logging.Info("  S3_REGION:            %s", config.S3Region)
		logging.Info("  S3_ACCESS_KEY:        %s", maskSecret(config.S3AccessKey))
		logging.Info("  S3_SECRET_KEY:        %s", maskSecret(config.S3SecretKey))
	case "azure":
		logging.Info("  AZURE_STORAGE_ACCOUNT:   %s", config.AzureAccount)
		logging.Info("  AZURE_STORAGE_CONTAINER: %s", config.AzureContainer)
		logging.Info("  AZURE_STORAGE_KEY:       %s", maskSecret(config.AzureKey))
	}
	logging.Info("  LOCK_BACKEND:         %s", config.LockBackend)
	if config.LockBackend == "redis" {
		logging.Info("  REDIS_URL:            %s", maskURL(config.RedisURL))
	}
	logging.Info("  IMAGE_PROCESSOR:      %s", config.ImageProcessor)
	logging.Info("  FFMPEG_PATH:          %s", orDefault(config.FFmpegPath, "(PATH lookup)"))
	logging.Info("  FFMPEG_INPUT_ARGS:    %s", orDefault(config.FFmpegInputArgs, "(none)"))
	logging.Info("  THUMBNAIL_WORKERS:    %s", workersString(config.ThumbnailWorkers))
	logging.Info("  API_KEYS:             %s", keysSummary(config.APIKeys))
	logging.Info("  ANONYMOUS_ROLE:       %s", orDefault(config.AnonymousRole, "(default)"))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.StorageBackend == "local" {
		logging.Info("")
		logging.Info("------------------------------------------------------------")
		logging.Info("DIRECTORY SETUP")
		logging.Info("------------------------------------------------------------")

		root, err := filepath.Abs(config.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve local root path: %w", err)
		}
		config.LocalRoot = root
		logging.Info("  Local root (absolute): %s", root)

		if err := ensureDirectory(root, "local root"); err != nil {
			return nil, fmt.Errorf("local root directory error: %w", err)
		}

		// Thumbnails are written next to the originals.
		if err := testWriteAccess(root); err != nil {
			logging.Warn("  Local root is not writable: %v", err)
			logging.Warn("  Thumbnails will be generated on every request")
		} else {
			logging.Info("  [OK] Local root is writable")
		}

		if config.URLSigningKey == "" {
			logging.Warn("  URL_SIGNING_KEY not set: large videos are proxied instead of redirected")
		}
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Image thumbnails: %s", enabledString(config.ImageProcessor != "none"))
	logging.Info("    Signed URLs:      %s", enabledString(config.StorageBackend != "local" || config.URLSigningKey != ""))
	logging.Info("    Shared locks:     %s", enabledString(config.LockBackend == "redis"))
	logging.Info("    Metrics:          %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func readConfig() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		LocalRoot:      getEnv("LOCAL_ROOT", "/media"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
		URLSigningKey:  getEnv("URL_SIGNING_KEY", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		AzureAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		AzureKey:       getEnv("AZURE_STORAGE_KEY", ""),
		AzureContainer: getEnv("AZURE_STORAGE_CONTAINER", ""),

		LockBackend:      strings.ToLower(getEnv("LOCK_BACKEND", "memory")),
		RedisURL:         getEnv("REDIS_URL", ""),
		ImageProcessor:   strings.ToLower(getEnv("IMAGE_PROCESSOR", "vips")),
		FFmpegPath:       getEnv("FFMPEG_PATH", ""),
		FFmpegInputArgs:  getEnv("FFMPEG_INPUT_ARGS", ""),
		ThumbnailWorkers: getEnvInt("THUMBNAIL_WORKERS", 0),

		APIKeys:       getEnv("API_KEYS", ""),
		AnonymousRole: getEnv("ANONYMOUS_ROLE", ""),
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "local", "memory":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY must be set together")
		}
	case "azure":
		if c.AzureAccount == "" || c.AzureContainer == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_CONTAINER are required when STORAGE_BACKEND=azure")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (want local, s3, azure or memory)", c.StorageBackend)
	}

	if c.URLSigningKey != "" && len(c.URLSigningKey) < 16 {
		return fmt.Errorf("URL_SIGNING_KEY must be at least 16 bytes")
	}

	switch c.LockBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q (want memory or redis)", c.LockBackend)
	}

	switch c.ImageProcessor {
	case "vips", "imaging", "none":
	default:
		return fmt.Errorf("invalid IMAGE_PROCESSOR %q (want vips, imaging or none)", c.ImageProcessor)
	}

	if c.ThumbnailWorkers < 0 {
		return fmt.Errorf("THUMBNAIL_WORKERS must not be negative")
	}
	return nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func workersString(n int) string {
	if n == 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

// maskSecret keeps only enough of a secret to tell two apart in logs.
func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}

// maskURL hides the password part of a connection URL.
func maskURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return raw
	}
	return scheme + "://" + user + ":****@" + host
}

// keysSummary lists the roles of the configured keys without their hashes.
func keysSummary(spec string) string {
	var entries []string
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		switch len(parts) {
		case 2:
			entries = append(entries, parts[0])
		case 3:
			entries = append(entries, parts[1]+"="+parts[0])
		}
	}
	if len(entries) == 0 {
		return "(none)"
	}
	return fmt.Sprintf("%d configured (%s)", len(entries), strings.Join(entries, ", "))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// LogStorageInit logs the opened storage backend
func LogStorageInit(backend string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STORAGE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] %s storage opened in %v", backend, duration)
}

// LogGeneratorInit logs the thumbnail pipeline components
func LogGeneratorInit(images, lockBackend string, workers int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("THUMBNAIL GENERATOR INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if images == "none" {
		logging.Warn("  Image processing disabled, originals are served in place of thumbnails")
	} else {
		logging.Info("  Image processor: %s", images)
	}
	logging.Info("  Generation lock: %s", lockBackend)
	logging.Info("  Video workers:   %d", workers)
}

// LogFFmpegInit checks the ffmpeg binary used for video frames
func LogFFmpegInit(path string) bool {
	if err := checkFFmpeg(path); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video thumbnails will use the placeholder")
		return false
	}
	logging.Info("  [OK] FFmpeg is available")
	return true
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Subrouter prefixes without their own template
			return nil
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ______                _ __         __  ___         ___
   / ____/___ _____ ___  (_) /_  __   /  |/  /__  ____/ (_)___ _
  / /_  / __ '/ __ '__ \/ / / / / /  / /|_/ / _ \/ __  / / __ '/
 / __/ / /_/ / / / / / / / / /_/ /  / /  / /  __/ /_/ / / /_/ /
/_/    \__,_/_/ /_/ /_/_/_/\__, /  /_/  /_/\___/\__,_/_/\__,_/
                          /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg(path string) error {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return fmt.Errorf("%s not found", path)
	}
	logging.Debug("  FFmpeg path: %s", resolved)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, resolved, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
