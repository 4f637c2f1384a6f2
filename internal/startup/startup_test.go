package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
			setEnv:       false,
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
		{
			name:         "Returns default when env var is empty",
			key:          "TEST_EMPTY_VAR",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				os.Unsetenv(tt.key)
				t.Cleanup(func() {
					os.Unsetenv(tt.key)
				})
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

// clearConfigEnv blanks every variable LoadConfig reads so the host
// environment cannot leak into a test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "METRICS_PORT", "METRICS_ENABLED", "LOG_HEALTH_CHECKS",
		"STORAGE_BACKEND", "LOCAL_ROOT", "PUBLIC_BASE_URL", "URL_SIGNING_KEY",
		"S3_ENDPOINT", "S3_BUCKET", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "AZURE_STORAGE_CONTAINER",
		"LOCK_BACKEND", "REDIS_URL", "IMAGE_PROCESSOR", "FFMPEG_PATH",
		"FFMPEG_INPUT_ARGS", "THUMBNAIL_WORKERS", "API_KEYS", "ANONYMOUS_ROLE",
	} {
		t.Setenv(key, "")
	}
}

func TestReadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := readConfig()

	if cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("ports = %s/%s", cfg.Port, cfg.MetricsPort)
	}
	if !cfg.MetricsEnabled || !cfg.LogHealthChecks {
		t.Error("metrics and health check logging should default on")
	}
	if cfg.StorageBackend != "local" || cfg.LocalRoot != "/media" {
		t.Errorf("storage = %s at %s", cfg.StorageBackend, cfg.LocalRoot)
	}
	if cfg.LockBackend != "memory" || cfg.ImageProcessor != "vips" {
		t.Errorf("lock = %s, processor = %s", cfg.LockBackend, cfg.ImageProcessor)
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("S3Region = %q", cfg.S3Region)
	}
	if cfg.ThumbnailWorkers != 0 {
		t.Errorf("ThumbnailWorkers = %d, want 0 (auto)", cfg.ThumbnailWorkers)
	}
}

func TestReadConfigNormalizesCase(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("LOCK_BACKEND", "Redis")
	t.Setenv("IMAGE_PROCESSOR", "Imaging")
	t.Setenv("THUMBNAIL_WORKERS", "3")

	cfg := readConfig()
	if cfg.StorageBackend != "s3" || cfg.LockBackend != "redis" || cfg.ImageProcessor != "imaging" {
		t.Errorf("got %s/%s/%s", cfg.StorageBackend, cfg.LockBackend, cfg.ImageProcessor)
	}
	if cfg.ThumbnailWorkers != 3 {
		t.Errorf("ThumbnailWorkers = %d", cfg.ThumbnailWorkers)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{StorageBackend: "memory", LockBackend: "memory", ImageProcessor: "imaging"}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory defaults", mutate: func(*Config) {}},
		{name: "local", mutate: func(c *Config) { c.StorageBackend = "local" }},
		{name: "s3 with bucket", mutate: func(c *Config) { c.StorageBackend = "s3"; c.S3Bucket = "family" }},
		{name: "s3 without bucket", mutate: func(c *Config) { c.StorageBackend = "s3" }, wantErr: "S3_BUCKET"},
		{name: "s3 half credentials", mutate: func(c *Config) {
			c.StorageBackend = "s3"
			c.S3Bucket = "family"
			c.S3AccessKey = "AKIA"
		}, wantErr: "S3_SECRET_KEY"},
		{name: "azure complete", mutate: func(c *Config) {
			c.StorageBackend = "azure"
			c.AzureAccount = "family"
			c.AzureContainer = "photos"
		}},
		{name: "azure missing container", mutate: func(c *Config) {
			c.StorageBackend = "azure"
			c.AzureAccount = "family"
		}, wantErr: "AZURE_STORAGE_CONTAINER"},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "ftp" }, wantErr: "STORAGE_BACKEND"},
		{name: "short signing key", mutate: func(c *Config) { c.URLSigningKey = "short" }, wantErr: "URL_SIGNING_KEY"},
		{name: "redis lock", mutate: func(c *Config) { c.LockBackend = "redis"; c.RedisURL = "redis://cache:6379" }},
		{name: "redis without url", mutate: func(c *Config) { c.LockBackend = "redis" }, wantErr: "REDIS_URL"},
		{name: "unknown lock", mutate: func(c *Config) { c.LockBackend = "etcd" }, wantErr: "LOCK_BACKEND"},
		{name: "unknown processor", mutate: func(c *Config) { c.ImageProcessor = "magick" }, wantErr: "IMAGE_PROCESSOR"},
		{name: "negative workers", mutate: func(c *Config) { c.ThumbnailWorkers = -1 }, wantErr: "THUMBNAIL_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigLocal(t *testing.T) {
	clearConfigEnv(t)
	root := filepath.Join(t.TempDir(), "library")
	t.Setenv("LOCAL_ROOT", root)
	t.Setenv("URL_SIGNING_KEY", "0123456789abcdef")
	t.Setenv("IMAGE_PROCESSOR", "imaging")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LocalRoot != root {
		t.Errorf("LocalRoot = %q, want %q", cfg.LocalRoot, root)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("local root was not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file was left behind")
	}
}

func TestLoadConfigRejectsFileAsRoot(t *testing.T) {
	clearConfigEnv(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCAL_ROOT", file)

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for a local root that is a file")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("LOCK_BACKEND", "redis")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "REDIS_URL") {
		t.Errorf("LoadConfig() error = %v, want REDIS_URL error", err)
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}

	r := mux.NewRouter()
	r.HandleFunc("/health", noop).Methods("GET")
	r.HandleFunc("/livez", noop).Methods("GET", "HEAD")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/media/{path:.*}", noop).Methods("GET")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	want := map[string]bool{
		"GET /health":              false,
		"GET /livez":               false,
		"HEAD /livez":              false,
		"GET /api/media/{path:.*}": false,
	}
	for _, route := range routes {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, seen := range want {
		if !seen {
			t.Errorf("route %s not reported", key)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/health", want: "health"},
		{path: "/api/media/{path:.*}", want: "api/media"},
		{path: "/api/direct", want: "api/direct"},
		{path: "/media/{path:.*}", want: "media"},
		{path: "/", want: ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLifecycleLogging(_ *testing.T) {
	// Should not panic
	LogStorageInit("memory", 0)
	LogGeneratorInit("none", "memory", 2)
	LogFFmpegInit(filepath.Join(os.TempDir(), "no-such-ffmpeg"))
	LogServerStarted(ServerConfig{Port: "8080", MetricsPort: "9090"})
	LogShutdownInitiated("interrupt")
	LogShutdownStep("Stopping")
	LogShutdownStepComplete("Stopped")
	LogShutdownComplete()
}
