package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"family-media/internal/filesystem"
	"family-media/internal/mediatypes"
)

// LocalConfig holds local filesystem backend settings.
type LocalConfig struct {
	Root   string
	Signer *URLSigner
	Retry  filesystem.RetryConfig
}

// Local stores objects as files below a root directory. Keys map to paths
// verbatim, so a legacy key with backslashes is a single file name.
type Local struct {
	root   string
	signer *URLSigner
	retry  filesystem.RetryConfig
}

// NewLocal creates a local backend, creating the root if needed.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", cfg.Root, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create root %s: %w", root, err)
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = filesystem.DefaultRetryConfig()
	}
	return &Local{root: root, signer: cfg.Signer, retry: cfg.Retry}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

func (l *Local) fullPath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%s: %w", key, ErrInvalidKey)
		}
	}
	p := filepath.Join(l.root, filepath.FromSlash(key))
	if p != l.root && !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", key, ErrInvalidKey)
	}
	return p, nil
}

func (l *Local) stat(key string) (fs.FileInfo, error) {
	p, err := l.fullPath(key)
	if err != nil {
		return nil, err
	}
	info, err := filesystem.StatWithRetry(p, l.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, notFound(key)
	}
	return info, nil
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	_, err := l.stat(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) Properties(_ context.Context, key string) (Properties, error) {
	info, err := l.stat(key)
	if err != nil {
		return Properties{}, err
	}
	return Properties{
		Size:         info.Size(),
		ContentType:  mediatypes.ContentTypeFor(key),
		LastModified: info.ModTime(),
	}, nil
}

func (l *Local) Download(_ context.Context, key string, rng *ByteRange) ([]byte, error) {
	info, err := l.stat(key)
	if err != nil {
		return nil, err
	}
	if err := checkRange(key, rng, info.Size()); err != nil {
		return nil, err
	}

	p, _ := l.fullPath(key)
	if rng == nil {
		return filesystem.ReadRange(p, 0, -1, l.retry)
	}
	return filesystem.ReadRange(p, rng.Start, rng.Length(), l.retry)
}

func (l *Local) Open(_ context.Context, key string, rng *ByteRange) (io.ReadCloser, error) {
	info, err := l.stat(key)
	if err != nil {
		return nil, err
	}
	if err := checkRange(key, rng, info.Size()); err != nil {
		return nil, err
	}

	p, _ := l.fullPath(key)
	if rng == nil {
		return filesystem.OpenRange(p, 0, info.Size(), l.retry)
	}
	return filesystem.OpenRange(p, rng.Start, rng.Length(), l.retry)
}

func (l *Local) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	p, err := l.fullPath(key)
	if err != nil {
		return "", err
	}
	if err := filesystem.WriteFileAtomic(p, data, l.retry); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(p), nil
}

func (l *Local) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if l.signer == nil {
		return "", fmt.Errorf("local storage has no URL_SIGNING_KEY: %w", ErrSigningUnavailable)
	}
	if _, err := l.stat(key); err != nil {
		return "", err
	}
	return l.signer.Sign(key, ttl)
}

// Path returns the absolute file path for key after validating it.
func (l *Local) Path(key string) (string, error) {
	return l.fullPath(key)
}

func (l *Local) Type() string { return "local" }
