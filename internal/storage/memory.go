package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// Memory is an in-process Store used for development and tests. It can
// inject failures per operation and counts uploads per key.
type Memory struct {
	mu      sync.RWMutex
	objects   map[string]memObject
	uploads   map[string]int
	downloads map[string]int

	// ExistsErr, when set for a key, is returned by Exists for that key.
	ExistsErr map[string]error
	// DownloadErr is returned by every Download and Open when non-nil.
	DownloadErr error
	// UploadErr is returned by every Upload when non-nil.
	UploadErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:   make(map[string]memObject),
		uploads:   make(map[string]int),
		downloads: make(map[string]int),
		ExistsErr: make(map[string]error),
	}
}

// Put seeds an object without counting it as an upload.
func (m *Memory) Put(key string, data []byte, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: append([]byte(nil), data...), contentType: contentType, modified: time.Now()}
}

// Get returns the stored bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

// Uploads returns how many times key was written through Upload.
func (m *Memory) Uploads(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads[key]
}

// Downloads returns how many times key was read through Download.
func (m *Memory) Downloads(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloads[key]
}

// SetExistsErr makes Exists fail for key.
func (m *Memory) SetExistsErr(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsErr[key] = err
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.ExistsErr[key]; err != nil {
		return false, err
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Properties(_ context.Context, key string) (Properties, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return Properties{}, notFound(key)
	}
	return Properties{Size: int64(len(obj.data)), ContentType: obj.contentType, LastModified: obj.modified}, nil
}

func (m *Memory) Download(_ context.Context, key string, rng *ByteRange) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	span, err := m.span(key, rng)
	if err != nil {
		return nil, err
	}
	m.downloads[key]++
	return append([]byte(nil), span...), nil
}

func (m *Memory) Open(_ context.Context, key string, rng *ByteRange) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	span, err := m.span(key, rng)
	if err != nil {
		return nil, err
	}
	// Stored slices are never mutated in place, only replaced.
	return io.NopCloser(bytes.NewReader(span)), nil
}

// span must be called with m.mu held.
func (m *Memory) span(key string, rng *ByteRange) ([]byte, error) {
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, notFound(key)
	}
	if err := checkRange(key, rng, int64(len(obj.data))); err != nil {
		return nil, err
	}
	if rng == nil {
		return obj.data, nil
	}
	return obj.data[rng.Start : rng.End+1], nil
}

func (m *Memory) Upload(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	m.objects[key] = memObject{data: append([]byte(nil), data...), contentType: contentType, modified: time.Now()}
	m.uploads[key]++
	return "memory:///" + url.PathEscape(key), nil
}

func (m *Memory) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", notFound(key)
	}
	return fmt.Sprintf("memory:///%s?expires=%d", url.PathEscape(key), time.Now().Add(ttl).Unix()), nil
}

func (m *Memory) Type() string { return "memory" }
