package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ReadRange reads length bytes starting at offset. A negative length reads
// to the end of the file.
func ReadRange(p string, offset, length int64, config RetryConfig) ([]byte, error) {
	start := time.Now()
	volume := config.resolveVolume(p)

	data, err := readRange(p, offset, length, config)
	if obs := observe(); obs != nil {
		obs.ObserveOperation(volume, "read", time.Since(start).Seconds(), err)
	}
	return data, err
}

func readRange(p string, offset, length int64, config RetryConfig) ([]byte, error) {
	f, err := OpenWithRetry(p, config)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if length < 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		length = info.Size() - offset
		if length < 0 {
			length = 0
		}
	}

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return buf[:n], nil
}

// OpenRange opens p for streaming length bytes starting at offset. The
// returned reader closes the file.
func OpenRange(p string, offset, length int64, config RetryConfig) (io.ReadCloser, error) {
	start := time.Now()
	volume := config.resolveVolume(p)

	f, err := OpenWithRetry(p, config)
	if obs := observe(); obs != nil {
		obs.ObserveOperation(volume, "open", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return nil, err
	}
	return &sectionFile{SectionReader: io.NewSectionReader(f, offset, length), f: f}, nil
}

type sectionFile struct {
	*io.SectionReader
	f *os.File
}

func (s *sectionFile) Close() error { return s.f.Close() }

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never see a partial file.
func WriteFileAtomic(p string, data []byte, config RetryConfig) error {
	start := time.Now()
	volume := config.resolveVolume(p)

	err := writeFileAtomic(p, data)
	if obs := observe(); obs != nil {
		obs.ObserveOperation(volume, "write", time.Since(start).Seconds(), err)
	}
	return err
}

func writeFileAtomic(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w", p, err)
	}

	tmp, err := os.CreateTemp(dir, ".family-media-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", p, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", p, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp to %s: %w", p, err)
	}
	return nil
}
