package media

import (
	"testing"
)

// NOTE: govips doesn't support stopping and restarting vips in the same process.
// Once vips.Shutdown() is called, vips.Startup() cannot be called again, so
// no test in this package shuts vips down.

func TestIsVipsAvailable(t *testing.T) {
	available := IsVipsAvailable()
	t.Logf("libvips available: %v", available)
}

func TestInitVipsIdempotency(t *testing.T) {
	wasAvailable := IsVipsAvailable()

	err := InitVips()
	if err != nil {
		t.Logf("libvips not available in test environment: %v", err)
		return
	}

	err = InitVips()
	if err != nil {
		t.Errorf("Second InitVips() call failed: %v", err)
	}

	if !IsVipsAvailable() {
		t.Error("After successful InitVips, IsVipsAvailable should return true")
	}

	if !wasAvailable && IsVipsAvailable() {
		t.Log("libvips successfully initialized in this test")
	}
}

func vipsProcessor(t *testing.T) *VipsProcessor {
	t.Helper()
	p, err := NewVipsProcessor()
	if err != nil {
		t.Skipf("libvips not available in test environment: %v", err)
	}
	return p
}

func TestVipsAutoRotateResize(t *testing.T) {
	p := vipsProcessor(t)

	tests := []struct {
		name      string
		width     int
		height    int
		wantWidth int
	}{
		{name: "Wide image is scaled down", width: 1200, height: 800, wantWidth: 300},
		{name: "Small image is not enlarged", width: 120, height: 90, wantWidth: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := encodeTestJPEG(t, tt.width, tt.height)

			resized, err := p.AutoRotateResize(src, DefaultMaxWidth)
			if err != nil {
				t.Fatalf("AutoRotateResize() error = %v", err)
			}
			out, err := p.StripEncodeJPEG(resized, DefaultQuality)
			if err != nil {
				t.Fatalf("StripEncodeJPEG() error = %v", err)
			}

			meta, err := p.ReadMetadata(out)
			if err != nil {
				t.Fatalf("ReadMetadata() error = %v", err)
			}
			if meta.Width != tt.wantWidth {
				t.Errorf("width = %d, want %d", meta.Width, tt.wantWidth)
			}
			if meta.Format != "jpeg" {
				t.Errorf("format = %q, want jpeg", meta.Format)
			}
		})
	}
}

func TestVipsRotate(t *testing.T) {
	p := vipsProcessor(t)

	src := encodeTestJPEG(t, 200, 100)
	out, err := p.Rotate(src, 90, DefaultQuality)
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	meta, err := p.ReadMetadata(out)
	if err != nil {
		t.Fatalf("ReadMetadata() error = %v", err)
	}
	if meta.Width != 100 || meta.Height != 200 {
		t.Errorf("rotated size = %dx%d, want 100x200", meta.Width, meta.Height)
	}

	if _, err := p.Rotate(src, 45, DefaultQuality); err == nil {
		t.Error("Rotate(45) should fail")
	}
}

func TestVipsInvalidInput(t *testing.T) {
	p := vipsProcessor(t)

	if _, err := p.AutoRotateResize([]byte("not an image"), DefaultMaxWidth); err == nil {
		t.Error("expected error for invalid input")
	}
}
