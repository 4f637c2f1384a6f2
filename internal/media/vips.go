package media

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"family-media/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/rwcarlsen/goexif/exif"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// ErrVipsUnavailable is returned by VipsProcessor when libvips was never
// started or has been shut down.
var ErrVipsUnavailable = errors.New("libvips not available")

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() to respect LOG_LEVEL
	vipsLogLevel, logHandler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Thumbnails are small; keep the operation cache tight
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// vipsLogging maps the application log level onto libvips' own filter and
// routes its messages through our logger.
func vipsLogging(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo:
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	case logging.LevelWarn:
		return vips.LogLevelError, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	case logging.LevelError:
		return vips.LogLevelCritical, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsProcessor is the libvips-backed ImageProcessor. InitVips must have
// been called first.
type VipsProcessor struct{}

// NewVipsProcessor starts libvips if needed and returns a processor.
func NewVipsProcessor() (*VipsProcessor, error) {
	if err := InitVips(); err != nil {
		return nil, err
	}
	return &VipsProcessor{}, nil
}

// Name implements ImageProcessor.
func (p *VipsProcessor) Name() string { return "vips" }

func (p *VipsProcessor) load(data []byte) (*vips.ImageRef, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}
	ref, err := vips.LoadImageFromBuffer(data, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	return ref, nil
}

// ReadMetadata implements ImageProcessor.
func (p *VipsProcessor) ReadMetadata(data []byte) (ImageMetadata, error) {
	ref, err := p.load(data)
	if err != nil {
		return ImageMetadata{}, err
	}
	defer ref.Close()

	meta := ImageMetadata{
		Width:       ref.Width(),
		Height:      ref.Height(),
		Format:      vips.ImageTypes[ref.Format()],
		Orientation: ref.Orientation(),
	}
	if _, err := exif.Decode(bytes.NewReader(data)); err == nil {
		meta.HasExif = true
	}
	return meta, nil
}

// AutoRotateResize implements ImageProcessor.
func (p *VipsProcessor) AutoRotateResize(data []byte, maxWidth int) ([]byte, error) {
	ref, err := p.load(data)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("vips auto-rotate failed: %w", err)
	}

	if maxWidth > 0 && ref.Width() > maxWidth {
		scale := float64(maxWidth) / float64(ref.Width())
		if err := ref.Resize(scale, vips.KernelLanczos3); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	out, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	logging.Debug("Vips auto-rotate/resize complete: %dx%d", ref.Width(), ref.Height())
	return out, nil
}

// StripEncodeJPEG implements ImageProcessor.
func (p *VipsProcessor) StripEncodeJPEG(data []byte, quality int) ([]byte, error) {
	ref, err := p.load(data)
	if err != nil {
		return nil, err
	}
	defer ref.Close()
	return exportJPEG(ref, quality)
}

// Rotate implements ImageProcessor.
func (p *VipsProcessor) Rotate(data []byte, degrees, quality int) ([]byte, error) {
	var angle vips.Angle
	switch normalizeDegrees(degrees) {
	case 0:
		angle = vips.Angle0
	case 90:
		angle = vips.Angle90
	case 180:
		angle = vips.Angle180
	case 270:
		angle = vips.Angle270
	default:
		return nil, fmt.Errorf("unsupported rotation %d: must be a multiple of 90", degrees)
	}

	ref, err := p.load(data)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	if angle != vips.Angle0 {
		if err := ref.Rotate(angle); err != nil {
			return nil, fmt.Errorf("vips rotate failed: %w", err)
		}
	}
	return exportJPEG(ref, quality)
}

func exportJPEG(ref *vips.ImageRef, quality int) ([]byte, error) {
	params := vips.NewJpegExportParams()
	params.Quality = quality
	params.StripMetadata = true
	params.OptimizeCoding = true

	out, _, err := ref.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return out, nil
}
