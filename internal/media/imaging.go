package media

import (
	"bytes"
	"fmt"
	"image"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support
)

// MaxImagePixels is the largest source image ImagingProcessor will decode.
// A 20MP image uses ~80MB in RGBA.
const MaxImagePixels = 20_000_000

// ImagingProcessor is the pure Go ImageProcessor. It needs no native
// libraries but decodes whole images into memory, so it is slower and
// hungrier than VipsProcessor on large photos.
type ImagingProcessor struct{}

// NewImagingProcessor returns the pure Go processor.
func NewImagingProcessor() *ImagingProcessor {
	return &ImagingProcessor{}
}

// Name implements ImageProcessor.
func (p *ImagingProcessor) Name() string { return "imaging" }

// ReadMetadata implements ImageProcessor.
func (p *ImagingProcessor) ReadMetadata(data []byte) (ImageMetadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("decode image header: %w", err)
	}

	meta := ImageMetadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}
	if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
		meta.HasExif = true
		meta.Orientation = exifOrientation(x)
	}
	return meta, nil
}

// AutoRotateResize implements ImageProcessor.
func (p *ImagingProcessor) AutoRotateResize(data []byte, maxWidth int) ([]byte, error) {
	img, err := p.decode(data)
	if err != nil {
		return nil, err
	}

	orientation := 1
	if x, err := exif.Decode(bytes.NewReader(data)); err == nil {
		orientation = exifOrientation(x)
	}
	img = applyOrientation(img, orientation)

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode intermediate: %w", err)
	}
	return buf.Bytes(), nil
}

// StripEncodeJPEG implements ImageProcessor. Decoding into pixels already
// drops every metadata segment.
func (p *ImagingProcessor) StripEncodeJPEG(data []byte, quality int) ([]byte, error) {
	img, err := p.decode(data)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img, quality)
}

// Rotate implements ImageProcessor.
func (p *ImagingProcessor) Rotate(data []byte, degrees, quality int) ([]byte, error) {
	img, err := p.decode(data)
	if err != nil {
		return nil, err
	}

	// imaging rotates counter-clockwise
	switch normalizeDegrees(degrees) {
	case 0:
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	default:
		return nil, fmt.Errorf("unsupported rotation %d: must be a multiple of 90", degrees)
	}
	return encodeJPEG(img, quality)
}

func (p *ImagingProcessor) decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width*cfg.Height > MaxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxImagePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func exifOrientation(x *exif.Exif) int {
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation transforms an image according to its EXIF orientation value.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

func normalizeDegrees(degrees int) int {
	d := degrees % 360
	if d < 0 {
		d += 360
	}
	return d
}
