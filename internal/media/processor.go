package media

import "context"

// ImageMetadata is what ReadMetadata reports about an encoded image.
type ImageMetadata struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format"`
	Orientation int    `json:"orientation,omitempty"`
	HasExif     bool   `json:"hasExif"`
}

// ImageProcessor decodes, transforms and re-encodes still images. All
// methods take and return encoded bytes so implementations can keep their
// own in-memory representation private.
type ImageProcessor interface {
	// Name identifies the implementation in logs.
	Name() string

	// ReadMetadata reports dimensions, format and EXIF orientation.
	ReadMetadata(data []byte) (ImageMetadata, error)

	// AutoRotateResize applies the EXIF orientation, then scales the image
	// down to maxWidth when it is wider. Images are never enlarged. The
	// result is encoded losslessly for the following encode step.
	AutoRotateResize(data []byte, maxWidth int) ([]byte, error)

	// StripEncodeJPEG re-encodes as JPEG at the given quality with all
	// metadata removed.
	StripEncodeJPEG(data []byte, quality int) ([]byte, error)

	// Rotate turns the image clockwise by degrees (a multiple of 90) and
	// encodes the result as JPEG.
	Rotate(data []byte, degrees, quality int) ([]byte, error)
}

// FrameExtractor pulls a single still frame out of a video.
type FrameExtractor interface {
	// ExtractFrame returns a losslessly encoded frame taken at the given
	// offset in seconds. Clips shorter than the offset yield their first
	// frame.
	ExtractFrame(ctx context.Context, data []byte, seconds float64) ([]byte, error)
}
