package mediatypes

import (
	"bytes"
	"path"
	"strings"
)

// FileType represents the type of a media file.
type FileType string

const (
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// DefaultMimeType is returned for extensions that are not recognized.
const DefaultMimeType = "application/octet-stream"

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".svg":  true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".mts":  true,
	".m2ts": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".mts":  "video/mp2t",
	".m2ts": "video/mp2t",
}

// Ext returns the lowercase extension of a storage key, including the dot.
func Ext(key string) string {
	return strings.ToLower(path.Ext(key))
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return DefaultMimeType
}

// Classify returns the FileType of a storage key based on its extension.
func Classify(key string) FileType {
	return GetFileType(Ext(key))
}

// ContentTypeFor returns the MIME type of a storage key based on its extension.
func ContentTypeFor(key string) string {
	return GetMimeType(Ext(key))
}

// IsVideo reports whether the key has a video extension.
func IsVideo(key string) bool {
	return Classify(key) == FileTypeVideo
}

// IsImage reports whether the key has an image extension.
func IsImage(key string) bool {
	return Classify(key) == FileTypeImage
}

// SniffImageType detects an image MIME type from the leading bytes of a
// file. Returns "" when the header is not recognized.
func SniffImageType(header []byte) string {
	switch {
	case len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF:
		return "image/jpeg"
	case len(header) >= 8 && bytes.Equal(header[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case len(header) >= 6 && (string(header[:6]) == "GIF87a" || string(header[:6]) == "GIF89a"):
		return "image/gif"
	case len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return "image/webp"
	case len(header) >= 2 && header[0] == 'B' && header[1] == 'M':
		return "image/bmp"
	case len(header) >= 4 && (bytes.Equal(header[:4], []byte{'I', 'I', 0x2A, 0x00}) || bytes.Equal(header[:4], []byte{'M', 'M', 0x00, 0x2A})):
		return "image/tiff"
	case len(header) >= 12 && string(header[4:8]) == "ftyp":
		switch string(header[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return "image/heic"
		case "avif", "avis":
			return "image/avif"
		}
	}

	trimmed := bytes.TrimSpace(header)
	if bytes.HasPrefix(trimmed, []byte("<svg")) || (bytes.HasPrefix(trimmed, []byte("<?xml")) && bytes.Contains(trimmed, []byte("<svg"))) {
		return "image/svg+xml"
	}
	return ""
}
