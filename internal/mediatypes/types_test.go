package mediatypes

import (
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "PNG image", ext: ".png", want: FileTypeImage},
		{name: "HEIC image", ext: ".heic", want: FileTypeImage},
		{name: "MP4 video", ext: ".mp4", want: FileTypeVideo},
		{name: "MOV video", ext: ".mov", want: FileTypeVideo},
		{name: "WebM video", ext: ".webm", want: FileTypeVideo},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{name: "JPEG mime type", ext: ".jpg", want: "image/jpeg"},
		{name: "SVG mime type", ext: ".svg", want: "image/svg+xml"},
		{name: "MP4 mime type", ext: ".mp4", want: "video/mp4"},
		{name: "MOV mime type", ext: ".mov", want: "video/quicktime"},
		{name: "Unknown extension returns octet-stream", ext: ".unknown", want: "application/octet-stream"},
		{name: "Empty extension returns octet-stream", ext: "", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetMimeType(tt.ext)
			if got != tt.want {
				t.Errorf("GetMimeType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestClassifyKeys(t *testing.T) {
	tests := []struct {
		key       string
		wantType  FileType
		wantMime  string
		wantVideo bool
	}{
		{"media/2019/Beach Day.MOV", FileTypeVideo, "video/quicktime", true},
		{`media\2019\Beach Day.mp4`, FileTypeVideo, "video/mp4", true},
		{"thumbnails/media/IMG_0001.JPG", FileTypeImage, "image/jpeg", false},
		{"media/Grandma%27s%20Party.jpeg", FileTypeImage, "image/jpeg", false},
		{"media/notes.txt", FileTypeOther, "application/octet-stream", false},
		{"media/no-extension", FileTypeOther, "application/octet-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := Classify(tt.key); got != tt.wantType {
				t.Errorf("Classify(%q) = %v, want %v", tt.key, got, tt.wantType)
			}
			if got := ContentTypeFor(tt.key); got != tt.wantMime {
				t.Errorf("ContentTypeFor(%q) = %v, want %v", tt.key, got, tt.wantMime)
			}
			if got := IsVideo(tt.key); got != tt.wantVideo {
				t.Errorf("IsVideo(%q) = %v, want %v", tt.key, got, tt.wantVideo)
			}
		})
	}
}

func TestSniffImageType(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png"},
		{"gif", []byte("GIF89a...."), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "image/webp"},
		{"tiff little endian", []byte{'I', 'I', 0x2A, 0x00, 0x08}, "image/tiff"},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00"), "image/heic"},
		{"avif", []byte("\x00\x00\x00\x18ftypavif\x00\x00"), "image/avif"},
		{"svg", []byte("  <svg xmlns=\"http://www.w3.org/2000/svg\">"), "image/svg+xml"},
		{"svg with prolog", []byte("<?xml version=\"1.0\"?><svg>"), "image/svg+xml"},
		{"mp4 is not an image", []byte("\x00\x00\x00\x18ftypisom\x00\x00"), ""},
		{"empty", nil, ""},
		{"text", []byte("hello world"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffImageType(tt.header); got != tt.want {
				t.Errorf("SniffImageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtensionTablesHaveMimeTypes(t *testing.T) {
	for ext := range ImageExtensions {
		if _, ok := MimeTypes[ext]; !ok {
			t.Errorf("image extension %s has no MIME type", ext)
		}
	}
	for ext := range VideoExtensions {
		if _, ok := MimeTypes[ext]; !ok {
			t.Errorf("video extension %s has no MIME type", ext)
		}
		if ImageExtensions[ext] {
			t.Errorf("extension %s is both image and video", ext)
		}
	}
}
