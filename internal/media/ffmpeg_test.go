package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestNewFFmpegExtractorErrors(t *testing.T) {
	_, err := NewFFmpegExtractor(FFmpegConfig{Path: "/nonexistent/ffmpeg"})
	if !errors.Is(err, ErrFFmpegUnavailable) {
		t.Errorf("error = %v, want ErrFFmpegUnavailable", err)
	}

	// sh is present on any system running these tests
	_, err = NewFFmpegExtractor(FFmpegConfig{Path: "sh", InputArgs: `-hwaccel "auto`})
	if err == nil {
		t.Error("expected error for unterminated quote in input args")
	}
}

func TestFFmpegArgs(t *testing.T) {
	f, err := NewFFmpegExtractor(FFmpegConfig{Path: "sh", InputArgs: `-hwaccel auto -analyzeduration "10M"`})
	if err != nil {
		t.Fatalf("NewFFmpegExtractor() error = %v", err)
	}

	tests := []struct {
		name    string
		seconds float64
		want    []string
	}{
		{
			name:    "with seek",
			seconds: 1,
			want: []string{"-hide_banner", "-loglevel", "error", "-hwaccel", "auto", "-analyzeduration", "10M",
				"-i", "in", "-ss", "1", "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-"},
		},
		{
			name:    "first frame",
			seconds: 0,
			want: []string{"-hide_banner", "-loglevel", "error", "-hwaccel", "auto", "-analyzeduration", "10M",
				"-i", "in", "-frames:v", "1", "-f", "image2pipe", "-vcodec", "png", "-"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.args("in", tt.seconds); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractFrameEmptyInput(t *testing.T) {
	f, err := NewFFmpegExtractor(FFmpegConfig{Path: "sh"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ExtractFrame(context.Background(), nil, 1); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestExtractFrameIntegration(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}

	tests := []struct {
		name     string
		duration string
	}{
		{name: "3 second clip", duration: "3"},
		{name: "clip shorter than seek offset", duration: "0.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video := createTestVideo(t, tt.duration)

			f, err := NewFFmpegExtractor(FFmpegConfig{MaxConcurrent: 2, Timeout: 30 * time.Second, TempDir: t.TempDir()})
			if err != nil {
				t.Fatal(err)
			}
			frame, err := f.ExtractFrame(context.Background(), video, DefaultFrameOffset)
			if err != nil {
				t.Fatalf("ExtractFrame() error = %v", err)
			}
			cfg, format, err := image.DecodeConfig(bytes.NewReader(frame))
			if err != nil {
				t.Fatalf("frame does not decode: %v", err)
			}
			if format != "png" || cfg.Width != 320 || cfg.Height != 240 {
				t.Errorf("frame = %s %dx%d, want png 320x240", format, cfg.Width, cfg.Height)
			}
		})
	}
}

func createTestVideo(t *testing.T, duration string) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "test.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", "color=c=red:s=320x240:d="+duration,
		"-c:v", "libx264",
		"-t", duration,
		"-pix_fmt", "yuv420p",
		"-y",
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("could not create test video: %v: %s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
