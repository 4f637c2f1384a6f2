package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"family-media/internal/logging"
	"family-media/internal/metrics"

	"github.com/kballard/go-shellquote"
	"golang.org/x/sync/semaphore"
)

// ErrFFmpegUnavailable is returned when the ffmpeg binary cannot be found.
var ErrFFmpegUnavailable = errors.New("ffmpeg not available")

// FFmpegConfig configures FFmpegExtractor.
type FFmpegConfig struct {
	// Path to the ffmpeg binary. Empty means look it up on PATH.
	Path string
	// InputArgs is a shell-quoted string of extra arguments placed before -i.
	InputArgs string
	// MaxConcurrent bounds the number of ffmpeg processes. Values below 1
	// mean 1.
	MaxConcurrent int
	// Timeout bounds a single ffmpeg run. Zero means no limit beyond ctx.
	Timeout time.Duration
	// TempDir holds the staged input files. Empty means os.TempDir().
	TempDir string
}

// FFmpegExtractor is a FrameExtractor that shells out to ffmpeg. Video bytes
// are staged in a temp file; mov and mp4 with a trailing moov atom need a
// seekable input.
type FFmpegExtractor struct {
	path      string
	inputArgs []string
	timeout   time.Duration
	tempDir   string
	sem       *semaphore.Weighted
}

// NewFFmpegExtractor validates cfg and returns an extractor. It fails when
// ffmpeg cannot be found or InputArgs cannot be parsed.
func NewFFmpegExtractor(cfg FFmpegConfig) (*FFmpegExtractor, error) {
	bin := cfg.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFFmpegUnavailable, err)
	}

	var inputArgs []string
	if cfg.InputArgs != "" {
		inputArgs, err = shellquote.Split(cfg.InputArgs)
		if err != nil {
			return nil, fmt.Errorf("parse ffmpeg input args %q: %w", cfg.InputArgs, err)
		}
	}

	limit := cfg.MaxConcurrent
	if limit < 1 {
		limit = 1
	}

	logging.Debug("FFmpegExtractor: using %s (max %d concurrent, extra input args %v)", resolved, limit, inputArgs)

	return &FFmpegExtractor{
		path:      resolved,
		inputArgs: inputArgs,
		timeout:   cfg.Timeout,
		tempDir:   cfg.TempDir,
		sem:       semaphore.NewWeighted(int64(limit)),
	}, nil
}

// Path returns the resolved ffmpeg binary.
func (f *FFmpegExtractor) Path() string { return f.path }

// ExtractFrame implements FrameExtractor. The first attempt seeks to the
// requested offset; if that yields nothing (clip shorter than the offset)
// the first frame is taken instead.
func (f *FFmpegExtractor) ExtractFrame(ctx context.Context, data []byte, seconds float64) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty video input")
	}

	tmp, err := os.CreateTemp(f.tempDir, "family-media-frame-*")
	if err != nil {
		return nil, fmt.Errorf("create temp input: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove temp file %s: %v", tmpName, err)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp input: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp input: %w", err)
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for ffmpeg slot: %w", err)
	}
	defer f.sem.Release(1)

	metrics.ThumbnailFFmpegInFlight.Inc()
	defer metrics.ThumbnailFFmpegInFlight.Dec()

	start := time.Now()
	defer func() {
		metrics.ThumbnailFFmpegDuration.Observe(time.Since(start).Seconds())
	}()

	out, err := f.run(ctx, tmpName, seconds)
	if err == nil {
		return out, nil
	}
	if seconds <= 0 {
		return nil, err
	}

	logging.Debug("FFmpeg seek to %.2fs failed: %v, retrying from the first frame", seconds, err)
	return f.run(ctx, tmpName, 0)
}

func (f *FFmpegExtractor) run(ctx context.Context, input string, seconds float64) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.path, f.args(input, seconds)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, lastLine(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}

	logging.Debug("FFmpeg output size: %d bytes", stdout.Len())
	return stdout.Bytes(), nil
}

func (f *FFmpegExtractor) args(input string, seconds float64) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, f.inputArgs...)
	args = append(args, "-i", input)
	if seconds > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seconds, 'f', -1, 64))
	}
	return append(args,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return string(b[i+1:])
	}
	return string(b)
}
