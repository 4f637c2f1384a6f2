package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"family-media/internal/genlock"
	"family-media/internal/logging"
	"family-media/internal/mediatypes"
	"family-media/internal/metrics"
	"family-media/internal/storage"
)

const (
	// MinThumbnailBytes is the smallest stored artifact treated as a real
	// thumbnail. Anything shorter is a placeholder sentinel left by an
	// earlier failed run and is regenerated.
	MinThumbnailBytes = 100

	// DefaultMaxWidth is the thumbnail width bound; images are never enlarged.
	DefaultMaxWidth = 300

	// DefaultQuality is the JPEG quality of generated thumbnails.
	DefaultQuality = 80

	// DefaultFrameOffset is where video frames are taken from.
	DefaultFrameOffset = 1.0

	// ThumbnailPrefix is prepended to the resolved key to form the artifact key.
	ThumbnailPrefix = "thumbnails/"
)

// ErrUnsupportedType is returned for keys that are neither image nor video.
var ErrUnsupportedType = errors.New("unsupported media type for thumbnail")

// Stage names used in StageError.
const (
	StageDownload    = "download"
	StageUpload      = "upload"
	StagePlaceholder = "placeholder"
)

// StageError records which step of thumbnail production failed and on
// which storage key.
type StageError struct {
	Stage string
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("thumbnail %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Outcome describes how a thumbnail response was produced.
type Outcome string

const (
	// OutcomeReused means a stored artifact was served as is.
	OutcomeReused Outcome = "reused"
	// OutcomeGenerated means a new JPEG was produced and stored.
	OutcomeGenerated Outcome = "generated"
	// OutcomePlaceholder means a video frame was unavailable and the SVG
	// placeholder was stored.
	OutcomePlaceholder Outcome = "placeholder"
	// OutcomeFallbackOriginal means image processing failed and the
	// original bytes are returned. Nothing is stored.
	OutcomeFallbackOriginal Outcome = "fallback_original"
)

// Result is the thumbnail payload for one request.
type Result struct {
	Data        []byte
	ContentType string
	Outcome     Outcome
	// ArtifactPath is the key the thumbnail is stored at, or would have
	// been stored at for OutcomeFallbackOriginal.
	ArtifactPath string
}

// IsPlaceholderSentinel reports whether a stored artifact of the given
// size must be regenerated.
func IsPlaceholderSentinel(size int64) bool {
	return size < MinThumbnailBytes
}

// ThumbPath returns the artifact key for a resolved original.
func ThumbPath(resolvedKey string) string {
	return ThumbnailPrefix + resolvedKey
}

// LegacyThumbPath returns the flat key older uploads stored thumbnails
// under: media/thumb_<name without extension>.jpg.
func LegacyThumbPath(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return "media/thumb_" + base + ".jpg"
}

// Config configures a Generator.
type Config struct {
	Store  storage.Store
	Locker genlock.Locker
	// Images is optional. Without it images fall back to the original and
	// videos get the placeholder.
	Images ImageProcessor
	// Frames is optional. Without it videos get the placeholder.
	Frames FrameExtractor

	MaxWidth    int
	Quality     int
	FrameOffset float64
}

// Generator produces thumbnails and caches them in storage. Concurrent
// requests for the same artifact inside one process are serialized by the
// Locker so each artifact is generated at most once.
type Generator struct {
	store       storage.Store
	locker      genlock.Locker
	images      ImageProcessor
	frames      FrameExtractor
	maxWidth    int
	quality     int
	frameOffset float64
}

// NewGenerator creates a Generator, filling defaults for zero values.
func NewGenerator(cfg Config) *Generator {
	g := &Generator{
		store:       cfg.Store,
		locker:      cfg.Locker,
		images:      cfg.Images,
		frames:      cfg.Frames,
		maxWidth:    cfg.MaxWidth,
		quality:     cfg.Quality,
		frameOffset: cfg.FrameOffset,
	}
	if g.locker == nil {
		g.locker = genlock.NewMemory()
	}
	if g.maxWidth <= 0 {
		g.maxWidth = DefaultMaxWidth
	}
	if g.quality <= 0 {
		g.quality = DefaultQuality
	}
	if g.frameOffset <= 0 {
		g.frameOffset = DefaultFrameOffset
	}

	images := "none"
	if g.images != nil {
		images = g.images.Name()
	}
	logging.Debug("Generator: image processor %s, frame extractor %v, max width %d, quality %d",
		images, g.frames != nil, g.maxWidth, g.quality)
	return g
}

// Images returns the configured image processor, or nil.
func (g *Generator) Images() ImageProcessor { return g.images }

// HasFrames reports whether video thumbnails use real frames.
func (g *Generator) HasFrames() bool { return g.frames != nil }

// Get returns the thumbnail for resolvedKey, reusing a stored artifact
// unless force is set or the stored one is a sentinel.
func (g *Generator) Get(ctx context.Context, resolvedKey string, force bool) (*Result, error) {
	kind := mediatypes.Classify(resolvedKey)
	if kind != mediatypes.FileTypeImage && kind != mediatypes.FileTypeVideo {
		return nil, fmt.Errorf("%s: %w", resolvedKey, ErrUnsupportedType)
	}

	artifact := ThumbPath(resolvedKey)

	if !force {
		if res := g.reuse(ctx, artifact); res != nil {
			g.record(kind, res.Outcome)
			return res, nil
		}
	}

	acq := g.locker.Acquire(ctx, artifact)
	defer g.locker.Release(context.WithoutCancel(ctx), artifact)

	// A waiter reuses what the previous holder produced.
	if !force || acq.Contended() {
		if res := g.reuse(ctx, artifact); res != nil {
			logging.Debug("Thumbnail %s produced by another request while waiting %v", artifact, acq.Waited)
			g.record(kind, res.Outcome)
			return res, nil
		}
	}

	start := time.Now()
	var (
		res *Result
		err error
	)
	switch kind {
	case mediatypes.FileTypeVideo:
		res, err = g.generateVideo(ctx, resolvedKey, artifact)
	default:
		res, err = g.generateImage(ctx, resolvedKey, artifact)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ThumbnailOutcomesTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	g.record(kind, res.Outcome)
	return res, nil
}

func (g *Generator) record(kind mediatypes.FileType, outcome Outcome) {
	metrics.ThumbnailOutcomesTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

// reuse returns the stored artifact, or nil when it is missing, a sentinel,
// or unreadable.
func (g *Generator) reuse(ctx context.Context, artifact string) *Result {
	props, err := g.store.Properties(ctx, artifact)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Warn("Could not read thumbnail properties for %s, regenerating: %v", artifact, err)
		}
		return nil
	}
	if IsPlaceholderSentinel(props.Size) {
		logging.Debug("Thumbnail %s is a %d byte sentinel, regenerating", artifact, props.Size)
		metrics.ThumbnailPlaceholderSentinels.Inc()
		return nil
	}

	data, err := g.store.Download(ctx, artifact, nil)
	if err != nil {
		logging.Warn("Could not download thumbnail %s, regenerating: %v", artifact, err)
		return nil
	}

	contentType := mediatypes.SniffImageType(data)
	if contentType == "" {
		contentType = props.ContentType
	}
	if contentType == "" || contentType == mediatypes.DefaultMimeType {
		contentType = "image/jpeg"
	}

	return &Result{
		Data:         data,
		ContentType:  contentType,
		Outcome:      OutcomeReused,
		ArtifactPath: artifact,
	}
}

func (g *Generator) download(ctx context.Context, key string) ([]byte, error) {
	data, err := g.store.Download(ctx, key, nil)
	if err != nil {
		return nil, &StageError{Stage: StageDownload, Path: key, Err: err}
	}
	return data, nil
}

func (g *Generator) upload(ctx context.Context, key string, data []byte, contentType, stage string) error {
	if _, err := g.store.Upload(ctx, key, data, contentType); err != nil {
		return &StageError{Stage: stage, Path: key, Err: err}
	}
	return nil
}

func (g *Generator) generateImage(ctx context.Context, key, artifact string) (*Result, error) {
	original, err := g.download(ctx, key)
	if err != nil {
		return nil, err
	}

	thumb, err := g.thumbnail(original)
	if err != nil {
		logging.Warn("Image thumbnail for %s failed, serving original: %v", key, err)
		return &Result{
			Data:         original,
			ContentType:  mediatypes.ContentTypeFor(key),
			Outcome:      OutcomeFallbackOriginal,
			ArtifactPath: artifact,
		}, nil
	}

	if err := g.upload(ctx, artifact, thumb, "image/jpeg", StageUpload); err != nil {
		return nil, err
	}
	logging.Debug("Thumbnail generated: %s (%d -> %d bytes)", artifact, len(original), len(thumb))

	return &Result{
		Data:         thumb,
		ContentType:  "image/jpeg",
		Outcome:      OutcomeGenerated,
		ArtifactPath: artifact,
	}, nil
}

func (g *Generator) generateVideo(ctx context.Context, key, artifact string) (*Result, error) {
	original, err := g.download(ctx, key)
	if err != nil {
		return nil, err
	}

	thumb, err := g.videoFrame(ctx, original)
	if err == nil {
		if err := g.upload(ctx, artifact, thumb, "image/jpeg", StageUpload); err != nil {
			return nil, err
		}
		logging.Debug("Video thumbnail generated: %s (%d bytes)", artifact, len(thumb))
		return &Result{
			Data:         thumb,
			ContentType:  "image/jpeg",
			Outcome:      OutcomeGenerated,
			ArtifactPath: artifact,
		}, nil
	}

	logging.Warn("Video frame for %s unavailable, storing placeholder: %v", key, err)
	if err := g.upload(ctx, artifact, VideoPlaceholder, PlaceholderContentType, StagePlaceholder); err != nil {
		return nil, err
	}
	return &Result{
		Data:         VideoPlaceholder,
		ContentType:  PlaceholderContentType,
		Outcome:      OutcomePlaceholder,
		ArtifactPath: artifact,
	}, nil
}

func (g *Generator) videoFrame(ctx context.Context, original []byte) ([]byte, error) {
	if g.frames == nil {
		return nil, errors.New("no frame extractor configured")
	}
	if g.images == nil {
		return nil, errors.New("no image processor configured")
	}
	frame, err := g.frames.ExtractFrame(ctx, original, g.frameOffset)
	if err != nil {
		return nil, err
	}
	return g.thumbnail(frame)
}

// thumbnail runs rotate+resize before the metadata strip so the EXIF
// orientation is still present when it is applied.
func (g *Generator) thumbnail(data []byte) ([]byte, error) {
	if g.images == nil {
		return nil, errors.New("no image processor configured")
	}
	resized, err := g.images.AutoRotateResize(data, g.maxWidth)
	if err != nil {
		return nil, err
	}
	return g.images.StripEncodeJPEG(resized, g.quality)
}
