package media

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoProcessor is returned by maintenance operations that need an
// ImageProcessor when none is configured.
var ErrNoProcessor = errors.New("no image processor configured")

// Inspection describes a stored thumbnail.
type Inspection struct {
	Path string
	Size int
	ImageMetadata
}

// Inspect downloads the artifact at key and reads its metadata.
func (g *Generator) Inspect(ctx context.Context, key string) (*Inspection, error) {
	if g.images == nil {
		return nil, ErrNoProcessor
	}
	data, err := g.download(ctx, key)
	if err != nil {
		return nil, err
	}
	meta, err := g.images.ReadMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("read metadata of %s: %w", key, err)
	}
	return &Inspection{Path: key, Size: len(data), ImageMetadata: meta}, nil
}

// Rotation is the result of RotateArtifact.
type Rotation struct {
	Path         string
	OriginalSize int
	RotatedSize  int
}

// RotateArtifact turns the stored thumbnail at key clockwise by degrees and
// overwrites it in place. The artifact lock is held for the duration so a
// concurrent regeneration cannot interleave.
func (g *Generator) RotateArtifact(ctx context.Context, key string, degrees int) (*Rotation, error) {
	if g.images == nil {
		return nil, ErrNoProcessor
	}

	g.locker.Acquire(ctx, key)
	defer g.locker.Release(context.WithoutCancel(ctx), key)

	data, err := g.download(ctx, key)
	if err != nil {
		return nil, err
	}
	rotated, err := g.images.Rotate(data, degrees, g.quality)
	if err != nil {
		return nil, fmt.Errorf("rotate %s: %w", key, err)
	}
	if err := g.upload(ctx, key, rotated, "image/jpeg", StageUpload); err != nil {
		return nil, err
	}
	return &Rotation{Path: key, OriginalSize: len(data), RotatedSize: len(rotated)}, nil
}
