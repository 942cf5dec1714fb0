package processing

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/types"
)

// TempPrefix is prepended to the source name of a resized copy
const TempPrefix = "temp_"

// Limits bounds what a compliant image may look like
type Limits struct {
	MaxBytes     int64
	MaxDimension int
	Quality      int
}

// DefaultLimits matches the 5 MB payload limit of Rekognition
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     5 * 1024 * 1024,
		MaxDimension: 2000,
		Quality:      85,
	}
}

// Outcome is the result of EnsureCompliant. Path is either the original
// file or a temporary resized copy owned by the caller.
type Outcome struct {
	Path      string
	Temporary bool
}

// Release removes the temporary copy, if any
func (o Outcome) Release() error {
	if !o.Temporary {
		return nil
	}
	if err := os.Remove(o.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Processor handles image processing operations
type Processor struct {
	limits Limits
}

// NewProcessor creates a new image processor
func NewProcessor(limits Limits) *Processor {
	return &Processor{limits: limits}
}

// EnsureCompliant returns a path to a version of the image at path that fits
// within MaxBytes. Files already under the limit are returned untouched.
// Larger files get a single downscale and JPEG re-encode into a sibling
// temp file; if that is still too big the temp file is removed and an
// error wrapping types.ErrResize is returned. An existing file at the temp
// path is never overwritten.
func (p *Processor) EnsureCompliant(path string) (Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", types.ErrResize, err)
	}
	if info.Size() <= p.limits.MaxBytes {
		return Outcome{Path: path}, nil
	}

	img, err := p.LoadImage(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: failed to decode %s: %v", types.ErrResize, filepath.Base(path), err)
	}

	img = flatten(img)
	if p.limits.MaxDimension > 0 {
		img = imaging.Fit(img, p.limits.MaxDimension, p.limits.MaxDimension, imaging.Lanczos)
	}

	tempPath := TempPath(path)
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Outcome{}, fmt.Errorf("%w: %s already exists", types.ErrResize, filepath.Base(tempPath))
		}
		return Outcome{}, fmt.Errorf("%w: %v", types.ErrResize, err)
	}
	out := Outcome{Path: tempPath, Temporary: true}

	err = imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(p.limits.Quality))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = out.Release()
		return Outcome{}, fmt.Errorf("%w: failed to encode %s: %v", types.ErrResize, filepath.Base(path), err)
	}

	resized, err := os.Stat(tempPath)
	if err != nil {
		_ = out.Release()
		return Outcome{}, fmt.Errorf("%w: %v", types.ErrResize, err)
	}
	if resized.Size() > p.limits.MaxBytes {
		_ = out.Release()
		return Outcome{}, fmt.Errorf("%w: %s is %s after resizing, limit is %s",
			types.ErrResize, filepath.Base(path),
			utils.FormatFileSize(resized.Size()), utils.FormatFileSize(p.limits.MaxBytes))
	}

	log.Debug().
		Str("path", path).
		Str("original_size", utils.FormatFileSize(info.Size())).
		Str("resized_size", utils.FormatFileSize(resized.Size())).
		Msg("Resized image under size limit")
	return out, nil
}

// TempPath returns the sibling path a resized copy of path is written to.
// The copy is always JPEG so non-JPEG sources get a .jpg extension.
func TempPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
	default:
		base = strings.TrimSuffix(base, ext) + ".jpg"
	}
	return filepath.Join(dir, TempPrefix+base)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}
	if img, _, err := image.Decode(f); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// flatten composites img onto an opaque white background so palette and
// alpha images encode as plain RGB.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
