// Package normalize ingests raw photo sources and produces an upright,
// size-capped bitmap ready for editing.
//
// Normalization does three things, in order: decode the source bytes, undo
// any EXIF orientation (rewriting the tag so the preserved metadata agrees
// with the corrected pixels), and cap oversized dimensions. Camera JPEGs
// routinely arrive "sideways": the sensor stores landscape pixels and an
// orientation tag tells viewers how to turn them. An editor has to bake that
// rotation into the pixels before any crop or overlay math makes sense.
package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/DevvisioN/imager/internal/exif"
	"github.com/DevvisioN/imager/internal/sourceio"
)

var (
	// ErrDecode reports unreadable or corrupt image bytes or metadata.
	ErrDecode = errors.New("image data could not be decoded")

	// ErrUnsupportedSource reports a source that is neither a data URI nor
	// an http(s) URL.
	ErrUnsupportedSource = errors.New("unsupported image source")
)

// Result is a normalized image: upright pixels, capped dimensions, and the
// original EXIF block (orientation tag rewritten to normal) for reuse when
// the edit is re-encoded.
type Result struct {
	Image       image.Image
	Format      string
	EXIF        []byte
	Orientation exif.Orientation
	Empty       bool
}

// Width returns the normalized pixel width, 0 for an empty result.
func (r *Result) Width() int {
	if r.Empty {
		return 0
	}
	return r.Image.Bounds().Dx()
}

// Height returns the normalized pixel height, 0 for an empty result.
func (r *Result) Height() int {
	if r.Empty {
		return 0
	}
	return r.Image.Bounds().Dy()
}

// Encode re-encodes the normalized bitmap in its detected format, splicing
// the preserved EXIF block back into JPEG output.
func (r *Result) Encode(quality float64) ([]byte, error) {
	var buf bytes.Buffer
	switch r.Format {
	case sourceio.FormatPNG:
		if err := png.Encode(&buf, r.Image); err != nil {
			return nil, fmt.Errorf("normalize: encode png: %w", err)
		}
		return buf.Bytes(), nil
	default:
		if err := jpeg.Encode(&buf, r.Image, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
			return nil, fmt.Errorf("normalize: encode jpeg: %w", err)
		}
		if len(r.EXIF) == 0 {
			return buf.Bytes(), nil
		}
		out, err := exif.Splice(buf.Bytes(), r.EXIF)
		if err != nil {
			return nil, fmt.Errorf("normalize: splice metadata: %w", err)
		}
		return out, nil
	}
}

func jpegQuality(q float64) int {
	if q <= 0 || q > 1 {
		return 100
	}
	return int(q * 100)
}

// Normalizer loads image sources according to the ingestion policy: empty
// sources are a no-op, data URIs decode inline, http(s) URLs are fetched,
// anything else is rejected.
type Normalizer struct {
	// MaxWidth and MaxHeight cap the normalized dimensions. Zero disables
	// the corresponding cap.
	MaxWidth  int
	MaxHeight int

	// Client fetches remote sources; nil uses sourceio.DefaultClient.
	Client *http.Client

	Log *zap.Logger
}

func (n *Normalizer) logger() *zap.Logger {
	if n.Log == nil {
		return zap.NewNop()
	}
	return n.Log
}

// Normalize loads, orients, and size-caps a source image.
func (n *Normalizer) Normalize(ctx context.Context, source string) (*Result, error) {
	switch {
	case source == "":
		return &Result{Empty: true}, nil
	case sourceio.IsDataURI(source):
		_, data, err := sourceio.ParseDataURI(source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return n.normalizeBytes(data, sourceio.DetectFormat(source))
	case sourceio.IsHTTPURL(source):
		data, err := sourceio.Fetch(ctx, n.Client, source)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return n.normalizeBytes(data, sourceio.DetectFormat(source))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, truncate(source, 64))
	}
}

func (n *Normalizer) normalizeBytes(data []byte, formatHint string) (*Result, error) {
	img, decodedFormat, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	format := formatHint
	if format == "" {
		format = decodedFormat
	}
	if format != sourceio.FormatJPEG && format != sourceio.FormatPNG {
		return nil, fmt.Errorf("%w: format %q", ErrDecode, decodedFormat)
	}

	res := &Result{Image: img, Format: format, Orientation: exif.OrientNormal}
	if format == sourceio.FormatJPEG {
		if err := n.applyOrientation(res, data); err != nil {
			return nil, err
		}
	}
	n.capSize(res)
	return res, nil
}

// applyOrientation bakes the EXIF rotation into the pixels and keeps the
// metadata block with its orientation tag reset, so the output matches a
// viewer that ignores EXIF entirely.
func (n *Normalizer) applyOrientation(res *Result, data []byte) error {
	orient, err := exif.ReadOrientation(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	res.Orientation = orient

	if seg, serr := exif.ExtractAPP1(data); serr == nil {
		res.EXIF = seg
	} else if !errors.Is(serr, exif.ErrNoEXIF) {
		return fmt.Errorf("%w: %v", ErrDecode, serr)
	}

	switch orient {
	case exif.OrientNormal:
	case exif.OrientFlipH:
		res.Image = imaging.FlipH(res.Image)
	case exif.OrientRotate180:
		res.Image = imaging.Rotate180(res.Image)
	case exif.OrientFlipV:
		res.Image = imaging.FlipV(res.Image)
	case exif.OrientTranspose:
		res.Image = imaging.Transpose(res.Image)
	case exif.OrientRotate90CW:
		res.Image = imaging.Rotate270(res.Image)
	case exif.OrientTransverse:
		res.Image = imaging.Transverse(res.Image)
	case exif.OrientRotate270CW:
		res.Image = imaging.Rotate90(res.Image)
	}
	if orient != exif.OrientNormal {
		n.logger().Debug("normalize: corrected EXIF orientation",
			zap.Int("orientation", int(orient)))
	}
	return nil
}

// capSize downscales past the configured ceilings, width first, preserving
// aspect ratio.
func (n *Normalizer) capSize(res *Result) {
	w, h := res.Image.Bounds().Dx(), res.Image.Bounds().Dy()
	if n.MaxWidth > 0 && w > n.MaxWidth {
		res.Image = imaging.Resize(res.Image, n.MaxWidth, 0, imaging.Lanczos)
		w, h = res.Image.Bounds().Dx(), res.Image.Bounds().Dy()
		n.logger().Debug("normalize: capped width", zap.Int("width", w), zap.Int("height", h))
	}
	if n.MaxHeight > 0 && h > n.MaxHeight {
		res.Image = imaging.Resize(res.Image, 0, n.MaxHeight, imaging.Lanczos)
		n.logger().Debug("normalize: capped height",
			zap.Int("width", res.Image.Bounds().Dx()),
			zap.Int("height", res.Image.Bounds().Dy()))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
