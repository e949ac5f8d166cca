package imager

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"go.uber.org/zap"

	"github.com/DevvisioN/imager/internal/exif"
	"github.com/DevvisioN/imager/internal/sourceio"
)

// Canvas is an owned RGBA drawing surface. The session creates one canvas
// pair per editing session (the edit canvas and a scratch buffer); plugins
// may draw into the edit canvas only during a render dispatch.
type Canvas struct {
	log     *zap.Logger
	rgba    *image.RGBA
	tainted bool
}

func newCanvas(log *zap.Logger) *Canvas {
	if log == nil {
		log = zap.NewNop()
	}
	return &Canvas{log: log, rgba: image.NewRGBA(image.Rect(0, 0, 0, 0))}
}

// Resize sets the canvas dimensions, clearing the contents. Resizing to the
// current size is a no-op so that reentrant renders from synchronous event
// handlers cannot wipe a frame mid-draw.
func (c *Canvas) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	if c.rgba != nil && c.rgba.Bounds().Dx() == w && c.rgba.Bounds().Dy() == h {
		return
	}
	c.rgba = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Size returns the current canvas dimensions.
func (c *Canvas) Size() (int, int) {
	if c.rgba == nil {
		return 0, 0
	}
	return c.rgba.Bounds().Dx(), c.rgba.Bounds().Dy()
}

// RGBA exposes the backing image for drawing.
func (c *Canvas) RGBA() *image.RGBA {
	return c.rgba
}

// Clear zeroes the canvas contents without resizing.
func (c *Canvas) Clear() {
	if c.rgba == nil {
		return
	}
	draw.Draw(c.rgba, c.rgba.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// SetTainted marks the canvas as carrying cross-origin content, blocking
// exports with ErrSecurity. Hosts embedding the engine in a browser-like
// runtime set this for sources their sandbox would taint.
func (c *Canvas) SetTainted(tainted bool) {
	c.tainted = tainted
}

// Tainted reports whether exports are blocked.
func (c *Canvas) Tainted() bool {
	return c.tainted
}

// Export encodes the canvas as a base64 data URI in the given format
// ("jpeg" or "png"). For JPEG output a preserved EXIF segment, when
// provided, is spliced back into the stream. Quality applies to JPEG only,
// as a 0-1 fraction.
func (c *Canvas) Export(format string, quality float64, exifSeg []byte) (string, error) {
	if c.tainted {
		return "", ErrSecurity
	}
	w, h := c.Size()
	if w == 0 || h == 0 {
		return "", fmt.Errorf("canvas: export of empty canvas")
	}

	var buf bytes.Buffer
	switch format {
	case sourceio.FormatPNG:
		if err := png.Encode(&buf, c.rgba); err != nil {
			return "", fmt.Errorf("canvas: encode png: %w", err)
		}
		return sourceio.EncodeDataURI(sourceio.FormatPNG, buf.Bytes()), nil
	case sourceio.FormatJPEG, "":
		q := 100
		if quality > 0 && quality <= 1 {
			q = int(quality * 100)
		}
		if err := jpeg.Encode(&buf, c.rgba, &jpeg.Options{Quality: q}); err != nil {
			return "", fmt.Errorf("canvas: encode jpeg: %w", err)
		}
		data := buf.Bytes()
		if len(exifSeg) > 0 {
			spliced, err := exif.Splice(data, exifSeg)
			if err != nil {
				c.log.Warn("canvas: could not splice metadata, exporting without it", zap.Error(err))
			} else {
				data = spliced
			}
		}
		return sourceio.EncodeDataURI(sourceio.FormatJPEG, data), nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", ErrConfig, format)
	}
}

// Release drops the backing buffer. The canvas must not be drawn to again.
func (c *Canvas) Release() {
	c.rgba = nil
}
