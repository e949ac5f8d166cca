// Package scaling implements the quality-preserving downscale used by the
// editor's render pipeline.
//
// A single-pass bilinear draw by a large ratio aliases badly: each output
// pixel samples only a handful of the source pixels it covers. The engine
// instead halves the working bitmap repeatedly until it is within a factor of
// two of the destination, then performs one final rect-to-rect draw. Three
// halving passes bound the work; past 16:1 the residual aliasing is invisible
// at screen sizes.
package scaling

import (
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// maxHalvingPasses caps the iterative halving phase.
const maxHalvingPasses = 3

// Viewport describes one render pass: which part of the source is drawn into
// which part of the destination, with symmetric padding applied on each axis.
// Viewports are transient and recomputed for every render.
type Viewport struct {
	Source    image.Rectangle
	Dest      image.Rectangle
	PadWidth  int
	PadHeight int
}

// FullFrame builds the viewport used by an ordinary render: the whole source
// mapped onto the whole destination with no padding.
func FullFrame(srcW, srcH, dstW, dstH int) Viewport {
	return Viewport{
		Source: image.Rect(0, 0, srcW, srcH),
		Dest:   image.Rect(0, 0, dstW, dstH),
	}
}

// Draw renders src through vp into dst. The call is a no-op with a logged
// warning when the destination or source region is empty; it never fails.
func Draw(dst xdraw.Image, src image.Image, vp Viewport, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	inner := image.Rect(
		vp.Dest.Min.X+vp.PadWidth/2,
		vp.Dest.Min.Y+vp.PadHeight/2,
		vp.Dest.Max.X-vp.PadWidth/2,
		vp.Dest.Max.Y-vp.PadHeight/2,
	)
	if vp.Dest.Dx() <= 0 || vp.Dest.Dy() <= 0 || inner.Empty() {
		log.Warn("scaling: empty destination, skipping draw",
			zap.Int("dest_width", vp.Dest.Dx()),
			zap.Int("dest_height", vp.Dest.Dy()))
		return
	}
	if vp.Source.Dx() <= 0 || vp.Source.Dy() <= 0 {
		log.Warn("scaling: empty source region, skipping draw")
		return
	}

	var work image.Image = src
	if vp.Source != src.Bounds() {
		work = imaging.Crop(src, vp.Source)
	}

	w, h := work.Bounds().Dx(), work.Bounds().Dy()
	targetW, targetH := inner.Dx(), inner.Dy()
	for i := 0; i < maxHalvingPasses; i++ {
		if w <= 2*targetW && h <= 2*targetH {
			break
		}
		w, h = (w+1)/2, (h+1)/2
		work = imaging.Resize(work, w, h, imaging.Linear)
	}

	xdraw.BiLinear.Scale(dst, inner, work, work.Bounds(), xdraw.Src, nil)
}
