package plugins

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/DevvisioN/imager"
)

// Frame paints a solid border around the edit canvas and counts the commits
// it has been rendered through.
//
// Configuration: "color" (hex string, default "#000000"), "thickness"
// (pixels, default 8), "weight" (default 30).
type Frame struct {
	border    color.RGBA
	hex       string
	thickness int
	weight    float64
	commits   int
}

// NewFrame is the catalog factory for the "frame" plugin.
func NewFrame(_ *imager.Session, cfg map[string]any) (imager.Plugin, error) {
	hex := stringFrom(cfg, "color", "#000000")
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("frame: bad color %q: %w", hex, err)
	}
	thickness := int(floatFrom(cfg, "thickness", 8))
	if thickness < 0 {
		return nil, fmt.Errorf("frame: negative thickness %d", thickness)
	}
	r, g, b := c.RGB255()
	return &Frame{
		border:    color.RGBA{R: r, G: g, B: b, A: 255},
		hex:       hex,
		thickness: thickness,
		weight:    floatFrom(cfg, "weight", 30),
	}, nil
}

// Weight orders the plugin among its peers.
func (f *Frame) Weight() float64 { return f.weight }

// Render paints the border strips.
func (f *Frame) Render(c *imager.Canvas) error {
	rgba := c.RGBA()
	if rgba == nil || rgba.Bounds().Empty() || f.thickness == 0 {
		return nil
	}

	b := rgba.Bounds()
	t := f.thickness
	for y := b.Min.Y; y < b.Max.Y; y++ {
		edgeRow := y < b.Min.Y+t || y >= b.Max.Y-t
		for x := b.Min.X; x < b.Max.X; x++ {
			if edgeRow || x < b.Min.X+t || x >= b.Max.X-t {
				rgba.SetRGBA(x, y, f.border)
			}
		}
	}
	return nil
}

// OnHistoryChange counts commits and undos observed while active.
func (f *Frame) OnHistoryChange() {
	f.commits++
}

// Serialize reports the frame parameters and the history churn it saw.
func (f *Frame) Serialize() any {
	return map[string]any{
		"effect":          "frame",
		"color":           f.hex,
		"thickness":       f.thickness,
		"history_changes": f.commits,
	}
}
