package plugins

import (
	"fmt"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/DevvisioN/imager"
)

// Tint blends a translucent color wash over the edit canvas.
//
// Configuration: "color" (hex string, default "#ffa500"), "opacity"
// (0-1, default 0.25), "weight" (default 20).
type Tint struct {
	tint    colorful.Color
	opacity float64
	weight  float64
}

// NewTint is the catalog factory for the "tint" plugin.
func NewTint(_ *imager.Session, cfg map[string]any) (imager.Plugin, error) {
	hex := stringFrom(cfg, "color", "#ffa500")
	tint, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("tint: bad color %q: %w", hex, err)
	}
	opacity := floatFrom(cfg, "opacity", 0.25)
	if opacity < 0 || opacity > 1 {
		return nil, fmt.Errorf("tint: opacity %v outside [0, 1]", opacity)
	}
	return &Tint{
		tint:    tint,
		opacity: opacity,
		weight:  floatFrom(cfg, "weight", 20),
	}, nil
}

// Weight orders the plugin among its peers.
func (t *Tint) Weight() float64 { return t.weight }

// Render blends the tint over every canvas pixel.
func (t *Tint) Render(c *imager.Canvas) error {
	rgba := c.RGBA()
	if rgba == nil || rgba.Bounds().Empty() {
		return nil
	}

	tr, tg, tb := t.tint.RGB255()
	a := t.opacity
	bounds := rgba.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := rgba.RGBAAt(x, y)
			rgba.SetRGBA(x, y, color.RGBA{
				R: blend(p.R, tr, a),
				G: blend(p.G, tg, a),
				B: blend(p.B, tb, a),
				A: p.A,
			})
		}
	}
	return nil
}

func blend(base, over uint8, a float64) uint8 {
	return uint8(float64(base)*(1-a) + float64(over)*a + 0.5)
}

// Serialize reports the tint parameters.
func (t *Tint) Serialize() any {
	return map[string]any{
		"effect":  "tint",
		"color":   t.tint.Hex(),
		"opacity": t.opacity,
	}
}
