package plugins

import (
	"image/draw"

	"github.com/anthonynsimon/bild/effect"

	"github.com/DevvisioN/imager"
)

// Grayscale desaturates the edit canvas during every render pass.
//
// Configuration: "weight" (default 10).
type Grayscale struct {
	weight float64
}

// NewGrayscale is the catalog factory for the "grayscale" plugin.
func NewGrayscale(_ *imager.Session, cfg map[string]any) (imager.Plugin, error) {
	return &Grayscale{weight: floatFrom(cfg, "weight", 10)}, nil
}

// Weight orders the plugin among its peers.
func (g *Grayscale) Weight() float64 { return g.weight }

// Render desaturates the canvas in place.
func (g *Grayscale) Render(c *imager.Canvas) error {
	rgba := c.RGBA()
	if rgba == nil || rgba.Bounds().Empty() {
		return nil
	}
	gray := effect.Grayscale(rgba)
	draw.Draw(rgba, rgba.Bounds(), gray, gray.Bounds().Min, draw.Src)
	return nil
}

// Serialize reports the applied effect for the editStop plugin data map.
func (g *Grayscale) Serialize() any {
	return map[string]any{"effect": "grayscale"}
}
