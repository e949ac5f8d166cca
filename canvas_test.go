package imager

import (
	"errors"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"github.com/DevvisioN/imager/internal/exif"
	"github.com/DevvisioN/imager/internal/sourceio"
)

func TestCanvas_ResizeIdempotent(t *testing.T) {
	c := newCanvas(nil)
	c.Resize(10, 10)
	c.RGBA().SetRGBA(5, 5, color.RGBA{255, 0, 0, 255})

	// Same-size resize must not wipe contents; reentrant renders depend on
	// this.
	c.Resize(10, 10)
	if p := c.RGBA().RGBAAt(5, 5); p.R != 255 {
		t.Error("same-size resize cleared the canvas")
	}

	c.Resize(20, 10)
	if p := c.RGBA().RGBAAt(5, 5); p.R != 0 {
		t.Error("growing resize should clear the canvas")
	}
	if w, h := c.Size(); w != 20 || h != 10 {
		t.Errorf("size: got %dx%d, want 20x10", w, h)
	}
}

func TestCanvas_ExportPNG(t *testing.T) {
	c := newCanvas(nil)
	c.Resize(8, 8)
	draw.Draw(c.RGBA(), c.RGBA().Bounds(), solidImage(8, 8, color.RGBA{0, 128, 0, 255}), c.RGBA().Bounds().Min, draw.Src)

	uri, err := c.Export(sourceio.FormatPNG, 1, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("uri prefix wrong: %.40s", uri)
	}
}

func TestCanvas_ExportJPEGWithEXIF(t *testing.T) {
	c := newCanvas(nil)
	c.Resize(8, 8)

	seg := exif.BuildAPP1(exif.OrientNormal)
	uri, err := c.Export(sourceio.FormatJPEG, 0.9, seg)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	_, data, err := sourceio.ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI failed: %v", err)
	}
	if o, err := exif.ReadOrientation(data); err != nil || o != exif.OrientNormal {
		t.Errorf("spliced EXIF unreadable: orientation=%d err=%v", o, err)
	}
}

func TestCanvas_ExportTainted(t *testing.T) {
	c := newCanvas(nil)
	c.Resize(8, 8)
	c.SetTainted(true)

	_, err := c.Export(sourceio.FormatPNG, 1, nil)
	if !errors.Is(err, ErrSecurity) {
		t.Errorf("got %v, want ErrSecurity", err)
	}
}

func TestCanvas_ExportEmpty(t *testing.T) {
	c := newCanvas(nil)
	if _, err := c.Export(sourceio.FormatPNG, 1, nil); err == nil {
		t.Error("Export of empty canvas should fail")
	}
}

func TestCanvas_ExportUnknownFormat(t *testing.T) {
	c := newCanvas(nil)
	c.Resize(4, 4)
	_, err := c.Export("webp", 1, nil)
	if !errors.Is(err, ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
}
