package plugins

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/DevvisioN/imager"
)

func pngDataURI(t *testing.T, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func editingSession(t *testing.T, active []string, configs map[string]map[string]any) *imager.Session {
	t.Helper()
	catalog := imager.NewCatalog()
	catalog.Register("grayscale", NewGrayscale)
	catalog.Register("tint", NewTint)
	catalog.Register("frame", NewFrame)

	s, err := imager.New(imager.NewElement(nil), catalog, imager.Options{
		Plugins:       active,
		PluginsConfig: configs,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.LoadSync(context.Background(), pngDataURI(t, 40, 40, color.RGBA{200, 40, 40, 255})); err != nil {
		t.Fatalf("LoadSync failed: %v", err)
	}
	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing failed: %v", err)
	}
	return s
}

func TestGrayscale_Render(t *testing.T) {
	s := editingSession(t, []string{"grayscale"}, nil)

	rgba := s.EditCanvas().RGBA()
	p := rgba.RGBAAt(20, 20)
	if p.R != p.G || p.G != p.B {
		t.Errorf("canvas pixel not gray: %v", p)
	}
}

func TestTint_Render(t *testing.T) {
	s := editingSession(t, []string{"tint"}, map[string]map[string]any{
		"tint": {"color": "#0000ff", "opacity": 0.5},
	})

	p := s.EditCanvas().RGBA().RGBAAt(20, 20)
	// 50% blend of red (200,40,40) toward blue (0,0,255).
	if p.B < 120 || p.R > 130 {
		t.Errorf("tint not applied: %v", p)
	}
}

func TestTint_BadConfig(t *testing.T) {
	catalog := imager.NewCatalog()
	catalog.Register("tint", NewTint)

	_, err := imager.New(imager.NewElement(nil), catalog, imager.Options{
		Plugins:       []string{"tint"},
		PluginsConfig: map[string]map[string]any{"tint": {"color": "chartreuse"}},
	})
	if err == nil {
		t.Error("New should fail for an unparsable tint color")
	}
}

func TestFrame_RenderAndSerialize(t *testing.T) {
	s := editingSession(t, []string{"frame"}, map[string]map[string]any{
		"frame": {"color": "#00ff00", "thickness": 4},
	})

	rgba := s.EditCanvas().RGBA()
	edge := rgba.RGBAAt(1, 1)
	if edge.G != 255 || edge.R != 0 {
		t.Errorf("border pixel: %v", edge)
	}
	center := rgba.RGBAAt(20, 20)
	if center.G == 255 && center.R == 0 {
		t.Error("center pixel should not be border-colored")
	}

	if err := s.CommitChanges("framed", nil); err != nil {
		t.Fatalf("CommitChanges failed: %v", err)
	}
	if err := s.StopEditing(); err != nil {
		t.Fatalf("StopEditing failed: %v", err)
	}

	frame, ok := s.Plugin("frame").(*Frame)
	if !ok {
		t.Fatal("frame plugin not found")
	}
	data, ok := frame.Serialize().(map[string]any)
	if !ok {
		t.Fatal("frame serialization has wrong shape")
	}
	// The implicit "Original" commit plus the explicit one.
	if data["history_changes"].(int) < 2 {
		t.Errorf("history_changes: got %v, want >= 2", data["history_changes"])
	}
	if data["thickness"].(int) != 4 {
		t.Errorf("thickness: got %v, want 4", data["thickness"])
	}
}

func TestPluginOrdering(t *testing.T) {
	s := editingSession(t, []string{"grayscale", "tint", "frame"}, map[string]map[string]any{
		"grayscale": {"weight": 5},
		"frame":     {"weight": 1},
	})

	// frame(1) before grayscale(5) before tint(20).
	want := []string{"frame", "grayscale", "tint"}
	got := s.PluginOrder()
	if len(got) != len(want) {
		t.Fatalf("plugin order: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plugin order: got %v, want %v", got, want)
		}
	}
}
