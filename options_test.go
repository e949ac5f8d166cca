package imager

import (
	"errors"
	"testing"
)

func TestOptions_MergeDefaults(t *testing.T) {
	merged := Options{}.merged()

	if merged.Quality != 1 || merged.TargetScale != 1 {
		t.Errorf("quality/scale defaults: got %v/%v", merged.Quality, merged.TargetScale)
	}
	if merged.MaxImageWidth != 2048 || merged.MaxImageHeight != 2048 {
		t.Errorf("size caps: got %d/%d", merged.MaxImageWidth, merged.MaxImageHeight)
	}
	if merged.WaitingCursor != "wait" {
		t.Errorf("waiting cursor: got %q", merged.WaitingCursor)
	}
	if merged.ImageSizeForPerformanceWarning != 1_000_000 {
		t.Errorf("performance threshold: got %d", merged.ImageSizeForPerformanceWarning)
	}
}

func TestOptions_MergeOverrides(t *testing.T) {
	merged := Options{
		Quality:       0.7,
		MaxImageWidth: 1024,
		Plugins:       []string{"a"},
		PluginsConfig: map[string]map[string]any{"a": {"k": 1}},
		EditModeCSS:   StyleRules{"width": "$v"},
	}.merged()

	if merged.Quality != 0.7 {
		t.Errorf("quality: got %v, want 0.7", merged.Quality)
	}
	if merged.MaxImageWidth != 1024 {
		t.Errorf("max width: got %d, want 1024", merged.MaxImageWidth)
	}
	if merged.MaxImageHeight != 2048 {
		t.Errorf("untouched default lost: max height %d", merged.MaxImageHeight)
	}
	if merged.PluginsConfig["a"]["k"] != 1 {
		t.Error("plugin config lost in merge")
	}

	// Merge copies, never aliases, caller maps.
	original := map[string]map[string]any{"a": {"k": 1}}
	merged = Options{PluginsConfig: original}.merged()
	merged.PluginsConfig["a"]["k"] = 2
	if original["a"]["k"] != 1 {
		t.Error("merge aliased the caller's config map")
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"quality above 1", Options{Quality: 1.5}},
		{"negative quality", Options{Quality: -1}},
		{"negative scale", Options{TargetScale: -0.5}},
		{"unknown format", Options{Format: "webp"}},
		{"negative limit", Options{CanvasSizeLimit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewElement(nil), nil, tt.opts)
			if !errors.Is(err, ErrConfig) {
				t.Errorf("got %v, want ErrConfig", err)
			}
		})
	}
}
