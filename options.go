package imager

import (
	"context"
	"fmt"

	"github.com/DevvisioN/imager/internal/sourceio"
)

// Canvas area ceilings: touch devices get 5 megapixels, desktops 32.
const (
	CanvasSizeLimitTouch   = 5_000_000
	CanvasSizeLimitDesktop = 32_000_000
)

// Options configures a session. The zero value of any field means "use the
// default"; caller-supplied values are deep-merged onto DefaultOptions at
// construction and the result is immutable for the session's lifetime.
type Options struct {
	// Quality is the JPEG export quality as a 0-1 fraction.
	Quality float64 `yaml:"quality"`

	// TargetScale scales the edit canvas relative to the natural image size.
	TargetScale float64 `yaml:"target_scale"`

	// Plugins lists the active plugin names; only these are instantiated
	// from the catalog.
	Plugins []string `yaml:"plugins"`

	// Format forces the committed image format ("jpeg" or "png"); empty
	// auto-detects from the source.
	Format string `yaml:"format"`

	// EditModeCSS holds the style rules applied to the host's edit box,
	// with $v bound to the relevant dimension.
	EditModeCSS StyleRules `yaml:"edit_mode_css"`

	// PluginsConfig carries per-plugin configuration, keyed by plugin name.
	PluginsConfig map[string]map[string]any `yaml:"plugins_config"`

	// DetectTouch decides whether the session runs on a touch device,
	// selecting the smaller canvas ceiling. Nil means desktop.
	DetectTouch func(s *Session) bool `yaml:"-"`

	// SelectSource is the file-picker stand-in consulted by StartSelector.
	SelectSource func(ctx context.Context) (string, error) `yaml:"-"`

	// WaitingCursor is the cursor style the host shows during loads.
	WaitingCursor string `yaml:"waiting_cursor"`

	// ImageSizeForPerformanceWarning is the pixel count above which editing
	// start logs a performance warning.
	ImageSizeForPerformanceWarning int `yaml:"image_size_for_performance_warning"`

	// MaxImageWidth and MaxImageHeight cap the normalized image.
	MaxImageWidth  int `yaml:"max_image_width"`
	MaxImageHeight int `yaml:"max_image_height"`

	// CanvasSizeLimit caps the edit canvas area in pixels. Zero picks the
	// platform default via DetectTouch.
	CanvasSizeLimit int `yaml:"canvas_size_limit"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Quality:                        1,
		TargetScale:                    1,
		WaitingCursor:                  "wait",
		ImageSizeForPerformanceWarning: 1_000_000,
		MaxImageWidth:                  2048,
		MaxImageHeight:                 2048,
	}
}

// merged deep-merges o onto the defaults.
func (o Options) merged() Options {
	out := DefaultOptions()
	if o.Quality != 0 {
		out.Quality = o.Quality
	}
	if o.TargetScale != 0 {
		out.TargetScale = o.TargetScale
	}
	if len(o.Plugins) > 0 {
		out.Plugins = append([]string(nil), o.Plugins...)
	}
	if o.Format != "" {
		out.Format = o.Format
	}
	if len(o.EditModeCSS) > 0 {
		out.EditModeCSS = make(StyleRules, len(o.EditModeCSS))
		for k, v := range o.EditModeCSS {
			out.EditModeCSS[k] = v
		}
	}
	if len(o.PluginsConfig) > 0 {
		out.PluginsConfig = make(map[string]map[string]any, len(o.PluginsConfig))
		for name, cfg := range o.PluginsConfig {
			inner := make(map[string]any, len(cfg))
			for k, v := range cfg {
				inner[k] = v
			}
			out.PluginsConfig[name] = inner
		}
	}
	out.DetectTouch = o.DetectTouch
	out.SelectSource = o.SelectSource
	if o.WaitingCursor != "" {
		out.WaitingCursor = o.WaitingCursor
	}
	if o.ImageSizeForPerformanceWarning != 0 {
		out.ImageSizeForPerformanceWarning = o.ImageSizeForPerformanceWarning
	}
	if o.MaxImageWidth != 0 {
		out.MaxImageWidth = o.MaxImageWidth
	}
	if o.MaxImageHeight != 0 {
		out.MaxImageHeight = o.MaxImageHeight
	}
	if o.CanvasSizeLimit != 0 {
		out.CanvasSizeLimit = o.CanvasSizeLimit
	}
	return out
}

// validate rejects structurally invalid option values with ErrConfig.
func (o Options) validate() error {
	if o.Quality <= 0 || o.Quality > 1 {
		return fmt.Errorf("%w: quality %v outside (0, 1]", ErrConfig, o.Quality)
	}
	if o.TargetScale <= 0 {
		return fmt.Errorf("%w: target scale %v must be positive", ErrConfig, o.TargetScale)
	}
	switch o.Format {
	case "", sourceio.FormatJPEG, sourceio.FormatPNG:
	default:
		return fmt.Errorf("%w: format %q (want jpeg or png)", ErrConfig, o.Format)
	}
	if o.MaxImageWidth < 0 || o.MaxImageHeight < 0 || o.CanvasSizeLimit < 0 {
		return fmt.Errorf("%w: negative size limit", ErrConfig)
	}
	return nil
}
