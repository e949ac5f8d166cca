package imager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DevvisioN/imager/internal/normalize"
	"github.com/DevvisioN/imager/internal/scaling"
	"github.com/DevvisioN/imager/internal/sourceio"
)

// Mode is the session's editing state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSelecting
	ModeEditing
)

var nextSessionID atomic.Int64

// Session is one editing engine attached to one image element. It owns the
// element exclusively, the edit canvas pair, the plugin instances, and the
// commit history.
//
// A session is single-owner in the cooperative UI sense: its methods are not
// safe for concurrent use, but synchronous event handlers re-entering Render
// or CommitChanges are tolerated (canvas resizing is idempotent). The only
// shared structure is the Registry, which locks internally.
type Session struct {
	id   int64
	log  *zap.Logger
	opts Options

	element  *Element
	registry *Registry
	norm     *normalize.Normalizer
	bus      *listenerBus
	host     *pluginHost

	// Owned canvas pair; nil outside an editing session.
	canvas  *Canvas
	scratch *Canvas

	hist history
	mode Mode

	// Mutable copies restored after a commit forces full quality.
	quality     float64
	targetScale float64

	format           string
	canvasLimit      int
	originalSnapshot string
	removed          bool
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger attaches a structured logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRegistry registers the session in a page-level registry. The session
// removes itself on Remove.
func WithRegistry(r *Registry) Option {
	return func(s *Session) { s.registry = r }
}

// New attaches an editing engine to an image element. Only the plugins named
// in opts.Plugins are instantiated, from catalog order; the merged options
// are immutable for the session's lifetime.
func New(el *Element, catalog *Catalog, opts Options, extras ...Option) (*Session, error) {
	if el == nil {
		return nil, fmt.Errorf("%w: nil element", ErrConfig)
	}
	merged := opts.merged()
	if err := merged.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:               nextSessionID.Add(1),
		log:              zap.NewNop(),
		opts:             merged,
		element:          el,
		quality:          merged.Quality,
		targetScale:      merged.TargetScale,
		originalSnapshot: el.Source(),
	}
	for _, extra := range extras {
		extra(s)
	}

	s.norm = &normalize.Normalizer{
		MaxWidth:  merged.MaxImageWidth,
		MaxHeight: merged.MaxImageHeight,
		Log:       s.log,
	}
	s.bus = &listenerBus{}
	s.host = newPluginHost(s.log, s.bus)
	if err := s.host.instantiate(s, catalog, merged.Plugins, merged.PluginsConfig); err != nil {
		return nil, err
	}

	s.canvasLimit = merged.CanvasSizeLimit
	if s.canvasLimit == 0 {
		s.canvasLimit = CanvasSizeLimitDesktop
		if merged.DetectTouch != nil && merged.DetectTouch(s) {
			s.canvasLimit = CanvasSizeLimitTouch
		}
	}

	if s.registry != nil {
		s.registry.add(s)
	}
	return s, nil
}

// ID returns the session's attachment id.
func (s *Session) ID() int64 { return s.id }

// Mode returns the current editing state.
func (s *Session) Mode() Mode { return s.mode }

// Element returns the attached image element.
func (s *Session) Element() *Element { return s.element }

// Options returns the merged, immutable session options.
func (s *Session) Options() Options { return s.opts }

// OriginalSnapshot returns the element source captured at attachment.
func (s *Session) OriginalSnapshot() string { return s.originalSnapshot }

// History returns a copy of the committed states, oldest first.
func (s *Session) History() []HistoryEntry { return s.hist.snapshot() }

// On subscribes an external listener to a session event and returns its
// cancel function. Bus listeners run before plugin handlers on every
// broadcast.
func (s *Session) On(ev Event, fn func(any)) func() {
	return s.bus.on(ev, fn)
}

// PluginOrder lists the instantiated plugins in dispatch order.
func (s *Session) PluginOrder() []string { return s.host.order() }

// Plugin returns the named plugin instance, nil when inactive.
func (s *Session) Plugin(name string) Plugin { return s.host.find(name) }

// Invoke broadcasts a method probe across the plugins in dispatch order,
// collecting the results the probe reports. A plugin that panics is logged
// and skipped.
func (s *Session) Invoke(probe func(name string, p Plugin) (any, bool)) []InvokeResult {
	return s.host.invoke(probe)
}

// Load ingests a new source asynchronously. done, if non-nil, runs once with
// the outcome; the ready event fires first, and only on success, after
// orientation correction has completed. A load superseding one still in
// flight detaches the old listener, so the stale completion cannot clobber
// the newer image.
func (s *Session) Load(ctx context.Context, source string, done func(error)) {
	s.element.Load(ctx, source, s.norm, func(err error) {
		if err != nil {
			s.log.Error("load failed", zap.Error(err))
		} else if s.element.Complete() {
			s.host.broadcast(EventReady, nil)
		}
		if done != nil {
			done(err)
		}
	})
}

// LoadSync ingests a new source synchronously.
func (s *Session) LoadSync(ctx context.Context, source string) error {
	if err := s.element.LoadSync(ctx, source, s.norm); err != nil {
		s.log.Error("load failed", zap.Error(err))
		return err
	}
	if s.element.Complete() {
		s.host.broadcast(EventReady, nil)
	}
	return nil
}

// StartSelector asks the host's source picker for an image, loads it, and
// transitions into editing.
func (s *Session) StartSelector(ctx context.Context) error {
	if s.opts.SelectSource == nil {
		return fmt.Errorf("%w: no source selector configured", ErrConfig)
	}
	if s.mode == ModeEditing {
		return fmt.Errorf("%w: already editing", ErrInvalidState)
	}

	s.mode = ModeSelecting
	source, err := s.opts.SelectSource(ctx)
	if err != nil {
		s.mode = ModeIdle
		return fmt.Errorf("select source: %w", err)
	}
	if err := s.LoadSync(ctx, source); err != nil {
		s.mode = ModeIdle
		return err
	}
	if err := s.StartEditing(); err != nil {
		s.mode = ModeIdle
		return err
	}
	return nil
}

// StartEditing opens an editing session: it captures the preview size,
// builds the canvas pair, renders once, and seeds the history with the
// "Original" baseline on first entry. Fails with ErrInvalidState when the
// element has not finished loading. Already editing is a no-op.
func (s *Session) StartEditing() error {
	if s.removed {
		return fmt.Errorf("%w: session removed", ErrInvalidState)
	}
	if s.mode == ModeEditing {
		return nil
	}
	if !s.element.Complete() {
		return fmt.Errorf("%w: image element has not finished loading", ErrInvalidState)
	}

	natW, natH := s.element.NaturalSize()
	if pixels := natW * natH; pixels > s.opts.ImageSizeForPerformanceWarning {
		s.log.Warn("image is large, editing may be slow",
			zap.Int("pixels", pixels),
			zap.Int("threshold", s.opts.ImageSizeForPerformanceWarning))
	}

	s.format = s.opts.Format
	if s.format == "" {
		s.format = s.element.Format()
	}
	if s.format == "" {
		s.format = sourceio.FormatJPEG
	}

	s.canvas = newCanvas(s.log)
	s.scratch = newCanvas(s.log)
	s.mode = ModeEditing
	s.Render()

	if s.hist.len() == 0 {
		if err := s.CommitChanges("Original", nil); err != nil {
			s.log.Error("baseline commit failed", zap.Error(err))
		}
	}
	s.host.broadcast(EventEditStart, nil)
	return nil
}

// Render draws the current frame: the normalized image scaled into the edit
// canvas, then every rendering plugin's overlay in weight order. Zero-sized
// natural images warn and no-op; the call never fails.
func (s *Session) Render() {
	if s.canvas == nil {
		s.log.Warn("render outside an editing session, skipping")
		return
	}
	bitmap := s.element.Bitmap()
	natW, natH := s.element.NaturalSize()
	if bitmap == nil || natW == 0 || natH == 0 {
		s.log.Warn("render with zero-size image, skipping")
		return
	}

	w := int(math.Round(float64(natW) * s.targetScale))
	h := int(math.Round(float64(natH) * s.targetScale))
	w, h = clampArea(w, h, s.canvasLimit)

	s.canvas.Resize(w, h)
	s.scratch.Resize(natW, natH)

	vp := scaling.FullFrame(natW, natH, w, h)
	scaling.Draw(s.canvas.RGBA(), bitmap.Image, vp, s.log)
	s.host.invokeRender(s.canvas)
}

// clampArea scales dimensions down uniformly until their product fits the
// pixel ceiling.
func clampArea(w, h, limit int) (int, int) {
	if limit <= 0 || w*h <= limit {
		return w, h
	}
	f := math.Sqrt(float64(limit) / float64(w*h))
	cw, ch := int(float64(w)*f), int(float64(h)*f)
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	return cw, ch
}

// CommitChanges snapshots the current edit as a named history entry. The
// commit renders at full quality and scale, encodes, reloads the element
// from the encoded bytes to normalize dimensions, appends the entry,
// restores the caller's quality and scale, re-renders, and raises
// historyChange. Encoding failures are logged and the entry is still
// appended with best-effort dimensions. callback, if non-nil, receives the
// appended entry.
func (s *Session) CommitChanges(label string, callback func(HistoryEntry)) error {
	if s.mode != ModeEditing || s.canvas == nil {
		return fmt.Errorf("%w: commit outside an editing session", ErrInvalidState)
	}

	savedQuality, savedScale := s.quality, s.targetScale
	s.quality, s.targetScale = 1, 1
	s.Render()

	width, height := s.element.NaturalSize()
	encoded, err := s.canvas.Export(s.format, 1, s.element.EXIF())
	if err != nil {
		s.log.Error("commit encode failed, appending best-effort entry",
			zap.String("label", label), zap.Error(err))
		encoded = ""
	} else if err := s.element.LoadSync(context.Background(), encoded, s.norm); err != nil {
		s.log.Error("commit reload failed", zap.String("label", label), zap.Error(err))
	} else {
		width, height = s.element.NaturalSize()
	}

	entry := HistoryEntry{Label: label, EncodedImage: encoded, Width: width, Height: height}
	s.hist.push(entry)

	s.quality, s.targetScale = savedQuality, savedScale
	s.Render()
	s.host.broadcast(EventHistoryChange, nil)
	if callback != nil {
		callback(entry)
	}
	return nil
}

// Undo discards the most recent commit and restores the previous one. The
// "Original" baseline can never be undone away: with fewer than two entries
// the call is a no-op.
func (s *Session) Undo() error {
	prev, ok := s.hist.previous()
	if !ok {
		return nil
	}
	if s.mode != ModeEditing || s.canvas == nil {
		return fmt.Errorf("%w: undo outside an editing session", ErrInvalidState)
	}

	if err := s.element.LoadSync(context.Background(), prev.EncodedImage, s.norm); err != nil {
		return fmt.Errorf("undo reload: %w", err)
	}
	s.element.SetDisplaySize(prev.Width, prev.Height)
	s.hist.pop()
	s.Render()
	s.host.broadcast(EventHistoryChange, nil)
	return nil
}

// StopEditing closes the editing session: plugin states are collected into a
// name-keyed map, the canvas is exported as the final data URI (a blocked or
// failed export logs and leaves it empty; it never raises), the canvas pair
// is released, and editStop fires with the results.
func (s *Session) StopEditing() error {
	if s.mode != ModeEditing || s.canvas == nil {
		return fmt.Errorf("%w: no editing session to stop", ErrInvalidState)
	}

	pluginsData := s.host.serializeAll()

	imageData := ""
	if encoded, err := s.canvas.Export(s.format, s.quality, s.element.EXIF()); err != nil {
		if errors.Is(err, ErrSecurity) {
			s.log.Warn("final export blocked by security policy, image data omitted")
		} else {
			s.log.Error("final export failed, image data omitted", zap.Error(err))
		}
	} else {
		imageData = encoded
	}

	s.canvas.Release()
	s.scratch.Release()
	s.canvas, s.scratch = nil, nil
	s.mode = ModeIdle

	s.host.broadcast(EventEditStop, EditStopPayload{
		ImageData:   imageData,
		PluginsData: pluginsData,
	})
	return nil
}

// SetPreviewSize overrides the element's preview dimensions.
func (s *Session) SetPreviewSize(w, h int) {
	s.element.SetDisplaySize(w, h)
}

// PreviewSize returns the element's preview dimensions.
func (s *Session) PreviewSize() (int, int) {
	return s.element.DisplaySize()
}

// ImageRealSize returns the normalized image's natural dimensions.
func (s *Session) ImageRealSize() (int, int) {
	return s.element.NaturalSize()
}

// CanvasSize returns the edit canvas dimensions, zero outside editing.
func (s *Session) CanvasSize() (int, int) {
	if s.canvas == nil {
		return 0, 0
	}
	return s.canvas.Size()
}

// DataSize estimates the committed image size in bytes from its base64
// payload. Outside an editing session it measures the element's current
// data-URI source; zero when no size is measurable.
func (s *Session) DataSize() int {
	if s.canvas != nil {
		encoded, err := s.canvas.Export(s.format, s.quality, s.element.EXIF())
		if err != nil {
			s.log.Warn("data size unavailable", zap.Error(err))
			return 0
		}
		return sourceio.PayloadSize(encoded)
	}
	if src := s.element.Source(); sourceio.IsDataURI(src) {
		return sourceio.PayloadSize(src)
	}
	return 0
}

// AdjustedStyles evaluates the edit-box style rules with $v bound to v.
func (s *Session) AdjustedStyles(v float64) (map[string]string, error) {
	return resolveStyles(s.opts.EditModeCSS, v)
}

// Quality returns the session's current JPEG export quality.
func (s *Session) Quality() float64 { return s.quality }

// TargetScale returns the session's current canvas scale.
func (s *Session) TargetScale() float64 { return s.targetScale }

// EditCanvas returns the edit canvas, nil outside an editing session.
// Plugins should draw only during their render dispatch.
func (s *Session) EditCanvas() *Canvas { return s.canvas }

// ScratchCanvas returns the offscreen scratch buffer, reset to the natural
// image size on every render. Plugins may compose into it before painting
// the edit canvas.
func (s *Session) ScratchCanvas() *Canvas { return s.scratch }

// Remove detaches the engine from its element: any open editing session is
// stopped, the remove event fires, the session leaves its registry, and,
// when removeElement is set, the element itself is released. The session
// must not be used afterwards.
func (s *Session) Remove(removeElement bool) {
	if s.removed {
		return
	}
	if s.mode == ModeEditing {
		if err := s.StopEditing(); err != nil {
			s.log.Error("stop during remove failed", zap.Error(err))
		}
	}
	s.host.broadcast(EventRemove, nil)
	if s.registry != nil {
		s.registry.remove(s)
	}
	if removeElement {
		s.element.Release()
	}
	s.removed = true
	s.mode = ModeIdle
}
