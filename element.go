package imager

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DevvisioN/imager/internal/exif"
	"github.com/DevvisioN/imager/internal/normalize"
)

// Element is the editable image slot a session attaches to: the stand-in for
// a page's image element. It holds the current source, the normalized bitmap,
// natural and display dimensions, and the load completion state.
//
// Loads resolve exactly once. Starting a new load detaches the previous
// load's listener before attaching its own, so a superseded load that
// completes late finds no listener and cannot overwrite newer state; the
// stale completion is inert by construction, not merely ignored.
type Element struct {
	mu sync.Mutex

	log    *zap.Logger
	source string
	bitmap *normalize.Result

	// Display (preview) size; zero means natural size.
	dispW, dispH int

	complete bool
	pending  *loadListener
}

type loadListener struct {
	done func(error)
}

// NewElement creates a detached element with no source.
func NewElement(log *zap.Logger) *Element {
	if log == nil {
		log = zap.NewNop()
	}
	return &Element{log: log}
}

// Load starts an asynchronous load of source through n. done, if non-nil, is
// invoked exactly once with the outcome. A load in flight is superseded: its
// listener is detached first and its completion discarded.
func (e *Element) Load(ctx context.Context, source string, n *normalize.Normalizer, done func(error)) {
	e.mu.Lock()
	l := &loadListener{done: done}
	e.pending = l
	e.complete = false
	e.source = source
	e.mu.Unlock()

	go func() {
		res, err := n.Normalize(ctx, source)
		e.finish(l, res, err)
	}()
}

// LoadSync loads source synchronously. Used for in-memory data, where no I/O
// suspension exists: the commit path reloads the element from freshly encoded
// bytes and must observe the new dimensions before it proceeds.
func (e *Element) LoadSync(ctx context.Context, source string, n *normalize.Normalizer) error {
	e.mu.Lock()
	e.pending = nil // detach any in-flight load's listener
	e.complete = false
	e.source = source
	e.mu.Unlock()

	res, err := n.Normalize(ctx, source)
	e.apply(res, err)
	return err
}

func (e *Element) finish(l *loadListener, res *normalize.Result, err error) {
	e.mu.Lock()
	if e.pending != l {
		e.mu.Unlock()
		e.log.Debug("element: superseded load discarded")
		return
	}
	e.pending = nil
	e.mu.Unlock()

	e.apply(res, err)
	if l.done != nil {
		l.done(err)
	}
}

func (e *Element) apply(res *normalize.Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.bitmap = nil
		e.complete = false
		return
	}
	e.bitmap = res
	e.complete = !res.Empty
}

// Complete reports whether the element holds a fully loaded image.
func (e *Element) Complete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.complete
}

// Source returns the current source string.
func (e *Element) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// Bitmap returns the normalized image, or nil before a successful load.
func (e *Element) Bitmap() *normalize.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bitmap
}

// NaturalSize returns the normalized pixel dimensions.
func (e *Element) NaturalSize() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bitmap == nil {
		return 0, 0
	}
	return e.bitmap.Width(), e.bitmap.Height()
}

// Format returns the detected image format, "" before a load.
func (e *Element) Format() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bitmap == nil {
		return ""
	}
	return e.bitmap.Format
}

// EXIF returns the preserved metadata segment, nil for PNG or EXIF-less
// sources.
func (e *Element) EXIF() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bitmap == nil {
		return nil
	}
	return e.bitmap.EXIF
}

// Orientation returns the EXIF orientation the source arrived with.
func (e *Element) Orientation() exif.Orientation {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bitmap == nil {
		return exif.OrientNormal
	}
	return e.bitmap.Orientation
}

// SetDisplaySize overrides the preview dimensions.
func (e *Element) SetDisplaySize(w, h int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispW, e.dispH = w, h
}

// DisplaySize returns the preview dimensions, falling back to the natural
// size when none has been set.
func (e *Element) DisplaySize() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dispW > 0 && e.dispH > 0 {
		return e.dispW, e.dispH
	}
	if e.bitmap != nil {
		return e.bitmap.Width(), e.bitmap.Height()
	}
	return 0, 0
}

// Release detaches any pending load and drops the bitmap.
func (e *Element) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
	e.bitmap = nil
	e.complete = false
	e.source = ""
}
