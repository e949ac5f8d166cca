package imager

import (
	"errors"

	"github.com/DevvisioN/imager/internal/normalize"
)

// Error taxonomy of the engine. Ingestion failures (ErrDecode,
// ErrUnsupportedSource) reject the load and leave the session unready;
// render and export failures (ErrSecurity, zero-size draws) are caught,
// logged, and degrade gracefully; structural misuse (ErrInvalidState,
// ErrConfig) indicates a bug in the host program and is returned to the
// caller immediately.
var (
	// ErrDecode reports unreadable or corrupt image bytes or metadata.
	ErrDecode = normalize.ErrDecode

	// ErrUnsupportedSource reports a source that is neither a data URI nor
	// an http(s) URL.
	ErrUnsupportedSource = normalize.ErrUnsupportedSource

	// ErrInvalidState reports an editing operation attempted outside its
	// valid state, such as starting to edit before the image has loaded.
	ErrInvalidState = errors.New("operation not valid in current editor state")

	// ErrSecurity reports a canvas export blocked because the canvas is
	// tainted by cross-origin content.
	ErrSecurity = errors.New("canvas export blocked by security policy")

	// ErrConfig reports an invalid option value.
	ErrConfig = errors.New("invalid configuration")
)
