// Package imager is an embeddable raster image editing engine.
//
// A Session attaches to an image Element, normalizes the raw photo bytes
// (correcting camera EXIF orientation and capping oversized originals),
// renders the live edit through a quality-preserving multi-pass downscale,
// dispatches events and render passes to an ordered set of plugins, and
// maintains an undoable history of committed states before handing the
// final encoded image back to the host.
//
// # Lifecycle
//
//	catalog := imager.NewCatalog()
//	catalog.Register("grayscale", plugins.NewGrayscale)
//
//	el := imager.NewElement(nil)
//	session, err := imager.New(el, catalog, imager.Options{
//	    Plugins: []string{"grayscale"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := session.LoadSync(ctx, "https://example.com/photo.jpg"); err != nil {
//	    log.Fatal(err)
//	}
//	session.StartEditing()
//	session.CommitChanges("Edited", nil)
//	session.StopEditing()
//
// # Plugins
//
// Plugins are polymorphic over an open capability set: any subset of
// Renderer, Serializer, Weighted, and the per-event On* handler interfaces.
// Capabilities are detected once, at registration; dispatch order is a
// stable sort by ascending weight with missing weights last. A failing
// plugin is isolated: its panic is logged and the rest of the dispatch
// proceeds.
//
// # Concurrency
//
// A session is single-owner, in the cooperative UI-thread sense: its methods
// must not be called concurrently, but synchronous event handlers re-entering
// Render or CommitChanges are tolerated. Loads are the only asynchronous
// points and resolve exactly once; a superseding load detaches the previous
// listener before attaching its own, so stale completions are inert. The
// session Registry is the only structure shared across owners and locks
// internally.
package imager
