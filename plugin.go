package imager

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
)

// Plugin is any value produced by a catalog factory. Capabilities are
// expressed as optional interfaces and detected once, at registration; the
// host never assumes a plugin implements more than it declared.
type Plugin interface{}

// Renderer plugins paint onto the edit canvas during a render pass, in
// weight order, after the base image has been drawn.
type Renderer interface {
	Render(c *Canvas) error
}

// Serializer plugins contribute an entry to the pluginsData map emitted with
// editStop.
type Serializer interface {
	Serialize() any
}

// Weighted plugins declare their dispatch and layering order. Plugins
// without a weight sort last (treated as +Inf); equal weights keep catalog
// registration order.
type Weighted interface {
	Weight() float64
}

// Per-event handler capabilities.
type (
	ReadyHandler         interface{ OnReady() }
	EditStartHandler     interface{ OnEditStart() }
	EditStopHandler      interface{ OnEditStop(EditStopPayload) }
	HistoryChangeHandler interface{ OnHistoryChange() }
	RemoveHandler        interface{ OnRemove() }
)

// Factory builds a plugin instance for a session. The config map is the
// plugin's slice of Options.PluginsConfig.
type Factory func(s *Session, config map[string]any) (Plugin, error)

// Catalog is an explicit, injected set of available plugins. Sessions
// instantiate only the plugins their options activate, in catalog order;
// there is no process-wide plugin state.
type Catalog struct {
	names     []string
	factories map[string]Factory
}

// NewCatalog creates an empty plugin catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a named factory. Re-registering a name replaces the factory
// but keeps its original catalog position.
func (c *Catalog) Register(name string, f Factory) {
	if _, exists := c.factories[name]; !exists {
		c.names = append(c.names, name)
	}
	c.factories[name] = f
}

// Names lists the catalog in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// pluginEntry is one instantiated plugin with its detected capability set.
type pluginEntry struct {
	name      string
	plugin    Plugin
	weight    float64
	render    Renderer
	serialize Serializer
	handlers  map[Event]func(any)
}

// InvokeResult records one plugin's answer to a broadcast method call.
type InvokeResult struct {
	Name   string
	Plugin Plugin
	Result any
}

// pluginHost owns the ordered plugin instances of a session and dispatches
// events and method broadcasts to them.
type pluginHost struct {
	log     *zap.Logger
	bus     *listenerBus
	entries []pluginEntry
}

func newPluginHost(log *zap.Logger, bus *listenerBus) *pluginHost {
	return &pluginHost{log: log, bus: bus}
}

// instantiate builds the active plugins in catalog order, detects their
// capabilities, and stably sorts them by ascending weight.
func (h *pluginHost) instantiate(s *Session, catalog *Catalog, active []string, configs map[string]map[string]any) error {
	if catalog == nil || len(active) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(active))
	for _, name := range active {
		wanted[name] = true
	}

	for _, name := range catalog.names {
		if !wanted[name] {
			continue
		}
		factory := catalog.factories[name]
		instance, err := factory(s, configs[name])
		if err != nil {
			return fmt.Errorf("plugin %q: %w", name, err)
		}
		h.entries = append(h.entries, newPluginEntry(name, instance))
	}

	sort.SliceStable(h.entries, func(i, j int) bool {
		return h.entries[i].weight < h.entries[j].weight
	})
	return nil
}

func newPluginEntry(name string, p Plugin) pluginEntry {
	e := pluginEntry{
		name:     name,
		plugin:   p,
		weight:   math.Inf(1),
		handlers: make(map[Event]func(any)),
	}
	if w, ok := p.(Weighted); ok {
		e.weight = w.Weight()
	}
	if r, ok := p.(Renderer); ok {
		e.render = r
	}
	if sz, ok := p.(Serializer); ok {
		e.serialize = sz
	}
	if hd, ok := p.(ReadyHandler); ok {
		e.handlers[EventReady] = func(any) { hd.OnReady() }
	}
	if hd, ok := p.(EditStartHandler); ok {
		e.handlers[EventEditStart] = func(any) { hd.OnEditStart() }
	}
	if hd, ok := p.(EditStopHandler); ok {
		e.handlers[EventEditStop] = func(payload any) {
			if stop, ok := payload.(EditStopPayload); ok {
				hd.OnEditStop(stop)
			}
		}
	}
	if hd, ok := p.(HistoryChangeHandler); ok {
		e.handlers[EventHistoryChange] = func(any) { hd.OnHistoryChange() }
	}
	if hd, ok := p.(RemoveHandler); ok {
		e.handlers[EventRemove] = func(any) { hd.OnRemove() }
	}
	return e
}

// broadcast raises ev on the generic listener bus, then on every plugin
// exposing a handler for it, in weight order. One plugin's panic is logged
// and never prevents dispatch to the rest.
func (h *pluginHost) broadcast(ev Event, payload any) {
	h.bus.emit(ev, payload)
	for i := range h.entries {
		e := &h.entries[i]
		handler, ok := e.handlers[ev]
		if !ok {
			continue
		}
		h.safely(e.name, string(ev), func() { handler(payload) })
	}
}

// invokeRender calls Render on every rendering plugin in weight order,
// isolating per-plugin failures.
func (h *pluginHost) invokeRender(c *Canvas) {
	for i := range h.entries {
		e := &h.entries[i]
		if e.render == nil {
			continue
		}
		h.safely(e.name, "render", func() {
			if err := e.render.Render(c); err != nil {
				h.log.Error("plugin render failed",
					zap.String("plugin", e.name), zap.Error(err))
			}
		})
	}
}

// serializeAll collects every serializing plugin's state into a name-keyed
// map.
func (h *pluginHost) serializeAll() map[string]any {
	out := make(map[string]any)
	for i := range h.entries {
		e := &h.entries[i]
		if e.serialize == nil {
			continue
		}
		h.safely(e.name, "serialize", func() {
			if v := e.serialize.Serialize(); v != nil {
				out[e.name] = v
			}
		})
	}
	return out
}

// Invoke calls probe on every plugin in weight order and collects the
// results probe reported as meaningful. Plugins the probe declines are
// silently skipped.
func (h *pluginHost) invoke(probe func(name string, p Plugin) (any, bool)) []InvokeResult {
	var results []InvokeResult
	for i := range h.entries {
		e := &h.entries[i]
		h.safely(e.name, "invoke", func() {
			if v, ok := probe(e.name, e.plugin); ok {
				results = append(results, InvokeResult{Name: e.name, Plugin: e.plugin, Result: v})
			}
		})
	}
	return results
}

// order lists the instantiated plugins in dispatch order.
func (h *pluginHost) order() []string {
	out := make([]string, len(h.entries))
	for i := range h.entries {
		out[i] = h.entries[i].name
	}
	return out
}

// find returns the named plugin instance, nil when absent.
func (h *pluginHost) find(name string) Plugin {
	for i := range h.entries {
		if h.entries[i].name == name {
			return h.entries[i].plugin
		}
	}
	return nil
}

// safely runs fn, converting a panic into a logged error so a broken plugin
// cannot take down the render loop or the event stream.
func (h *pluginHost) safely(name, during string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("plugin panicked",
				zap.String("plugin", name),
				zap.String("during", during),
				zap.Any("panic", r))
		}
	}()
	fn()
}
