package imager

// Event names emitted by a Session. Plugins receive them through their
// optional On* handlers; external listeners subscribe with Session.On.
type Event string

const (
	// EventReady fires once a source has been normalized and the element is
	// ready for editing. Orientation correction completes before this fires.
	EventReady Event = "ready"

	// EventEditStart fires when an editing session opens.
	EventEditStart Event = "editStart"

	// EventEditStop fires when an editing session closes; the payload is an
	// EditStopPayload.
	EventEditStop Event = "editStop"

	// EventHistoryChange fires after every commit and undo.
	EventHistoryChange Event = "historyChange"

	// EventRemove fires when the session is detached from its element.
	EventRemove Event = "remove"
)

// EditStopPayload carries the results of a finished editing session.
// ImageData is empty when the final export failed (a blocked or failed
// export never aborts the stop).
type EditStopPayload struct {
	ImageData   string
	PluginsData map[string]any
}

type subscription struct {
	id    int
	event Event
	fn    func(any)
}

// listenerBus is the generic listener side of event dispatch. It is not
// safe for concurrent use; like the rest of the session it belongs to a
// single owner. Handlers may subscribe and unsubscribe during dispatch.
type listenerBus struct {
	nextID int
	subs   []subscription
}

// on subscribes fn to ev and returns a cancel function.
func (b *listenerBus) on(ev Event, fn func(any)) func() {
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, event: ev, fn: fn})
	return func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// emit invokes every listener subscribed to ev, in subscription order.
// Dispatch iterates a snapshot so handlers can unsubscribe themselves.
func (b *listenerBus) emit(ev Event, payload any) {
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	for _, s := range snapshot {
		if s.event == ev {
			s.fn(payload)
		}
	}
}
