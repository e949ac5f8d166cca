package imager

// HistoryEntry is a fully committed, re-renderable editor state. Entries are
// created only by CommitChanges (and the implicit first commit); the session
// owns them exclusively.
type HistoryEntry struct {
	Label        string
	EncodedImage string
	Width        int
	Height       int
}

// history is append-only except for the single-pop undo. Once editing has
// started it is never empty: the first entry is always the "Original"
// baseline, which undo cannot remove.
type history struct {
	entries []HistoryEntry
}

func (h *history) push(e HistoryEntry) {
	h.entries = append(h.entries, e)
}

func (h *history) len() int {
	return len(h.entries)
}

// last returns the current state; ok is false on an empty history.
func (h *history) last() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// previous returns the state undo would restore.
func (h *history) previous() (HistoryEntry, bool) {
	if len(h.entries) < 2 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-2], true
}

func (h *history) pop() {
	if len(h.entries) > 0 {
		h.entries = h.entries[:len(h.entries)-1]
	}
}

// snapshot returns a copy of the entries for external inspection.
func (h *history) snapshot() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
