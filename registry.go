package imager

import "sync"

// Registry tracks the live sessions of a page or process. It replaces the
// shared mutable instance array of older designs with an explicit owner:
// whichever component manages page-level lifecycle creates one and passes it
// to sessions via WithRegistry.
//
// Sessions insert themselves on creation and remove themselves on explicit
// Remove. Lookups scan the live list; attachment lookup is not a hot path.
type Registry struct {
	mu       sync.RWMutex
	sessions []*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	for i, candidate := range r.sessions {
		if candidate == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// Sessions returns a snapshot of the live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// SessionFor returns the session attached to el, nil when none is.
func (r *Registry) SessionFor(el *Element) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.element == el {
			return s
		}
	}
	return nil
}

// IsAttached reports whether any live session is attached to el.
func (r *Registry) IsAttached(el *Element) bool {
	return r.SessionFor(el) != nil
}

// FindByID returns the session with the given attachment id, nil when it is
// not live.
func (r *Registry) FindByID(id int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.id == id {
			return s
		}
	}
	return nil
}
