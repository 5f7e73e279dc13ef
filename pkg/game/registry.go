package game

import "sync"

// Registry maps connected clients to their current session for O(1)
// dispatch of inbound events. A client is in at most one session at a time.
type Registry struct {
	lock     sync.RWMutex
	byClient map[uint32]*Session
	byID     map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		byClient: make(map[uint32]*Session),
		byID:     make(map[string]*Session),
	}
}

// Add registers both of the session's participants.
func (r *Registry) Add(s *Session) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.byID[s.ID()] = s
	for _, clientID := range s.ClientIDs() {
		r.byClient[clientID] = s
	}
}

// Remove drops the session and its participant mappings. Safe to call more
// than once.
func (r *Registry) Remove(s *Session) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.byID, s.ID())
	for _, clientID := range s.ClientIDs() {
		if r.byClient[clientID] == s {
			delete(r.byClient, clientID)
		}
	}
}

// ForClient returns the session the client is currently in, if any.
func (r *Registry) ForClient(clientID uint32) (*Session, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.byClient[clientID]
	return s, ok
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.byID)
}
