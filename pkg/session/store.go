package session

import "sync"

// Store is the registry of live sessions. It is passed explicitly to every
// component that needs it; there is no package-level instance. Entry locking
// lives on the sessions themselves, so the store lock is only held for map
// access.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Add registers a session. It fails with ErrSessionExists when the id is
// already taken.
func (st *Store) Add(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.sessions[s.ID()]; exists {
		return ErrSessionExists
	}
	st.sessions[s.ID()] = s
	return nil
}

// Get returns the session for id or ErrSessionNotFound.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove deletes and returns the session for id. A second remove for the same
// id reports ErrSessionNotFound.
func (st *Store) Remove(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(st.sessions, id)
	return s, nil
}

// List returns the live sessions in unspecified order.
func (st *Store) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
