package session

import "sync"

// Identity is the stable user identifier assigned by the transport layer.
type Identity int64

// Registry maps identities to their sessions. A session exists for an
// identity iff that identity has completed registration; every mutator
// returns ErrNotFound otherwise.
type Registry struct {
	sessions       map[Identity]*Session
	defaultContext string
	mu             sync.RWMutex
}

// NewRegistry creates an empty registry. defaultContext is the system
// instruction every new or reset session starts with.
func NewRegistry(defaultContext string) *Registry {
	return &Registry{
		sessions:       make(map[Identity]*Session),
		defaultContext: defaultContext,
	}
}

// Register creates a session for the identity if none exists and reports
// whether one was created. Registering an existing identity returns the
// existing session untouched.
func (r *Registry) Register(id Identity) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess, false
	}

	sess := newSession(r.defaultContext)
	r.sessions[id] = sess
	return sess, true
}

// Get returns the session for the identity or ErrNotFound.
func (r *Registry) Get(id Identity) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// ResetContext restores the default context and empties the history.
func (r *Registry) ResetContext(id Identity) error {
	sess, err := r.Get(id)
	if err != nil {
		return err
	}

	sess.setContext(r.defaultContext)
	return nil
}

// ClearHistory empties the history only, leaving the context untouched.
func (r *Registry) ClearHistory(id Identity) error {
	sess, err := r.Get(id)
	if err != nil {
		return err
	}

	sess.clearHistory()
	return nil
}

// SetContext replaces the context wholesale. A new context invalidates the
// relevance of prior turns, so the history is cleared as well.
func (r *Registry) SetContext(id Identity, text string) error {
	sess, err := r.Get(id)
	if err != nil {
		return err
	}

	sess.setContext(text)
	return nil
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
