// Package identity models the current user context that scopes persistence:
// an authenticated user or an anonymous session.
package identity

import (
	"strings"
	"sync"
)

const localSession = "local"

// Identity is either an authenticated user or an anonymous session.
type Identity struct {
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Anonymous returns the identity of an unauthenticated session.
func Anonymous(sessionID string) Identity {
	return Identity{SessionID: strings.TrimSpace(sessionID)}
}

// User returns an authenticated identity.
func User(userID string) Identity {
	return Identity{UserID: strings.TrimSpace(userID)}
}

// Authenticated reports whether the identity carries a user id.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Partition returns the storage partition key. Users and sessions never share keys.
func (i Identity) Partition() string {
	if i.Authenticated() {
		return "user:" + i.UserID
	}
	if i.SessionID == "" {
		return "session:" + localSession
	}
	return "session:" + i.SessionID
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.Partition()
}

// Provider exposes the authenticated user id, if any.
type Provider interface {
	CurrentUserID() (string, bool)
}

// Session holds the identity of one client and notifies listeners when it
// changes. Safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	current   Identity
	nextID    int
	listeners map[int]func(Identity)
}

// NewSession starts a session with the given identity.
func NewSession(initial Identity) *Session {
	return &Session{current: initial, listeners: make(map[int]func(Identity))}
}

// Current returns the active identity.
func (s *Session) Current() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CurrentUserID implements Provider.
func (s *Session) CurrentUserID() (string, bool) {
	id := s.Current()
	return id.UserID, id.Authenticated()
}

// SignIn switches to an authenticated identity.
func (s *Session) SignIn(userID string) {
	s.set(User(userID))
}

// SignOut falls back to the anonymous session, keeping its session id.
func (s *Session) SignOut() {
	s.mu.RLock()
	sessionID := s.current.SessionID
	s.mu.RUnlock()
	s.set(Anonymous(sessionID))
}

// Set replaces the identity.
func (s *Session) Set(id Identity) {
	s.set(id)
}

// Subscribe registers fn to be called after every identity change. The
// returned function removes the listener.
func (s *Session) Subscribe(fn func(Identity)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) set(next Identity) {
	s.mu.Lock()
	if next.SessionID == "" {
		next.SessionID = s.current.SessionID
	}
	if s.current == next {
		s.mu.Unlock()
		return
	}
	s.current = next
	fns := make([]func(Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
