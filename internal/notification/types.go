// Package notification delivers user feedback about scan outcomes. Notify is
// fire-and-forget: the recent notifications are kept in memory and forwarded to
// push providers in the background.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type represents the category of a notification
type Type string

const (
	// TypeInfo reports a successful operation
	TypeInfo Type = "info"
	// TypeWarning reports a product that violates the user's preferences
	TypeWarning Type = "warning"
	// TypeError reports a failed operation
	TypeError Type = "error"
)

// Sink receives user feedback. Callers never depend on the outcome.
type Sink interface {
	Notify(kind Type, message string)
}

// NopSink discards notifications.
type NopSink struct{}

// Notify implements Sink.
func (NopSink) Notify(Type, string) {}

// Notification is a single stored notification
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotification creates a notification with a fresh id
func NewNotification(kind Type, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     titleFor(kind),
		Message:   message,
		Timestamp: time.Now(),
	}
}

func titleFor(kind Type) string {
	switch kind {
	case TypeError:
		return "FoodScan error"
	case TypeWarning:
		return "FoodScan warning"
	default:
		return "FoodScan"
	}
}

// store keeps the newest notifications up to a fixed capacity.
type store struct {
	mu    sync.RWMutex
	items []*Notification
	max   int
}

func newStore(maxItems int) *store {
	return &store{items: make([]*Notification, 0, maxItems), max: maxItems}
}

func (s *store) add(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	if over := len(s.items) - s.max; over > 0 {
		s.items = append(s.items[:0:0], s.items[over:]...)
	}
}

// list returns up to limit notifications, newest first. limit <= 0 returns all.
func (s *store) list(limit int) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Notification, 0, n)
	for i := len(s.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *s.items[i])
	}
	return out
}
