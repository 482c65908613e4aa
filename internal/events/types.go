// Package events provides an asynchronous publish/subscribe bus that carries
// product and preference mutations from the pipeline to observers.
package events

import (
	"time"

	"github.com/tphakala/foodscan/internal/product"
)

// Kind identifies the mutation an event describes
type Kind string

const (
	KindProductAdded       Kind = "product.added"
	KindProductRemoved     Kind = "product.removed"
	KindProductsCleared    Kind = "products.cleared"
	KindPreferencesChanged Kind = "preferences.changed"
)

// Event is published after a mutation has been committed
type Event struct {
	Kind        Kind                     `json:"kind"`
	Partition   string                   `json:"partition"`
	Product     *product.Product         `json:"product,omitempty"`
	ProductID   string                   `json:"productId,omitempty"`
	Preferences *product.UserPreferences `json:"preferences,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}

// NewProductEvent builds an event carrying a copy of p
func NewProductEvent(kind Kind, partition string, p *product.Product) Event {
	e := Event{Kind: kind, Partition: partition, Timestamp: time.Now()}
	if p != nil {
		e.Product = p.Clone()
		e.ProductID = p.ID
	}
	return e
}

// Publisher is the write side of the bus used by mutating components
type Publisher interface {
	TryPublish(event Event) bool
}

// Consumer processes events on bus worker goroutines
type Consumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent handles a single event
	ProcessEvent(event Event) error
}

// Stats contains runtime statistics for monitoring
type Stats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
	FastPathHits    uint64 // publishes skipped because nobody was listening
}

// NopPublisher discards every event
type NopPublisher struct{}

// TryPublish implements Publisher
func (NopPublisher) TryPublish(Event) bool { return false }
