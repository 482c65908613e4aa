package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Selector chooses the record store for an identity: the session-local
// store for anonymous sessions and the remote store for authenticated users.
// Without a remote store every identity uses the local store.
type Selector struct {
	local     RecordStore
	remote    RecordStore
	publisher events.Publisher
	log       logger.Logger
	locks     sync.Map // partition -> *sync.Mutex
}

// NewSelector creates a selector. remote may be nil.
func NewSelector(local, remote RecordStore, publisher events.Publisher, log logger.Logger) *Selector {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &Selector{local: local, remote: remote, publisher: publisher, log: log}
}

// For returns the facade bound to id.
func (s *Selector) For(id identity.Identity) *StoreFacade {
	store, backend := s.local, BackendMemory
	if id.Authenticated() && s.remote != nil {
		store, backend = s.remote, BackendRemote
	}
	partition := id.Partition()
	lock, _ := s.locks.LoadOrStore(partition, &sync.Mutex{})

	return &StoreFacade{
		store:     store,
		partition: partition,
		backend:   backend,
		lock:      lock.(*sync.Mutex),
		publisher: s.publisher,
		log:       s.log.With(logger.String("partition", partition)),
		now:       time.Now,
	}
}

// SessionFacade is a Facade that follows an identity.Session. The backing
// facade is re-selected once per identity change, never per call.
type SessionFacade struct {
	selector    *Selector
	mu          sync.RWMutex
	current     *StoreFacade
	unsubscribe func()
}

// NewSessionFacade binds to the session's current identity and rebinds on change.
func NewSessionFacade(selector *Selector, session *identity.Session) *SessionFacade {
	sf := &SessionFacade{selector: selector, current: selector.For(session.Current())}
	sf.unsubscribe = session.Subscribe(sf.rebind)
	return sf
}

func (sf *SessionFacade) rebind(id identity.Identity) {
	next := sf.selector.For(id)
	sf.mu.Lock()
	sf.current = next
	sf.mu.Unlock()
	sf.selector.log.Debug("persistence rebound",
		logger.String("partition", next.Partition()),
		logger.String("backend", next.Backend()))
}

// Current returns the facade for the active identity.
func (sf *SessionFacade) Current() *StoreFacade {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.current
}

// Close stops following the session.
func (sf *SessionFacade) Close() {
	if sf.unsubscribe != nil {
		sf.unsubscribe()
	}
}

// AddProduct implements Facade.
func (sf *SessionFacade) AddProduct(ctx context.Context, p *product.Product) (*product.Product, error) {
	return sf.Current().AddProduct(ctx, p)
}

// GetProductByClientSideID implements Facade.
func (sf *SessionFacade) GetProductByClientSideID(ctx context.Context, id string) (*product.Product, error) {
	return sf.Current().GetProductByClientSideID(ctx, id)
}

// ListProducts implements Facade.
func (sf *SessionFacade) ListProducts(ctx context.Context, filter product.Filter) ([]*product.Product, error) {
	return sf.Current().ListProducts(ctx, filter)
}

// RemoveProduct implements Facade.
func (sf *SessionFacade) RemoveProduct(ctx context.Context, id string) error {
	return sf.Current().RemoveProduct(ctx, id)
}

// ClearAll implements Facade.
func (sf *SessionFacade) ClearAll(ctx context.Context) error {
	return sf.Current().ClearAll(ctx)
}
