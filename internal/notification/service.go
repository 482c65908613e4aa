package notification

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/foodscan/internal/logger"
)

const (
	componentName = "notification"

	// DefaultMaxNotifications is the number of notifications kept in memory
	DefaultMaxNotifications = 100
	// DefaultPushTimeout bounds a single provider delivery
	DefaultPushTimeout = 10 * time.Second
	// pushQueueSize bounds the pending push deliveries
	pushQueueSize = 64
)

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	// MaxNotifications is the maximum number of notifications to keep in memory
	MaxNotifications int
	// PushTimeout bounds each provider delivery
	PushTimeout time.Duration
	// Providers receive every notification of a type they support
	Providers []PushProvider
	Logger    logger.Logger
}

// Service implements Sink. Push delivery runs on a single background worker.
type Service struct {
	store     *store
	providers []PushProvider
	timeout   time.Duration
	queue     chan *Notification
	log       logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewService creates a notification service and starts its push worker when
// providers are configured.
func NewService(cfg ServiceConfig) *Service {
	if cfg.MaxNotifications <= 0 {
		cfg.MaxNotifications = DefaultMaxNotifications
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = DefaultPushTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Global().Module(componentName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:     newStore(cfg.MaxNotifications),
		providers: cfg.Providers,
		timeout:   cfg.PushTimeout,
		queue:     make(chan *Notification, pushQueueSize),
		log:       cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	if len(s.providers) > 0 {
		s.wg.Add(1)
		go s.pushWorker()
	}
	return s
}

// Notify implements Sink. It never blocks on delivery.
func (s *Service) Notify(kind Type, message string) {
	n := NewNotification(kind, message)
	s.store.add(n)
	s.log.Debug("notification recorded",
		logger.String("id", n.ID),
		logger.String("type", string(kind)))

	if len(s.providers) == 0 {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- n:
	default:
		s.log.Warn("push queue full, dropping notification",
			logger.String("id", n.ID),
			logger.String("type", string(kind)))
	}
}

// List returns up to limit recent notifications, newest first.
func (s *Service) List(limit int) []Notification {
	return s.store.list(limit)
}

// Close stops accepting pushes and waits up to timeout for queued deliveries.
func (s *Service) Close(timeout time.Duration) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			s.log.Warn("notification shutdown timed out, abandoning pending pushes")
		}
		s.cancel()
	})
}

func (s *Service) pushWorker() {
	defer s.wg.Done()
	for n := range s.queue {
		for _, p := range s.providers {
			if !p.SupportsType(n.Type) {
				continue
			}
			ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
			err := p.Send(ctx, n)
			cancel()
			if err != nil {
				s.log.Warn("push delivery failed",
					logger.String("provider", p.Name()),
					logger.String("id", n.ID),
					logger.Error(err))
			}
		}
	}
}
