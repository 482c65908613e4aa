package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/foodscan/internal/logger"
)

// Config holds event bus configuration
type Config struct {
	BufferSize int
	// Workers > 1 does not preserve publish order between events.
	Workers int
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() Config {
	return Config{
		BufferSize: 1024,
		Workers:    1,
	}
}

// EventBus provides asynchronous event processing with non-blocking publishing
type EventBus struct {
	eventChan chan Event

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	mu      sync.RWMutex

	consumers   []Consumer
	subscribers map[uint64]chan Event
	nextSubID   uint64

	received  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	errCount  atomic.Uint64
	fastPath  atomic.Uint64

	logger logger.Logger
}

// New creates an event bus and starts its workers
func New(cfg Config, log logger.Logger) *EventBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if log == nil {
		log = logger.Global().Module("events")
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		eventChan:   make(chan Event, cfg.BufferSize),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[uint64]chan Event),
		logger:      log,
	}

	eb.running.Store(true)
	for i := range cfg.Workers {
		eb.wg.Add(1)
		go eb.worker(i)
	}

	eb.logger.Debug("event bus started",
		logger.Int("buffer_size", cfg.BufferSize),
		logger.Int("workers", cfg.Workers))

	return eb
}

// RegisterConsumer adds a new event consumer
func (eb *EventBus) RegisterConsumer(consumer Consumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)
	eb.logger.Info("registered event consumer", logger.String("consumer", consumer.Name()))

	return nil
}

// Subscribe returns a channel receiving every subsequent event and a cancel
// function that unsubscribes and closes the channel. Slow subscribers lose
// events rather than blocking the bus.
func (eb *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	eb.mu.Lock()
	id := eb.nextSubID
	eb.nextSubID++
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			eb.mu.Lock()
			if _, ok := eb.subscribers[id]; ok {
				delete(eb.subscribers, id)
				close(ch)
			}
			eb.mu.Unlock()
		})
	}
}

// TryPublish attempts to publish an event without blocking.
// Returns true if the event was accepted, false if dropped.
func (eb *EventBus) TryPublish(event Event) bool {
	if eb == nil || !eb.running.Load() {
		return false
	}

	eb.mu.RLock()
	listening := len(eb.consumers) > 0 || len(eb.subscribers) > 0
	eb.mu.RUnlock()

	if !listening {
		eb.fastPath.Add(1)
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case eb.eventChan <- event:
		eb.received.Add(1)
		return true
	default:
		eb.dropped.Add(1)
		eb.logger.Debug("event dropped due to full buffer", logger.String("kind", string(event.Kind)))
		return false
	}
}

func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()

	log := eb.logger.With(logger.Int("worker_id", id))

	for {
		select {
		case <-eb.ctx.Done():
			// drain what was accepted before shutdown
			for {
				select {
				case event := <-eb.eventChan:
					eb.dispatch(event, log)
				default:
					return
				}
			}
		case event := <-eb.eventChan:
			eb.dispatch(event, log)
		}
	}
}

// dispatch delivers the event to subscribers and consumers
func (eb *EventBus) dispatch(event Event, log logger.Logger) {
	eb.mu.RLock()
	consumers := make([]Consumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
	eb.mu.RUnlock()

	for _, consumer := range consumers {
		eb.deliver(consumer, event, log)
	}
}

func (eb *EventBus) deliver(consumer Consumer, event Event, log logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			eb.errCount.Add(1)
			log.Error("consumer panicked",
				logger.String("consumer", consumer.Name()),
				logger.Any("panic", r),
				logger.String("kind", string(event.Kind)))
		}
	}()

	if err := consumer.ProcessEvent(event); err != nil {
		eb.errCount.Add(1)
		log.Warn("consumer error",
			logger.String("consumer", consumer.Name()),
			logger.String("kind", string(event.Kind)),
			logger.Error(err))
		return
	}
	eb.processed.Add(1)
}

// Shutdown stops accepting events, drains the buffer and closes subscriber channels
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil || !eb.running.Swap(false) {
		return nil
	}

	eb.cancel()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		eb.logger.Warn("event bus shutdown timeout exceeded", logger.Duration("timeout", timeout))
		err = fmt.Errorf("shutdown timeout exceeded")
	}

	eb.mu.Lock()
	for id, ch := range eb.subscribers {
		delete(eb.subscribers, id)
		close(ch)
	}
	eb.mu.Unlock()

	return err
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() Stats {
	if eb == nil {
		return Stats{}
	}

	return Stats{
		EventsReceived:  eb.received.Load(),
		EventsProcessed: eb.processed.Load(),
		EventsDropped:   eb.dropped.Load(),
		ConsumerErrors:  eb.errCount.Load(),
		FastPathHits:    eb.fastPath.Load(),
	}
}
