package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexiplay/soundtrack/internal/errors"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/playback"
)

const componentName = "events"

// Config holds event bus configuration
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
		Workers:    2,
	}
}

// EventBus provides asynchronous event processing with non-blocking publishing.
// Every worker owns a queue and events are routed to a queue by channel, so
// consumers see each channel's events in emission order.
type EventBus struct {
	queues []chan playback.Event

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	mu      sync.Mutex

	consumers []Consumer

	received  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	log logger.Logger
}

// New creates an event bus. Workers start with the first registered consumer.
func New(cfg Config, log logger.Logger) *EventBus {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		queues: make([]chan playback.Event, cfg.Workers),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	for i := range eb.queues {
		eb.queues[i] = make(chan playback.Event, cfg.BufferSize)
	}

	log.Info("event bus initialized",
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

	if eb.ctx.Err() != nil {
		return errors.Newf("event bus is shut down").
			Component(componentName).
			Category(errors.CategoryState).
			Build()
	}

	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return errors.Newf("consumer %s already registered", consumer.Name()).
				Component(componentName).
				Category(errors.CategoryValidation).
				Build()
		}
	}

	eb.consumers = append(eb.consumers, consumer)
	eb.log.Info("registered event consumer", logger.String("consumer", consumer.Name()))

	if len(eb.consumers) == 1 {
		eb.start()
	}
	return nil
}

// TryPublish attempts to publish an event without blocking.
// Returns true if the event was accepted, false if dropped.
func (eb *EventBus) TryPublish(event playback.Event) bool {
	if eb == nil || !eb.running.Load() {
		return false
	}

	select {
	case eb.queueFor(event) <- event:
		eb.received.Add(1)
		return true
	default:
		eb.dropped.Add(1)
		eb.log.Debug("event dropped due to full buffer",
			logger.String("channel", event.Channel.String()),
			logger.String("kind", string(event.Kind)))
		return false
	}
}

// queueFor pins all events of one channel to the same worker.
func (eb *EventBus) queueFor(event playback.Event) chan playback.Event {
	idx := int(event.Channel) % len(eb.queues)
	if idx < 0 {
		idx += len(eb.queues)
	}
	return eb.queues[idx]
}

// Observe implements playback.Observer so the bus can be attached directly to
// an orchestrator.
func (eb *EventBus) Observe(event playback.Event) {
	eb.TryPublish(event)
}

// start begins the worker goroutines. Caller holds eb.mu.
func (eb *EventBus) start() {
	if eb.running.Swap(true) {
		return
	}

	eb.log.Debug("starting event bus workers", logger.Int("count", len(eb.queues)))
	for i, queue := range eb.queues {
		eb.wg.Go(func() { eb.worker(i, queue) })
	}
}

func (eb *EventBus) worker(id int, queue <-chan playback.Event) {
	log := eb.log.With(logger.Int("worker_id", id))
	log.Debug("worker started")

	for {
		select {
		case <-eb.ctx.Done():
			eb.drain(queue, log)
			log.Debug("worker stopped")
			return
		case event := <-queue:
			eb.processEvent(event, log)
		}
	}
}

// drain delivers whatever is already buffered so shutdown does not lose the
// final state transitions.
func (eb *EventBus) drain(queue <-chan playback.Event, log logger.Logger) {
	for {
		select {
		case event := <-queue:
			eb.processEvent(event, log)
		default:
			return
		}
	}
}

// processEvent sends the event to all registered consumers
func (eb *EventBus) processEvent(event playback.Event, log logger.Logger) {
	eb.mu.Lock()
	consumers := make([]Consumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	eb.mu.Unlock()

	for _, consumer := range consumers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					eb.failed.Add(1)
					log.Error("consumer panicked",
						logger.String("consumer", consumer.Name()),
						logger.Any("panic", r),
						logger.String("kind", string(event.Kind)))
				}
			}()

			if err := consumer.ProcessEvent(event); err != nil {
				eb.failed.Add(1)
				log.Warn("consumer error",
					logger.String("consumer", consumer.Name()),
					logger.Error(err),
					logger.String("kind", string(event.Kind)))
				return
			}
			eb.processed.Add(1)
		}()
	}
}

// Shutdown stops accepting events, flushes the buffer and waits for workers.
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil {
		return nil
	}

	eb.mu.Lock()
	eb.running.Store(false)
	eb.cancel()
	eb.mu.Unlock()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		eb.log.Info("event bus shutdown complete")
		return nil
	case <-timer.C:
		eb.log.Warn("event bus shutdown timeout exceeded", logger.Duration("timeout", timeout))
		return errors.Newf("event bus shutdown timeout exceeded").
			Component(componentName).
			Category(errors.CategoryTimeout).
			Context("timeout_ms", timeout.Milliseconds()).
			Build()
	}
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
		ConsumerErrors:  eb.failed.Load(),
	}
}
