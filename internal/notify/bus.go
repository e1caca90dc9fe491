package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lecternapp/lectern/internal/id"
)

// Subscriber is one registered event consumer.
type Subscriber struct {
	SubscribedAt time.Time
	EventChan    chan Event
	Done         chan struct{}
	ID           string
}

// Bus fans session events out to subscribers. Publish never blocks the
// caller; a full subscriber buffer drops the event for that subscriber.
type Bus struct {
	subscribers map[string]*Subscriber
	events      chan Event
	logger      *slog.Logger
	wg          sync.WaitGroup
	mu          sync.RWMutex

	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
		events:      make(chan Event, 1000),
		logger:      logger,
	}
}

// Start begins the broadcast loop. Call once, in a goroutine.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Debug("event bus starting")

	for {
		select {
		case event := <-b.events:
			b.broadcast(event)
		case <-ctx.Done():
			b.logger.Debug("event bus stopping")
			b.closeAllSubscribers()
			return
		}
	}
}

// Shutdown stops accepting new events, drains the queue, and waits for the
// broadcast loop to exit.
func (b *Bus) Shutdown(ctx context.Context) error {
	// Mark shutdown and close the channel under the same lock so a
	// concurrent Publish cannot send on a closed channel.
	b.shutdownMu.Lock()
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range b.events {
			b.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("event drain timeout, some events may be lost")
	}

	b.wg.Wait()
	return nil
}

// Publish queues an event for broadcast. Events published after shutdown are
// silently dropped.
func (b *Bus) Publish(event Event) {
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		return
	}

	select {
	case b.events <- event:
	default:
		b.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Emit builds an event from type and payload and publishes it.
func (b *Bus) Emit(eventType EventType, data any) {
	b.Publish(New(eventType, data))
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() (*Subscriber, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:           subID,
		EventChan:    make(chan Event, 100),
		Done:         make(chan struct{}),
		SubscribedAt: time.Now(),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		slog.String("subscriber_id", subID),
		slog.Int("total", total))
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channels.
func (b *Bus) Unsubscribe(subID string) {
	b.mu.Lock()
	sub, ok := b.subscribers[subID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subscribers, subID)
	b.mu.Unlock()

	close(sub.Done)
	close(sub.EventChan)
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// broadcast delivers one event to every subscriber.
func (b *Bus) broadcast(event Event) {
	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.EventChan <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("subscriber_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventTimeTick {
		b.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped))
	}
}

// closeAllSubscribers closes every subscriber (used during shutdown).
func (b *Bus) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub.Done)
		close(sub.EventChan)
	}
	b.subscribers = make(map[string]*Subscriber)
}
