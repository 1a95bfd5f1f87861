package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/cutover/pkg/types"
)

// EventType represents the type of notification event
type EventType string

const (
	EventDeployStarted         EventType = "deploy.started"
	EventDependenciesDeployed  EventType = "dependencies.deployed"
	EventAppDeployed           EventType = "app.deployed"
	EventServiceDeployed       EventType = "service.deployed"
	EventVerificationCompleted EventType = "verification.completed"
	EventTrafficSwitched       EventType = "traffic.switched"
	EventRunCompleted          EventType = "run.completed"
)

// Event represents a deployment notification. Delivery is best-effort;
// nothing in a run ever fails because an event was dropped.
type Event struct {
	ID          string
	Type        EventType
	RunID       string
	Environment types.Environment
	Timestamp   time.Time
	Message     string
	Metadata    map[string]string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	default:
		// Broker buffer full; best-effort means the event is dropped.
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// LogEvents drains a subscription into the logger until the channel is
// closed. Run it in its own goroutine.
func LogEvents(sub Subscriber, logger zerolog.Logger) {
	for event := range sub {
		logger.Info().
			Str("event", string(event.Type)).
			Str("run_id", event.RunID).
			Str("environment", string(event.Environment)).
			Msg(event.Message)
	}
}
