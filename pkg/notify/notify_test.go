package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cutover/pkg/types"
)

func TestPublishSubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&Event{
		Type:        EventTrafficSwitched,
		RunID:       "run-1",
		Environment: types.EnvironmentGreen,
		Message:     "traffic switched to green",
	})

	select {
	case event := <-sub:
		assert.Equal(t, EventTrafficSwitched, event.Type)
		assert.Equal(t, types.EnvironmentGreen, event.Environment)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	subA := broker.Subscribe()
	subB := broker.Subscribe()
	defer broker.Unsubscribe(subA)
	defer broker.Unsubscribe(subB)

	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Event{Type: EventRunCompleted, Message: "done"})

	for _, sub := range []Subscriber{subA, subB} {
		select {
		case event := <-sub:
			assert.Equal(t, EventRunCompleted, event.Type)
		case <-time.After(time.Second):
			t.Fatal("event not delivered to all subscribers")
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	// Never drained: its buffer fills and further events are skipped.
	slow := broker.Subscribe()
	defer broker.Unsubscribe(slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			broker.Publish(&Event{Type: EventAppDeployed, Message: "deployed"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a slow subscriber")
	}
}

func TestPublishAfterStop(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	broker.Stop()

	// Must not panic or block.
	broker.Publish(&Event{Type: EventRunCompleted})
}
