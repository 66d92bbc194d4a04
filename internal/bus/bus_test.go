package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSyncDeliversToTypedAndWildcard(t *testing.T) {
	b := NewEventBus()

	var mu sync.Mutex
	var got []string
	b.Subscribe(EventTypeEmotionChanged, func(e Event) {
		mu.Lock()
		got = append(got, "typed:"+e.Data["emotion"].(string))
		mu.Unlock()
	})
	b.SubscribeAll(func(e Event) {
		mu.Lock()
		got = append(got, "all:"+string(e.Type))
		mu.Unlock()
	})
	b.Subscribe(EventTypeGestureChanged, func(Event) {
		t.Error("gesture handler must not receive emotion events")
	})

	b.PublishSync(Event{Type: EventTypeEmotionChanged, Data: map[string]any{"emotion": "happy"}})

	assert.ElementsMatch(t, []string{"typed:happy", "all:avatar.emotion_changed"}, got)
}

func TestClearRemovesHandlers(t *testing.T) {
	b := NewEventBus()
	called := false
	b.SubscribeAll(func(Event) { called = true })
	b.Clear()

	b.PublishSync(Event{Type: EventTypeReady})
	assert.False(t, called)
}

func TestNilBusIsSafe(t *testing.T) {
	var b *EventBus
	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventTypeReady})
		b.PublishSync(Event{Type: EventTypeReady})
	})
}

func TestPublishStampsIncreasingSeq(t *testing.T) {
	b := NewEventBus()
	got := make(chan Event, 4)
	b.Subscribe(EventTypeReady, func(e Event) { got <- e })

	b.PublishSync(Event{Type: EventTypeReady})
	b.PublishSync(Event{Type: EventTypeReady})
	first, second := <-got, <-got
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
}

func TestOrderedSubscriberSeesPublishOrder(t *testing.T) {
	b := NewEventBus()
	got := make(chan Event, 200)
	b.SubscribeOrdered(func(e Event) { got <- e })

	for i := 0; i < 200; i++ {
		typ := EventTypeTalkingStarted
		if i%2 == 1 {
			typ = EventTypeTalkingStopped
		}
		b.Publish(Event{Type: typ})
	}

	for i := 1; i <= 200; i++ {
		select {
		case e := <-got:
			require.Equal(t, uint64(i), e.Seq)
			if i%2 == 0 {
				assert.Equal(t, EventTypeTalkingStopped, e.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
	assert.Zero(t, b.Dropped())
}

func TestOrderedSubscriberDropsWhenBehind(t *testing.T) {
	b := NewEventBus()
	release := make(chan struct{})
	b.SubscribeOrdered(func(Event) { <-release })
	defer close(release)

	done := make(chan struct{})
	go func() {
		for i := 0; i < orderedBuffer+10; i++ {
			b.Publish(Event{Type: EventTypeWordBoundary})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Positive(t, b.Dropped())
}
