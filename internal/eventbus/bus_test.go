package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsubscribe := b.Subscribe(4)
	defer unsubscribe()

	b.Publish(Event{Type: "backup.finished", Data: "payload"})

	select {
	case ev := <-ch:
		if ev.Type != "backup.finished" {
			t.Fatalf("got event type %q", ev.Type)
		}
		if ev.Time.IsZero() {
			t.Fatal("publish did not stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsubscribe := b.Subscribe(4)
	unsubscribe()
	unsubscribe() // idempotent

	b.Publish(Event{Type: "backup.finished"})

	if _, ok := <-ch; ok {
		t.Fatal("received event after unsubscribe")
	}
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	t.Parallel()

	b := New()
	_, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: "backup.started"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}
