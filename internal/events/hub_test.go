package events

import (
	"testing"
	"time"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	ev := Event{Type: TypeBorrowed, LoanID: 1, BookID: 5, At: time.Now()}
	hub.Publish(ev)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.Type != TypeBorrowed || got.BookID != 5 {
				t.Errorf("subscriber %s: unexpected event %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s: no event received", name)
		}
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()

	// Channel must be closed after cancel.
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	// Publishing after cancel must not panic.
	hub.Publish(Event{Type: TypeDeleted, LoanID: 2})
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Overflow the subscriber buffer; extra events are dropped.
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Type: TypeUpdated, LoanID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}
