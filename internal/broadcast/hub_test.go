package broadcast

import "testing"

func TestPublishDeliversToSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("a")
	h.Publish(Message{Type: "ticker", Data: 1})
	select {
	case msg := <-ch:
		if msg.Type != "ticker" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	default:
		t.Fatalf("expected a buffered message")
	}
}

func TestPublishDropsOldestWhenFull(t *testing.T) {
	h := NewHub()
	h.queueSize = 2
	ch := h.Subscribe("a")
	h.Publish(Message{Type: "t", Data: 1})
	h.Publish(Message{Type: "t", Data: 2})
	h.Publish(Message{Type: "t", Data: 3}) // queue full: drop 1, keep 2 and 3

	first := <-ch
	second := <-ch
	if first.Data != 2 || second.Data != 3 {
		t.Fatalf("expected oldest dropped, got %v then %v", first.Data, second.Data)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected no third message, got %+v", extra)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("a")
	h.Unsubscribe("a")
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after unsubscribe")
	}
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers")
	}
}

func TestCloseDropsAllSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("a")
	b := h.Subscribe("b")
	h.Close()
	if _, ok := <-a; ok {
		t.Fatalf("expected a closed")
	}
	if _, ok := <-b; ok {
		t.Fatalf("expected b closed")
	}
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after close")
	}
}
