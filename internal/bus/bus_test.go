package bus

import "testing"

func TestSend_DeliversThroughRegisteredHandler(t *testing.T) {
	mb := New()
	defer mb.Close()

	var got OutboundMessage
	mb.RegisterHandler("slack", func(msg OutboundMessage) error {
		got = msg
		return nil
	})

	if err := mb.Send(OutboundMessage{Channel: "slack", ChatID: "C1", Content: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ChatID != "C1" || got.Content != "hi" {
		t.Errorf("expected the handler to receive the message, got %+v", got)
	}
}

func TestSend_NoHandlerRegisteredErrors(t *testing.T) {
	mb := New()
	defer mb.Close()

	if err := mb.Send(OutboundMessage{Channel: "whatsapp", ChatID: "1", Content: "hi"}); err == nil {
		t.Fatal("expected an error when no handler is registered for the channel")
	}
}

func TestBroadcast_DeliversToAllSubscribers(t *testing.T) {
	mb := New()
	defer mb.Close()

	var a, b Event
	mb.Subscribe("client-a", func(ev Event) { a = ev })
	mb.Subscribe("client-b", func(ev Event) { b = ev })

	mb.Broadcast(Event{Name: "cron", Payload: "job-added"})

	if a.Name != "cron" || b.Name != "cron" {
		t.Errorf("expected both subscribers to receive the event, got a=%+v b=%+v", a, b)
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	mb := New()
	defer mb.Close()

	calls := 0
	mb.Subscribe("client-a", func(ev Event) { calls++ })
	mb.Unsubscribe("client-a")

	mb.Broadcast(Event{Name: "cron"})
	if calls != 0 {
		t.Errorf("expected no delivery after unsubscribe, got %d calls", calls)
	}
}
