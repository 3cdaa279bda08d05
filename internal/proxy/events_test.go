package proxy

import "testing"

func TestEventBusDeliversInPublishOrder(t *testing.T) {
	bus := newEventBus()
	var got []EventType
	bus.subscribe(func(ev Event) { got = append(got, ev.Type) })

	bus.publish(Event{Type: EventStarted})
	bus.publish(Event{Type: EventRouteAdded})
	bus.publish(Event{Type: EventStopped})

	want := []EventType{EventStarted, EventRouteAdded, EventStopped}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := newEventBus()
	count := 0
	unsub := bus.subscribe(func(Event) { count++ })

	bus.publish(Event{Type: EventStarted})
	unsub()
	bus.publish(Event{Type: EventStopped})
	unsub() // repeat unsubscribe is a no-op

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestEventBusLateSubscriberMissesEarlierEvents(t *testing.T) {
	bus := newEventBus()
	bus.publish(Event{Type: EventStarted})

	count := 0
	bus.subscribe(func(Event) { count++ })
	if count != 0 {
		t.Fatalf("expected no replay to a late subscriber, got %d deliveries", count)
	}
}

func TestEventBusStampsTimestamp(t *testing.T) {
	bus := newEventBus()
	var got Event
	bus.subscribe(func(ev Event) { got = ev })
	bus.publish(Event{Type: EventError, Error: "boom"})
	if got.Timestamp.IsZero() {
		t.Fatal("expected publish to stamp a timestamp")
	}
}
