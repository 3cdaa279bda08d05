package control

import (
	"net/http"

	"github.com/gorilla/websocket"

	"devport/internal/proxy"
)

var eventsUpgrader = websocket.Upgrader{
	// The proxy binds to loopback only; browser dashboards on any local
	// origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// events streams lifecycle events to a WebSocket subscriber, one JSON object
// per message. Delivery is at-most-once: events published before the
// subscription are not replayed, and a subscriber that cannot keep up has
// events dropped rather than blocking the bus.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	conn, err := eventsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	queued := make(chan proxy.Event, 64)
	unsub := h.engine.Subscribe(func(ev proxy.Event) {
		select {
		case queued <- ev:
		default:
		}
	})
	defer unsub()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-queued:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
