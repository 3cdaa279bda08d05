package proxy

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
)

// newTestEngine returns an engine whose port allocator goes straight to an
// OS-assigned ephemeral port, so tests never contend on the default
// candidate list.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine()
	e.candidates = nil
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestRouteNameFromHost(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		want   string
		wantOK bool
	}{
		{name: "bare", host: "web.localhost", want: "web", wantOK: true},
		{name: "with port", host: "web.localhost:2080", want: "web", wantOK: true},
		{name: "hyphenated", host: "task-42.localhost:2080", want: "task-42", wantOK: true},
		{name: "uppercase normalized", host: "WEB.localhost", want: "web", wantOK: true},
		{name: "trailing dot", host: "web.localhost.", want: "web", wantOK: true},
		{name: "no subdomain", host: "localhost:2080", wantOK: false},
		{name: "loopback ip", host: "127.0.0.1:2080", wantOK: false},
		{name: "other domain", host: "web.example.com", wantOK: false},
		{name: "nested subdomain", host: "a.b.localhost", wantOK: false},
		{name: "empty", host: "", wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := routeNameFromHost(tc.host)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v (value=%q)", tc.wantOK, ok, got)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStartIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	port, err := e.Start(0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if port <= 0 {
		t.Fatalf("expected a positive port, got %d", port)
	}
	again, err := e.Start(0)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again != port {
		t.Fatalf("expected idempotent start to return %d, got %d", port, again)
	}
}

func TestStartFallsBackWhenPreferredPortOccupied(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	occupied := ln.Addr().(*net.TCPAddr).Port

	e := newTestEngine(t)
	port, err := e.Start(occupied)
	if err != nil {
		t.Fatalf("expected start to succeed on a fallback port, got %v", err)
	}
	if port == occupied {
		t.Fatalf("expected a port other than the occupied %d", occupied)
	}
}

func TestStopResetsState(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Start(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := e.AddRoute(name, 3000, RouteOptions{}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	st := e.GetState()
	if st.Running {
		t.Fatal("expected engine to report stopped")
	}
	if st.Port != nil {
		t.Fatalf("expected nil port after stop, got %d", *st.Port)
	}
	if len(st.Routes) != 0 {
		t.Fatalf("expected empty routes after stop, got %d", len(st.Routes))
	}

	// Stopping again is a no-op.
	if err := e.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestAddRouteAutoStartsEngine(t *testing.T) {
	e := newTestEngine(t)
	rt, err := e.AddRoute("web", 3000, RouteOptions{TaskID: "task-7"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	st := e.GetState()
	if !st.Running || st.Port == nil {
		t.Fatal("expected add to start the engine")
	}
	wantURL := fmt.Sprintf("http://web.localhost:%d", *st.Port)
	if rt.URL != wantURL {
		t.Fatalf("expected url %q, got %q", wantURL, rt.URL)
	}
	if rt.TaskID != "task-7" {
		t.Fatalf("expected taskId to be recorded, got %q", rt.TaskID)
	}
}

func TestAddRoutePropagatesRegistryErrors(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddRoute("web", 3000, RouteOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := e.AddRoute("web", 3001, RouteOptions{}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := e.AddRoute("-bad-", 3000, RouteOptions{}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestRemoveRouteIdempotent(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.AddRoute("web", 3000, RouteOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !e.RemoveRoute("web") {
		t.Fatal("expected remove of present route to report true")
	}
	if _, ok := e.Route("web"); ok {
		t.Fatal("expected route to be absent after remove")
	}
	if e.RemoveRoute("web") {
		t.Fatal("expected second remove to report false")
	}
}

func TestLifecycleEventSequence(t *testing.T) {
	e := newTestEngine(t)

	var mu sync.Mutex
	var got []EventType
	unsub := e.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})
	defer unsub()

	if _, err := e.Start(0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.AddRoute("web", 3000, RouteOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !e.UpdateRouteStatus("web", StatusStopped) {
		t.Fatal("expected status update to succeed")
	}
	if !e.RemoveRoute("web") {
		t.Fatal("expected remove to succeed")
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []EventType{EventStarted, EventRouteAdded, EventRouteStatus, EventRouteRemoved, EventStopped}
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRouteEventsCarryTheRoute(t *testing.T) {
	e := newTestEngine(t)

	var events []Event
	unsub := e.Subscribe(func(ev Event) { events = append(events, ev) })
	defer unsub()

	if _, err := e.AddRoute("web", 3000, RouteOptions{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	var added *Event
	for i := range events {
		if events[i].Type == EventRouteAdded {
			added = &events[i]
		}
	}
	if added == nil || added.Route == nil {
		t.Fatal("expected a route:added event carrying the route")
	}
	if added.Route.Name != "web" {
		t.Fatalf("expected route name web, got %q", added.Route.Name)
	}
	if !strings.HasPrefix(added.Route.URL, "http://web.localhost:") {
		t.Fatalf("unexpected route url %q", added.Route.URL)
	}
}
