package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrBindFailed reports that the listening socket could not be acquired on
// the chosen port. The engine stays stopped; there is no retry.
var ErrBindFailed = errors.New("proxy listen failed")

// Hosts of the form <slug>.localhost, with an optional port, are routed by
// subdomain. Anything else is addressed to the control surface.
var routeHostPattern = regexp.MustCompile(`^([a-z0-9][a-z0-9-]*[a-z0-9]?)\.localhost(:\d+)?$`)

// RouteOptions carries the optional fields of AddRoute.
type RouteOptions struct {
	TargetHost string
	TaskID     string
}

// State is a point-in-time snapshot of the engine, reconstructed on demand.
type State struct {
	Running bool    `json:"running"`
	Port    *int    `json:"port"`
	Routes  []Route `json:"routes"`
}

// Engine is the proxy core: it owns the listening socket and the route
// registry, dispatches each inbound request to the HTTP forwarder or the
// upgrade tunnel, and publishes lifecycle events. Construct one per caller;
// all state lives on the instance.
type Engine struct {
	registry  *registry
	bus       *eventBus
	forwarder *forwarder

	mu         sync.Mutex
	control    http.Handler
	candidates []int
	running    bool
	port       int
	listener   net.Listener
	server     *http.Server
}

func NewEngine() *Engine {
	return &Engine{
		registry:   newRegistry(),
		bus:        newEventBus(),
		forwarder:  newForwarder(),
		candidates: defaultCandidatePorts,
	}
}

// SetControlHandler installs the handler that receives requests whose Host
// header does not name a route subdomain (the dashboard and routes API).
func (e *Engine) SetControlHandler(h http.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.control = h
}

// Subscribe registers a lifecycle event listener and returns its unsubscribe
// handle. Delivery is synchronous, in publish order, at-most-once: events
// published before Subscribe are not replayed.
func (e *Engine) Subscribe(fn func(Event)) func() {
	return e.bus.subscribe(fn)
}

// Start binds the listening socket and transitions the engine to running. A
// preferredPort of 0 means no preference. Starting a running engine is a
// no-op that returns the current port.
func (e *Engine) Start(preferredPort int) (int, error) {
	e.mu.Lock()
	if e.running {
		port := e.port
		e.mu.Unlock()
		return port, nil
	}

	candidates := e.candidates
	if preferredPort > 0 {
		candidates = append([]int{preferredPort}, candidates...)
	}
	port, err := findOpenPort(candidates)
	if err != nil {
		e.mu.Unlock()
		err = fmt.Errorf("%w: %v", ErrBindFailed, err)
		e.publishError(err)
		return 0, err
	}

	// The probe freed the port before we rebind it, so another process can
	// still win the race. That is a hard failure, not a retry.
	ln, err := net.Listen("tcp", net.JoinHostPort(loopbackHost, strconv.Itoa(port)))
	if err != nil {
		e.mu.Unlock()
		err = fmt.Errorf("%w: port %d: %v", ErrBindFailed, port, err)
		e.publishError(err)
		return 0, err
	}

	srv := &http.Server{Handler: e}
	e.listener = ln
	e.server = srv
	e.port = port
	e.running = true
	e.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("proxy server error: %v", err)
			e.publishError(err)
		}
	}()

	e.bus.publish(Event{Type: EventStarted})
	return port, nil
}

// Stop closes the listening socket, waiting for in-flight requests to drain,
// and clears the route registry. Open upgrade tunnels are not torn down; they
// finish on their own. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	srv := e.server
	e.running = false
	e.port = 0
	e.listener = nil
	e.server = nil
	e.registry.clear()
	e.forwarder.reset()
	e.mu.Unlock()

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Printf("proxy shutdown: %v", err)
	}
	e.bus.publish(Event{Type: EventStopped})
	return nil
}

// AddRoute registers name -> targetHost:targetPort. A stopped engine is
// started first with no port preference, so a route add never fails merely
// because the proxy wasn't running yet. The route's URL embeds the listening
// port at creation time and is not recomputed.
func (e *Engine) AddRoute(name string, targetPort int, opts RouteOptions) (Route, error) {
	port, err := e.Start(0)
	if err != nil {
		return Route{}, err
	}

	url := fmt.Sprintf("http://%s.localhost:%d", name, port)
	rt, err := e.registry.add(name, opts.TargetHost, targetPort, opts.TaskID, url)
	if err != nil {
		return Route{}, err
	}
	log.Printf("registered route %s -> %s:%d", name, rt.TargetHost, rt.TargetPort)
	e.bus.publish(Event{Type: EventRouteAdded, Route: &rt})
	return rt, nil
}

// RemoveRoute deletes the named route, reporting whether it existed.
// Removing an absent route is a no-op.
func (e *Engine) RemoveRoute(name string) bool {
	rt, ok := e.registry.remove(name)
	if !ok {
		return false
	}
	e.forwarder.drop(name)
	log.Printf("removed route %s", name)
	e.bus.publish(Event{Type: EventRouteRemoved, Route: &rt})
	return true
}

// UpdateRouteStatus mutates the named route's status in place.
func (e *Engine) UpdateRouteStatus(name string, status Status) bool {
	rt, ok := e.registry.updateStatus(name, status)
	if !ok {
		return false
	}
	e.bus.publish(Event{Type: EventRouteStatus, Route: &rt})
	return true
}

func (e *Engine) Route(name string) (Route, bool) { return e.registry.get(name) }

func (e *Engine) Routes() []Route { return e.registry.list() }

func (e *Engine) GetState() State {
	e.mu.Lock()
	running, port := e.running, e.port
	e.mu.Unlock()

	st := State{Running: running, Routes: e.registry.list()}
	if running {
		st.Port = &port
	}
	return st
}

func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, ok := routeNameFromHost(r.Host)
	if !ok {
		e.controlHandler().ServeHTTP(w, r)
		return
	}

	rt, found := e.registry.get(name)
	if !found {
		if isUpgradeRequest(r) {
			// Upgrades are socket-level; there is no framed HTTP error to
			// send, so destroy the client connection.
			abortConnection(w)
			return
		}
		http.Error(w, fmt.Sprintf("unknown route %q: no backend is registered for this host", name), http.StatusBadGateway)
		return
	}

	e.registry.touch(name)
	if isUpgradeRequest(r) {
		tunnelUpgrade(w, r, rt)
		return
	}
	e.forwarder.forward(w, r, rt)
}

func (e *Engine) controlHandler() http.Handler {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.control != nil {
		return e.control
	}
	return defaultControlHandler
}

func (e *Engine) publishError(err error) {
	e.bus.publish(Event{Type: EventError, Error: err.Error()})
}

var defaultControlHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "devport proxy: host does not name a registered route", http.StatusNotFound)
})

// routeNameFromHost extracts the route slug from a Host header value.
func routeNameFromHost(host string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimSuffix(h, ".")
	m := routeHostPattern.FindStringSubmatch(h)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isUpgradeRequest(r *http.Request) bool {
	if r.Header.Get("Upgrade") == "" {
		return false
	}
	for _, v := range r.Header.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
				return true
			}
		}
	}
	return false
}

// abortConnection tears the client connection down without writing a framed
// HTTP response.
func abortConnection(w http.ResponseWriter) {
	if hj, ok := w.(http.Hijacker); ok {
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
			return
		}
	}
	w.WriteHeader(http.StatusBadGateway)
}
