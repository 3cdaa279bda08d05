package proxy

import (
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"
)

const defaultTargetHost = "127.0.0.1"

var (
	ErrInvalidName   = errors.New("invalid route name")
	ErrDuplicateName = errors.New("route name already registered")
	ErrInvalidPort   = errors.New("target port must be a positive integer")

	// Route names are slugs: lowercase alphanumeric segments joined by
	// hyphens, no leading or trailing hyphen.
	routeNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// Status describes the lifecycle of the backend a route points at. It is
// informational: forwarding does not consult it.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusStarting, StatusRunning, StatusStopped, StatusError:
		return true
	}
	return false
}

// Route is one registered name -> backend mapping. Routes are plain records:
// they do not own sockets or backend connections.
type Route struct {
	Name         string     `json:"name"`
	TargetHost   string     `json:"targetHost"`
	TargetPort   int        `json:"targetPort"`
	Status       Status     `json:"status"`
	TaskID       string     `json:"taskId,omitempty"`
	URL          string     `json:"url"`
	RegisteredAt time.Time  `json:"registeredAt"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
}

// ValidateName reports whether name matches the slug grammar.
func ValidateName(name string) error {
	if !routeNamePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// registry stores the named route mappings. The engine is its sole writer.
type registry struct {
	mu     sync.RWMutex
	routes map[string]*Route
}

func newRegistry() *registry {
	return &registry{routes: map[string]*Route{}}
}

func (g *registry) add(name, targetHost string, targetPort int, taskID, url string) (Route, error) {
	if err := ValidateName(name); err != nil {
		return Route{}, err
	}
	if targetPort <= 0 {
		return Route{}, ErrInvalidPort
	}
	if targetHost == "" {
		targetHost = defaultTargetHost
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.routes[name]; ok {
		return Route{}, ErrDuplicateName
	}
	rt := &Route{
		Name:         name,
		TargetHost:   targetHost,
		TargetPort:   targetPort,
		Status:       StatusRunning,
		TaskID:       taskID,
		URL:          url,
		RegisteredAt: time.Now(),
	}
	g.routes[name] = rt
	return *rt, nil
}

func (g *registry) remove(name string) (Route, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rt, ok := g.routes[name]
	if !ok {
		return Route{}, false
	}
	delete(g.routes, name)
	return *rt, true
}

func (g *registry) updateStatus(name string, status Status) (Route, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rt, ok := g.routes[name]
	if !ok {
		return Route{}, false
	}
	rt.Status = status
	return *rt, true
}

func (g *registry) touch(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rt, ok := g.routes[name]; ok {
		now := time.Now()
		rt.LastAccessed = &now
	}
}

func (g *registry) get(name string) (Route, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rt, ok := g.routes[name]
	if !ok {
		return Route{}, false
	}
	return *rt, true
}

// list returns routes in registration order; ties break on name so the
// ordering is stable for display.
func (g *registry) list() []Route {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Route, 0, len(g.routes))
	for _, rt := range g.routes {
		out = append(out, *rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (g *registry) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes = map[string]*Route{}
}
