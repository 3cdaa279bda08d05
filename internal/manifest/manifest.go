// Package manifest loads the declarative routes file the orchestration layer
// writes, and keeps a proxy engine in sync with it.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"devport/internal/proxy"
)

// Entry declares one route.
type Entry struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
	Host string `yaml:"host,omitempty"`
	Task string `yaml:"task,omitempty"`
}

// Manifest is the routes file as a whole.
type Manifest struct {
	Routes []Entry `yaml:"routes"`
}

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m Manifest) validate() error {
	seen := map[string]struct{}{}
	var errs []error
	for _, e := range m.Routes {
		if err := proxy.ValidateName(e.Name); err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", e.Name, err))
			continue
		}
		if e.Port <= 0 {
			errs = append(errs, fmt.Errorf("route %q: port must be positive", e.Name))
		}
		if _, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("route %q: declared twice", e.Name))
		}
		seen[e.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Engine is the part of the proxy engine a syncer drives.
type Engine interface {
	AddRoute(name string, targetPort int, opts proxy.RouteOptions) (proxy.Route, error)
	RemoveRoute(name string) bool
}

// Syncer applies manifest diffs to an engine. It only ever removes routes it
// added itself, so routes registered through the API survive manifest syncs.
type Syncer struct {
	engine  Engine
	applied map[string]Entry
}

func NewSyncer(engine Engine) *Syncer {
	return &Syncer{engine: engine, applied: map[string]Entry{}}
}

// Apply reconciles the engine with m: routes that disappeared from the
// manifest are removed, new ones added, changed ones replaced. Partial
// failures are joined into one error; the successfully applied entries stand.
func (s *Syncer) Apply(m Manifest) error {
	next := make(map[string]Entry, len(m.Routes))
	for _, e := range m.Routes {
		next[e.Name] = e
	}

	for name, prev := range s.applied {
		if cur, ok := next[name]; ok && cur == prev {
			continue
		}
		s.engine.RemoveRoute(name)
		delete(s.applied, name)
	}

	var errs []error
	for _, e := range m.Routes {
		if _, ok := s.applied[e.Name]; ok {
			continue
		}
		if _, err := s.engine.AddRoute(e.Name, e.Port, proxy.RouteOptions{TargetHost: e.Host, TaskID: e.Task}); err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", e.Name, err))
			continue
		}
		s.applied[e.Name] = e
	}
	return errors.Join(errs...)
}
