// Package control implements the proxy's own HTTP surface: the routes API,
// the lifecycle event stream, and the dashboard. It is a plain consumer of
// the engine's public operations.
package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"devport/internal/proxy"
)

// Options tweaks what the handler serves.
type Options struct {
	// Dashboard enables the HTML page at /. The API is always served.
	Dashboard bool
	// DefaultTargetHost is used for routes added without a targetHost.
	DefaultTargetHost string
}

type handlers struct {
	engine *proxy.Engine
	opts   Options
}

// NewHandler builds the control-surface router for an engine.
func NewHandler(engine *proxy.Engine, opts Options) http.Handler {
	h := &handlers{engine: engine, opts: opts}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/api/state", h.state).Methods(http.MethodGet)
	r.HandleFunc("/api/routes", h.listRoutes).Methods(http.MethodGet)
	r.HandleFunc("/api/routes", h.addRoute).Methods(http.MethodPost)
	r.HandleFunc("/api/routes/{name}", h.getRoute).Methods(http.MethodGet)
	r.HandleFunc("/api/routes/{name}", h.removeRoute).Methods(http.MethodDelete)
	r.HandleFunc("/api/routes/{name}/status", h.updateStatus).Methods(http.MethodPut)
	r.HandleFunc("/api/events", h.events).Methods(http.MethodGet)
	if opts.Dashboard {
		r.HandleFunc("/", h.dashboard).Methods(http.MethodGet)
	}
	return r
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.GetState())
}

func (h *handlers) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.engine.Routes()
	if routes == nil {
		routes = []proxy.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

type addRoutePayload struct {
	Name       string `json:"name"`
	TargetPort int    `json:"targetPort"`
	TargetHost string `json:"targetHost,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
}

func (h *handlers) addRoute(w http.ResponseWriter, r *http.Request) {
	var payload addRoutePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	host := payload.TargetHost
	if host == "" {
		host = h.opts.DefaultTargetHost
	}
	rt, err := h.engine.AddRoute(payload.Name, payload.TargetPort, proxy.RouteOptions{
		TargetHost: host,
		TaskID:     payload.TaskID,
	})
	if err != nil {
		switch {
		case errors.Is(err, proxy.ErrInvalidName), errors.Is(err, proxy.ErrInvalidPort):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, proxy.ErrDuplicateName):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}

func (h *handlers) getRoute(w http.ResponseWriter, r *http.Request) {
	rt, ok := h.engine.Route(mux.Vars(r)["name"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (h *handlers) removeRoute(w http.ResponseWriter, r *http.Request) {
	if !h.engine.RemoveRoute(mux.Vars(r)["name"]) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusPayload struct {
	Status proxy.Status `json:"status"`
}

func (h *handlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if !proxy.ValidStatus(payload.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if !h.engine.UpdateRouteStatus(mux.Vars(r)["name"], payload.Status) {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing useful left to do.
		return
	}
}
