package proxy

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"sync"
	"time"
)

// forwarder handles the plain-HTTP side of proxying. It keeps one
// httputil.ReverseProxy per route so the happy path does not rebuild the
// director on every request; entries are dropped when the route is removed or
// its target changes.
type forwarder struct {
	mu    sync.Mutex
	cache map[string]*cachedProxy
}

type cachedProxy struct {
	target string
	proxy  *httputil.ReverseProxy
}

func newForwarder() *forwarder {
	return &forwarder{cache: map[string]*cachedProxy{}}
}

func (f *forwarder) forward(w http.ResponseWriter, r *http.Request, rt Route) {
	f.proxyFor(rt).ServeHTTP(w, r)
}

func (f *forwarder) proxyFor(rt Route) *httputil.ReverseProxy {
	target := net.JoinHostPort(rt.TargetHost, strconv.Itoa(rt.TargetPort))

	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cache[rt.Name]; ok && cached.target == target {
		return cached.proxy
	}
	proxy := buildReverseProxy(target)
	f.cache[rt.Name] = &cachedProxy{target: target, proxy: proxy}
	return proxy
}

func (f *forwarder) drop(name string) {
	f.mu.Lock()
	delete(f.cache, name)
	f.mu.Unlock()
}

func (f *forwarder) reset() {
	f.mu.Lock()
	f.cache = map[string]*cachedProxy{}
	f.mu.Unlock()
}

// buildReverseProxy streams a request to target and the response back. The
// Host header is rewritten to the backend address; method, path, query and
// the remaining headers pass through untouched, as do response status,
// headers, and body. If the backend fails before anything was written the
// client gets a 502 naming the reason; after the response has started the
// connection is simply torn down, since a partial response is not recoverable.
func buildReverseProxy(target string) *httputil.ReverseProxy {
	director := func(req *http.Request) {
		req.URL.Scheme = "http"
		req.URL.Host = target
		req.Host = target
	}
	return &httputil.ReverseProxy{
		Director:      director,
		FlushInterval: 50 * time.Millisecond,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, fmt.Sprintf("upstream %s unavailable: %v", target, err), http.StatusBadGateway)
		},
	}
}
