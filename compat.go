// compat.go
package nucleo

import (
	"net/http"
	"strings"
	"sync"
)

// httpRouter is the Compat bridge onto raw net/http handlers and
// standard http.Handler-shaped middleware. It is consulted by
// Router.ServeHTTP only after the compiled route tables miss, so FFI
// routes always take precedence.
type httpRouter struct {
	r *Router

	mu       sync.RWMutex
	mux      *http.ServeMux
	methods  map[string]map[string]http.Handler // path -> method -> handler
	stdChain []func(http.Handler) http.Handler
}

func (h *httpRouter) ensure() {
	if h.mux == nil {
		h.mux = http.NewServeMux()
		h.methods = make(map[string]map[string]http.Handler)
	}
}

// Handle registers handler for all methods at path.
func (h *httpRouter) Handle(path string, handler http.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensure()
	full := h.r.fullPath(path)
	h.mux.Handle(full, handler)
}

// HandleMethod registers handler for one specific method at path,
// replying 405 for any other method at the same path.
func (h *httpRouter) HandleMethod(method, path string, handler http.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensure()
	full := h.r.fullPath(path)
	if h.methods[full] == nil {
		h.methods[full] = make(map[string]http.Handler)
		h.mux.HandleFunc(full, func(w http.ResponseWriter, req *http.Request) {
			h.mu.RLock()
			byMethod := h.methods[full]
			hh, ok := byMethod[req.Method]
			h.mu.RUnlock()
			if !ok {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			hh.ServeHTTP(w, req)
		})
	}
	h.methods[full][method] = handler
}

// Mount registers handler as a catch-all at prefix (dropping the
// prefix before delegating, like http.StripPrefix).
func (h *httpRouter) Mount(prefix string, handler http.Handler) {
	full := h.r.fullPath(prefix)
	stripped := http.StripPrefix(strings.TrimSuffix(full, "/"), handler)
	h.Handle(full, stripped)
	if !strings.HasSuffix(full, "/") {
		h.Handle(full+"/", stripped)
	}
}

// Use appends a standard http.Handler-shaped middleware to the Compat
// chain; it wraps every Compat-registered handler, not the compiled
// route tables.
func (h *httpRouter) Use(mw func(http.Handler) http.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stdChain = append(h.stdChain, mw)
}

// Group mirrors Router.Group for the Compat surface.
func (h *httpRouter) Group(prefix string, fn func(g *httpRouter)) {
	sub := &httpRouter{r: h.r.Prefix(prefix)}
	fn(sub)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ensure()
	sub.mu.RLock()
	if sub.mux != nil {
		h.mux.Handle(sub.r.base+"/", http.StripPrefix("", sub))
	}
	sub.mu.RUnlock()
}

func (h *httpRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.serveHTTP(w, req)
}

// serveHTTP reports whether it handled the request at all (a registered
// pattern matched), so the caller can fall through to 404 otherwise.
func (h *httpRouter) serveHTTP(w http.ResponseWriter, req *http.Request) bool {
	h.mu.RLock()
	mux := h.mux
	chain := append([]func(http.Handler) http.Handler{}, h.stdChain...)
	h.mu.RUnlock()

	if mux == nil {
		return false
	}

	_, pattern := mux.Handler(req)
	if pattern == "" {
		return false
	}

	var final http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}
	final.ServeHTTP(w, req)
	return true
}
