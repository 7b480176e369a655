// router.go
package nucleo

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"
)

// PanicError wraps a recovered panic with the goroutine stack captured
// at the moment it happened.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandlerFunc handles an error returned by a Handler or recovered
// from a panic.
type ErrorHandlerFunc func(c *Ctx, err error)

func defaultErrorHandler(c *Ctx, err error) {
	c.Status(http.StatusInternalServerError)
	c.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.w.WriteHeader(http.StatusInternalServerError)
	_, _ = c.w.Write([]byte(http.StatusText(http.StatusInternalServerError)))
}

// isErrorStatus reports whether status is outside the 2xx/3xx range.
func isErrorStatus(status int) bool {
	return status < 200 || status >= 400
}

// logOutcome emits one structured log line for a non-2xx/3xx outcome, a
// handler error, or handler silence — through the router's own logger,
// independent of whether the Logger middleware is installed. Installing
// Logger additionally logs every request, at the level levelFor picks; this is the uniform
// floor the error-handling contract promises even without it.
func logOutcome(log *slog.Logger, req *http.Request, status int, dur time.Duration, err error, note string) {
	if log == nil {
		log = defaultLogger()
	}
	attrs := []slog.Attr{
		slog.Int("status", status),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Duration("duration", dur),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if note != "" {
		attrs = append(attrs, slog.String("note", note))
	}
	log.LogAttrs(req.Context(), levelFor(status, err), "request error", attrs...)
}

// routerCore holds the state shared by a Router and every Router derived
// from it via Prefix/With/Group.
type routerCore struct {
	mu      sync.RWMutex
	tables  map[Method]*methodTable

	errHandler ErrorHandlerFunc
	log        *slog.Logger

	maxBodyBytes int64
	trustProxy   bool

	compat *httpRouter
}

// Router is both the Go-facing ergonomic framework surface (Use, Get,
// Post, Prefix, Group, Static, Compat) and, through routerCore, the
// FFI-facing matching engine (CompiledRoute, ResponseStrategy, schema
// validation).
type Router struct {
	core *routerCore
	base string
	mw   []Middleware

	Compat *httpRouter
}

// NewRouter builds an empty Router with sane defaults.
func NewRouter() *Router {
	core := &routerCore{
		tables:     make(map[Method]*methodTable),
		errHandler: defaultErrorHandler,
		log:        slog.Default(),
	}
	r := &Router{core: core, base: ""}
	core.compat = &httpRouter{r: r}
	r.Compat = core.compat
	return r
}

// Logger returns the router's logger.
func (r *Router) Logger() *slog.Logger { return r.core.log }

// SetLogger replaces the router's logger; passing nil is a no-op.
func (r *Router) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	r.core.mu.Lock()
	defer r.core.mu.Unlock()
	r.core.log = l
}

// ErrorHandler installs a custom error/panic handler.
func (r *Router) ErrorHandler(fn ErrorHandlerFunc) {
	r.core.mu.Lock()
	defer r.core.mu.Unlock()
	r.core.errHandler = fn
}

func (r *Router) handleError(c *Ctx, err error) {
	r.core.mu.RLock()
	h := r.core.errHandler
	r.core.mu.RUnlock()
	if h == nil {
		h = defaultErrorHandler
	}
	h(c, err)
}

// SetTrustProxy controls whether X-Forwarded-* headers are honored when
// building a RequestCore.
func (r *Router) SetTrustProxy(trust bool) { r.core.trustProxy = trust }

// SetMaxBodyBytes bounds request bodies; 0 means unlimited.
func (r *Router) SetMaxBodyBytes(n int64) { r.core.maxBodyBytes = n }

// Use appends middleware to this node's chain; it affects routes
// registered on this node (or its descendants) after the call.
func (r *Router) Use(mw ...Middleware) {
	r.mw = append(r.mw, mw...)
}

// With returns a new Router sharing this one's tables but with an
// extended middleware chain.
func (r *Router) With(mw ...Middleware) *Router {
	next := &Router{core: r.core, base: r.base, Compat: r.Compat}
	next.mw = append(append([]Middleware{}, r.mw...), mw...)
	return next
}

// Prefix returns a new Router mounted under base+prefix, sharing this
// one's middleware chain snapshot at call time.
func (r *Router) Prefix(prefix string) *Router {
	next := &Router{core: r.core, base: joinPath(r.base, prefix), Compat: r.Compat}
	next.mw = append([]Middleware{}, r.mw...)
	return next
}

// Group mirrors Prefix, calling fn with the scoped sub-router.
func (r *Router) Group(prefix string, fn func(g *Router)) {
	fn(r.Prefix(prefix))
}

func cleanLeading(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

func joinPath(base, p string) string {
	base = strings.TrimRight(base, "/")
	p = cleanLeading(p)
	if p == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + p
}

func (r *Router) fullPath(p string) string { return joinPath(r.base, p) }

func (r *Router) compose(h Handler) Handler {
	for i := len(r.mw) - 1; i >= 0; i-- {
		h = r.mw[i](h)
	}
	return h
}

func (r *Router) handle(method Method, path string, h Handler) {
	composed := r.compose(h)
	full := r.fullPath(path)
	compiled := &CompiledRoute{
		Method:   method,
		Path:     full,
		Segments: splitSegments(full),
		Strategy: ResponseStrategy{Kind: StrategyDynamic, Handler: &goHandlerToken{router: r, handler: composed}},
	}
	if err := r.core.insert(compiled); err != nil {
		panic(err)
	}
}

func (r *Router) Get(path string, h Handler)     { r.handle(MethodGet, path, h) }
func (r *Router) Post(path string, h Handler)    { r.handle(MethodPost, path, h) }
func (r *Router) Put(path string, h Handler)     { r.handle(MethodPut, path, h) }
func (r *Router) Delete(path string, h Handler)  { r.handle(MethodDelete, path, h) }
func (r *Router) Patch(path string, h Handler)   { r.handle(MethodPatch, path, h) }
func (r *Router) Head(path string, h Handler)    { r.handle(MethodHead, path, h) }
func (r *Router) Options(path string, h Handler) { r.handle(MethodOptions, path, h) }

// AddRoute inserts an externally compiled Route: the
// FFI-facing counterpart to Get/Post/... used by ServerCore when a host
// runtime registers a route with schema_json/static_response_json and an
// opaque HandlerToken.
func (r *Router) AddRoute(route Route) error {
	route.Path = r.fullPath(route.Path)
	compiled, err := CompileRoute(route)
	if err != nil {
		return err
	}
	return r.core.insert(compiled)
}

// Static serves the contents of fsys under prefix.
func (r *Router) Static(prefix string, fsys http.FileSystem) {
	full := r.fullPath(prefix)
	stripped := strings.TrimSuffix(full, "/")
	fileServer := http.FileServer(fsys)
	handler := http.StripPrefix(stripped, fileServer)
	if stripped == "" {
		handler = fileServer
	}

	composed := r.compose(func(c *Ctx) error {
		handler.ServeHTTP(c.w, c.req)
		return nil
	})

	wildcard := strings.TrimRight(full, "/") + "/*"
	compiled := &CompiledRoute{
		Method:   MethodGet,
		Path:     wildcard,
		Segments: splitSegments(wildcard),
		Strategy: ResponseStrategy{Kind: StrategyDynamic, Handler: &goHandlerToken{router: r, handler: composed}},
	}
	_ = r.core.insert(compiled)

	headComposed := r.compose(func(c *Ctx) error {
		handler.ServeHTTP(c.w, c.req)
		return nil
	})
	compiledHead := &CompiledRoute{
		Method:   MethodHead,
		Path:     wildcard,
		Segments: splitSegments(wildcard),
		Strategy: ResponseStrategy{Kind: StrategyDynamic, Handler: &goHandlerToken{router: r, handler: headComposed}},
	}
	_ = r.core.insert(compiledHead)

	if full != "/" {
		redirectPath := full
		redirectHandler := r.compose(func(c *Ctx) error {
			http.Redirect(c.w, c.req, full+"/", http.StatusMovedPermanently)
			return nil
		})
		compiledRedirect := &CompiledRoute{
			Method:   MethodGet,
			Path:     redirectPath,
			Segments: splitSegments(redirectPath),
			Strategy: ResponseStrategy{Kind: StrategyDynamic, Handler: &goHandlerToken{router: r, handler: redirectHandler}},
		}
		_ = r.core.insert(compiledRedirect)
	}
}

// ServeHTTP implements http.Handler: it matches the request against the
// compiled route tables and drives the full request lifecycle —
// validation, handler dispatch, response assembly — recovering panics
// into a PanicError.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	route, params, ok := r.core.find(Method(req.Method), req.URL.Path)
	if !ok {
		if r.core.compat != nil && r.core.compat.serveHTTP(w, req) {
			return
		}
		writePlainError(w, http.StatusNotFound, "Not Found")
		logOutcome(r.Logger(), req, http.StatusNotFound, time.Since(start), nil, "")
		return
	}
	r.serveCompiled(w, req, route, params, start)
}

func (r *Router) serveCompiled(w http.ResponseWriter, req *http.Request, route *CompiledRoute, params map[string]string, start time.Time) {
	switch route.Strategy.Kind {
	case StrategyFullStatic:
		st := route.Strategy.Static
		for _, kv := range st.Headers {
			w.Header().Add(kv[0], kv[1])
		}
		w.WriteHeader(st.Status)
		_, _ = w.Write(st.Body)
		if isErrorStatus(st.Status) {
			logOutcome(r.Logger(), req, st.Status, time.Since(start), nil, "")
		}
		return

	case StrategyParamTemplate:
		tmpl := route.Strategy.Template
		for _, kv := range tmpl.Headers {
			w.Header().Add(kv[0], kv[1])
		}
		body := renderParamTemplate(tmpl, params)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
		return
	}

	token := route.Strategy.Handler

	defer func() {
		if rec := recover(); rec != nil {
			pe := &PanicError{Value: rec, Stack: debugStack()}
			c := newCtx(w, req, r.Logger())
			c.params = params
			r.handleError(c, pe)
			logOutcome(r.Logger(), req, c.StatusCode(), time.Since(start), pe, "recovered panic")
		}
	}()

	if g, ok := token.(*goHandlerToken); ok {
		// Native handlers invoked directly (no goroutine hop, no
		// RequestCore round trip) so panics recover onto this frame and
		// Write/WriteHeader happen on the live ResponseWriter.
		ctx := newCtx(w, req, r.Logger())
		ctx.params = params
		if err := g.handler(ctx); err != nil {
			r.handleError(ctx, err)
			logOutcome(r.Logger(), req, ctx.StatusCode(), time.Since(start), err, "")
			return
		}
		if isErrorStatus(ctx.StatusCode()) {
			logOutcome(r.Logger(), req, ctx.StatusCode(), time.Since(start), nil, "")
		}
		return
	}

	core, err := NewRequestCore(req, r.core.trustProxy, r.core.maxBodyBytes)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			writePlainError(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge))
			logOutcome(r.Logger(), req, http.StatusRequestEntityTooLarge, time.Since(start), err, "")
			return
		}
		writePlainError(w, http.StatusBadRequest, "Bad Request")
		logOutcome(r.Logger(), req, http.StatusBadRequest, time.Since(start), err, "")
		return
	}
	core.Params = params

	if verr := validateRequest(core, route.Schema); verr != nil {
		writeValidationError(w, verr)
		logOutcome(r.Logger(), req, http.StatusBadRequest, time.Since(start), verr, "validation failure")
		return
	}

	resp := dispatchToken(token, core)
	status, silent := writeChannelToHTTP(w, resp)
	switch {
	case silent:
		logOutcome(r.Logger(), req, status, time.Since(start), nil, "handler silence: closed without a response")
	case isErrorStatus(status):
		logOutcome(r.Logger(), req, status, time.Since(start), nil, "")
	}
}

func debugStack() []byte {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// writePlainError writes a bare-text error body, matching the
// "Not Found" / "Bad Request" wire contract for routing misses and
// request-parse failures.
func writePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

// writeValidationError writes the {"error":"Validation Error","message":...}
// envelope a failed params/query/headers/body check produces.
func writeValidationError(w http.ResponseWriter, verr *ValidationError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write(validationErrorBody(verr))
}

// validateRequest runs params/query/headers validation always, and body
// validation only for methods that carry a request body (POST, PUT,
// PATCH, DELETE).
func validateRequest(core *RequestCore, schema *RouteSchema) *ValidationError {
	if schema == nil {
		return nil
	}
	if schema.Params != nil {
		if _, verr := ParseParams(core.Params, schema.Params); verr != nil {
			return verr
		}
	}
	if schema.Query != nil {
		if _, verr := ParseQuery(core.QueryRaw, schema.Query); verr != nil {
			return verr
		}
	}
	if schema.Headers != nil {
		if _, verr := ParseHeaders(core.HeadersRaw, schema.Headers); verr != nil {
			return verr
		}
	}
	if schema.Body != nil {
		switch core.Method {
		case MethodPost, MethodPut, MethodPatch, MethodDelete:
			if _, verr := ParseBody(core.Body, schema.Body); verr != nil {
				return verr
			}
		}
	}
	return nil
}
