// router_test.go
package nucleo

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func mustReq(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, target, body)
}

func ok(t *testing.T, got, want any) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func has(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("expected substring %q in %q", sub, s)
	}
}

func mwTap(name string, buf *[]string) Middleware {
	return func(next Handler) Handler {
		return func(c *Ctx) error {
			*buf = append(*buf, name)
			return next(c)
		}
	}
}

func TestJoinPathAndCleanLeading(t *testing.T) {
	ok(t, cleanLeading(""), "/")
	ok(t, cleanLeading("x"), "/x")
	ok(t, cleanLeading("/x"), "/x")

	ok(t, joinPath("", ""), "/")
	ok(t, joinPath("", "/"), "/")
	ok(t, joinPath("/", "api"), "/api")
	ok(t, joinPath("/api", "v1"), "/api/v1")
	ok(t, joinPath("/api/", "/v1/"), "/api/v1")
	ok(t, joinPath("/api", "/"), "/api")
	ok(t, joinPath("/api", ""), "/api")
}

func TestFullPath(t *testing.T) {
	r := NewRouter()
	ok(t, r.fullPath(""), "/")
	ok(t, r.fullPath("/"), "/")
	ok(t, r.fullPath("x"), "/x")

	r.base = "/api"
	ok(t, r.fullPath("/ping"), "/api/ping")
	ok(t, r.fullPath("ping"), "/api/ping")
	ok(t, r.fullPath("/"), "/api")
}

func TestServeHTTP_RunsGlobalChainAndRoutes(t *testing.T) {
	r := NewRouter()

	var order []string
	r.Use(mwTap("g1", &order), mwTap("g2", &order))

	r.Get("/ok", func(c *Ctx) error {
		order = append(order, "handler")
		c.Writer().WriteHeader(http.StatusOK)
		_, _ = c.Writer().Write([]byte("hi"))
		return nil
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/ok", nil))

	ok(t, rr.Code, http.StatusOK)
	ok(t, rr.Body.String(), "hi")

	joined := strings.Join(order, ",")
	has(t, joined, "g1")
	has(t, joined, "g2")
	has(t, joined, "handler")

	i1 := strings.Index(joined, "g1")
	i2 := strings.Index(joined, "g2")
	ih := strings.Index(joined, "handler")
	if i1 < 0 || i2 < 0 || ih < 0 || i1 >= ih || i2 >= ih {
		t.Fatalf("expected g1/g2 before handler, got %v", order)
	}
}

func TestHandle_MethodPatterns(t *testing.T) {
	r := NewRouter()

	r.Get("/same", func(c *Ctx) error {
		_, _ = c.Writer().Write([]byte("GET"))
		return nil
	})
	r.Post("/same", func(c *Ctx) error {
		_, _ = c.Writer().Write([]byte("POST"))
		return nil
	})

	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/same", nil))
		ok(t, rr.Code, http.StatusOK)
		ok(t, rr.Body.String(), "GET")
	}
	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodPost, "http://example/same", bytes.NewBufferString("x")))
		ok(t, rr.Code, http.StatusOK)
		ok(t, rr.Body.String(), "POST")
	}
}

func TestPrefix_Group_With_ScopedMiddleware(t *testing.T) {
	r := NewRouter()

	var got []string
	r.Use(mwTap("global", &got))

	api := r.Prefix("/api")
	apiV1 := api.With(mwTap("scoped", &got))
	apiV1.Get("/ping", func(c *Ctx) error {
		got = append(got, "handler")
		_, _ = c.Writer().Write([]byte("pong"))
		return nil
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/api/ping", nil))
	ok(t, rr.Code, http.StatusOK)
	ok(t, rr.Body.String(), "pong")

	joined := strings.Join(got, ",")
	has(t, joined, "global")
	has(t, joined, "scoped")
	has(t, joined, "handler")

	ig := strings.Index(joined, "global")
	is := strings.Index(joined, "scoped")
	ih := strings.Index(joined, "handler")
	if ig < 0 || is < 0 || ih < 0 || ig >= ih || is >= ih {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestParametricRoute_CapturesParams(t *testing.T) {
	r := NewRouter()
	r.Get("/users/:id", func(c *Ctx) error {
		return c.Text(200, c.Param("id"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/users/42", nil))
	ok(t, rr.Code, http.StatusOK)
	ok(t, rr.Body.String(), "42")
}

func TestStaticRoute_WinsOverParametric(t *testing.T) {
	r := NewRouter()
	r.Get("/users/:id", func(c *Ctx) error { return c.Text(200, "dynamic") })
	r.Get("/users/me", func(c *Ctx) error { return c.Text(200, "static") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/users/me", nil))
	ok(t, rr.Body.String(), "static")
}

func TestErrorHandling_Default500(t *testing.T) {
	r := NewRouter()
	r.Get("/err", func(c *Ctx) error {
		return errors.New("boom")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/err", nil))

	ok(t, rr.Code, http.StatusInternalServerError)
	has(t, rr.Body.String(), http.StatusText(http.StatusInternalServerError))
}

func TestErrorHandling_CustomErrorHandler(t *testing.T) {
	r := NewRouter()

	var called atomic.Bool
	r.ErrorHandler(func(c *Ctx, err error) {
		called.Store(true)
		c.Writer().WriteHeader(499)
		_, _ = c.Writer().Write([]byte("custom"))
	})

	r.Get("/err", func(c *Ctx) error { return errors.New("x") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/err", nil))

	if !called.Load() {
		t.Fatalf("expected error handler called")
	}
	ok(t, rr.Code, 499)
	ok(t, rr.Body.String(), "custom")
}

func TestPanicRecovery_CustomErrorHandlerReceivesPanicError(t *testing.T) {
	r := NewRouter()

	var saw atomic.Bool
	r.ErrorHandler(func(c *Ctx, err error) {
		var pe *PanicError
		if errors.As(err, &pe) && pe != nil && len(pe.Stack) > 0 {
			saw.Store(true)
		}
		c.Writer().WriteHeader(599)
	})

	r.Get("/panic", func(c *Ctx) error {
		panic("x")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/panic", nil))

	if !saw.Load() {
		t.Fatalf("expected PanicError with stack")
	}
	ok(t, rr.Code, 599)
}

func TestStatic_ServesFiles_AndRedirects(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := NewRouter()
	r.Static("/assets", http.FS(os.DirFS(dir)))

	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/assets", nil))
		ok(t, rr.Code, http.StatusMovedPermanently)
		ok(t, rr.Header().Get("Location"), "/assets/")
	}
	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/assets/hello.txt", nil))
		ok(t, rr.Code, http.StatusOK)
		ok(t, rr.Body.String(), "hello")
	}
}

func TestCompat_Handle_Mount_AndHandleMethod(t *testing.T) {
	r := NewRouter()

	r.Compat.Handle("/plain", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Plain", "1")
		w.WriteHeader(204)
	}))

	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/plain", nil))
		ok(t, rr.Code, 204)
		ok(t, rr.Header().Get("X-Plain"), "1")
	}

	r.Compat.HandleMethod(http.MethodPost, "/m", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(201)
	}))

	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodPost, "http://example/m", nil))
		ok(t, rr.Code, 201)
	}
	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/m", nil))
		ok(t, rr.Code, http.StatusMethodNotAllowed)
	}

	r.Compat.Mount("/mount", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(202)
	}))
	{
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/mount", nil))
		ok(t, rr.Code, 202)
	}
}

func TestCompat_Use_StdMiddleware_Bridge(t *testing.T) {
	r := NewRouter()

	stdMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Std", "1")
			next.ServeHTTP(w, req)
		})
	}

	r.Compat.Use(stdMW)
	r.Compat.Handle("/ok", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/ok", nil))
	ok(t, rr.Code, http.StatusOK)
	ok(t, rr.Header().Get("X-Std"), "1")
	ok(t, rr.Body.String(), "ok")
}

func TestUseAndSetLogger_NonNil(t *testing.T) {
	r := NewRouter()
	if r.Logger() == nil {
		t.Fatalf("expected logger")
	}

	old := r.Logger()
	r.SetLogger(nil)
	if r.Logger() != old {
		t.Fatalf("expected logger unchanged")
	}
}

func TestAddRoute_FullStaticStrategy(t *testing.T) {
	r := NewRouter()
	staticJSON := []byte(`{"type":"full_static","status":201,"body":"aGk="}`)
	err := r.AddRoute(Route{Method: MethodGet, Path: "/static", StaticResponseJSON: staticJSON})
	if err != nil {
		t.Fatalf("AddRoute: %v", err)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/static", nil))
	ok(t, rr.Code, 201)
	ok(t, rr.Body.String(), "hi")
}

func TestAddRoute_ConflictingPatternFails(t *testing.T) {
	r := NewRouter()
	if err := r.AddRoute(Route{Method: MethodGet, Path: "/dup"}); err != nil {
		t.Fatalf("first AddRoute: %v", err)
	}
	if err := r.AddRoute(Route{Method: MethodGet, Path: "/dup"}); err == nil {
		t.Fatalf("expected conflict error on duplicate route")
	}
}

// TestErrorOutcomes_LoggedByDefault asserts that 404s and handler errors
// both emit a structured log line through the router's own logger even
// when Logger middleware is never installed.
func TestErrorOutcomes_LoggedByDefault(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter()
	r.SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	r.Get("/boom", func(c *Ctx) error {
		return errors.New("kaboom")
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/missing", nil))
	ok(t, rr.Code, http.StatusNotFound)
	has(t, buf.String(), `"status":404`)

	buf.Reset()
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/boom", nil))
	ok(t, rr.Code, http.StatusInternalServerError)
	has(t, buf.String(), `"status":500`)
	has(t, buf.String(), "kaboom")
}

// TestErrorOutcomes_FFIPathLogsValidationAndSilence exercises the
// FFI-compiled route path (AddRoute, not Get/Post/...), which bypasses
// Go-native middleware composition entirely, to confirm validation
// failures and handler silence are still logged through it.
func TestErrorOutcomes_FFIPathLogsValidationAndSilence(t *testing.T) {
	var buf bytes.Buffer
	r := NewRouter()
	r.SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	bodySchema := []byte(`{"body":{"type":"object","shape":{"name":{"type":"string"}}}}`)
	if err := r.AddRoute(Route{
		Method:     MethodPost,
		Path:       "/validated",
		SchemaJSON: bodySchema,
		Handler:    HandlerTokenFunc(func(req *RequestCore, resp *ResponseChannel) { _ = resp.Complete(200, nil, []byte("ok")) }),
	}); err != nil {
		t.Fatalf("AddRoute: %v", err)
	}
	if err := r.AddRoute(Route{
		Method:  MethodGet,
		Path:    "/silent",
		Handler: HandlerTokenFunc(func(req *RequestCore, resp *ResponseChannel) { resp.Close() }),
	}); err != nil {
		t.Fatalf("AddRoute: %v", err)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodPost, "http://example/validated", strings.NewReader(`{}`)))
	ok(t, rr.Code, http.StatusBadRequest)
	has(t, buf.String(), "validation failure")

	buf.Reset()
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, mustReq(t, http.MethodGet, "http://example/silent", nil))
	ok(t, rr.Code, http.StatusOK)
	has(t, buf.String(), "handler silence")
}
