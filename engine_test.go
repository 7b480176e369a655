// engine_test.go
package nucleo

import "testing"

func newCore() *routerCore {
	return &routerCore{tables: make(map[Method]*methodTable)}
}

func staticRoute(method Method, path string) *CompiledRoute {
	return &CompiledRoute{Method: method, Path: path, Segments: splitSegments(path)}
}

// P1: every registered static route is found with empty params.
func TestRouterCore_StaticRoute_P1(t *testing.T) {
	core := newCore()
	route := staticRoute(MethodGet, "/health")
	if err := core.insert(route); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, params, ok := core.find(MethodGet, "/health")
	if !ok || got != route {
		t.Fatalf("expected static route hit, got ok=%v route=%v", ok, got)
	}
	if len(params) != 0 {
		t.Fatalf("expected empty params, got %v", params)
	}
}

// P2: parametric routes capture a named param per :name segment.
func TestRouterCore_ParametricRoute_P2(t *testing.T) {
	core := newCore()
	route := staticRoute(MethodGet, "/users/:id/posts/:postId")
	if err := core.insert(route); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, params, ok := core.find(MethodGet, "/users/42/posts/7")
	if !ok || got != route {
		t.Fatalf("expected parametric route hit, got ok=%v", ok)
	}
	if params["id"] != "42" || params["postId"] != "7" {
		t.Fatalf("unexpected params: %v", params)
	}
}

// P3: a static route wins over a dynamic route that would also match.
func TestRouterCore_StaticBeatsDynamic_P3(t *testing.T) {
	core := newCore()
	dyn := staticRoute(MethodGet, "/users/:id")
	stat := staticRoute(MethodGet, "/users/me")
	if err := core.insert(dyn); err != nil {
		t.Fatalf("insert dyn: %v", err)
	}
	if err := core.insert(stat); err != nil {
		t.Fatalf("insert static: %v", err)
	}

	got, params, ok := core.find(MethodGet, "/users/me")
	if !ok || got != stat {
		t.Fatalf("expected static route to win, got %v", got)
	}
	if len(params) != 0 {
		t.Fatalf("expected no captured params on static hit, got %v", params)
	}
}

func TestRouterCore_LiteralBeatsParamAtSameDepth(t *testing.T) {
	core := newCore()
	param := staticRoute(MethodGet, "/a/:x/c")
	literal := staticRoute(MethodGet, "/a/b/:y")
	if err := core.insert(param); err != nil {
		t.Fatalf("insert param: %v", err)
	}
	if err := core.insert(literal); err != nil {
		t.Fatalf("insert literal: %v", err)
	}

	// "/a/b/c" matches both: param-route via {x:"b"} then literal "c", or
	// literal-route via "b" then {y:"c"}. The literal child is preferred
	// at each depth, so literal "/a/b/:y" wins and captures y=c.
	got, params, ok := core.find(MethodGet, "/a/b/c")
	if !ok || got != literal {
		t.Fatalf("expected literal-preferring match, got %v", got)
	}
	if params["y"] != "c" {
		t.Fatalf("expected y=c, got %v", params)
	}
}

func TestRouterCore_WildcardMatchesRemainder(t *testing.T) {
	core := newCore()
	route := staticRoute(MethodGet, "/static/*")
	if err := core.insert(route); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, _, ok := core.find(MethodGet, "/static/a.txt"); !ok {
		t.Fatalf("expected wildcard route to match")
	}
}

func TestRouterCore_UnknownMethodOrPath_Miss(t *testing.T) {
	core := newCore()
	if err := core.insert(staticRoute(MethodGet, "/x")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, _, ok := core.find(MethodPost, "/x"); ok {
		t.Fatalf("expected miss for unregistered method")
	}
	if _, _, ok := core.find(MethodGet, "/y"); ok {
		t.Fatalf("expected miss for unregistered path")
	}
}

func TestRouterCore_DuplicateStaticPattern_Conflict(t *testing.T) {
	core := newCore()
	if err := core.insert(staticRoute(MethodGet, "/dup")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := core.insert(staticRoute(MethodGet, "/dup")); err != ErrRouteConflict {
		t.Fatalf("expected ErrRouteConflict, got %v", err)
	}
}

func TestRouterCore_DuplicateDynamicPattern_Conflict(t *testing.T) {
	core := newCore()
	if err := core.insert(staticRoute(MethodGet, "/users/:id")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := core.insert(staticRoute(MethodGet, "/users/:other")); err != ErrRouteConflict {
		t.Fatalf("expected ErrRouteConflict for colliding capture pattern, got %v", err)
	}
}
