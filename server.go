// server.go
package nucleo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ServerOptions is the FFI-facing configuration handed to NewServerCore.
// UnixSocket takes precedence over Port/Host when set.
type ServerOptions struct {
	Port       *int
	Host       *string
	UnixSocket *string

	TrustProxy     bool
	MaxRequestSize *int64
	Timeout        *time.Duration
	ReusePort      bool
}

const (
	defaultHost = "0.0.0.0"
	defaultPort = 3000
)

// ServerCore owns the listening socket (TCP or Unix domain), the accept
// loop, and the compiled route table a host runtime registers routes
// into. It is the FFI-facing counterpart to Router: AddRoute installs a
// Route compiled from schema_json/static_response_json, and ServeHTTP
// (via Router) drives the request lifecycle.
type ServerCore struct {
	router *Router
	opts   ServerOptions
	log    *slog.Logger

	mu         sync.Mutex
	srv        *http.Server
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

// NewServerCore builds a ServerCore from opts. The returned core has no
// listening socket until Start is called.
func NewServerCore(opts ServerOptions) *ServerCore {
	r := NewRouter()
	r.SetTrustProxy(opts.TrustProxy)
	if opts.MaxRequestSize != nil {
		r.SetMaxBodyBytes(*opts.MaxRequestSize)
	}
	return &ServerCore{router: r, opts: opts, log: r.Logger()}
}

// Router exposes the underlying Router for Go-native route registration
// (Get/Post/Static/...) alongside AddRoute's FFI path.
func (s *ServerCore) Router() *Router { return s.router }

// AddRoute compiles route and inserts it into the route table. Safe to
// call before Start; calling after Start is serialized by the router's
// own read-mostly lock and is not observed mid-request.
func (s *ServerCore) AddRoute(route Route) error {
	return s.router.AddRoute(route)
}

func (s *ServerCore) unixSocketPath() (string, bool) {
	if s.opts.UnixSocket != nil && *s.opts.UnixSocket != "" {
		return *s.opts.UnixSocket, true
	}
	return "", false
}

func (s *ServerCore) listen() (net.Listener, error) {
	if path, ok := s.unixSocketPath(); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale unix socket: %w", err)
		}
		return net.Listen("unix", path)
	}

	host := defaultHost
	if s.opts.Host != nil {
		host = *s.opts.Host
	}
	port := defaultPort
	if s.opts.Port != nil {
		port = *s.opts.Port
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	lc := net.ListenConfig{}
	if s.opts.ReusePort {
		lc.Control = reusePortControl(s.log)
	}
	return lc.Listen(context.Background(), "tcp", addr)
}

// Start binds the listener, invokes ready non-blocking if provided, and
// serves HTTP/1.1 requests until Close is called. It blocks until the
// accept loop and shutdown listener both exit.
func (s *ServerCore) Start(ready func()) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{Handler: s.router}
	if s.opts.Timeout != nil {
		s.srv.IdleTimeout = *s.opts.Timeout
	}
	shutdownCh := make(chan struct{})
	s.shutdownCh = shutdownCh
	srv := s.srv
	s.mu.Unlock()

	if ready != nil {
		go ready()
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-shutdownCh:
			return srv.Shutdown(context.Background())
		case <-gctx.Done():
			return nil
		}
	})

	err = g.Wait()
	if path, ok := s.unixSocketPath(); ok {
		_ = os.Remove(path)
	}
	return err
}

// Close raises the shutdown signal. The accept loop exits on its next
// iteration; in-flight connections are drained by http.Server.Shutdown
// rather than forcibly cancelled. Safe to call more than once.
func (s *ServerCore) Close() error {
	s.mu.Lock()
	ch := s.shutdownCh
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	s.closeOnce.Do(func() { close(ch) })
	return nil
}
