// ffi.go
package nucleo

// HandlerToken is the single crossing point between the router core and
// a registered handler, whether that handler lives in this process (a
// native Go Handler wrapped by goHandlerToken) or across the host
// boundary (an FFI-supplied implementation invoked fire-and-forget).
// Invoke must not block the caller: it either runs synchronously
// to completion (native handlers) or hands off and returns immediately,
// publishing its eventual reply on resp.
//
// Implementations must be safe to invoke from any goroutine; the core
// never invokes a token twice concurrently for the same request.
type HandlerToken interface {
	Invoke(req *RequestCore, resp *ResponseChannel)
}

// HandlerTokenFunc adapts a plain function to a HandlerToken.
type HandlerTokenFunc func(req *RequestCore, resp *ResponseChannel)

func (f HandlerTokenFunc) Invoke(req *RequestCore, resp *ResponseChannel) { f(req, resp) }

// goHandlerToken wraps a native Go Handler (the func(*Ctx) error shape
// used by Router.Get/Post/...) so it can be inserted into a
// CompiledRoute's Dynamic strategy alongside genuinely external handlers.
// It drives the same ResponseChannel state machine an external handler
// would, via channelResponseWriter.
type goHandlerToken struct {
	router  *Router
	handler Handler
}

func (t *goHandlerToken) Invoke(req *RequestCore, resp *ResponseChannel) {
	w := newChannelResponseWriter(resp)
	httpReq := requestCoreToHTTPRequest(req)
	ctx := newCtx(w, httpReq, t.router.Logger())
	ctx.params = req.Params
	defer w.finalize()

	if err := t.handler(ctx); err != nil {
		t.router.handleError(ctx, err)
	}
}
