// requestid.go
package nucleo

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDOptions configures the RequestID middleware.
type RequestIDOptions struct {
	Header    string        // defaults to "X-Request-Id"
	Generator func() string // defaults to uuid.NewString
}

// RequestID returns middleware that assigns (or propagates) a request
// id: honoring an inbound header if the caller already supplied one,
// generating one otherwise, setting it on the response, and stashing it
// in the request context for downstream handlers — independent of
// whether Logger is also installed, so a handler can read the id
// without requiring request logging.
func RequestID(opts RequestIDOptions) Middleware {
	header := opts.Header
	if header == "" {
		header = "X-Request-Id"
	}
	gen := opts.Generator
	if gen == nil {
		gen = uuid.NewString
	}

	return func(next Handler) Handler {
		return func(c *Ctx) error {
			id := c.Request().Header.Get(header)
			if id == "" {
				id = gen()
			}
			c.Header().Set(header, id)

			ctx := context.WithValue(c.Context(), requestIDKey{}, id)
			c.req = c.req.WithContext(ctx)

			return next(c)
		}
	}
}

// RequestIDFromContext returns the id RequestID stashed in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
