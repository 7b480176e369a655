// errors.go
package nucleo

import "errors"

// ErrBodyTooLarge is returned by NewRequestCore when the request body
// exceeds the configured limit.
var ErrBodyTooLarge = errors.New("request body exceeds maximum size")

// ErrRouteConflict is returned by the route table insert (and so by
// Router.AddRoute) when a path pattern collides with one already
// registered for the same method.
var ErrRouteConflict = errors.New("failed to insert route: conflicting pattern")
