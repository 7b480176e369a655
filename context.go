// context.go
package nucleo

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	fastjson "github.com/segmentio/encoding/json"
)

// Handler is a request handler bound to a Ctx.
type Handler func(c *Ctx) error

// Middleware wraps a Handler to produce another Handler.
type Middleware func(next Handler) Handler

// Ctx carries one request/response pair through the middleware chain and
// into a Handler. It is not safe for use after the handler returns.
type Ctx struct {
	w   http.ResponseWriter
	req *http.Request
	rc  *http.ResponseController

	router *Router
	log    *slog.Logger

	status      int
	wroteStatus bool

	params map[string]string
}

func newCtx(w http.ResponseWriter, req *http.Request, log *slog.Logger) *Ctx {
	return &Ctx{
		w:      w,
		req:    req,
		rc:     http.NewResponseController(w),
		log:    log,
		status: http.StatusOK,
	}
}

// Request returns the underlying *http.Request.
func (c *Ctx) Request() *http.Request { return c.req }

// Writer returns the underlying http.ResponseWriter.
func (c *Ctx) Writer() http.ResponseWriter { return c.w }

// Response is an alias for Writer kept for call-site compatibility.
func (c *Ctx) Response() http.ResponseWriter { return c.w }

// Header returns the response header map.
func (c *Ctx) Header() http.Header { return c.w.Header() }

// Context returns the request's context.Context.
func (c *Ctx) Context() context.Context {
	if c.req == nil {
		return context.Background()
	}
	return c.req.Context()
}

// Logger returns the per-request logger, falling back to slog.Default.
func (c *Ctx) Logger() *slog.Logger {
	if c.log != nil {
		return c.log
	}
	return defaultLogger()
}

// StatusCode returns the status set via Status() or by the last
// JSON/HTML/Text/Bytes/File call, defaulting to 200.
func (c *Ctx) StatusCode() int { return c.status }

// Status records the status code that Write/WriteString/JSON/... will
// use; it does not itself write to the wire.
func (c *Ctx) Status(code int) *Ctx {
	c.status = code
	return c
}

// Param returns a captured path parameter, checking the router-assigned
// params map before falling back to the stdlib PathValue (for routes
// mounted through Compat).
func (c *Ctx) Param(name string) string {
	if v, ok := c.params[name]; ok {
		return v
	}
	if c.req != nil {
		return c.req.PathValue(name)
	}
	return ""
}

// Query returns the first value of a query parameter.
func (c *Ctx) Query(name string) string {
	if c.req == nil || c.req.URL == nil {
		return ""
	}
	return c.req.URL.Query().Get(name)
}

// QueryValues returns the full parsed query string.
func (c *Ctx) QueryValues() url.Values {
	if c.req == nil || c.req.URL == nil {
		return url.Values{}
	}
	return c.req.URL.Query()
}

// Form parses and returns application/x-www-form-urlencoded (and query)
// values.
func (c *Ctx) Form() (url.Values, error) {
	if err := c.req.ParseForm(); err != nil {
		return nil, err
	}
	return c.req.Form, nil
}

// MultipartForm parses a multipart form with the given memory limit and
// returns a cleanup func that removes any temp files.
func (c *Ctx) MultipartForm(maxMemory int64) (*multipart.Form, func(), error) {
	if err := c.req.ParseMultipartForm(maxMemory); err != nil {
		return nil, func() {}, err
	}
	form := c.req.MultipartForm
	return form, func() {
		if form != nil {
			_ = form.RemoveAll()
		}
	}, nil
}

// Cookie returns a named request cookie.
func (c *Ctx) Cookie(name string) (*http.Cookie, error) {
	return c.req.Cookie(name)
}

// SetCookie appends a Set-Cookie response header.
func (c *Ctx) SetCookie(cookie *http.Cookie) {
	http.SetCookie(c.w, cookie)
}

// Bind decodes the request body as JSON into v, rejecting unknown
// fields and trailing data. maxBytes <= 0 means no limit.
func (c *Ctx) Bind(v any, maxBytes int64) error {
	body := c.req.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(c.w, body, maxBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("nucleo: trailing data after JSON value")
	}
	return nil
}

// NoContent writes a 204 with no body.
func (c *Ctx) NoContent() error {
	c.w.WriteHeader(http.StatusNoContent)
	return nil
}

// Redirect writes a redirect response; code 0 defaults to 302.
func (c *Ctx) Redirect(code int, target string) error {
	if code == 0 {
		code = http.StatusFound
	}
	http.Redirect(c.w, c.req, target, code)
	return nil
}

// JSON marshals v with the fast segmentio codec and writes it.
func (c *Ctx) JSON(code int, v any) error {
	body, err := fastjson.Marshal(v)
	if err != nil {
		return err
	}
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	c.status = code
	c.w.WriteHeader(code)
	_, err = c.w.Write(body)
	return err
}

// HTML writes an HTML body.
func (c *Ctx) HTML(code int, html string) error {
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	c.status = code
	c.w.WriteHeader(code)
	_, err := io.WriteString(c.w, html)
	return err
}

// Text writes a plain-text body; invalid UTF-8 is served as
// application/octet-stream instead.
func (c *Ctx) Text(code int, s string) error {
	if c.Header().Get("Content-Type") == "" {
		if utf8.ValidString(s) {
			c.Header().Set("Content-Type", "text/plain; charset=utf-8")
		} else {
			c.Header().Set("Content-Type", "application/octet-stream")
		}
	}
	c.status = code
	c.w.WriteHeader(code)
	_, err := io.WriteString(c.w, s)
	return err
}

// Bytes writes a raw byte body with an explicit (or default) content type.
func (c *Ctx) Bytes(code int, body []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", contentType)
	}
	c.status = code
	c.w.WriteHeader(code)
	_, err := c.w.Write(body)
	return err
}

// Write implements io.Writer, honoring Status() on first write.
func (c *Ctx) Write(p []byte) (int, error) {
	if !c.wroteStatus {
		c.w.WriteHeader(c.status)
		c.wroteStatus = true
	}
	return c.w.Write(p)
}

// WriteString writes s, honoring Status() on first write.
func (c *Ctx) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// Stream invokes fn with the response writer, propagating any error.
func (c *Ctx) Stream(fn func(w io.Writer) error) error {
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "application/octet-stream")
	}
	c.w.WriteHeader(c.status)
	return fn(c.w)
}

// SSE streams values from ch as Server-Sent Events until ch closes or
// the request context is canceled.
func (c *Ctx) SSE(ch <-chan any) error {
	flusher, ok := c.w.(http.Flusher)
	if !ok {
		return errors.New("nucleo: response writer does not support flushing")
	}

	c.Header().Set("Content-Type", "text/event-stream")
	c.Header().Set("Cache-Control", "no-cache")
	c.Header().Set("Connection", "keep-alive")
	c.w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-c.Context().Done():
			return c.Context().Err()
		case v, open := <-ch:
			if !open {
				_, _ = io.WriteString(c.w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return nil
			}
			body, err := fastjson.Marshal(v)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}

// Flush flushes the response writer if it supports it.
func (c *Ctx) Flush() {
	if f, ok := c.w.(http.Flusher); ok {
		f.Flush()
	}
}

// SetWriter swaps the response writer, rebuilding the ResponseController.
func (c *Ctx) SetWriter(w http.ResponseWriter) {
	c.w = w
	c.rc = http.NewResponseController(w)
}

// SetWriteDeadline delegates to the underlying ResponseController.
func (c *Ctx) SetWriteDeadline(t time.Time) error {
	return c.rc.SetWriteDeadline(t)
}

// EnableFullDuplex delegates to the underlying ResponseController.
func (c *Ctx) EnableFullDuplex() error {
	return c.rc.EnableFullDuplex()
}

// Hijack takes over the connection if the underlying writer supports it.
func (c *Ctx) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := c.w.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("nucleo: response writer does not support hijacking")
	}
	return hj.Hijack()
}
