// logger.go
package nucleo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LoggerMode selects the Logger middleware's output handler.
type LoggerMode int

const (
	// Auto picks Dev when Output is a terminal, Prod otherwise.
	Auto LoggerMode = iota
	Prod
	Dev
)

// TraceExtractor pulls a distributed-trace id/span/sampled triple out of
// a request context, e.g. from an OpenTelemetry span.
type TraceExtractor func(ctx context.Context) (traceID, spanID string, sampled bool)

// LoggerOptions configures the Logger middleware.
type LoggerOptions struct {
	Mode   LoggerMode
	Output io.Writer // defaults to os.Stdout
	Logger *slog.Logger // explicit logger; replaces Output and the Mode's handler (Mode Dev still adds latency_human)

	Color *bool // nil defers to FORCE_COLOR/NO_COLOR/TERM detection

	UserAgent       bool
	RequestIDHeader string // defaults to "X-Request-Id"
	RequestIDGen    func() string // defaults to uuid.NewString

	TraceExtractor TraceExtractor
}

// Logger returns request-logging middleware matching opts, with Prod,
// Dev, and Auto presets.
func Logger(opts LoggerOptions) Middleware {
	header := opts.RequestIDHeader
	if header == "" {
		header = "X-Request-Id"
	}
	genID := opts.RequestIDGen
	if genID == nil {
		genID = uuid.NewString
	}

	logger := opts.Logger
	if logger == nil {
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		logger = buildLogger(opts.Mode, out, opts.Color)
	}

	return func(next Handler) Handler {
		return func(c *Ctx) error {
			start := time.Now()

			reqID := c.Request().Header.Get(header)
			if reqID == "" {
				reqID = genID()
			}
			c.Header().Set(header, reqID)

			err := next(c)
			dur := time.Since(start)

			status := c.StatusCode()
			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.String("host", c.Request().Host),
				slog.Duration("duration", dur),
				slog.String("request_id", reqID),
			}
			if q := c.Request().URL.RawQuery; q != "" {
				attrs = append(attrs, slog.String("query", q))
			}
			if opts.UserAgent {
				attrs = append(attrs, slog.String("user_agent", c.Request().UserAgent()))
			}
			if opts.TraceExtractor != nil {
				if traceID, spanID, sampled := opts.TraceExtractor(c.Context()); traceID != "" {
					attrs = append(attrs,
						slog.String("trace_id", traceID),
						slog.String("span_id", spanID),
						slog.Bool("trace_sampled", sampled),
					)
				}
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			if opts.Mode == Dev {
				attrs = append(attrs, slog.String("latency_human", humanDuration(dur)))
			}

			level := levelFor(status, err)
			logger.LogAttrs(c.Context(), level, "request", attrs...)

			return err
		}
	}
}

func buildLogger(mode LoggerMode, out io.Writer, color *bool) *slog.Logger {
	useColor := false
	switch {
	case color != nil:
		useColor = *color
	default:
		useColor = supportsColorEnv() && isTerminal(out)
	}

	effectiveMode := mode
	if mode == Auto {
		if isTerminal(out) {
			effectiveMode = Dev
		} else {
			effectiveMode = Prod
		}
	}

	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	if effectiveMode == Dev && (useColor || os.Getenv("FORCE_COLOR") != "") {
		return slog.New(newColorTextHandler(out, opts))
	}
	if effectiveMode == Dev {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

func defaultLogger() *slog.Logger { return slog.Default() }

// levelFor maps an HTTP status and handler error to a log level.
func levelFor(status int, err error) slog.Level {
	if err != nil {
		return slog.LevelError
	}
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// humanDuration renders d in the coarsest readable unit.
func humanDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1000)
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// attrInt extracts an integer from a numeric slog.Attr.
func attrInt(a slog.Attr) (int64, bool) {
	switch a.Value.Kind() {
	case slog.KindInt64:
		return a.Value.Int64(), true
	case slog.KindUint64:
		return int64(a.Value.Uint64()), true
	case slog.KindFloat64:
		return int64(a.Value.Float64()), true
	default:
		return 0, false
	}
}

// colorTextHandler is a minimal ANSI-colored slog.Handler for interactive
// development output.
type colorTextHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	opts  *slog.HandlerOptions
	attrs []slog.Attr
}

func newColorTextHandler(w io.Writer, opts *slog.HandlerOptions) *colorTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &colorTextHandler{mu: &sync.Mutex{}, out: w, opts: opts}
}

func (h *colorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &colorTextHandler{mu: h.mu, out: h.out, opts: h.opts}
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h *colorTextHandler) WithGroup(_ string) slog.Handler { return h }

const (
	ansiReset  = "\x1b[0m"
	ansiGray   = "\x1b[90m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

func colorForStatus(status int64) string {
	switch {
	case status >= 500:
		return ansiRed
	case status >= 400:
		return ansiYellow
	default:
		return ansiGreen
	}
}

func (h *colorTextHandler) Handle(_ context.Context, rec slog.Record) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%s%s %s", ansiGray, rec.Time.Format(time.RFC3339), ansiReset, rec.Message)

	write := func(a slog.Attr) {
		if a.Key == "status" {
			if v, ok := attrInt(a); ok {
				fmt.Fprintf(&buf, " %sstatus=%d%s", colorForStatus(v), v, ansiReset)
				return
			}
		}
		fmt.Fprintf(&buf, " %s=%v", a.Key, a.Value)
	}

	for _, a := range h.attrs {
		write(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

// supportsColorEnv reports whether ANSI color should be attempted,
// honoring NO_COLOR/FORCE_COLOR/TERM per common CLI conventions.
func supportsColorEnv() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if strings.EqualFold(os.Getenv("TERM"), "dumb") || os.Getenv("TERM") == "" {
		return false
	}
	return runtime.GOOS != "windows"
}

// isTerminal reports whether w looks like an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
