// handler.go
package nucleo

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"

	json "github.com/segmentio/encoding/json"
)

// channelResponseWriter adapts an http.ResponseWriter into a
// ResponseChannel producer so that native Go Handlers drive the same
// Fresh -> (Complete | Streaming) -> Done state machine an external
// FFI handler would. Writes are buffered until Flush is
// called explicitly (streaming) or the handler returns (unary Complete).
type channelResponseWriter struct {
	mu sync.Mutex

	resp *ResponseChannel

	header      http.Header
	status      int
	wroteHeader bool
	streaming   bool
	buf         bytes.Buffer
}

func newChannelResponseWriter(resp *ResponseChannel) *channelResponseWriter {
	return &channelResponseWriter{resp: resp, header: make(http.Header), status: http.StatusOK}
}

func (w *channelResponseWriter) Header() http.Header { return w.header }

func (w *channelResponseWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
}

func (w *channelResponseWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	if !w.wroteHeader {
		w.status = http.StatusOK
		w.wroteHeader = true
	}
	streaming := w.streaming
	w.mu.Unlock()

	if streaming {
		if err := w.resp.StreamChunk(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return w.buf.Write(p)
}

// Flush switches the writer into streaming mode, emitting StreamStart
// (with any already-buffered bytes as the first chunk) on first call.
func (w *channelResponseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.streaming {
		return
	}
	if !w.wroteHeader {
		w.status = http.StatusOK
		w.wroteHeader = true
	}
	w.streaming = true
	_ = w.resp.StreamStart(w.status, headerPairs(w.header))
	if w.buf.Len() > 0 {
		_ = w.resp.StreamChunk(w.buf.Bytes())
		w.buf.Reset()
	}
}

// finalize delivers the terminal message for whichever mode the
// handler ended up in; it is always safe to call exactly once after the
// handler returns.
func (w *channelResponseWriter) finalize() {
	w.mu.Lock()
	streaming := w.streaming
	w.mu.Unlock()

	if streaming {
		_ = w.resp.StreamEnd()
		return
	}

	w.mu.Lock()
	status := w.status
	if !w.wroteHeader {
		status = http.StatusOK
	}
	body := append([]byte(nil), w.buf.Bytes()...)
	headers := headerPairs(w.header)
	w.mu.Unlock()

	_ = w.resp.Complete(status, headers, body)
}

func headerPairs(h http.Header) [][2]string {
	pairs := make([][2]string, 0, len(h))
	for k, values := range h {
		for _, v := range values {
			pairs = append(pairs, [2]string{k, v})
		}
	}
	return pairs
}

// dispatchToken invokes token fire-and-forget and returns the channel the
// caller should consume for the reply.
func dispatchToken(token HandlerToken, req *RequestCore) *ResponseChannel {
	resp := NewResponseChannel()
	go token.Invoke(req, resp)
	return resp
}

// writeChannelToHTTP drains a ResponseChannel onto a real
// http.ResponseWriter, implementing the wire-facing half of the state
// machine: a channel that closes before any message is treated as a
// silent 200 with an empty body. It reports the status finally written
// and whether the channel closed silently, so the caller can emit the
// handler-silence diagnostic spec.md §7 asks for.
func writeChannelToHTTP(w http.ResponseWriter, resp *ResponseChannel) (status int, silent bool) {
	streaming := false
	for msg := range resp.C() {
		switch msg.Kind {
		case MessageComplete:
			for _, kv := range msg.Headers {
				w.Header().Add(kv[0], kv[1])
			}
			w.WriteHeader(msg.Status)
			_, _ = w.Write(msg.Body)
			return msg.Status, false

		case MessageStreamStart:
			streaming = true
			status = msg.Status
			for _, kv := range msg.Headers {
				w.Header().Add(kv[0], kv[1])
			}
			w.WriteHeader(msg.Status)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}

		case MessageStreamChunk:
			_, _ = w.Write(msg.Data)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}

		case MessageStreamEnd:
			return status, false
		}
	}

	if !streaming {
		w.WriteHeader(http.StatusOK)
		return http.StatusOK, true
	}
	return status, false
}

// validationErrorBody renders the {"error":"Validation Error","message":
// "Validation error in <field>: <message>"} document the wire protocol
// uses for a failed schema check.
func validationErrorBody(verr *ValidationError) []byte {
	body, _ := json.Marshal(map[string]string{
		"error":   "Validation Error",
		"message": fmt.Sprintf("Validation error in %s: %s", verr.FieldPath, verr.Message),
	})
	return body
}
