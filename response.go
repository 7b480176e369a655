// response.go
package nucleo

import (
	"errors"
	"sync"

	"github.com/nucleo-dev/nucleo-core/wire"
)

// Errors returned to a ResponseChannel producer on a protocol violation.
// The wire response is never affected by these — the first legal
// message always wins.
var (
	ErrResponseAlreadySent = errors.New("response already sent")
	ErrStreamNotStarted    = errors.New("stream not started")
	ErrStreamAlreadyEnded  = errors.New("stream already ended")
)

// ResponseMessageKind tags a ResponseMessage variant.
type ResponseMessageKind int

const (
	MessageComplete ResponseMessageKind = iota
	MessageStreamStart
	MessageStreamChunk
	MessageStreamEnd
)

// ResponseMessage is one message on a ResponseChannel.
type ResponseMessage struct {
	Kind ResponseMessageKind

	Status  int
	Headers [][2]string
	Body    []byte // MessageComplete
	Data    []byte // MessageStreamChunk
}

type channelState int

const (
	stateFresh channelState = iota
	stateStreaming
	stateDone
)

// ResponseChannel is the single-producer/single-consumer message stream
// carrying a handler's reply to the wire. It enforces the
// Fresh -> (Complete | Streaming) -> Done state machine: any message
// after Complete/StreamEnd, or any StreamChunk/StreamEnd without a
// preceding StreamStart, is rejected and reported to the producer; the
// wire state is unaffected.
type ResponseChannel struct {
	mu    sync.Mutex
	state channelState
	ch    chan ResponseMessage
	once  sync.Once
}

// NewResponseChannel opens a fresh channel.
func NewResponseChannel() *ResponseChannel {
	return &ResponseChannel{ch: make(chan ResponseMessage, 4)}
}

// C returns the consumer-side receive channel. Closed once the producer
// has delivered a terminal message (Complete or StreamEnd) or abandoned
// the request out of band.
func (rc *ResponseChannel) C() <-chan ResponseMessage { return rc.ch }

func (rc *ResponseChannel) closeLocked() {
	rc.once.Do(func() { close(rc.ch) })
}

// Close abandons the channel without a terminal message; the consumer
// sees it close with nothing delivered.
func (rc *ResponseChannel) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.state == stateDone {
		return
	}
	rc.state = stateDone
	rc.closeLocked()
}

// Complete sends a unary response and terminates the channel.
func (rc *ResponseChannel) Complete(status int, headers [][2]string, body []byte) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state != stateFresh {
		return ErrResponseAlreadySent
	}
	rc.state = stateDone
	rc.ch <- ResponseMessage{Kind: MessageComplete, Status: status, Headers: headers, Body: body}
	rc.closeLocked()
	return nil
}

// StreamStart begins a streamed response.
func (rc *ResponseChannel) StreamStart(status int, headers [][2]string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.state != stateFresh {
		return ErrResponseAlreadySent
	}
	rc.state = stateStreaming
	rc.ch <- ResponseMessage{Kind: MessageStreamStart, Status: status, Headers: headers}
	return nil
}

// StreamChunk sends one chunk of a streamed response.
func (rc *ResponseChannel) StreamChunk(data []byte) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	switch rc.state {
	case stateFresh:
		return ErrStreamNotStarted
	case stateDone:
		return ErrStreamAlreadyEnded
	}
	rc.ch <- ResponseMessage{Kind: MessageStreamChunk, Data: data}
	return nil
}

// CompleteBuffer decodes an FFI send_response buffer (status_code u16 LE,
// headers_len u32 LE, headers_json, body) per the wire package's layout
// and delivers it as Complete. This is the entry point an actual
// cross-language handler calls; Complete itself stays the in-process API
// native Go Handlers use through channelResponseWriter.
func (rc *ResponseChannel) CompleteBuffer(buf []byte) error {
	status, headers, body, err := wire.DecodeUnary(buf)
	if err != nil {
		return err
	}
	return rc.Complete(int(status), headers, body)
}

// StreamStartBuffer decodes an FFI start_stream buffer and delivers it as
// StreamStart.
func (rc *ResponseChannel) StreamStartBuffer(buf []byte) error {
	status, headers, err := wire.DecodeStreamStart(buf)
	if err != nil {
		return err
	}
	return rc.StreamStart(int(status), headers)
}

// StreamEnd terminates a streamed response.
func (rc *ResponseChannel) StreamEnd() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	switch rc.state {
	case stateFresh:
		return ErrStreamNotStarted
	case stateDone:
		return ErrStreamAlreadyEnded
	}
	rc.state = stateDone
	rc.ch <- ResponseMessage{Kind: MessageStreamEnd}
	rc.closeLocked()
	return nil
}
