// Package wire implements the little-endian buffer codec the FFI
// boundary uses to move a unary response, or the prefix of a streamed
// one, from the host runtime into a ResponseChannel:
//
//	offset 0..2   : status_code (u16)
//	offset 2..6   : headers_len (u32)
//	offset 6..6+L : headers_json (array of [name, value] pairs)
//	offset 6+L..  : body bytes (omitted by EncodeStreamStart/DecodeStreamStart)
package wire

import (
	"encoding/binary"
	"fmt"

	json "github.com/segmentio/encoding/json"
)

const prefixLen = 6

// HeaderPair is one [name, value] entry of the wire headers array.
type HeaderPair = [2]string

// EncodeUnary builds a send_response buffer: status, headers, and body.
func EncodeUnary(status uint16, headers []HeaderPair, body []byte) ([]byte, error) {
	prefix, headersJSON, err := encodePrefix(status, headers)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(prefix)+len(headersJSON)+len(body))
	buf = append(buf, prefix...)
	buf = append(buf, headersJSON...)
	buf = append(buf, body...)
	return buf, nil
}

// EncodeStreamStart builds a start_stream buffer: the same prefix as
// EncodeUnary with the body omitted.
func EncodeStreamStart(status uint16, headers []HeaderPair) ([]byte, error) {
	prefix, headersJSON, err := encodePrefix(status, headers)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(prefix)+len(headersJSON))
	buf = append(buf, prefix...)
	buf = append(buf, headersJSON...)
	return buf, nil
}

func encodePrefix(status uint16, headers []HeaderPair) (prefix, headersJSON []byte, err error) {
	headersJSON, err = json.Marshal(headers)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: encode headers: %w", err)
	}
	prefix = make([]byte, prefixLen)
	binary.LittleEndian.PutUint16(prefix[0:2], status)
	binary.LittleEndian.PutUint32(prefix[2:6], uint32(len(headersJSON)))
	return prefix, headersJSON, nil
}

// DecodeUnary parses a send_response buffer into its status, headers,
// and body. A buffer shorter than the fixed prefix, or one whose
// declared headers_len runs past the end of the buffer, is an error.
func DecodeUnary(buf []byte) (status uint16, headers []HeaderPair, body []byte, err error) {
	status, headers, rest, err := decodePrefix(buf)
	if err != nil {
		return 0, nil, nil, err
	}
	if len(rest) > 0 {
		body = append([]byte(nil), rest...)
	}
	return status, headers, body, nil
}

// DecodeStreamStart parses a start_stream buffer into its status and
// headers, ignoring any trailing bytes.
func DecodeStreamStart(buf []byte) (status uint16, headers []HeaderPair, err error) {
	status, headers, _, err = decodePrefix(buf)
	return status, headers, err
}

func decodePrefix(buf []byte) (status uint16, headers []HeaderPair, rest []byte, err error) {
	if len(buf) < prefixLen {
		return 0, nil, nil, fmt.Errorf("wire: buffer too short: %d bytes", len(buf))
	}
	status = binary.LittleEndian.Uint16(buf[0:2])
	headersLen := binary.LittleEndian.Uint32(buf[2:6])
	end := prefixLen + int(headersLen)
	if end < prefixLen || end > len(buf) {
		return 0, nil, nil, fmt.Errorf("wire: invalid headers length %d in %d-byte buffer", headersLen, len(buf))
	}
	headersJSON := buf[prefixLen:end]
	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &headers); err != nil {
			return 0, nil, nil, fmt.Errorf("wire: invalid headers json: %w", err)
		}
	}
	return status, headers, buf[end:], nil
}
