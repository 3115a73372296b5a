package transport

import (
	"fmt"

	errs "github.com/c360/sduiterm/errors"
)

// Chunk is one fragment of an application message as reported by the
// WebSocket library. PayloadOffset and PayloadLen address the whole message;
// Data carries only this fragment's bytes.
type Chunk struct {
	OpCode        int
	Data          []byte
	PayloadOffset int
	PayloadLen    int
}

// Reassembler accumulates message fragments into whole payloads. A buffer of
// PayloadLen+1 bytes is allocated when a chunk arrives at offset zero; the
// extra byte holds the text terminator the downlink callback contract
// requires. The buffer is owned by the transport read loop only.
type Reassembler struct {
	buf         []byte
	accumulated int
	payloadLen  int
	maxPayload  int
}

// NewReassembler creates a reassembler that rejects messages larger than
// maxPayload bytes
func NewReassembler(maxPayload int) *Reassembler {
	return &Reassembler{maxPayload: maxPayload}
}

// InFlight reports whether a partially assembled message is buffered
func (r *Reassembler) InFlight() bool {
	return r.buf != nil
}

// Ingest consumes one chunk. When the chunk completes a message, the whole
// payload text is returned with complete=true and the buffer is released.
// A chunk that does not line up with the in-flight message discards the
// buffer and returns an error.
func (r *Reassembler) Ingest(c Chunk) (text string, complete bool, err error) {
	if c.PayloadOffset == 0 {
		if c.PayloadLen <= 0 || c.PayloadLen > r.maxPayload {
			return "", false, errs.WrapInvalid(
				fmt.Errorf("payload length %d outside (0, %d]", c.PayloadLen, r.maxPayload),
				"Reassembler", "Ingest", "begin message")
		}
		r.buf = make([]byte, c.PayloadLen+1)
		r.accumulated = 0
		r.payloadLen = c.PayloadLen
	}

	if r.buf == nil {
		return "", false, errs.WrapInvalid(
			fmt.Errorf("chunk at offset %d with no message in flight", c.PayloadOffset),
			"Reassembler", "Ingest", "append fragment")
	}
	if c.PayloadOffset != r.accumulated || c.PayloadLen != r.payloadLen {
		r.Discard()
		return "", false, errs.WrapInvalid(
			fmt.Errorf("chunk offset %d does not continue message at %d", c.PayloadOffset, r.accumulated),
			"Reassembler", "Ingest", "append fragment")
	}
	if c.PayloadOffset+len(c.Data) > r.payloadLen {
		r.Discard()
		return "", false, errs.WrapInvalid(
			fmt.Errorf("fragment overruns payload length %d", r.payloadLen),
			"Reassembler", "Ingest", "append fragment")
	}

	copy(r.buf[r.accumulated:], c.Data)
	r.accumulated += len(c.Data)

	if r.accumulated < r.payloadLen {
		return "", false, nil
	}

	r.buf[r.payloadLen] = 0
	text = string(r.buf[:r.payloadLen])
	r.reset()
	return text, true, nil
}

// Discard drops any in-flight message. Called on disconnect.
func (r *Reassembler) Discard() {
	r.reset()
}

func (r *Reassembler) reset() {
	r.buf = nil
	r.accumulated = 0
	r.payloadLen = 0
}
