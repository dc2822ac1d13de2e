package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is a decoded request or response frame before its body is
// interpreted: the discriminator plus the still-raw body bytes.
type Envelope struct {
	Type Discriminator
	Body json.RawMessage
}

// Encode marshals a single-key {discriminator: body} JSON object for
// msg and frames it with a 4-byte big-endian length prefix, ready to
// write to the connection.
func Encode(msgType Discriminator, body any) ([]byte, error) {
	wrapped := map[Discriminator]any{msgType: body}
	payload, err := json.Marshal(wrapped)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msgType, err)
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(payload)))
	copy(frame[4:], payload)
	return frame, nil
}

// WriteFrame writes an already-framed message (as returned by Encode)
// to w in one call.
func WriteFrame(w io.Writer, frame []byte) error {
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed JSON payload from r: a 4-byte
// big-endian length followed by exactly that many bytes.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("protocol: read frame body: %w", err)
	}
	return payload, nil
}

// DecodeEnvelope unwraps a single-key {discriminator: body} JSON
// object into an Envelope without interpreting the body further.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var wrapped map[Discriminator]json.RawMessage
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return Envelope{}, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	for k, v := range wrapped {
		return Envelope{Type: k, Body: v}, nil
	}
	return Envelope{}, fmt.Errorf("protocol: decode envelope: empty object")
}

// DecodeResponse reads one frame from r and decodes it into a response
// envelope plus its ResponseBody. Any discriminator — known or not —
// decodes into the same generic ResponseBody shape; the caller treats
// unrecognized discriminators as success iff Result == "Success".
func DecodeResponse(r io.Reader) (Discriminator, ResponseBody, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return "", ResponseBody{}, err
	}
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return "", ResponseBody{}, err
	}
	var body ResponseBody
	if err := json.Unmarshal(env.Body, &body); err != nil {
		return env.Type, ResponseBody{}, fmt.Errorf("protocol: decode response body: %w", err)
	}
	return env.Type, body, nil
}

// Decode reads one frame from r and decodes it into an Envelope,
// leaving the body uninterpreted for the caller to unmarshal into the
// concrete *Body type matching env.Type.
func Decode(r io.Reader) (Envelope, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return Envelope{}, err
	}
	return DecodeEnvelope(payload)
}
