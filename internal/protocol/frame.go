package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Frame layout: byte 0 = message type, bytes 1-2 = payload length
// (little-endian uint16), bytes 3.. = UTF-8 JSON payload.
const (
	headerSize = 3
	// MaxPayloadSize caps a payload at one 64 KiB frame minus the header.
	MaxPayloadSize = 64*1024 - headerSize
)

// ErrMalformed reports an undecodable frame.
type ErrMalformed struct {
	Reason string
}

func (e *ErrMalformed) Error() string {
	return "malformed message: " + e.Reason
}

// Encode serializes a payload into a single wire frame.
func Encode(msgType MessageType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if len(body) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes", len(body))
	}

	frame := make([]byte, headerSize+len(body))
	frame[0] = msgType
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(body)))
	copy(frame[headerSize:], body)
	return frame, nil
}

// Decode parses one wire frame. The payload is kept as raw JSON; callers
// unpack it with ParsePayload once the type is known.
func Decode(data []byte) (*Message, error) {
	if len(data) < headerSize {
		return nil, &ErrMalformed{Reason: fmt.Sprintf("frame too short: %d bytes", len(data))}
	}

	length := int(binary.LittleEndian.Uint16(data[1:3]))
	if length > MaxPayloadSize {
		return nil, &ErrMalformed{Reason: fmt.Sprintf("declared payload length %d exceeds cap", length)}
	}
	if headerSize+length > len(data) {
		return nil, &ErrMalformed{Reason: fmt.Sprintf("declared payload length %d exceeds buffer", length)}
	}

	return &Message{
		Type:    data[0],
		Payload: json.RawMessage(data[headerSize : headerSize+length]),
	}, nil
}

// Encode serializes the message back into its wire frame.
func (m *Message) Encode() ([]byte, error) {
	if len(m.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes", len(m.Payload))
	}
	frame := make([]byte, headerSize+len(m.Payload))
	frame[0] = m.Type
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(m.Payload)))
	copy(frame[headerSize:], m.Payload)
	return frame, nil
}

// NewMessage builds a Message with a marshalled payload.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &Message{Type: msgType, Payload: body}, nil
}

// MustNewMessage is NewMessage for payload structs that cannot fail to
// marshal. Panics otherwise.
func MustNewMessage(msgType MessageType, payload any) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// NewErrorMessage builds an ERROR reply.
func NewErrorMessage(code int, text string) *Message {
	return MustNewMessage(MsgError, ErrorPayload{Code: code, Message: text})
}

// ParsePayload unpacks a message payload into a concrete payload struct.
func ParsePayload[T any](msg *Message) (T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, &ErrMalformed{Reason: err.Error()}
	}
	return payload, nil
}
