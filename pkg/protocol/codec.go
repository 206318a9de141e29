package protocol

import (
	"fmt"
	"strings"
)

// Codec turns messages into frame payloads and back.
type Codec interface {
	Encode(msg Message) ([]byte, error)
	Decode(payload []byte) (Message, error)
}

// ProtoCodec carries typed messages, so a terminate request can never be
// confused with chat text.
type ProtoCodec struct{}

// Encode implements Codec.
func (ProtoCodec) Encode(msg Message) ([]byte, error) {
	return msg.Encode()
}

// Decode implements Codec.
func (ProtoCodec) Decode(payload []byte) (Message, error) {
	var msg Message
	if err := msg.Decode(payload); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// LegacyCodec speaks the raw-text protocol: a payload is the chat text itself
// and a payload equal to TerminationSentinel ends the session. Sender and
// timestamp are not carried on the wire.
type LegacyCodec struct{}

// Encode implements Codec.
func (LegacyCodec) Encode(msg Message) ([]byte, error) {
	if msg.Type == MessageTypeTerminate {
		return []byte(TerminationSentinel), nil
	}
	if len(msg.Text) > MaxTextSize {
		return nil, fmt.Errorf("failed to encode message: %w", ErrMessageTooLarge)
	}
	return []byte(msg.Text), nil
}

// Decode implements Codec.
// Only an exact byte-for-byte match of the sentinel is a terminate request.
func (LegacyCodec) Decode(payload []byte) (Message, error) {
	if string(payload) == TerminationSentinel {
		return Message{Type: MessageTypeTerminate}, nil
	}
	return Message{Type: MessageTypeText, Text: string(payload)}, nil
}

// Wire selects how messages are framed and encoded on a stream.
type Wire string

const (
	// WireFramed prefixes every frame with its length and encodes typed messages.
	WireFramed Wire = "framed"
	// WireLegacy writes raw text with no framing, one message per write.
	WireLegacy Wire = "legacy"
)

// ParseWire converts a string to a Wire.
func ParseWire(s string) (Wire, error) {
	switch Wire(strings.ToLower(strings.TrimSpace(s))) {
	case WireFramed, "":
		return WireFramed, nil
	case WireLegacy:
		return WireLegacy, nil
	default:
		return "", fmt.Errorf("unknown wire mode %q", s)
	}
}

// Codec returns the message codec of the wire mode.
func (w Wire) Codec() Codec {
	if w == WireLegacy {
		return LegacyCodec{}
	}
	return ProtoCodec{}
}

// Framer returns the stream framing of the wire mode.
func (w Wire) Framer() Framer {
	if w == WireLegacy {
		return RawFramer{}
	}
	return LengthPrefixFramer{MaxSize: MaxFrameSize}
}
