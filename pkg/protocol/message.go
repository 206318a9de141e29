package protocol

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// TerminationSentinel is the reserved text a peer sends to request a clean shutdown.
	TerminationSentinel = "<Terminating connection>"

	// MaxTextSize is the largest chat text carried by one frame.
	MaxTextSize = 1024
)

// ErrMessageTooLarge is returned when a text exceeds MaxTextSize.
var ErrMessageTooLarge = errors.New("message exceeds maximum text size")

// MessageType represents the type of message
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeTerminate
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeText:
		return "TEXT"
	case MessageTypeTerminate:
		return "TERMINATE"
	default:
		return "UNKNOWN"
	}
}

// Message represents a chat message or a control frame.
type Message struct {
	Type      MessageType
	Sender    string
	Text      string
	Timestamp time.Time
}

// NewText builds a text message stamped with the current time.
func NewText(sender, text string) Message {
	return Message{
		Type:      MessageTypeText,
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Terminate builds the control message that ends a session.
func Terminate(sender string) Message {
	return Message{
		Type:      MessageTypeTerminate,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

const (
	fieldType      protowire.Number = 1
	fieldSender    protowire.Number = 2
	fieldText      protowire.Number = 3
	fieldTimestamp protowire.Number = 4
)

// wire values of the type field; zero is left unused so a missing field decodes as text.
const (
	wireTypeText      uint64 = 1
	wireTypeTerminate uint64 = 2
)

// Encode encodes the message into bytes using the protobuf wire format
func (m *Message) Encode() ([]byte, error) {
	if len(m.Text) > MaxTextSize {
		return nil, fmt.Errorf("failed to encode message: %w", ErrMessageTooLarge)
	}

	b := protowire.AppendTag(nil, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, messageTypeToWire(m.Type))
	if m.Sender != "" {
		b = protowire.AppendTag(b, fieldSender, protowire.BytesType)
		b = protowire.AppendString(b, m.Sender)
	}
	if m.Text != "" {
		b = protowire.AppendTag(b, fieldText, protowire.BytesType)
		b = protowire.AppendString(b, m.Text)
	}
	if !m.Timestamp.IsZero() {
		b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Timestamp.UnixNano()))
	}
	return b, nil
}

// Decode decodes bytes into a message using the protobuf wire format.
// Unknown fields are skipped.
func (m *Message) Decode(data []byte) error {
	*m = Message{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("failed to decode message: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			m.Type = messageTypeFromWire(v)
		case num == fieldSender && typ == protowire.BytesType:
			m.Sender, n = protowire.ConsumeString(data)
		case num == fieldText && typ == protowire.BytesType:
			m.Text, n = protowire.ConsumeString(data)
		case num == fieldTimestamp && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			m.Timestamp = time.Unix(0, int64(v))
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("failed to decode message: %w", protowire.ParseError(n))
		}
		data = data[n:]
	}

	if len(m.Text) > MaxTextSize {
		return fmt.Errorf("failed to decode message: %w", ErrMessageTooLarge)
	}
	return nil
}

// messageTypeToWire converts MessageType to its wire value.
// Unknown types are sent as text.
func messageTypeToWire(mt MessageType) uint64 {
	switch mt {
	case MessageTypeTerminate:
		return wireTypeTerminate
	default:
		return wireTypeText
	}
}

// messageTypeFromWire converts a wire value to MessageType.
// Unknown values decode as text so a newer peer never ends a session by accident.
func messageTypeFromWire(v uint64) MessageType {
	switch v {
	case wireTypeTerminate:
		return MessageTypeTerminate
	default:
		return MessageTypeText
	}
}
