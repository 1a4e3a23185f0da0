// Package wire defines the message format exchanged between peers and the router
package wire

import (
	"fmt"
	"time"
)

// MessageType defines the kind of event a message carries
type MessageType uint8

const (
	// MessageTypeSendFirst is directed at the lexicographically first other peer
	MessageTypeSendFirst MessageType = 1

	// MessageTypeSendSecond is directed at the lexicographically second other peer
	MessageTypeSendSecond MessageType = 2

	// MessageTypeBroadcast is directed at every other peer
	MessageTypeBroadcast MessageType = 3

	// MessageTypeInternal marks a local-only event; it never appears on the wire
	MessageTypeInternal MessageType = 4
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeSendFirst:
		return "SEND_FIRST"
	case MessageTypeSendSecond:
		return "SEND_SECOND"
	case MessageTypeBroadcast:
		return "BROADCAST"
	case MessageTypeInternal:
		return "INTERNAL"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(mt))
	}
}

// IsValid checks if the message type is one of the known variants
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeSendFirst, MessageTypeSendSecond, MessageTypeBroadcast, MessageTypeInternal:
		return true
	default:
		return false
	}
}

// IsTransmittable reports whether the message type may appear on the wire.
// INTERNAL events are local-only and must never be transmitted.
func (mt MessageType) IsTransmittable() bool {
	switch mt {
	case MessageTypeSendFirst, MessageTypeSendSecond, MessageTypeBroadcast:
		return true
	default:
		return false
	}
}

// Message represents a single timestamped message between peers
type Message struct {
	// Source is the originating peer's bound network address, rendered as ip:port
	Source string `json:"source"`

	// Type is the event kind
	Type MessageType `json:"type"`

	// SystemClockTime is the wall-clock time at creation in Unix nanoseconds.
	// Informational only; never used for ordering.
	SystemClockTime int64 `json:"system_clock_time"`

	// LogicalClockTime is the sender's logical clock value at creation
	LogicalClockTime uint64 `json:"logical_clock_time"`

	// Payload is an opaque string carried unchanged by the simulation
	Payload string `json:"payload,omitempty"`
}

// NewMessage creates a new message stamped with the current wall-clock time
func NewMessage(source string, msgType MessageType, logicalTime uint64) *Message {
	return &Message{
		Source:           source,
		Type:             msgType,
		SystemClockTime:  time.Now().UnixNano(),
		LogicalClockTime: logicalTime,
	}
}

// String returns a human-readable representation of the message
func (m *Message) String() string {
	return fmt.Sprintf("Message[type=%s source=%s system_clock_time=%d logical_clock_time=%d payload=%q]",
		m.Type, m.Source, m.SystemClockTime, m.LogicalClockTime, m.Payload)
}
