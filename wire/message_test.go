// Package wire provides tests for the message types
package wire

import (
	"testing"
)

func TestMessageType(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		cases := []struct {
			mt   MessageType
			want string
		}{
			{MessageTypeSendFirst, "SEND_FIRST"},
			{MessageTypeSendSecond, "SEND_SECOND"},
			{MessageTypeBroadcast, "BROADCAST"},
			{MessageTypeInternal, "INTERNAL"},
			{MessageType(42), "unknown(42)"},
		}
		for _, c := range cases {
			if got := c.mt.String(); got != c.want {
				t.Errorf("Expected %q, got %q", c.want, got)
			}
		}
	})

	t.Run("IsValid", func(t *testing.T) {
		for _, mt := range []MessageType{MessageTypeSendFirst, MessageTypeSendSecond, MessageTypeBroadcast, MessageTypeInternal} {
			if !mt.IsValid() {
				t.Errorf("Expected %s to be valid", mt)
			}
		}
		if MessageType(0).IsValid() {
			t.Error("Expected type code 0 to be invalid")
		}
		if MessageType(5).IsValid() {
			t.Error("Expected type code 5 to be invalid")
		}
	})

	t.Run("IsTransmittable", func(t *testing.T) {
		for _, mt := range []MessageType{MessageTypeSendFirst, MessageTypeSendSecond, MessageTypeBroadcast} {
			if !mt.IsTransmittable() {
				t.Errorf("Expected %s to be transmittable", mt)
			}
		}
		// INTERNAL events are local-only.
		if MessageTypeInternal.IsTransmittable() {
			t.Error("Expected INTERNAL to not be transmittable")
		}
	})
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("127.0.0.1:8001", MessageTypeBroadcast, 17)

	if msg.Source != "127.0.0.1:8001" {
		t.Errorf("Expected source 127.0.0.1:8001, got %s", msg.Source)
	}
	if msg.Type != MessageTypeBroadcast {
		t.Errorf("Expected type BROADCAST, got %s", msg.Type)
	}
	if msg.LogicalClockTime != 17 {
		t.Errorf("Expected logical clock time 17, got %d", msg.LogicalClockTime)
	}
	if msg.SystemClockTime == 0 {
		t.Error("Expected system clock time to be stamped")
	}
}
