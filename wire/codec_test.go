// Package wire provides tests for frame encoding/decoding
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		messages := []*Message{
			{Source: "127.0.0.1:8001", Type: MessageTypeSendFirst, SystemClockTime: 1234567890, LogicalClockTime: 42},
			{Source: "127.0.0.1:8002", Type: MessageTypeSendSecond, SystemClockTime: 0, LogicalClockTime: 0},
			{Source: "10.0.0.1:60000", Type: MessageTypeBroadcast, SystemClockTime: -1, LogicalClockTime: 1 << 40, Payload: "hello"},
			{Source: "", Type: MessageTypeInternal, SystemClockTime: 99, LogicalClockTime: 7, Payload: ""},
		}

		for _, msg := range messages {
			frame, err := Encode(msg)
			if err != nil {
				t.Fatalf("Encode failed for %s: %v", msg, err)
			}

			bodyLen := binary.BigEndian.Uint32(frame[:HeaderSize])
			if int(bodyLen) != len(frame)-HeaderSize {
				t.Errorf("Header declares %d body bytes but frame carries %d", bodyLen, len(frame)-HeaderSize)
			}

			decoded, err := Decode(frame[HeaderSize:])
			if err != nil {
				t.Fatalf("Decode failed for %s: %v", msg, err)
			}
			if *decoded != *msg {
				t.Errorf("Round trip mismatch: sent %s, got %s", msg, decoded)
			}
		}
	})

	t.Run("NilMessage", func(t *testing.T) {
		if _, err := Encode(nil); err == nil {
			t.Error("Expected error encoding nil message")
		}
	})

	t.Run("UnknownTypeCode", func(t *testing.T) {
		if _, err := Encode(&Message{Source: "a", Type: MessageType(9)}); err == nil {
			t.Error("Expected error encoding unknown type code")
		}

		frame, err := Encode(&Message{Source: "a", Type: MessageTypeBroadcast})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		body := frame[HeaderSize:]
		// The type code sits right after the length-prefixed source.
		body[4+1] = 200
		if _, err := Decode(body); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Expected ErrMalformedFrame for unknown type code, got %v", err)
		}
	})

	t.Run("TruncatedBody", func(t *testing.T) {
		frame, err := Encode(&Message{Source: "127.0.0.1:8001", Type: MessageTypeSendFirst, Payload: "data"})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		body := frame[HeaderSize:]

		for _, cut := range []int{0, 3, len(body) / 2, len(body) - 1} {
			if _, err := Decode(body[:cut]); !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("Expected ErrMalformedFrame for body cut to %d bytes, got %v", cut, err)
			}
		}
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		frame, err := Encode(&Message{Source: "127.0.0.1:8001", Type: MessageTypeSendFirst})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		body := append(frame[HeaderSize:], 0xFF)
		if _, err := Decode(body); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Expected ErrMalformedFrame for trailing bytes, got %v", err)
		}
	})
}

func TestReadMessage(t *testing.T) {
	t.Run("SingleFrame", func(t *testing.T) {
		msg := &Message{Source: "127.0.0.1:8003", Type: MessageTypeSendSecond, SystemClockTime: 5, LogicalClockTime: 11}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, msg); err != nil {
			t.Fatalf("WriteMessage failed: %v", err)
		}

		decoded, err := ReadMessage(&buf)
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		if *decoded != *msg {
			t.Errorf("Expected %s, got %s", msg, decoded)
		}
	})

	t.Run("PartialReads", func(t *testing.T) {
		// The transport may deliver the header and body in arbitrarily
		// small chunks; one byte at a time is the worst case.
		msg := &Message{Source: "127.0.0.1:8001", Type: MessageTypeBroadcast, SystemClockTime: 123, LogicalClockTime: 456, Payload: "chunked"}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, msg); err != nil {
			t.Fatalf("WriteMessage failed: %v", err)
		}

		decoded, err := ReadMessage(iotest.OneByteReader(&buf))
		if err != nil {
			t.Fatalf("ReadMessage over one-byte reader failed: %v", err)
		}
		if *decoded != *msg {
			t.Errorf("Expected %s, got %s", msg, decoded)
		}
	})

	t.Run("BackToBackFrames", func(t *testing.T) {
		first := &Message{Source: "a:1", Type: MessageTypeSendFirst, LogicalClockTime: 1}
		second := &Message{Source: "b:2", Type: MessageTypeSendSecond, LogicalClockTime: 2}

		var buf bytes.Buffer
		for _, msg := range []*Message{first, second} {
			if err := WriteMessage(&buf, msg); err != nil {
				t.Fatalf("WriteMessage failed: %v", err)
			}
		}

		for _, want := range []*Message{first, second} {
			got, err := ReadMessage(&buf)
			if err != nil {
				t.Fatalf("ReadMessage failed: %v", err)
			}
			if *got != *want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		}
	})

	t.Run("CleanEOF", func(t *testing.T) {
		if _, err := ReadMessage(bytes.NewReader(nil)); err != io.EOF {
			t.Errorf("Expected io.EOF on empty stream, got %v", err)
		}
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader([]byte{0, 0}))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Expected io.ErrUnexpectedEOF wrapped, got %v", err)
		}
	})

	t.Run("ShortBody", func(t *testing.T) {
		frame, err := Encode(&Message{Source: "127.0.0.1:8001", Type: MessageTypeSendFirst})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		_, err = ReadMessage(bytes.NewReader(frame[:len(frame)-2]))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Expected io.ErrUnexpectedEOF on truncated body, got %v", err)
		}
	})

	t.Run("OversizedHeader", func(t *testing.T) {
		header := make([]byte, HeaderSize)
		binary.BigEndian.PutUint32(header, MaxBodySize+1)
		_, err := ReadMessage(bytes.NewReader(header))
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Expected ErrMalformedFrame for oversized body declaration, got %v", err)
		}
	})
}
