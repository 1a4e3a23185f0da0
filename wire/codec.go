// Package wire provides the frame codec for the peer protocol
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame layout constants
const (
	// HeaderSize is the size of the frame header: a big-endian uint32
	// holding the exact byte length of the body that follows
	HeaderSize = 4

	// bodyFixedSize covers the fixed-width body fields: source length,
	// type code, system clock time, logical clock time and payload length
	bodyFixedSize = 4 + 1 + 8 + 8 + 4

	// MaxBodySize is the maximum allowed frame body size
	MaxBodySize = 64 * 1024 * 1024 // 64MB
)

// ErrMalformedFrame is returned when a frame body does not match its
// declared length or carries an unknown type code
var ErrMalformedFrame = errors.New("malformed frame")

// Encode serializes a message into a complete frame: the 4-byte
// big-endian length header followed by the fixed-field body.
//
// Body layout, all integers big-endian:
//
//	[u32 source length][source bytes]
//	[u8  type code]
//	[u64 system clock time (unix nanoseconds)]
//	[u64 logical clock time]
//	[u32 payload length][payload bytes]
func Encode(msg *Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("message is nil")
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown type code %d", ErrMalformedFrame, uint8(msg.Type))
	}

	bodyLen := bodyFixedSize + len(msg.Source) + len(msg.Payload)
	if bodyLen > MaxBodySize {
		return nil, fmt.Errorf("frame body too large: %d bytes (max %d)", bodyLen, MaxBodySize)
	}

	buf := make([]byte, HeaderSize+bodyLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(bodyLen))

	off := HeaderSize
	binary.BigEndian.PutUint32(buf[off:], uint32(len(msg.Source)))
	off += 4
	off += copy(buf[off:], msg.Source)
	buf[off] = byte(msg.Type)
	off++
	binary.BigEndian.PutUint64(buf[off:], uint64(msg.SystemClockTime))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], msg.LogicalClockTime)
	off += 8
	binary.BigEndian.PutUint32(buf[off:], uint32(len(msg.Payload)))
	off += 4
	copy(buf[off:], msg.Payload)

	return buf, nil
}

// Decode deserializes a frame body into a message. It fails with
// ErrMalformedFrame when the body is truncated, carries trailing bytes,
// or declares an unknown type code.
func Decode(body []byte) (*Message, error) {
	if len(body) < bodyFixedSize {
		return nil, fmt.Errorf("%w: body too short: %d bytes", ErrMalformedFrame, len(body))
	}

	off := 0
	sourceLen := int(binary.BigEndian.Uint32(body[off:]))
	off += 4
	if sourceLen < 0 || off+sourceLen+bodyFixedSize-4 > len(body) {
		return nil, fmt.Errorf("%w: declared source length %d exceeds body", ErrMalformedFrame, sourceLen)
	}
	source := string(body[off : off+sourceLen])
	off += sourceLen

	msgType := MessageType(body[off])
	off++
	if !msgType.IsValid() {
		return nil, fmt.Errorf("%w: unknown type code %d", ErrMalformedFrame, uint8(msgType))
	}

	systemTime := int64(binary.BigEndian.Uint64(body[off:]))
	off += 8
	logicalTime := binary.BigEndian.Uint64(body[off:])
	off += 8

	payloadLen := int(binary.BigEndian.Uint32(body[off:]))
	off += 4
	if off+payloadLen > len(body) {
		return nil, fmt.Errorf("%w: declared payload length %d exceeds body", ErrMalformedFrame, payloadLen)
	}
	payload := string(body[off : off+payloadLen])
	off += payloadLen

	if off != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedFrame, len(body)-off)
	}

	return &Message{
		Source:           source,
		Type:             msgType,
		SystemClockTime:  systemTime,
		LogicalClockTime: logicalTime,
		Payload:          payload,
	}, nil
}

// ReadMessage reads exactly one frame from r and decodes it. Partial
// reads are tolerated transparently: the header and body are each read
// in full before any decoding happens. A clean EOF before the first
// header byte is returned as io.EOF so callers can detect an orderly
// close; a header or body cut short is io.ErrUnexpectedEOF.
func ReadMessage(r io.Reader) (*Message, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	bodyLen := binary.BigEndian.Uint32(header)
	if bodyLen > MaxBodySize {
		return nil, fmt.Errorf("%w: declared body length %d exceeds maximum", ErrMalformedFrame, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	return Decode(body)
}

// WriteMessage encodes a message and writes the complete frame to w
func WriteMessage(w io.Writer, msg *Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
