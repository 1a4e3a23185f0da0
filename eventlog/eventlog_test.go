package eventlog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lamportlab/clocksim/wire"
)

func TestRecorder(t *testing.T) {
	t.Run("RecordAndSnapshot", func(t *testing.T) {
		rec := NewRecorder()

		rec.Record(Event{EventType: EventInternal, SystemClockTime: 1, LogicalClockTime: 1, QueueSize: 0})
		rec.Record(Event{
			EventType:        EventSend,
			SystemClockTime:  2,
			LogicalClockTime: 2,
			QueueSize:        0,
			Message:          &wire.Message{Source: "127.0.0.1:8001", Type: wire.MessageTypeBroadcast, LogicalClockTime: 2},
		})

		if rec.Len() != 2 {
			t.Fatalf("Expected 2 events, got %d", rec.Len())
		}

		events := rec.Events()
		if events[0].EventType != EventInternal {
			t.Errorf("Expected first event INTERNAL, got %s", events[0].EventType)
		}
		if events[1].Message == nil || events[1].Message.Source != "127.0.0.1:8001" {
			t.Errorf("Expected SEND event to carry its message, got %+v", events[1].Message)
		}

		// Snapshot is a copy: mutating it must not affect the recorder.
		events[0].EventType = EventReceive
		if rec.Events()[0].EventType != EventInternal {
			t.Error("Events snapshot is not a copy")
		}
	})

	t.Run("FlushJSON", func(t *testing.T) {
		rec := NewRecorder()
		rec.Record(Event{EventType: EventReceive, SystemClockTime: 5, LogicalClockTime: 9, QueueSize: 3})

		var buf bytes.Buffer
		if err := rec.Flush(&buf); err != nil {
			t.Fatalf("Flush failed: %v", err)
		}

		var decoded []Event
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("Flushed output is not valid JSON: %v", err)
		}
		if len(decoded) != 1 {
			t.Fatalf("Expected 1 event, got %d", len(decoded))
		}
		if decoded[0].EventType != EventReceive || decoded[0].LogicalClockTime != 9 || decoded[0].QueueSize != 3 {
			t.Errorf("Round trip mismatch: %+v", decoded[0])
		}
	})

	t.Run("FlushFieldNames", func(t *testing.T) {
		rec := NewRecorder()
		rec.Record(Event{EventType: EventInternal, SystemClockTime: 1, LogicalClockTime: 1})

		var buf bytes.Buffer
		if err := rec.Flush(&buf); err != nil {
			t.Fatalf("Flush failed: %v", err)
		}

		var raw []map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		for _, field := range []string{"event_type", "system_clock_time", "logical_clock_time", "message_queue_size"} {
			if _, ok := raw[0][field]; !ok {
				t.Errorf("Expected field %q in flushed event", field)
			}
		}
	})

	t.Run("FlushEmpty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewRecorder().Flush(&buf); err != nil {
			t.Fatalf("Flush of empty recorder failed: %v", err)
		}
		var decoded []Event
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("Expected a valid JSON array, got %q: %v", buf.String(), err)
		}
	})
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "exp1")

	f, err := FileSink(dir, "peer-127.0.0.1-8001.json")
	if err != nil {
		t.Fatalf("FileSink failed: %v", err)
	}
	defer f.Close()

	if _, err := os.Stat(filepath.Join(dir, "peer-127.0.0.1-8001.json")); err != nil {
		t.Errorf("Expected log file to exist: %v", err)
	}
}
