// Package eventlog records the events a simulated host observes and
// flushes them as JSON on shutdown
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/lamportlab/clocksim/wire"
)

// EventType classifies a recorded event
type EventType string

const (
	EventSend     EventType = "SEND"
	EventReceive  EventType = "RECEIVE"
	EventInternal EventType = "INTERNAL"
)

// Event is one append-only record in a peer's history
type Event struct {
	// EventType classifies the event
	EventType EventType `json:"event_type"`

	// SystemClockTime is the wall-clock time of the event in Unix nanoseconds
	SystemClockTime int64 `json:"system_clock_time"`

	// LogicalClockTime is the peer's logical clock after the event was applied
	LogicalClockTime uint64 `json:"logical_clock_time"`

	// QueueSize is the inbound queue length observed at event time
	QueueSize int `json:"message_queue_size"`

	// Message is the message sent or received, if any
	Message *wire.Message `json:"message,omitempty"`
}

// Recorder accumulates events for a single peer.
//
// Appends come from the peer's worker goroutine; snapshots may be taken
// from other goroutines, so access is guarded by a mutex.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one event
func (r *Recorder) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Len returns the number of recorded events
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Events returns a copy of all recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Flush writes all recorded events to w as an indented JSON array
func (r *Recorder) Flush(w io.Writer) error {
	events := r.Events()
	data, err := json.MarshalIndent(events, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

// FileSink creates the log directory if needed and opens a log file
// inside it for writing. The caller owns the returned file.
func FileSink(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}
	return f, nil
}
