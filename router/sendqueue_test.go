package router

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func TestSendQueue(t *testing.T) {
	t.Run("KeepsEveryFrameUnderBacklog", func(t *testing.T) {
		q := newSendQueue()

		// Far more frames than any fixed buffer would hold; nothing
		// may be lost while the consumer lags.
		const n = 10000
		for i := 0; i < n; i++ {
			q.push([]byte(fmt.Sprintf("frame-%d", i)))
		}
		if got := q.len(); got != n {
			t.Fatalf("Expected %d queued frames, got %d", n, got)
		}

		for i := 0; i < n; i++ {
			frame, ok := q.pop()
			if !ok {
				t.Fatalf("Queue reported closed after %d frames", i)
			}
			if want := []byte(fmt.Sprintf("frame-%d", i)); !bytes.Equal(frame, want) {
				t.Fatalf("Expected %q at position %d, got %q", want, i, frame)
			}
		}
	})

	t.Run("DrainsRemainderAfterClose", func(t *testing.T) {
		q := newSendQueue()
		q.push([]byte("first"))
		q.push([]byte("second"))
		q.close()

		if frame, ok := q.pop(); !ok || string(frame) != "first" {
			t.Fatalf("Expected queued frame 'first' after close, got %q, %v", frame, ok)
		}
		if frame, ok := q.pop(); !ok || string(frame) != "second" {
			t.Fatalf("Expected queued frame 'second' after close, got %q, %v", frame, ok)
		}
		if _, ok := q.pop(); ok {
			t.Error("Expected pop to report closed once drained")
		}
	})

	t.Run("DiscardsPushAfterClose", func(t *testing.T) {
		q := newSendQueue()
		q.close()
		q.push([]byte("late"))

		if _, ok := q.pop(); ok {
			t.Error("Expected no frames from a closed queue")
		}
	})

	t.Run("PopWakesOnPush", func(t *testing.T) {
		q := newSendQueue()

		got := make(chan []byte, 1)
		go func() {
			frame, ok := q.pop()
			if ok {
				got <- frame
			}
		}()

		time.Sleep(10 * time.Millisecond)
		q.push([]byte("wakeup"))

		select {
		case frame := <-got:
			if string(frame) != "wakeup" {
				t.Errorf("Expected 'wakeup', got %q", frame)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for blocked pop to wake")
		}
	})
}
