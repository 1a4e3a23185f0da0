package router

import "sync"

// sendQueue is an unbounded FIFO of encoded frames awaiting delivery to
// one peer. A push never blocks, so the dispatch goroutine is never held
// up by a slow connection: frames simply stay queued until the peer's
// write pump drains them.
type sendQueue struct {
	mu     sync.Mutex
	frames [][]byte
	wake   chan struct{}
	closed bool
}

func newSendQueue() *sendQueue {
	return &sendQueue{wake: make(chan struct{}, 1)}
}

// push appends a frame to the queue. Frames pushed after close are
// discarded.
func (q *sendQueue) push(frame []byte) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop returns the oldest queued frame, blocking until one is available.
// After close, pop drains the remaining frames and then reports false.
func (q *sendQueue) pop() ([]byte, bool) {
	for {
		q.mu.Lock()
		if len(q.frames) > 0 {
			frame := q.frames[0]
			q.frames = q.frames[1:]
			q.mu.Unlock()
			return frame, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}
		<-q.wake
	}
}

// close marks the queue closed and wakes a blocked pop
func (q *sendQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// len returns the number of frames currently queued
func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
