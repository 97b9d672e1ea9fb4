package relay

import (
	"time"

	"github.com/1ureka/tcpreflector/internal/protocol"
)

// Queue is a bounded FIFO handing packets from other sessions' receive
// loops to one session's transmit loop. It never blocks the producer.
type Queue struct {
	ch chan *protocol.Packet
}

// NewQueue creates a queue holding at most depth packets.
func NewQueue(depth int) *Queue {
	return &Queue{ch: make(chan *protocol.Packet, depth)}
}

// Push enqueues pkt without blocking. It returns false and discards the
// packet when the queue is full.
func (q *Queue) Push(pkt *protocol.Packet) bool {
	select {
	case q.ch <- pkt:
		return true
	default:
		return false
	}
}

// Pop waits up to timeout for the next packet. The boolean is false when
// the wait timed out.
func (q *Queue) Pop(timeout time.Duration) (*protocol.Packet, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case pkt := <-q.ch:
		return pkt, true
	case <-timer.C:
		return nil, false
	}
}

// Len returns the number of queued packets.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue depth.
func (q *Queue) Cap() int { return cap(q.ch) }
