package relay

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/1ureka/tcpreflector/internal/protocol"
	"github.com/1ureka/tcpreflector/internal/util"
)

// State is a session's lifecycle stage: Starting → Active → Stopped.
type State int32

const (
	StateStarting State = iota
	StateActive
	StateStopped
)

func (st State) String() string {
	switch st {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(st))
}

// Session holds the complete lifecycle state for one connected peer.
// It owns the peer and its transmit queue; other sessions only reach it
// through Enqueue.
type Session struct {
	// Identity
	id   uuid.UUID
	addr string

	// Collaborators
	peer     Peer
	registry *Registry

	// Outbound path
	queue      *Queue
	popTimeout time.Duration

	// Lifecycle
	state    atomic.Int32
	stopOnce sync.Once
	done     chan struct{}
}

// NewSession creates a session in the Starting state. Call Run to register
// it and start both loops.
func NewSession(peer Peer, registry *Registry, opts Options) *Session {
	opts = opts.withDefaults()

	addr := "unknown"
	if ra := peer.RemoteAddr(); ra != nil {
		addr = ra.String()
	}

	return &Session{
		id:         uuid.New(),
		addr:       addr,
		peer:       peer,
		registry:   registry,
		queue:      NewQueue(opts.QueueDepth),
		popTimeout: opts.PopTimeout,
		done:       make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// RemoteAddr returns the peer address used in log lines.
func (s *Session) RemoteAddr() string { return s.addr }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) String() string {
	return fmt.Sprintf("[%s] %s", s.id.String()[:8], s.addr)
}

// Run registers the session, starts the transmit loop and runs the receive
// loop on the calling goroutine until the session stops.
func (s *Session) Run() {
	s.registry.Register(s)
	if !s.state.CompareAndSwap(int32(StateStarting), int32(StateActive)) {
		// Stopped before it started; undo a registration that raced Stop.
		s.registry.Deregister(s)
		return
	}
	util.Stats.AddSession()
	util.LogInfo("%s connected", s)

	go s.transmitLoop()
	s.receiveLoop()
}

// Enqueue hands pkt to the transmit loop. A full queue drops the packet;
// the caller is never blocked.
func (s *Session) Enqueue(pkt *protocol.Packet) bool {
	if s.queue.Push(pkt) {
		util.Stats.AddForwarded()
		return true
	}

	util.Stats.AddDropped()
	util.LogWarning("%s transmit queue full, dropped %d bytes on stream %q", s, pkt.Size(), pkt.Header.Stream)
	return false
}

// Stop closes the peer and removes the session from the registry. It is
// safe to call from both loops at once; only the first call acts.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		wasActive := State(s.state.Swap(int32(StateStopped))) == StateActive
		s.peer.Close()
		s.registry.Deregister(s)
		if wasActive {
			util.Stats.RemoveSession()
		}
		close(s.done)
		util.LogInfo("%s disconnected", s)
	})
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// receiveLoop reads framed packets and fans each one out to every other
// session. Stop closes the peer to unblock a pending read.
func (s *Session) receiveLoop() {
	for s.State() == StateActive {
		pkt, err := s.peer.ReadPacket()
		if err != nil {
			s.fail("receive", err)
			return
		}

		util.Stats.AddRecv(pkt.Size())
		if util.Verbose() {
			util.LogDebug("%s received %d bytes on stream %q", s, pkt.Size(), pkt.Header.Stream)
		}

		s.registry.FanOut(s, pkt)
	}
}

// transmitLoop drains the queue to the peer. The bounded pop lets it notice
// a stopped session even when no traffic arrives.
func (s *Session) transmitLoop() {
	for s.State() == StateActive {
		pkt, ok := s.queue.Pop(s.popTimeout)
		if !ok {
			continue
		}

		if err := s.peer.WritePacket(pkt); err != nil {
			s.fail("transmit", err)
			return
		}

		util.Stats.AddSent(pkt.Size())
		if util.Verbose() {
			util.LogDebug("%s transmitted %d bytes on stream %q", s, pkt.Size(), pkt.Header.Stream)
		}
	}
}

// fail logs the fault that ended a loop and stops the session. Errors
// caused by our own Stop closing the peer are not logged.
func (s *Session) fail(direction string, err error) {
	if s.State() == StateStopped {
		return
	}

	switch {
	case errors.Is(err, io.EOF):
		util.LogInfo("%s closed by peer", s)
	case errors.Is(err, protocol.ErrInvalidHeader), errors.Is(err, protocol.ErrShortRead):
		util.LogWarning("%s %v", s, err)
	default:
		util.LogWarning("%s %s error: %v", s, direction, err)
	}

	s.Stop()
}
