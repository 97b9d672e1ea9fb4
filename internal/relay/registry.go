package relay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/1ureka/tcpreflector/internal/protocol"
)

// Registry is the live set of sessions. It is shared by every session and
// safe for concurrent fan-out, registration and deregistration.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Register adds s to the live set.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
}

// Deregister removes s from the live set. Removing an absent session is a no-op.
func (r *Registry) Deregister(s *Session) {
	r.mu.Lock()
	if cur, ok := r.sessions[s.id]; ok && cur == s {
		delete(r.sessions, s.id)
	}
	r.mu.Unlock()
}

// FanOut offers pkt to every registered session except origin and returns
// how many queues accepted it. Targets are snapshotted under the read lock
// and pushed to without it; a target that stops after the snapshot never
// transmits the packet.
func (r *Registry) FanOut(origin *Session, pkt *protocol.Packet) int {
	targets := r.snapshot(origin)

	delivered := 0
	for _, s := range targets {
		if s.Enqueue(pkt) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of the live sessions in no particular order.
func (r *Registry) Sessions() []*Session {
	return r.snapshot(nil)
}

// Contains reports whether s is currently registered.
func (r *Registry) Contains(s *Session) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur, ok := r.sessions[s.id]
	return ok && cur == s
}

func (r *Registry) snapshot(except *Session) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s != except {
			out = append(out, s)
		}
	}
	return out
}
