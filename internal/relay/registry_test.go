package relay

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeSession creates an unstarted session backed by one end of a net.Pipe.
// The other end is returned for the test to act as the client.
func pipeSession(t *testing.T, reg *Registry, opts Options) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return NewSession(NewTCPPeer(server), reg, opts), client
}

func TestRegistryRegisterDeregister(t *testing.T) {
	reg := NewRegistry()
	a, _ := pipeSession(t, reg, Options{})
	b, _ := pipeSession(t, reg, Options{})

	reg.Register(a)
	reg.Register(b)
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Contains(a))

	reg.Deregister(a)
	reg.Deregister(a) // idempotent
	assert.Equal(t, 1, reg.Len())
	assert.False(t, reg.Contains(a))
	assert.True(t, reg.Contains(b))
	assert.ElementsMatch(t, []*Session{b}, reg.Sessions())
}

// TestRegistryFanOutExcludesOrigin verifies every session but the origin
// receives the packet.
func TestRegistryFanOutExcludesOrigin(t *testing.T) {
	reg := NewRegistry()
	var sessions []*Session
	for range make([]struct{}, 4) {
		s, _ := pipeSession(t, reg, Options{})
		reg.Register(s)
		sessions = append(sessions, s)
	}

	pkt := mustPacket(t, "sensorA", "hello")
	delivered := reg.FanOut(sessions[0], pkt)
	assert.Equal(t, 3, delivered)

	assert.Equal(t, 0, sessions[0].queue.Len())
	for _, s := range sessions[1:] {
		got, ok := s.queue.Pop(time.Second)
		require.True(t, ok)
		assert.Same(t, pkt, got)
	}
}

// TestRegistryFanOutCountsDrops verifies a full target is skipped without
// affecting the others.
func TestRegistryFanOutCountsDrops(t *testing.T) {
	reg := NewRegistry()
	origin, _ := pipeSession(t, reg, Options{})
	slow, _ := pipeSession(t, reg, Options{QueueDepth: 1})
	fast, _ := pipeSession(t, reg, Options{QueueDepth: 8})
	for _, s := range []*Session{origin, slow, fast} {
		reg.Register(s)
	}

	assert.Equal(t, 2, reg.FanOut(origin, mustPacket(t, "s", "1")))
	assert.Equal(t, 1, reg.FanOut(origin, mustPacket(t, "s", "2")))
	assert.Equal(t, 1, slow.queue.Len())
	assert.Equal(t, 2, fast.queue.Len())
}

// TestRegistryConcurrentMembership churns membership while fan-out runs and
// checks the final set is exactly the sessions that were never removed.
func TestRegistryConcurrentMembership(t *testing.T) {
	const n = 50

	reg := NewRegistry()
	origin, _ := pipeSession(t, reg, Options{})
	reg.Register(origin)

	sessions := make([]*Session, n)
	for i := range sessions {
		sessions[i], _ = pipeSession(t, reg, Options{QueueDepth: 1000})
	}

	stopFanOut := make(chan struct{})
	fanOutDone := make(chan struct{})
	pkt := mustPacket(t, "s", "x")
	go func() {
		defer close(fanOutDone)
		for range make([]struct{}, 500) {
			select {
			case <-stopFanOut:
				return
			default:
				reg.FanOut(origin, pkt)
			}
		}
	}()

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, s *Session) {
			defer wg.Done()
			reg.Register(s)
			if i%2 == 0 {
				reg.Deregister(s)
			}
		}(i, s)
	}
	wg.Wait()
	close(stopFanOut)
	<-fanOutDone

	want := []*Session{origin}
	for i, s := range sessions {
		if i%2 != 0 {
			want = append(want, s)
		}
	}
	assert.ElementsMatch(t, want, reg.Sessions())
}
