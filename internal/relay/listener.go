package relay

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/1ureka/tcpreflector/internal/util"
)

// Tuning defaults.
const (
	DefaultQueueDepth = 10                     // per-session transmit queue slots
	DefaultPopTimeout = 500 * time.Millisecond // transmit loop liveness re-check
)

// Options tunes the sessions a Server creates.
type Options struct {
	QueueDepth int
	PopTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueDepth <= 0 {
		o.QueueDepth = DefaultQueueDepth
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = DefaultPopTimeout
	}
	return o
}

// Server accepts peers and runs one Session per connection, all sharing a
// single Registry.
type Server struct {
	registry *Registry
	opts     Options
}

// NewServer creates a server with an empty registry.
func NewServer(opts Options) *Server {
	return &Server{
		registry: NewRegistry(),
		opts:     opts.withDefaults(),
	}
}

// Registry returns the registry shared by all of the server's sessions.
func (srv *Server) Registry() *Registry { return srv.registry }

// ListenAndServe binds addr and serves TCP peers until ctx is cancelled.
// A bind failure is returned immediately.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return srv.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is cancelled. Cancellation
// closes the listener but leaves established sessions running.
func (srv *Server) Serve(ctx context.Context, l net.Listener) error {
	// Close the listener when context is done so Accept() returns an error.
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	util.LogInfo("relay listening on %s", l.Addr())

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil // normal shutdown
			}
			return fmt.Errorf("accept error: %w", err)
		}

		srv.startSession(NewTCPPeer(conn))
	}
}

// startSession builds a session for peer and runs it on its own goroutine.
func (srv *Server) startSession(peer Peer) *Session {
	s := NewSession(peer, srv.registry, srv.opts)
	go s.Run()
	return s
}
