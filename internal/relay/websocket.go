package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/1ureka/tcpreflector/internal/protocol"
	"github.com/1ureka/tcpreflector/internal/util"
)

// WebSocketPath is where browser peers connect.
const WebSocketPath = "/ws"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// errTextMessage ends a websocket session that sends a non-binary frame.
var errTextMessage = errors.New("unexpected text message")

// wsPeer carries exactly one packet per binary websocket message.
type wsPeer struct {
	conn *websocket.Conn
}

func newWSPeer(conn *websocket.Conn) *wsPeer {
	conn.SetReadLimit(int64(protocol.HeaderSize + protocol.MaxPayloadLength))
	return &wsPeer{conn: conn}
}

func (p *wsPeer) ReadPacket() (*protocol.Packet, error) {
	mt, data, err := p.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	if mt != websocket.BinaryMessage {
		return nil, errTextMessage
	}
	return protocol.ParsePacket(data)
}

func (p *wsPeer) WritePacket(pkt *protocol.Packet) error {
	w, err := p.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if _, err := w.Write(pkt.Raw); err != nil {
		w.Close()
		return err
	}
	if _, err := w.Write(pkt.Payload); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (p *wsPeer) RemoteAddr() net.Addr { return p.conn.RemoteAddr() }
func (p *wsPeer) Close() error         { return p.conn.Close() }

// WebSocketHandler upgrades requests and runs each websocket as a session
// in the server's registry, alongside the TCP peers.
func (srv *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			util.LogDebug("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		srv.startSession(newWSPeer(conn))
	})
}

// ListenAndServeWebSocket binds addr and serves websocket peers on
// WebSocketPath until ctx is cancelled.
func (srv *Server) ListenAndServeWebSocket(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start websocket server on %s: %w", addr, err)
	}
	return srv.ServeWebSocket(ctx, l)
}

// ServeWebSocket serves websocket peers on l. Cancellation stops the HTTP
// server; upgraded connections are hijacked and keep running.
func (srv *Server) ServeWebSocket(ctx context.Context, l net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, srv.WebSocketHandler())

	httpServer := &http.Server{Handler: mux}
	stop := context.AfterFunc(ctx, func() {
		if err := httpServer.Shutdown(context.Background()); err != nil {
			util.LogWarning("websocket server shutdown: %v", err)
		}
	})
	defer stop()

	util.LogInfo("websocket ingress listening on %s%s", l.Addr(), WebSocketPath)

	if err := httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}
