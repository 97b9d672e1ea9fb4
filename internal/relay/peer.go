// Package relay implements the fan-out relay: per-connection sessions with
// paired receive and transmit loops, the registry that fans packets out to
// every other session, and the listeners that accept peers.
package relay

import (
	"net"

	"github.com/1ureka/tcpreflector/internal/protocol"
)

// Peer is one connected client as seen by a Session. ReadPacket is only
// called from the receive loop and WritePacket only from the transmit loop;
// Close may be called concurrently with both.
type Peer interface {
	ReadPacket() (*protocol.Packet, error)
	WritePacket(pkt *protocol.Packet) error
	RemoteAddr() net.Addr
	Close() error
}

// tcpPeer frames packets directly on a byte stream.
type tcpPeer struct {
	conn net.Conn
}

// NewTCPPeer wraps a stream connection.
func NewTCPPeer(conn net.Conn) Peer {
	return &tcpPeer{conn: conn}
}

func (p *tcpPeer) ReadPacket() (*protocol.Packet, error) {
	return protocol.ReadPacket(p.conn)
}

// WritePacket sends the raw header and the payload back to back. WriteTo
// keeps writing until both buffers are fully sent or the connection fails.
func (p *tcpPeer) WritePacket(pkt *protocol.Packet) error {
	bufs := net.Buffers{pkt.Raw, pkt.Payload}
	_, err := bufs.WriteTo(p.conn)
	return err
}

func (p *tcpPeer) RemoteAddr() net.Addr { return p.conn.RemoteAddr() }
func (p *tcpPeer) Close() error         { return p.conn.Close() }
