// Package protocol defines the relay's wire framing: a fixed-size ASCII
// header followed by an opaque payload.
package protocol

import "errors"

// Wire constants.
const (
	HeaderSize       = 128              // bytes occupied by every header on the wire
	Version          = 2                // the only header version this relay accepts
	FieldCount       = 5                // version,stream,reserved,length,reserved
	Delimiter        = ","              // header field separator
	MaxPayloadLength = 16 * 1024 * 1024 // larger declared lengths are rejected
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrInvalidHeader is returned by Decode for any malformed header.
	ErrInvalidHeader = errors.New("invalid header")

	// ErrHeaderOverflow is returned by Encode when the fields do not fit in HeaderSize bytes.
	ErrHeaderOverflow = errors.New("header does not fit")

	// ErrFieldDelimiter is returned by Encode when a text field contains the delimiter.
	ErrFieldDelimiter = errors.New("header field contains delimiter")

	// ErrShortRead is returned when a header or payload ends before its declared size.
	ErrShortRead = errors.New("short read")
)

// Header is the decoded form of a packet header.
// Reserved1 and Reserved2 (fields 3 and 5) are carried as opaque text.
type Header struct {
	Version   int
	Stream    string
	Reserved1 string
	Length    int
	Reserved2 string
}

// Packet is one framed unit: the raw header bytes exactly as received and
// the payload that followed them. Raw is what gets forwarded, never a
// re-encoding of Header.
type Packet struct {
	Header  Header
	Raw     []byte // exactly HeaderSize bytes
	Payload []byte // exactly Header.Length bytes
}

// Size returns the number of bytes the packet occupies on the wire.
func (p *Packet) Size() int {
	return len(p.Raw) + len(p.Payload)
}

// Bytes returns header and payload concatenated into a new slice.
func (p *Packet) Bytes() []byte {
	buf := make([]byte, 0, p.Size())
	buf = append(buf, p.Raw...)
	return append(buf, p.Payload...)
}
