package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// padding trimmed from the end of a header record before it is split.
const headerPadding = "\x00 \t\r\n"

// Encode renders h as a comma-separated record padded with NUL bytes to
// exactly HeaderSize bytes.
func Encode(h Header) ([]byte, error) {
	for _, f := range []string{h.Stream, h.Reserved1, h.Reserved2} {
		if strings.Contains(f, Delimiter) {
			return nil, fmt.Errorf("%w: %q", ErrFieldDelimiter, f)
		}
	}

	text := strings.Join([]string{
		strconv.Itoa(h.Version),
		h.Stream,
		h.Reserved1,
		strconv.Itoa(h.Length),
		h.Reserved2,
	}, Delimiter)

	if len(text) > HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrHeaderOverflow, len(text), HeaderSize)
	}

	buf := make([]byte, HeaderSize)
	copy(buf, text)
	return buf, nil
}

// Decode parses a raw header. Any malformed input yields an error wrapping
// ErrInvalidHeader; Decode never panics on arbitrary bytes.
func Decode(raw []byte) (Header, error) {
	if len(raw) != HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes (need %d)", ErrInvalidHeader, len(raw), HeaderSize)
	}

	text := strings.TrimRight(string(raw), headerPadding)
	fields := strings.Split(text, Delimiter)
	if len(fields) != FieldCount {
		return Header{}, fmt.Errorf("%w: %d fields (need %d)", ErrInvalidHeader, len(fields), FieldCount)
	}

	version, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Header{}, fmt.Errorf("%w: version %q", ErrInvalidHeader, fields[0])
	}
	if version != Version {
		return Header{}, fmt.Errorf("%w: version %d (supported %d)", ErrInvalidHeader, version, Version)
	}

	length, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return Header{}, fmt.Errorf("%w: length %q", ErrInvalidHeader, fields[3])
	}
	if length < 0 || length > MaxPayloadLength {
		return Header{}, fmt.Errorf("%w: length %d out of range", ErrInvalidHeader, length)
	}

	return Header{
		Version:   version,
		Stream:    fields[1],
		Reserved1: fields[2],
		Length:    length,
		Reserved2: fields[4],
	}, nil
}

// NewPacket encodes h with the payload's length and returns the packet.
func NewPacket(h Header, payload []byte) (*Packet, error) {
	h.Length = len(payload)
	raw, err := Encode(h)
	if err != nil {
		return nil, err
	}
	return &Packet{Header: h, Raw: raw, Payload: payload}, nil
}

// ReadPacket reads exactly one packet from r. A clean close before any
// header byte returns io.EOF; a truncated header or payload returns an
// error wrapping ErrShortRead.
func ReadPacket(r io.Reader) (*Packet, error) {
	raw := make([]byte, HeaderSize)
	if n, err := io.ReadFull(r, raw); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: header %d of %d bytes: %v", ErrShortRead, n, HeaderSize, err)
	}

	h, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, h.Length)
	if n, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: payload %d of %d bytes: %v", ErrShortRead, n, h.Length, err)
	}

	return &Packet{Header: h, Raw: raw, Payload: payload}, nil
}

// ParsePacket decodes a packet carried in a single message, such as one
// WebSocket frame. The message must hold exactly one header and its payload.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: header %d of %d bytes", ErrShortRead, len(data), HeaderSize)
	}

	h, err := Decode(data[:HeaderSize])
	if err != nil {
		return nil, err
	}

	body := len(data) - HeaderSize
	switch {
	case body < h.Length:
		return nil, fmt.Errorf("%w: payload %d of %d bytes", ErrShortRead, body, h.Length)
	case body > h.Length:
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidHeader, body-h.Length)
	}

	pkt := &Packet{
		Header:  h,
		Raw:     make([]byte, HeaderSize),
		Payload: make([]byte, h.Length),
	}
	copy(pkt.Raw, data[:HeaderSize])
	copy(pkt.Payload, data[HeaderSize:])
	return pkt, nil
}
