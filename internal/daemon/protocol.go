// Package daemon implements the TCP multiplexer that lets several clients
// share one physical brain connection: one verb-framed command per message,
// an exclusive-lock mailbox for system-channel traffic, and a broadcast hub
// for the user communications channel.
package daemon

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Verb identifies the operation carried by a single client->daemon message.
type Verb uint8

const (
	VerbSendSystem       Verb = 0
	VerbSendUser         Verb = 1
	VerbClaimExclusive   Verb = 2
	VerbUnclaimExclusive Verb = 3
	VerbReset            Verb = 4
)

func (v Verb) String() string {
	switch v {
	case VerbSendSystem:
		return "send_system"
	case VerbSendUser:
		return "send_user"
	case VerbClaimExclusive:
		return "claim_exclusive"
	case VerbUnclaimExclusive:
		return "unclaim_exclusive"
	case VerbReset:
		return "reset"
	default:
		return fmt.Sprintf("verb(%d)", uint8(v))
	}
}

// maxFrameLen bounds a single framed payload; the largest legitimate
// payload is a file-transfer write chunk, always well under 4KiB.
const maxFrameLen = 1<<16 - 1

// Message is one verb-framed unit exchanged in either direction:
// [verb u8][length u16 BE][payload].
type Message struct {
	Verb    Verb
	Payload []byte
}

// WriteMessage frames and writes m to w.
func WriteMessage(w io.Writer, m Message) error {
	if len(m.Payload) > maxFrameLen {
		return fmt.Errorf("daemon: payload too large: %d bytes", len(m.Payload))
	}
	hdr := make([]byte, 3)
	hdr[0] = uint8(m.Verb)
	binary.BigEndian.PutUint16(hdr[1:], uint16(len(m.Payload)))
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(m.Payload) == 0 {
		return nil
	}
	_, err := w.Write(m.Payload)
	return err
}

// ReadMessage reads one framed message from r.
func ReadMessage(r *bufio.Reader) (Message, error) {
	hdr := make([]byte, 3)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint16(hdr[1:])
	if length > maxFrameLen {
		return Message{}, fmt.Errorf("daemon: announced length too large: %d", length)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, err
		}
	}
	return Message{Verb: Verb(hdr[0]), Payload: payload}, nil
}

// Handshake is the daemon's opening message on every accepted connection: it
// carries the negotiated max_packet_size so new clients can size file
// transfers before claiming exclusive access.
type Handshake struct {
	MaxPacketSize uint16
}

func WriteHandshake(w io.Writer, h Handshake) error {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, h.MaxPacketSize)
	_, err := w.Write(buf)
	return err
}

func ReadHandshake(r io.Reader) (Handshake, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Handshake{}, err
	}
	return Handshake{MaxPacketSize: binary.BigEndian.Uint16(buf)}, nil
}
