// Package wire implements the VEX V5 brain framed packet codec: simple and
// extended request/response shapes, the length continuation-bit encoding,
// CRC-16/XMODEM, and NACK decoding. It performs no I/O; internal/brain drives
// it against a transport.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RequestPreamble precedes every outgoing packet, little-endian on the wire.
var RequestPreamble = [4]byte{0xC9, 0x36, 0xB8, 0x47}

// ResponsePreamble precedes every incoming packet.
var ResponsePreamble = [2]byte{0xAA, 0x55}

// ExtCommand is the command byte that signals an extended frame; the real
// operation id follows as the sub-id.
const ExtCommand byte = 0x56

// simpleCommands are the command ids sent without the extended envelope.
// 0xA4 (system version) and 0x21 (product) are the only two the protocol
// defines today.
var simpleCommands = map[byte]bool{
	0xA4: true,
	0x21: true,
}

// IsSimpleCommand reports whether cmd is sent/received as a bare simple
// frame rather than wrapped in the extended envelope.
func IsSimpleCommand(cmd byte) bool { return simpleCommands[cmd] }

var (
	// ErrCommandMismatch is returned when a response's command or echoed
	// sub-id does not match the outstanding request.
	ErrCommandMismatch = errors.New("wire: response command mismatch")
	// ErrCRC is returned when an extended response's trailing CRC does not
	// recompute to zero.
	ErrCRC = errors.New("wire: crc check failed")
	// ErrShortPayload is returned when an extended response is too short to
	// contain its mandatory sub-id + status + CRC trailer.
	ErrShortPayload = errors.New("wire: response payload too short")
)

// NackError is the typed error surfaced when a response's status byte is one
// of the fourteen recognized NACK codes.
type NackError struct {
	Code NackCode
}

func (e *NackError) Error() string { return fmt.Sprintf("nack: %s", e.Code) }

// BuildSimpleRequest returns the full wire bytes for a simple-shaped request:
// preamble, command id, payload, no CRC.
func BuildSimpleRequest(cmd byte, payload []byte) []byte {
	out := make([]byte, 0, 4+1+len(payload))
	out = append(out, RequestPreamble[:]...)
	out = append(out, cmd)
	out = append(out, payload...)
	return out
}

// BuildExtendedRequest returns the full wire bytes for an extended-shaped
// request: preamble, 0x56, sub-id, wire-encoded length, payload, CRC-16.
func BuildExtendedRequest(subID byte, payload []byte) ([]byte, error) {
	out := make([]byte, 0, 4+1+1+2+len(payload)+2)
	out = append(out, RequestPreamble[:]...)
	out = append(out, ExtCommand, subID)
	out, err := EncodeLength(out, len(payload))
	if err != nil {
		return nil, err
	}
	out = append(out, payload...)
	crc := CRC16(0, out)
	out = append(out, byte(crc>>8), byte(crc))
	return out, nil
}

// DecodeSimpleResponse validates the command id of a simple response and
// returns its payload unchanged.
func DecodeSimpleResponse(wantCmd byte, cmd byte, payload []byte) ([]byte, error) {
	if cmd != wantCmd {
		return nil, fmt.Errorf("%w: want 0x%02X got 0x%02X", ErrCommandMismatch, wantCmd, cmd)
	}
	return payload, nil
}

// ExtendedResponse is the decoded, validated body of an extended response:
// everything between the echoed sub-id/status byte and the trailing CRC.
type ExtendedResponse struct {
	SubID   byte
	Status  byte
	Payload []byte
}

// DecodeExtendedBody parses the body of an extended response (sub-id, status,
// payload) once the scanner has already located, length-delimited, and
// CRC-verified the frame. body excludes the preamble/command/length header
// and the trailing CRC.
func DecodeExtendedBody(body []byte, wantSubID byte) (*ExtendedResponse, error) {
	if len(body) < 2 {
		return nil, ErrShortPayload
	}
	subID := body[0]
	status := body[1]
	if subID != wantSubID {
		return nil, fmt.Errorf("%w: want 0x%02X got 0x%02X", ErrCommandMismatch, wantSubID, subID)
	}
	if code, ok := IsNack(status); ok {
		return nil, &NackError{Code: code}
	}
	return &ExtendedResponse{SubID: subID, Status: status, Payload: body[2:]}, nil
}

// CRCFooter returns the two big-endian CRC bytes for a fully assembled frame
// prefix (everything up to, but not including, the CRC itself).
func CRCFooter(prefix []byte) [2]byte {
	crc := CRC16(0, prefix)
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], crc)
	return out
}
