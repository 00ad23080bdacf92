package wire

import "fmt"

// ErrLengthTooLarge is returned when a payload length cannot be represented
// by the two-byte continuation encoding (max 0x7FFF).
var ErrLengthTooLarge = fmt.Errorf("wire: length exceeds 0x7FFF")

// EncodeLength appends the wire length encoding of n to dst: one byte if
// n < 0x80, otherwise two big-endian bytes with the high bit of the first
// set as a continuation marker.
func EncodeLength(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > 0x7FFF {
		return dst, ErrLengthTooLarge
	}
	if n < 0x80 {
		return append(dst, byte(n)), nil
	}
	hi := byte(n>>8) | 0x80
	lo := byte(n)
	return append(dst, hi, lo), nil
}

// DecodeLength decodes the first byte of a wire-encoded length. If the
// continuation bit is clear, value is the whole length and needsSecondByte is
// false; otherwise value holds the high seven bits and the caller passes the
// next byte to FinishLength. Simple frames never carry a length field.
func DecodeLength(first byte) (value int, needsSecondByte bool) {
	if first&0x80 == 0 {
		return int(first), false
	}
	return int(first & 0x7F), true
}

// FinishLength combines the high byte (with continuation bit already
// stripped by DecodeLength) and the second byte into the full length.
func FinishLength(high, low byte) int {
	return (int(high&0x7F) << 8) | int(low)
}
