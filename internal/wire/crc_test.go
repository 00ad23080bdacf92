package wire

import "testing"

func TestCRC16KnownVector(t *testing.T) {
	// "123456789" is the standard CRC-16/XMODEM check string, expected 0x31C3.
	got := CRC16(0, []byte("123456789"))
	if got != 0x31C3 {
		t.Fatalf("got 0x%04X want 0x31C3", got)
	}
}

func TestVerifyCRC16RoundTrip(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	crc := CRC16(0, data)
	withTrailer := append(append([]byte{}, data...), byte(crc>>8), byte(crc))
	if !VerifyCRC16(withTrailer) {
		t.Fatalf("expected crc to verify")
	}
	withTrailer[0] ^= 0xFF
	if VerifyCRC16(withTrailer) {
		t.Fatalf("expected corrupted frame to fail verification")
	}
}
