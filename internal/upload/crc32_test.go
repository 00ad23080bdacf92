package upload

import "testing"

func TestCRC32KnownVector(t *testing.T) {
	// check value for poly=0x04C11DB7, init=0, no reflection, no xorout,
	// as declared by the upload command's crc::Algorithm definition.
	got := CRC32([]byte("123456789"))
	if got != 0x89A1897F {
		t.Fatalf("got 0x%08X want 0x89A1897F", got)
	}
}

func TestCRC32Empty(t *testing.T) {
	if got := CRC32(nil); got != 0 {
		t.Fatalf("got 0x%08X want 0", got)
	}
}

func TestCRC32Deterministic(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	a := CRC32(data)
	b := CRC32(data)
	if a != b {
		t.Fatalf("crc32 not deterministic: %08X vs %08X", a, b)
	}
	if CRC32([]byte{0x01, 0x02, 0x03, 0x04, 0x06}) == a {
		t.Fatalf("expected different crc for different data")
	}
}
