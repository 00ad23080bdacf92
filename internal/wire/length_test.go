package wire

import "testing"

func TestEncodeDecodeLengthShort(t *testing.T) {
	out, err := EncodeLength(nil, 42)
	if err != nil || len(out) != 1 {
		t.Fatalf("encode: out=%x err=%v", out, err)
	}
	value, needSecond := DecodeLength(out[0])
	if needSecond || value != 42 {
		t.Fatalf("decode: value=%d needSecond=%v", value, needSecond)
	}
}

func TestEncodeDecodeLengthLong(t *testing.T) {
	out, err := EncodeLength(nil, 300)
	if err != nil || len(out) != 2 {
		t.Fatalf("encode: out=%x err=%v", out, err)
	}
	value, needSecond := DecodeLength(out[0])
	if !needSecond {
		t.Fatalf("expected continuation bit set")
	}
	full := FinishLength(byte(value), out[1])
	if full != 300 {
		t.Fatalf("got %d want 300", full)
	}
}

func TestEncodeLengthTooLarge(t *testing.T) {
	if _, err := EncodeLength(nil, 0x8000); err != ErrLengthTooLarge {
		t.Fatalf("expected ErrLengthTooLarge, got %v", err)
	}
	if _, err := EncodeLength(nil, -1); err != ErrLengthTooLarge {
		t.Fatalf("expected ErrLengthTooLarge for negative, got %v", err)
	}
}

func TestEncodeLengthBoundary(t *testing.T) {
	out, err := EncodeLength(nil, 0x7F)
	if err != nil || len(out) != 1 {
		t.Fatalf("0x7F should stay one byte: out=%x err=%v", out, err)
	}
	out, err = EncodeLength(nil, 0x80)
	if err != nil || len(out) != 2 {
		t.Fatalf("0x80 should need two bytes: out=%x err=%v", out, err)
	}
}
