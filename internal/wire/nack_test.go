package wire

import "testing"

func TestIsNack(t *testing.T) {
	code, ok := IsNack(byte(NackCRCError))
	if !ok || code != NackCRCError {
		t.Fatalf("expected NackCRCError, got code=%v ok=%v", code, ok)
	}
	if _, ok := IsNack(0x00); ok {
		t.Fatalf("0x00 must not be recognized as a nack code")
	}
}

func TestNackCodeString(t *testing.T) {
	if s := NackFileExists.String(); s == "" {
		t.Fatalf("expected non-empty string")
	}
	unknown := NackCode(0x01)
	if s := unknown.String(); s == "" {
		t.Fatalf("expected non-empty string for unknown code")
	}
}
