package daemon

import (
	"bufio"
	"bytes"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Message{Verb: VerbSendUser, Payload: []byte("hello")}
	if err := WriteMessage(&buf, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Verb != want.Verb || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestMessageRoundTripEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, Message{Verb: VerbClaimExclusive}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Verb != VerbClaimExclusive || len(got.Payload) != 0 {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestWriteMessageTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, Message{Verb: VerbSendSystem, Payload: make([]byte, maxFrameLen+1)})
	if err == nil {
		t.Fatalf("expected error for oversized payload")
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHandshake(&buf, Handshake{MaxPacketSize: 512}); err != nil {
		t.Fatalf("write: %v", err)
	}
	hs, err := ReadHandshake(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if hs.MaxPacketSize != 512 {
		t.Fatalf("got %d want 512", hs.MaxPacketSize)
	}
}

func TestVerbString(t *testing.T) {
	if VerbSendSystem.String() != "send_system" {
		t.Fatalf("unexpected string for VerbSendSystem")
	}
	if Verb(99).String() == "" {
		t.Fatalf("expected non-empty fallback string")
	}
}

func TestParseCmdIDSimple(t *testing.T) {
	raw := []byte{0xC9, 0x36, 0xB8, 0x47, 0xA4}
	if got := parseCmdID(raw); got != 0xA4 {
		t.Fatalf("got 0x%02X want 0xA4", got)
	}
}

func TestParseCmdIDExtended(t *testing.T) {
	raw := []byte{0xC9, 0x36, 0xB8, 0x47, 0x56, 0x22, 0x00}
	if got := parseCmdID(raw); got != 0x22 {
		t.Fatalf("got 0x%02X want 0x22", got)
	}
}

func TestParseCmdIDMalformed(t *testing.T) {
	if got := parseCmdID([]byte{0x00}); got != 0 {
		t.Fatalf("expected 0 for too-short frame, got 0x%02X", got)
	}
	if got := parseCmdID([]byte{0x01, 0x02, 0x03, 0x04, 0x05}); got != 0 {
		t.Fatalf("expected 0 for bad preamble, got 0x%02X", got)
	}
}
