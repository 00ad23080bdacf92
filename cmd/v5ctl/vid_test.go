package main

import (
	"testing"

	"github.com/marcus8448/v5ctl/internal/brain"
)

func TestParseVidFlagNamed(t *testing.T) {
	cases := map[string]brain.Vid{
		"":       brain.VidUser,
		"user":   brain.VidUser,
		"system": brain.VidSystem,
		"rms":    brain.VidRMS,
		"pros":   brain.VidPROS,
		"mw":     brain.VidMw,
	}
	for in, want := range cases {
		got, err := parseVidFlag(in)
		if err != nil {
			t.Fatalf("parseVidFlag(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseVidFlag(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseVidFlagCustomNumeric(t *testing.T) {
	got, err := parseVidFlag("5")
	if err != nil {
		t.Fatalf("parseVidFlag: %v", err)
	}
	if got != brain.Vid(5) {
		t.Fatalf("got %v want 5", got)
	}
}

func TestParseVidFlagRejectsReservedNumeric(t *testing.T) {
	if _, err := parseVidFlag("15"); err == nil {
		t.Fatalf("expected an error for the reserved system vid value")
	}
}

func TestParseVidFlagRejectsGarbage(t *testing.T) {
	if _, err := parseVidFlag("not-a-number"); err == nil {
		t.Fatalf("expected an error for a non-numeric, non-named vid")
	}
}
