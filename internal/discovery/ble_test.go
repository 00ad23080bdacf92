package discovery

import "testing"

func TestMatchesV5NamePrefix(t *testing.T) {
	if !matchesV5("AA:BB", "VEX0001A0", "") {
		t.Fatalf("expected a VEX-prefixed name to match with no MAC filter")
	}
	if matchesV5("AA:BB", "Other Device", "") {
		t.Fatalf("expected a non-VEX name to be rejected")
	}
}

func TestMatchesV5MacFilter(t *testing.T) {
	if !matchesV5("aa:bb:cc", "VEX0001A0", "AA:BB:CC") {
		t.Fatalf("expected a case-insensitive MAC match to pass")
	}
	if matchesV5("aa:bb:cc", "VEX0001A0", "11:22:33") {
		t.Fatalf("expected a mismatched MAC to be rejected")
	}
}
