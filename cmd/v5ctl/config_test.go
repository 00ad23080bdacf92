package main

import "testing"

func TestSplitDaemonAddr(t *testing.T) {
	host, port, err := splitDaemonAddr("127.0.0.1:5735")
	if err != nil {
		t.Fatalf("splitDaemonAddr: %v", err)
	}
	if host != "127.0.0.1" || port != 5735 {
		t.Fatalf("got host=%q port=%d", host, port)
	}
}

func TestSplitDaemonAddrMissingColon(t *testing.T) {
	if _, _, err := splitDaemonAddr("noport"); err == nil {
		t.Fatalf("expected an error for an address with no port")
	}
}

func TestSplitDaemonAddrBadPort(t *testing.T) {
	if _, _, err := splitDaemonAddr("host:notanumber"); err == nil {
		t.Fatalf("expected an error for a non-numeric port")
	}
}

func TestParseGlobalFlagsDefaults(t *testing.T) {
	cfg, rest, err := parseGlobalFlags([]string{"status"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if cfg.logFormat != "text" || cfg.logLevel != "info" || cfg.bluetooth {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.daemonAddr != "127.0.0.1:"+defaultDaemonPort {
		t.Fatalf("unexpected default daemon addr: %q", cfg.daemonAddr)
	}
	if len(rest) != 1 || rest[0] != "status" {
		t.Fatalf("expected remaining args to be the subcommand, got %v", rest)
	}
}

func TestParseGlobalFlagsVerboseSetsDebugLevel(t *testing.T) {
	cfg, _, err := parseGlobalFlags([]string{"-v", "status"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if cfg.logLevel != "debug" {
		t.Fatalf("expected verbose to imply debug log level, got %q", cfg.logLevel)
	}
}

func TestParseGlobalFlagsRejectsBadLogFormat(t *testing.T) {
	if _, _, err := parseGlobalFlags([]string{"-log-format", "xml", "status"}); err == nil {
		t.Fatalf("expected an error for an unsupported log format")
	}
}

func TestParseGlobalFlagsRejectsShortPin(t *testing.T) {
	if _, _, err := parseGlobalFlags([]string{"-b", "-i", "12", "status"}); err == nil {
		t.Fatalf("expected an error for a pin that isn't 4 digits")
	}
}

func TestApplyEnvOverridesSkipsExplicitFlags(t *testing.T) {
	t.Setenv("V5CTL_PORT", "/dev/ttyFROMENV")
	cfg, _, err := parseGlobalFlags([]string{"-p", "/dev/ttyEXPLICIT", "status"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if cfg.port != "/dev/ttyEXPLICIT" {
		t.Fatalf("expected the explicit flag to win over the env override, got %q", cfg.port)
	}
}

func TestApplyEnvOverridesAppliesWhenFlagUnset(t *testing.T) {
	t.Setenv("V5CTL_PORT", "/dev/ttyFROMENV")
	cfg, _, err := parseGlobalFlags([]string{"status"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if cfg.port != "/dev/ttyFROMENV" {
		t.Fatalf("expected the env override to apply, got %q", cfg.port)
	}
}

func TestApplyEnvOverridesDaemonPort(t *testing.T) {
	t.Setenv("V5CTL_DAEMON_PORT", "9999")
	cfg, _, err := parseGlobalFlags([]string{"status"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if cfg.daemonAddr != "127.0.0.1:9999" {
		t.Fatalf("expected daemon port override, got %q", cfg.daemonAddr)
	}
}
