package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// globalConfig holds the flags shared by every subcommand: how to reach the
// brain (USB port or BLE), and logging.
type globalConfig struct {
	port       string
	bluetooth  bool
	macAddress string
	pin        string
	verbose    bool
	logFormat  string
	logLevel   string
	daemonAddr string
}

const defaultDaemonPort = "5735"

// parseGlobalFlags parses the global flag set shared ahead of every
// subcommand, applies V5CTL_* environment overrides (flag wins over env,
// env wins over built-in default, mirroring the teacher's CAN_SERVER_*
// convention), and returns the remaining non-flag arguments (the
// subcommand and its own arguments).
func parseGlobalFlags(args []string) (*globalConfig, []string, error) {
	fs := flag.NewFlagSet("v5ctl", flag.ContinueOnError)
	port := fs.String("p", "", "Serial port path (overrides discovery)")
	bluetooth := fs.Bool("b", false, "Connect over Bluetooth Low Energy instead of USB")
	mac := fs.String("m", "", "BLE MAC address (required with -b unless exactly one device advertises)")
	pin := fs.String("i", "", "BLE pairing PIN (4 digits)")
	verbose := fs.Bool("v", false, "Verbose logging")
	logFormat := fs.String("log-format", "text", "Log format: text|json")
	daemonAddr := fs.String("daemon-addr", "127.0.0.1:"+defaultDaemonPort, "Daemon TCP address for commands that go through it")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = struct{}{} })

	cfg := &globalConfig{
		port:       *port,
		bluetooth:  *bluetooth,
		macAddress: *mac,
		pin:        *pin,
		verbose:    *verbose,
		logFormat:  *logFormat,
		logLevel:   "info",
		daemonAddr: *daemonAddr,
	}
	if cfg.verbose {
		cfg.logLevel = "debug"
	}

	applyEnvOverrides(cfg, set)
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func applyEnvOverrides(c *globalConfig, set map[string]struct{}) {
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["p"]; !ok {
		if v, ok := get("V5CTL_PORT"); ok && v != "" {
			c.port = v
		}
	}
	if _, ok := set["daemon-addr"]; !ok {
		if v, ok := get("V5CTL_DAEMON_PORT"); ok && v != "" {
			c.daemonAddr = "127.0.0.1:" + v
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("V5CTL_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["v"]; !ok {
		if v, ok := get("V5CTL_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
}

func (c *globalConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	if c.bluetooth && c.pin != "" && len(c.pin) != 4 {
		return fmt.Errorf("pin must be exactly 4 digits, got %q", c.pin)
	}
	if _, _, err := splitDaemonAddr(c.daemonAddr); err != nil {
		return err
	}
	return nil
}

func splitDaemonAddr(addr string) (string, int, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("invalid daemon address %q", addr)
	}
	port, err := strconv.Atoi(addr[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid daemon port in %q: %w", addr, err)
	}
	return addr[:idx], port, nil
}
