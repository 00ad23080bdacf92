package main

import (
	"context"
	"fmt"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
	"github.com/marcus8448/v5ctl/internal/discovery"
	"github.com/marcus8448/v5ctl/internal/logging"
	"github.com/marcus8448/v5ctl/internal/transport"
)

const bleScanTimeout = 5 * time.Second

// connection bundles the Brain session with the underlying transport so
// callers can Close it on exit.
type connection struct {
	Brain *brain.Brain
	sys   transport.Transport
}

func (c *connection) Close() error { return c.sys.Close() }

// connectSystem opens the system-channel transport named by cfg (explicit
// -p path, USB discovery, or BLE scan+pair) and wraps it in a Brain.
func connectSystem(ctx context.Context, cfg *globalConfig) (*connection, error) {
	if cfg.bluetooth {
		return connectBLE(ctx, cfg)
	}
	return connectUSB(cfg)
}

func connectUSB(cfg *globalConfig) (*connection, error) {
	portName := cfg.port
	if portName == "" {
		ports, err := discovery.FindUSB()
		if err != nil {
			return nil, fmt.Errorf("discover usb: %w", err)
		}
		portName = ports.System
		logging.L().Debug("usb_discovered", "system", ports.System, "user", ports.User)
	}
	sys, err := transport.OpenUSB(portName)
	if err != nil {
		return nil, fmt.Errorf("open usb %s: %w", portName, err)
	}
	return &connection{Brain: brain.New(sys), sys: sys}, nil
}

func connectBLE(ctx context.Context, cfg *globalConfig) (*connection, error) {
	addr := cfg.macAddress
	if addr == "" {
		found, err := discovery.ScanBLE(ctx, bleScanTimeout, "")
		if err != nil {
			return nil, fmt.Errorf("scan ble: %w", err)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no V5 BLE device found")
		}
		if len(found) > 1 {
			return nil, fmt.Errorf("multiple V5 BLE devices found, specify -m: %v", found)
		}
		addr = found[0]
	}
	bt, err := discovery.DialBLE(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("dial ble %s: %w", addr, err)
	}
	if err := bt.Pair(ctx, cfg.pin); err != nil {
		_ = bt.Close()
		return nil, fmt.Errorf("pair: %w", err)
	}
	return &connection{Brain: brain.New(bt), sys: bt}, nil
}
