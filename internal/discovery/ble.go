package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/currantlabs/ble"

	"github.com/marcus8448/v5ctl/internal/transport"
)

// v5NamePrefix is the advertised local name prefix V5 brains and
// controllers use over BLE (e.g. "VEX0001A0").
const v5NamePrefix = "VEX"

// ScanBLE scans for advertising V5 devices for timeout, optionally
// restricting to a specific MAC address, and returns the matching
// advertisements' addresses. Scanning stops early once ctx is cancelled.
func ScanBLE(ctx context.Context, timeout time.Duration, macAddress string) ([]string, error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var found []string
	seen := map[string]bool{}
	advHandler := func(a ble.Advertisement) {
		addr := a.Addr().String()
		if !matchesV5(addr, a.LocalName(), macAddress) {
			return
		}
		if !seen[addr] {
			seen[addr] = true
			found = append(found, addr)
		}
	}

	err := ble.Scan(sctx, false, advHandler, nil)
	if err != nil && sctx.Err() == nil {
		return nil, fmt.Errorf("discovery: ble scan: %w", err)
	}
	return found, nil
}

// matchesV5 applies the advertised-name-prefix and optional MAC filter a
// scan result must pass, split out of ScanBLE's advertisement handler so the
// rule itself can be tested without a real BLE adapter.
func matchesV5(addr, localName, macAddress string) bool {
	if macAddress != "" && !strings.EqualFold(addr, macAddress) {
		return false
	}
	return strings.HasPrefix(localName, v5NamePrefix)
}

// DialBLE connects to addr, discovers the V5 GATT profile, and wraps it in a
// transport.BLE. The caller drives transport.BLE.Pair if pairing is needed.
func DialBLE(ctx context.Context, addr string) (*transport.BLE, error) {
	client, err := ble.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, fmt.Errorf("discovery: ble dial: %w", err)
	}
	profile, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		return nil, fmt.Errorf("discovery: ble discover profile: %w", err)
	}
	bt, err := transport.NewBLE(client, profile)
	if err != nil {
		_ = client.CancelConnection()
		return nil, err
	}
	return bt, nil
}
