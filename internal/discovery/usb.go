// Package discovery finds candidate brains over USB-serial and BLE and
// resolves them to a concrete pair of internal/transport endpoints, without
// internal/brain or internal/transport needing to know how a device was
// found.
package discovery

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// v5VendorID and v5ProductID identify the composite USB-serial device a V5
// brain or controller presents.
const (
	v5VendorID  = "2888"
	v5ProductID = "0501"
)

// Ports names the pair of serial endpoints a V5 USB composite device
// exposes. Comms is optional: controllers only ever present system+user.
type Ports struct {
	System string
	User   string
	Comms  string
}

// FindUSB enumerates attached serial ports and filters to VID 0x2888 / PID
// 0x0501. go.bug.st/serial/enumerator does not surface the USB product
// string on every platform, so partitioning falls back to the positional
// rule the spec allows when naming is ambiguous: system and user are the
// first two candidates in enumeration order, and a third (the auxiliary
// comms endpoint, present on brains but not controllers) is Comms.
// Only the port names are returned; the device serial number is not kept.
func FindUSB() (Ports, error) {
	all, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return Ports{}, fmt.Errorf("discovery: list serial ports: %w", err)
	}

	return partitionPorts(all)
}

// partitionPorts applies the VID/PID filter and positional partitioning rule
// to an enumerated port list. Split out from FindUSB so the rule itself can
// be exercised without real hardware attached.
func partitionPorts(all []*enumerator.PortDetails) (Ports, error) {
	var candidates []*enumerator.PortDetails
	for _, p := range all {
		if !p.IsUSB {
			continue
		}
		if !strings.EqualFold(p.VID, v5VendorID) || !strings.EqualFold(p.PID, v5ProductID) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) < 2 {
		return Ports{}, fmt.Errorf("discovery: found %d V5 USB port(s), need at least 2", len(candidates))
	}

	ports := Ports{System: candidates[0].Name, User: candidates[1].Name}
	if len(candidates) >= 3 {
		ports.Comms = candidates[2].Name
	}
	return ports, nil
}
