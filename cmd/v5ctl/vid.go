package main

import (
	"fmt"
	"strconv"

	"github.com/marcus8448/v5ctl/internal/brain"
)

// parseVidFlag parses the CLI's `-v` flag: a named vid or a raw integer.
func parseVidFlag(s string) (brain.Vid, error) {
	switch s {
	case "", "user":
		return brain.VidUser, nil
	case "system":
		return brain.VidSystem, nil
	case "rms":
		return brain.VidRMS, nil
	case "pros":
		return brain.VidPROS, nil
	case "mw":
		return brain.VidMw, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid vid %q", s)
	}
	return brain.NewCustomVid(uint8(n))
}
