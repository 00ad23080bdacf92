package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
	"github.com/marcus8448/v5ctl/internal/upload"
)

// parseAddress accepts both decimal and 0x-prefixed hex.
func parseAddress(s string) (uint32, error) {
	var v uint32
	_, err := fmt.Sscanf(s, "0x%x", &v)
	if err == nil {
		return v, nil
	}
	_, err = fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return v, nil
}

// cmdUpload compresses and ships a hot package (and optional cold PROS
// package) to a program slot, generating the accompanying INI.
func cmdUpload(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	coldPath := fs.String("c", "", "cold (PROS) package path")
	hotPath := fs.String("t", "", "hot (user) package path")
	coldAddr := fs.String("cold-address", "0x03800000", "cold package flash address")
	hotAddr := fs.String("hot-address", "0x07800000", "hot package flash address")
	name := fs.String("n", "", "program name")
	desc := fs.String("d", "", "program description")
	slot := fs.Int("i", 1, "program slot, 1..8")
	action := fs.String("a", "nothing", "completion action: nothing|run|screen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *hotPath == "" {
		return fmt.Errorf("upload: -t hot package path is required")
	}
	if *slot < 1 || *slot > 8 {
		return fmt.Errorf("upload: slot must be between 1 and 8")
	}

	coldAddress, err := parseAddress(*coldAddr)
	if err != nil {
		return err
	}
	hotAddress, err := parseAddress(*hotAddr)
	if err != nil {
		return err
	}
	act, err := brain.ParseUploadAction(*action)
	if err != nil {
		return err
	}

	plan := upload.Plan{
		Name:        *name,
		Description: *desc,
		Slot:        uint8(*slot),
		ColdAddress: coldAddress,
		HotAddress:  hotAddress,
		Action:      act,
		Timestamp:   time.Now(),
	}

	if *coldPath != "" {
		raw, err := os.ReadFile(*coldPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", *coldPath, err)
		}
		c, err := upload.CompressOrReuse(*coldPath, raw)
		if err != nil {
			return err
		}
		plan.Cold = c.Data
	}

	hotRaw, err := os.ReadFile(*hotPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", *hotPath, err)
	}
	hotCompressed, err := upload.CompressOrReuse(*hotPath, hotRaw)
	if err != nil {
		return err
	}
	plan.Hot = hotCompressed.Data

	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	return upload.Run(ctx, conn.Brain, plan)
}
