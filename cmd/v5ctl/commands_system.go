package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/marcus8448/v5ctl/internal/brain"
)

// cmdStatus prints the five-line system status block.
func cmdStatus(ctx context.Context, cfg *globalConfig, args []string) error {
	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := conn.Brain.GetSystemStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("System Version: %s\n", st.SystemVersion)
	fmt.Printf("CPU 0: %s\n", st.CPU0Version)
	fmt.Printf("CPU 1: %s\n", st.CPU1Version)
	fmt.Printf("Touch: %d\n", st.Touch)
	fmt.Printf("System ID: %08X\n", st.SystemID)
	return nil
}

// cmdStop stops whatever user program is currently running.
func cmdStop(ctx context.Context, cfg *globalConfig, args []string) error {
	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Brain.ExecuteProgram(ctx, brain.VidUser, brain.ExecuteFlagStop, "")
}

// cmdRun starts the program in the given 1..8 slot.
func cmdRun(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	vidFlag := fs.String("v", "user", "Vendor id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: run <slot 1..8> [-v vid]")
	}
	slot, err := strconv.Atoi(fs.Arg(0))
	if err != nil || slot < 1 || slot > 8 {
		return fmt.Errorf("slot must be between 1 and 8")
	}
	vid, err := parseVidFlag(*vidFlag)
	if err != nil {
		return err
	}

	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	name := fmt.Sprintf("slot_%d.bin", slot)
	return conn.Brain.ExecuteProgram(ctx, vid, 0, name)
}
