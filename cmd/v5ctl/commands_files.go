package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/marcus8448/v5ctl/internal/brain"
)

func printMetadata(m *brain.FileMetadata) {
	fmt.Printf("Name: %s\n", m.Name)
	fmt.Printf("Vid: %s\n", m.Vid)
	fmt.Printf("Size: %d\n", m.Size)
	fmt.Printf("Address: 0x%08X\n", m.Address)
	fmt.Printf("CRC: 0x%08X\n", m.CRC)
	fmt.Printf("Type: %s\n", m.FileType)
	fmt.Printf("Timestamp: %s\n", m.Timestamp)
	fmt.Printf("Version: %d\n", m.Version)
}

// cmdMetadata prints the eight-line metadata block for one file.
func cmdMetadata(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("metadata", flag.ContinueOnError)
	vidFlag := fs.String("v", "user", "Vendor id")
	optFlag := fs.Uint("o", 0, "File flags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: metadata <file> [-v vid] [-o option]")
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

	meta, err := conn.Brain.GetFileMetadataByName(ctx, vid, brain.FileFlags(*optFlag), fs.Arg(0))
	if err != nil {
		return err
	}
	printMetadata(meta)
	return nil
}

// cmdLsFiles walks the directory listing, printing a metadata block per
// file, in index order.
func cmdLsFiles(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("ls_files", flag.ContinueOnError)
	vidFlag := fs.String("v", "user", "Vendor id")
	optFlag := fs.Uint("o", 0, "File flags")
	if err := fs.Parse(args); err != nil {
		return err
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

	count, err := conn.Brain.GetDirectoryCount(ctx, vid, brain.FileFlags(*optFlag))
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		meta, err := conn.Brain.GetFileMetadataByIndex(ctx, uint8(i), brain.FileFlags(*optFlag))
		if err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
		if i > 0 {
			fmt.Println("---")
		}
		printMetadata(meta)
	}
	return nil
}

// cmdRmAll erases every file belonging to vid.
func cmdRmAll(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("rm_all", flag.ContinueOnError)
	vidFlag := fs.String("v", "user", "Vendor id")
	if err := fs.Parse(args); err != nil {
		return err
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

	return conn.Brain.DeleteFile(ctx, vid, brain.DeleteFlagEraseAll, "")
}

// cmdRmFile deletes a single named file.
func cmdRmFile(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("rm_file", flag.ContinueOnError)
	vidFlag := fs.String("v", "user", "Vendor id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: rm_file <name> [-v vid]")
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

	return conn.Brain.DeleteFile(ctx, vid, 0, fs.Arg(0))
}

// cmdRmProgram deletes both files (bin + ini) that make up a program slot.
func cmdRmProgram(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("rm_program", flag.ContinueOnError)
	vidFlag := fs.String("v", "user", "Vendor id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: rm_program <slot 1..8> [-v vid]")
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

	bin := fmt.Sprintf("slot_%d.bin", slot)
	ini := fmt.Sprintf("slot_%d.ini", slot)
	if err := conn.Brain.DeleteFile(ctx, vid, 0, bin); err != nil {
		return fmt.Errorf("delete %s: %w", bin, err)
	}
	if err := conn.Brain.DeleteFile(ctx, vid, 0, ini); err != nil {
		return fmt.Errorf("delete %s: %w", ini, err)
	}
	return nil
}
