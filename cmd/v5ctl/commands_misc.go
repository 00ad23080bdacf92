package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
)

const terminalPollInterval = 50 * time.Millisecond

// cmdTerminal is a thin interactive loop over the user-channel: stdin bytes
// go out as SendUserCommunications, incoming bytes are polled and echoed to
// stdout, until the connection is closed or the context is cancelled.
func cmdTerminal(ctx context.Context, cfg *globalConfig, args []string) error {
	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	const channel = 1
	var brainMu sync.Mutex // conn.Brain is shared by the stdin goroutine and the poll loop
	errCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := append(scanner.Bytes(), '\n')
			brainMu.Lock()
			err := conn.Brain.SendUserCommunications(ctx, channel, line)
			brainMu.Unlock()
			if err != nil {
				errCh <- err
				return
			}
		}
		errCh <- scanner.Err()
	}()

	t := time.NewTicker(terminalPollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-t.C:
			brainMu.Lock()
			data, err := conn.Brain.ReadUserCommunications(ctx, channel, 64)
			brainMu.Unlock()
			if err != nil {
				return err
			}
			if len(data) > 0 {
				os.Stdout.Write(data)
			}
		}
	}
}

// cmdCapture pulls the current screen contents through a Screen-target
// file-transfer read and writes the raw bitmap bytes to the named file.
func cmdCapture(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: capture <out.png>")
	}
	out := fs.Arg(0)

	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	const captureLength = 512 * 272 * 4 // RGBA8888 screen buffer
	ft, err := conn.Brain.InitializeTransfer(ctx, brain.TransferDownload, brain.TransferTargetScreen, brain.VidSystem, false, captureLength, 0, 0, 0, brain.FileTypeBin, "screen", time.Now())
	if err != nil {
		return fmt.Errorf("capture: initialize: %w", err)
	}

	buf := make([]byte, 0, captureLength)
	chunk := brain.ChunkSize(ft.Parameters.MaxPacketSize)
	if chunk <= 0 {
		chunk = captureLength
	}
	for offset := 0; offset < captureLength; offset += chunk {
		want := chunk
		if offset+want > captureLength {
			want = captureLength - offset
		}
		data, err := ft.Read(ctx, uint16(want), uint32(offset))
		if err != nil {
			return fmt.Errorf("capture: read at %d: %w", offset, err)
		}
		buf = append(buf, data...)
		if len(data) < want {
			break
		}
	}
	if err := ft.Complete(ctx, brain.UploadActionNothing); err != nil {
		return fmt.Errorf("capture: complete: %w", err)
	}

	if err := os.WriteFile(out, buf, 0o644); err != nil {
		return fmt.Errorf("capture: write %s: %w", out, err)
	}
	return nil
}
