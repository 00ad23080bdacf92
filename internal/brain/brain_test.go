package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcus8448/v5ctl/internal/transport"
	"github.com/marcus8448/v5ctl/internal/wire"
)

func TestScanTimeoutForTransferComplete(t *testing.T) {
	if got := scanTimeoutFor(cmdComplete); got != transferCompleteScan {
		t.Fatalf("got %v want %v", got, transferCompleteScan)
	}
	if got := scanTimeoutFor(cmdSystemStatus); got != defaultScanTimeout {
		t.Fatalf("got %v want %v", got, defaultScanTimeout)
	}
}

func simpleResponseFrame(cmd byte, payload []byte) []byte {
	out := append([]byte{}, wire.ResponsePreamble[:]...)
	out = append(out, cmd, byte(len(payload)))
	out = append(out, payload...)
	return out
}

// extendedResponseFrame builds a full wire response for an extended command:
// preamble, ExtCommand, length, sub-id, status, payload, then a CRC computed
// over everything that precedes it (the frame including its own preamble).
func extendedResponseFrame(subID, status byte, payload []byte) []byte {
	body := append([]byte{subID, status}, payload...)
	frame := append([]byte{}, wire.ResponsePreamble[:]...)
	frame = append(frame, wire.ExtCommand, byte(len(body)+2))
	frame = append(frame, body...)
	crc := wire.CRC16(0, frame)
	frame = append(frame, byte(crc>>8), byte(crc))
	return frame
}

// waitForRequest blocks until the fake has recorded at least one write, or
// fails the test after one second.
func waitForRequest(t *testing.T, fake *transport.Fake) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for len(fake.Written) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(fake.Written) == 0 {
		t.Fatalf("request was never written")
	}
}

func TestGetSystemVersionSuccess(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan *SystemVersion, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := b.GetSystemVersion(ctx)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- v
	}()

	waitForRequest(t, fake)
	fake.Enqueue(simpleResponseFrame(0xA4, []byte{1, 2, 3, 4, 5, byte(ProductBrain)}))

	select {
	case v := <-resultCh:
		if v.Major != 1 || v.Minor != 2 || v.Patch != 3 || v.A != 4 || v.B != 5 {
			t.Fatalf("unexpected version: %+v", v)
		}
		if v.VersionString != "1.2.3-4.5 brain" {
			t.Fatalf("unexpected version string: %q", v.VersionString)
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out waiting for response")
	}
}

func TestGetSystemVersionTimeoutRetries(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake).WithMaxRetries(2)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := b.GetSystemVersion(ctx)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if len(fake.Written) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fake.Written))
	}
}

func TestSetCompetitionState(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- b.SetCompetitionState(ctx, CompetitionDisabled) }()

	waitForRequest(t, fake)
	req := fake.Written[0]
	if req[4] != wire.ExtCommand {
		t.Fatalf("expected extended command, got 0x%02X", req[4])
	}
	fake.Enqueue(extendedResponseFrame(cmd0x2E, 0x00, nil))

	if err := <-errCh; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetDirectoryCount(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan uint16, 1)
	errCh := make(chan error, 1)
	go func() {
		n, err := b.GetDirectoryCount(ctx, VidUser, 0)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- n
	}()

	waitForRequest(t, fake)
	fake.Enqueue(extendedResponseFrame(cmdDirCount, 0x00, []byte{0x07, 0x00}))

	select {
	case n := <-resultCh:
		if n != 7 {
			t.Fatalf("got %d want 7", n)
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out")
	}
}

func TestGetFileMetadataByIndex(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan *FileMetadata, 1)
	errCh := make(chan error, 1)
	go func() {
		m, err := b.GetFileMetadataByIndex(ctx, 0, 0)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- m
	}()

	waitForRequest(t, fake)
	bld := wire.NewBuilder(1 + 4 + 4 + 4 + 4 + 4 + 24)
	bld.WriteU8(uint8(VidUser))
	bld.WriteU32(1024)
	bld.WriteU32(0x03800000)
	bld.WriteU32(0xDEADBEEF)
	bld.WriteStr("bin", 4)
	bld.WriteU32(0)
	bld.WriteU32(1)
	bld.WriteStr("slot_1.bin", 24)
	fake.Enqueue(extendedResponseFrame(cmdMetaByIndex, 0x00, bld.Bytes()))

	select {
	case m := <-resultCh:
		if m.Name != "slot_1.bin" || m.Size != 1024 || m.FileType != "bin" {
			t.Fatalf("unexpected metadata: %+v", m)
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out")
	}
}

func TestDeleteFileNack(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- b.DeleteFile(ctx, VidUser, 0, "missing.bin") }()

	waitForRequest(t, fake)
	fake.Enqueue(extendedResponseFrame(cmdDeleteFile, byte(wire.NackGeneral), nil))

	err := <-errCh
	var nackErr *wire.NackError
	if !errors.As(err, &nackErr) {
		t.Fatalf("expected *wire.NackError, got %v (%T)", err, err)
	}
	if nackErr.Code != wire.NackGeneral {
		t.Fatalf("unexpected nack code: %v", nackErr.Code)
	}
}

func TestGetKernelVariable(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := b.GetKernelVariable(ctx, KernelVarTeamNumber)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- v
	}()

	waitForRequest(t, fake)
	fake.Enqueue(extendedResponseFrame(cmd0x2E, 0x00, []byte("1234\x00")))

	select {
	case v := <-resultCh:
		if v != "1234" {
			t.Fatalf("got %q want %q", v, "1234")
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out")
	}
}

func TestGetSystemStatus(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan *SystemStatus, 1)
	errCh := make(chan error, 1)
	go func() {
		st, err := b.GetSystemStatus(ctx)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- st
	}()

	waitForRequest(t, fake)
	bld := wire.NewBuilder(1 + 4 + 4 + 4 + 3 + 1 + 4)
	bld.WriteU8(0xFF) // leading reserved byte
	bld.WriteU8(1)    // system version: major
	bld.WriteU8(2)
	bld.WriteU8(3)
	bld.WriteU8(4)
	bld.WriteU8(5) // cpu0 version: major
	bld.WriteU8(6)
	bld.WriteU8(7)
	bld.WriteU8(8)
	bld.WriteU8(9) // cpu1 version: major
	bld.WriteU8(10)
	bld.WriteU8(11)
	bld.WriteU8(12)
	bld.WriteU8(0xFF) // reserved gap before touch
	bld.WriteU8(0xFF)
	bld.WriteU8(0xFF)
	bld.WriteU8(1) // touch
	bld.WriteU32(0xCAFEBABE)
	fake.Enqueue(extendedResponseFrame(cmdSystemStatus, 0x00, bld.Bytes()))

	select {
	case st := <-resultCh:
		if st.SystemID != 0xCAFEBABE || st.Touch != 1 {
			t.Fatalf("unexpected status: %+v", st)
		}
		if st.SystemVersion != (Version{1, 2, 3, 4}) {
			t.Fatalf("unexpected system version: %+v", st.SystemVersion)
		}
		if st.CPU0Version != (Version{5, 6, 7, 8}) {
			t.Fatalf("unexpected cpu0 version: %+v", st.CPU0Version)
		}
		if st.CPU1Version != (Version{9, 10, 11, 12}) {
			t.Fatalf("unexpected cpu1 version: %+v", st.CPU1Version)
		}
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	case <-ctx.Done():
		t.Fatalf("timed out")
	}
}

func TestExecuteProgramNack(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- b.ExecuteProgram(ctx, VidUser, 0, "nonexistent.bin") }()

	waitForRequest(t, fake)
	fake.Enqueue(extendedResponseFrame(cmdExecute, byte(wire.NackNonexistentDir), nil))

	err := <-errCh
	var nackErr *wire.NackError
	if !errors.As(err, &nackErr) || nackErr.Code != wire.NackNonexistentDir {
		t.Fatalf("expected NackNonexistentDir, got %v", err)
	}
}

func TestSetKernelVariableTooLong(t *testing.T) {
	fake := transport.NewFake()
	b := New(fake)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := b.SetKernelVariable(ctx, KernelVarTeamNumber, "12345678")
	if err == nil {
		t.Fatalf("expected error for over-length value")
	}
	if len(fake.Written) != 0 {
		t.Fatalf("expected no request to be sent, got %d", len(fake.Written))
	}
}
