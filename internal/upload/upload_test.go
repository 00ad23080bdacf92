package upload

import (
	"context"
	"testing"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
	"github.com/marcus8448/v5ctl/internal/transport"
	"github.com/marcus8448/v5ctl/internal/wire"
)

func TestColdPackageNameLengthAndStability(t *testing.T) {
	data := []byte("a pros binary's worth of bytes")
	name := coldPackageName(data)
	if len(name) > 22 {
		t.Fatalf("name exceeds 22 chars: %q", name)
	}
	if coldPackageName(data) != name {
		t.Fatalf("coldPackageName is not deterministic")
	}
	if coldPackageName([]byte("different bytes")) == name {
		t.Fatalf("expected different names for different inputs")
	}
}

// extFrame builds a full extended response frame, echoing subID, for the
// driver loop below.
func extFrame(subID byte, payload []byte) []byte {
	body := append([]byte{subID, 0x00}, payload...)
	frame := append([]byte{}, wire.ResponsePreamble[:]...)
	frame = append(frame, wire.ExtCommand, byte(len(body)+2))
	frame = append(frame, body...)
	crc := wire.CRC16(0, frame)
	frame = append(frame, byte(crc>>8), byte(crc))
	return frame
}

// driveSequence feeds one canned payload per outgoing extended request, in
// the order Run is expected to issue them, until either the sequence is
// exhausted, the deadline passes, or the returned stop func is called (the
// caller defers it so the goroutine never outlives the test).
func driveSequence(t *testing.T, fake *transport.Fake, payloads [][]byte) (stop func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		next := 0
		deadline := time.Now().Add(5 * time.Second)
		for next < len(payloads) && time.Now().Before(deadline) {
			select {
			case <-done:
				return
			default:
			}
			if len(fake.Written) <= next {
				time.Sleep(time.Millisecond)
				continue
			}
			req := fake.Written[next]
			if len(req) < 6 || req[4] != wire.ExtCommand {
				return
			}
			subID := req[5]
			fake.Enqueue(extFrame(subID, payloads[next]))
			next++
		}
	}()
	return func() { close(done) }
}

func initializeResponsePayload(maxPacketSize uint16, fileSize, crc uint32) []byte {
	bld := wire.NewBuilder(10)
	bld.WriteU16(maxPacketSize)
	bld.WriteU32(fileSize)
	bld.WriteU32(crc)
	return bld.Bytes()
}

func metadataResponsePayload(vid brain.Vid, size, address, crc uint32, fileType string, name string) []byte {
	bld := wire.NewBuilder(1 + 4 + 4 + 4 + 4 + 4 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU32(size)
	bld.WriteU32(address)
	bld.WriteU32(crc)
	bld.WriteStr(fileType, 4)
	bld.WriteU32(0)
	bld.WriteU32(1)
	bld.WriteStr(name, 24)
	return bld.Bytes()
}

func TestRunSkipsColdPackageOnCacheHit(t *testing.T) {
	fake := transport.NewFake()
	b := brain.New(fake)

	cold := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	hot := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	coldName := coldPackageName(cold)
	coldCRC := CRC32(cold)

	plan := Plan{
		Cold:        cold,
		Hot:         hot,
		Name:        "Example",
		Description: "an example program",
		Slot:        1,
		ColdAddress: 0x03800000,
		HotAddress:  0x07800000,
		Action:      brain.UploadActionRun,
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	ini, err := GenerateProgramINI(ProgramMetadata{
		IDEVersion:  "PROS",
		Name:        plan.Name,
		Slot:        plan.Slot,
		Icon:        "USER902x.bmp",
		Description: plan.Description,
		Date:        plan.Timestamp,
	})
	if err != nil {
		t.Fatalf("ini: %v", err)
	}

	payloads := [][]byte{
		// GetFileMetadataByName(VidPROS, coldName): matching size+crc skips
		// the cold package entirely.
		metadataResponsePayload(brain.VidPROS, uint32(len(cold)), 0x03800000, coldCRC, "bin", coldName),
		// hot package: initialize, set-link, one write, complete.
		initializeResponsePayload(256, uint32(len(hot)), 0),
		nil,
		nil,
		nil,
		// program ini: initialize, one write, complete.
		initializeResponsePayload(1024, uint32(len(ini)), 0),
		nil,
		nil,
	}
	stop := driveSequence(t, fake, payloads)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, b, plan); err != nil {
		t.Fatalf("run: %v", err)
	}

	var sawWrite, sawLink bool
	for _, req := range fake.Written {
		if len(req) < 6 || req[4] != wire.ExtCommand {
			continue
		}
		switch req[5] {
		case 0x13:
			sawWrite = true
		case 0x15:
			sawLink = true
		}
	}
	if !sawWrite {
		t.Fatalf("expected at least one file-transfer write")
	}
	if !sawLink {
		t.Fatalf("expected the hot package to be linked to its cold package")
	}
}

func TestRunUploadsColdPackageOnCacheMiss(t *testing.T) {
	fake := transport.NewFake()
	b := brain.New(fake)

	cold := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	hot := []byte{0x10, 0x20, 0x30, 0x40}

	plan := Plan{
		Cold:        cold,
		Hot:         hot,
		Name:        "Example",
		Description: "",
		Slot:        2,
		ColdAddress: 0x03800000,
		HotAddress:  0x07800000,
		Action:      brain.UploadActionNothing,
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	ini, err := GenerateProgramINI(ProgramMetadata{
		IDEVersion:  "PROS",
		Name:        plan.Name,
		Slot:        plan.Slot,
		Icon:        "USER902x.bmp",
		Description: plan.Description,
		Date:        plan.Timestamp,
	})
	if err != nil {
		t.Fatalf("ini: %v", err)
	}

	payloads := [][]byte{
		// GetFileMetadataByName returns a mismatched CRC, forcing a
		// fresh cold-package upload.
		metadataResponsePayload(brain.VidPROS, uint32(len(cold)), 0, 0xFFFFFFFF, "bin", coldPackageName(cold)),
		// cold package: initialize, one write, complete.
		initializeResponsePayload(256, uint32(len(cold)), 0),
		nil,
		nil,
		// hot package: initialize, set-link, one write, complete.
		initializeResponsePayload(256, uint32(len(hot)), 0),
		nil,
		nil,
		nil,
		// program ini: initialize, one write, complete.
		initializeResponsePayload(1024, uint32(len(ini)), 0),
		nil,
		nil,
	}
	stop := driveSequence(t, fake, payloads)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Run(ctx, b, plan); err != nil {
		t.Fatalf("run: %v", err)
	}

	writeCount := 0
	for _, req := range fake.Written {
		if len(req) >= 6 && req[4] == wire.ExtCommand && req[5] == 0x13 {
			writeCount++
		}
	}
	if writeCount != 3 {
		t.Fatalf("expected 3 file-transfer writes (cold, hot, ini), got %d", writeCount)
	}
}
