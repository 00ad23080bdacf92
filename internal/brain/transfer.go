package brain

import (
	"context"
	"time"

	"github.com/marcus8448/v5ctl/internal/wire"
)

const (
	cmdSetChannel = 0x10
	cmdInitialize = 0x11
	cmdComplete   = 0x12
	cmdWrite      = 0x13
	cmdRead       = 0x14
	cmdSetLink    = 0x15
)

// FileTransfer is the stateful handle returned by InitializeTransfer. Per
// the REDESIGN FLAGS resolution of the "self-referential FileTransfer"
// design note, it holds a plain *Brain field rather than a Rust-style
// self-borrow; callers pass it around like any other value and every method
// re-uses the same underlying Brain.
type FileTransfer struct {
	brain      *Brain
	Parameters UploadParameters
}

// InitializeTransfer issues command 0x11 and returns a FileTransfer tied to
// this Brain. The Brain must not be used for any other operation until the
// transfer is completed (§4.4: "ties to the Brain exclusively").
func (b *Brain) InitializeTransfer(ctx context.Context, direction TransferDirection, target TransferTarget, vid Vid, overwrite bool, length uint32, address uint32, crc uint32, version uint32, fileType FileType, name string, timestamp time.Time) (*FileTransfer, error) {
	bld := wire.NewBuilder(4*1 + 4*3 + 4 + 24)
	bld.WriteU8(uint8(direction))
	bld.WriteU8(uint8(target))
	bld.WriteU8(uint8(vid))
	bld.WriteBool(overwrite)
	bld.WriteU32(length)
	bld.WriteU32(address)
	bld.WriteU32(crc)
	bld.WriteStr(string(fileType), 4)
	bld.WriteU32(ToVexTimestamp(timestamp))
	bld.WriteU32(version)
	bld.WriteStr(name, 24)

	resp, err := b.sendExtended(ctx, cmdInitialize, bld.Bytes())
	if err != nil {
		return nil, err
	}
	r := wire.NewReader(resp.Payload)
	return &FileTransfer{
		brain: b,
		Parameters: UploadParameters{
			MaxPacketSize: r.ReadU16(),
			FileSize:      r.ReadU32(),
			CRC:           r.ReadU32(),
		},
	}, nil
}

// SetChannel issues command 0x10.
func (ft *FileTransfer) SetChannel(ctx context.Context, ch Channel) error {
	bld := wire.NewBuilder(2)
	bld.WriteU8(1)
	bld.WriteU8(uint8(ch))
	_, err := ft.brain.sendExtended(ctx, cmdSetChannel, bld.Bytes())
	return err
}

// SetLink issues command 0x15, naming a companion file (used to link a hot
// package to its cold package) to load alongside this transfer.
func (ft *FileTransfer) SetLink(ctx context.Context, name string, vid Vid) error {
	bld := wire.NewBuilder(1 + 1 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(0)
	bld.WriteStr(name, 24)
	_, err := ft.brain.sendExtended(ctx, cmdSetLink, bld.Bytes())
	return err
}

// Write issues command 0x13, zero-padding slice to 4-byte alignment. Every
// write carries its absolute address, which is what makes retransmission of
// a timed-out write safe (§4.3).
func (ft *FileTransfer) Write(ctx context.Context, slice []byte, address uint32) error {
	pad := 0
	if r := len(slice) % 4; r != 0 {
		pad = 4 - r
	}
	bld := wire.NewBuilder(4 + len(slice) + pad)
	bld.WriteU32(address)
	bld.WriteRaw(slice)
	bld.Pad(pad)
	_, err := ft.brain.sendExtended(ctx, cmdWrite, bld.Bytes())
	return err
}

// Read issues command 0x14.
func (ft *FileTransfer) Read(ctx context.Context, length uint16, address uint32) ([]byte, error) {
	bld := wire.NewBuilder(6)
	bld.WriteU32(address)
	bld.WriteU16(length)
	resp, err := ft.brain.sendExtended(ctx, cmdRead, bld.Bytes())
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, resp.Payload)
	return out, nil
}

// Complete issues command 0x12 and consumes the handle (the extended scan
// timeout for this command is 2s; see scanTimeoutFor).
func (ft *FileTransfer) Complete(ctx context.Context, action UploadAction) error {
	bld := wire.NewBuilder(1)
	bld.WriteU8(uint8(action))
	_, err := ft.brain.sendExtended(ctx, cmdComplete, bld.Bytes())
	return err
}

// ChunkSize derives the effective write chunk size from a negotiated
// max packet size using the "simpler rule" endorsed in §4.4: half the
// window, floored to a multiple of 4. See DESIGN.md for why the stricter
// alternative formula from the original source is not used here.
func ChunkSize(maxPacketSize uint16) int {
	half := int(maxPacketSize) / 2
	return half - (half % 4)
}
