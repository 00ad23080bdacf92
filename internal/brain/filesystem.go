package brain

import (
	"context"

	"github.com/marcus8448/v5ctl/internal/wire"
)

const (
	cmdDirCount       = 0x16
	cmdMetaByIndex    = 0x17
	cmdMetaByName     = 0x19
	cmdSetMeta        = 0x1A
	cmdDeleteFile     = 0x1B
	cmdProgramSlot    = 0x1C
)

// GetDirectoryCount issues command 0x16.
func (b *Brain) GetDirectoryCount(ctx context.Context, vid Vid, flags FileFlags) (uint16, error) {
	bld := wire.NewBuilder(2)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(uint8(flags))
	resp, err := b.sendExtended(ctx, cmdDirCount, bld.Bytes())
	if err != nil {
		return 0, err
	}
	return wire.NewReader(resp.Payload).ReadU16(), nil
}

// GetFileMetadataByIndex issues command 0x17.
func (b *Brain) GetFileMetadataByIndex(ctx context.Context, index uint8, flags FileFlags) (*FileMetadata, error) {
	bld := wire.NewBuilder(2)
	bld.WriteU8(index)
	bld.WriteU8(uint8(flags))
	resp, err := b.sendExtended(ctx, cmdMetaByIndex, bld.Bytes())
	if err != nil {
		return nil, err
	}
	return parseMetadata(resp.Payload), nil
}

// GetFileMetadataByName issues command 0x19.
func (b *Brain) GetFileMetadataByName(ctx context.Context, vid Vid, flags FileFlags, filename string) (*FileMetadata, error) {
	bld := wire.NewBuilder(2 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(uint8(flags))
	bld.WriteStr(filename, 24)
	resp, err := b.sendExtended(ctx, cmdMetaByName, bld.Bytes())
	if err != nil {
		return nil, err
	}
	return parseMetadata(resp.Payload), nil
}

// SetFileMetadata issues command 0x1A.
func (b *Brain) SetFileMetadata(ctx context.Context, vid Vid, filename string, flags FileFlags, address uint32, fileType string, timestamp uint32, version uint32) error {
	bld := wire.NewBuilder(1 + 1 + 4 + 4 + 4 + 4 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(uint8(flags))
	bld.WriteU32(address)
	bld.WriteStr(fileType, 4)
	bld.WriteU32(timestamp)
	bld.WriteU32(version)
	bld.WriteStr(filename, 24)
	_, err := b.sendExtended(ctx, cmdSetMeta, bld.Bytes())
	return err
}

// DeleteFile issues command 0x1B.
func (b *Brain) DeleteFile(ctx context.Context, vid Vid, flags DeleteFlags, filename string) error {
	bld := wire.NewBuilder(2 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(uint8(flags))
	bld.WriteStr(filename, 24)
	_, err := b.sendExtended(ctx, cmdDeleteFile, bld.Bytes())
	return err
}

// GetProgramFileSlot issues command 0x1C.
func (b *Brain) GetProgramFileSlot(ctx context.Context, vid Vid, flags FileFlags, filename string) (uint8, error) {
	bld := wire.NewBuilder(2 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(uint8(flags))
	bld.WriteStr(filename, 24)
	resp, err := b.sendExtended(ctx, cmdProgramSlot, bld.Bytes())
	if err != nil {
		return 0, err
	}
	return wire.NewReader(resp.Payload).ReadU8(), nil
}

func parseMetadata(payload []byte) *FileMetadata {
	r := wire.NewReader(payload)
	return &FileMetadata{
		Vid:       Vid(r.ReadU8()),
		Size:      r.ReadU32(),
		Address:   r.ReadU32(),
		CRC:       r.ReadU32(),
		FileType:  r.ReadStr(4),
		Timestamp: FromVexTimestamp(r.ReadU32()),
		Version:   r.ReadU32(),
		Name:      r.ReadStr(24),
	}
}
