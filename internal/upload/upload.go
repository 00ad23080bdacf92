package upload

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
)

// coldPackageVersion is the fixed version stamp passed to
// FileTransferInitialize for every uploaded package, matching the
// original's hardcoded 0b00_01_00 flags byte (version argument, not file
// flags — the name in the source is misleading).
const coldPackageVersion = 0b00_01_00

// Package describes one file ready to hand to uploadFile.
type Package struct {
	Target  brain.TransferTarget
	Type    brain.FileType
	Vid     brain.Vid
	Data    []byte
	Name    string
	Address uint32
	CRC     uint32
	Link    *Link
	Action  brain.UploadAction
}

// Link names a companion file (set-file-transfer-link) to load alongside a
// package — used to pair a hot user package with its cold PROS package.
type Link struct {
	Name string
	Vid  brain.Vid
}

// coldPackageName derives the on-brain filename for a cold (PROS) package:
// base64(md5(data)) truncated to 22 characters, matching the original's
// naming scheme so a brain that already has the package under this name can
// be recognized on a later run.
func coldPackageName(data []byte) string {
	sum := md5.Sum(data)
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	if len(encoded) > 22 {
		encoded = encoded[:22]
	}
	return encoded
}

// Plan is the full set of files an `upload` invocation needs to place on
// the brain: an optional cold (PROS) package, a hot (user) package, and the
// program-slot INI.
type Plan struct {
	Cold        []byte
	Hot         []byte
	Name        string
	Description string
	Slot        uint8
	Icon        string
	ColdAddress uint32
	HotAddress  uint32
	Action      brain.UploadAction
	Timestamp   time.Time
}

// Run executes the full upload: optionally skip the cold package if the
// brain already reports matching size/CRC metadata under its derived name
// (testable property 9), then transfer the hot package linked to it, then
// the generated program-slot INI.
func Run(ctx context.Context, b *brain.Brain, p Plan) error {
	fileName := fmt.Sprintf("slot_%d.bin", p.Slot)
	fileIni := fmt.Sprintf("slot_%d.ini", p.Slot)

	var coldName string
	if len(p.Cold) > 0 {
		coldName = coldPackageName(p.Cold)
		coldCRC := CRC32(p.Cold)

		skip := false
		if meta, err := b.GetFileMetadataByName(ctx, brain.VidPROS, 0, coldName); err == nil {
			if meta.Size == uint32(len(p.Cold)) && meta.CRC == coldCRC {
				skip = true
			}
		}
		if !skip {
			if err := uploadFile(ctx, b, Package{
				Target:  brain.TransferTargetFlash,
				Type:    brain.FileTypeBin,
				Vid:     brain.VidPROS,
				Data:    p.Cold,
				Name:    coldName,
				Address: p.ColdAddress,
				CRC:     coldCRC,
			}); err != nil {
				return fmt.Errorf("upload: cold package: %w", err)
			}
		}
	}

	hotCRC := CRC32(p.Hot)
	hotPkg := Package{
		Target:  brain.TransferTargetFlash,
		Type:    brain.FileTypeBin,
		Vid:     brain.VidUser,
		Data:    p.Hot,
		Name:    fileName,
		Address: p.HotAddress,
		CRC:     hotCRC,
	}
	if coldName != "" {
		hotPkg.Link = &Link{Name: coldName, Vid: brain.VidPROS}
	}
	if err := uploadFile(ctx, b, hotPkg); err != nil {
		return fmt.Errorf("upload: hot package: %w", err)
	}

	ini, err := GenerateProgramINI(ProgramMetadata{
		IDEVersion:  "PROS",
		Name:        p.Name,
		Slot:        p.Slot,
		Icon:        "USER902x.bmp",
		Description: p.Description,
		Date:        p.Timestamp,
	})
	if err != nil {
		return err
	}
	if err := uploadFile(ctx, b, Package{
		Target: brain.TransferTargetFlash,
		Type:   brain.FileTypeIni,
		Vid:    brain.VidUser,
		Data:   ini,
		Name:   fileIni,
		CRC:    CRC32(ini),
		Action: p.Action,
	}); err != nil {
		return fmt.Errorf("upload: program ini: %w", err)
	}
	return nil
}

// action reports the completion action for p: only the INI write actually
// triggers run/screen, every package before it completes with
// UploadActionNothing.
func (p Package) action() brain.UploadAction {
	if p.Action == 0 && p.Type != brain.FileTypeIni {
		return brain.UploadActionNothing
	}
	return p.Action
}

// uploadFile drives one file through initialize -> optional link -> chunked
// write -> complete, per §4.4.
func uploadFile(ctx context.Context, b *brain.Brain, p Package) error {
	ft, err := b.InitializeTransfer(ctx, brain.TransferUpload, p.Target, p.Vid, true, uint32(len(p.Data)), p.Address, p.CRC, coldPackageVersion, p.Type, p.Name, time.Now())
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if ft.Parameters.FileSize < uint32(len(p.Data)) {
		return fmt.Errorf("upload: brain reported max size %d, package is %d bytes", ft.Parameters.FileSize, len(p.Data))
	}
	if p.Link != nil {
		if err := ft.SetLink(ctx, p.Link.Name, p.Link.Vid); err != nil {
			return fmt.Errorf("set link: %w", err)
		}
	}
	chunk := brain.ChunkSize(ft.Parameters.MaxPacketSize)
	if chunk <= 0 {
		chunk = len(p.Data)
	}
	for i := 0; i < len(p.Data); i += chunk {
		end := i + chunk
		if end > len(p.Data) {
			end = len(p.Data)
		}
		if err := ft.Write(ctx, p.Data[i:end], p.Address+uint32(i)); err != nil {
			return fmt.Errorf("write at offset %d: %w", i, err)
		}
	}
	return ft.Complete(ctx, p.action())
}
