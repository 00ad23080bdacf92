package upload

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// programVersion is the fixed version stamp every generated program slot
// INI carries (0x01000000, the one value the original ever emits).
const programVersion = 16777216

// ProgramMetadata is the set of fields the `upload` command's INI describes.
type ProgramMetadata struct {
	IDEVersion  string
	Name        string
	Slot        uint8
	Icon        string
	Description string
	Date        time.Time
}

// GenerateProgramINI renders m into the `<name>.ini` layout the brain's
// program slot expects: a [project] section naming the toolchain, and a
// [program] section with the fields that show up on the brain's screen.
func GenerateProgramINI(m ProgramMetadata) ([]byte, error) {
	f := ini.Empty()

	project, err := f.NewSection("project")
	if err != nil {
		return nil, fmt.Errorf("upload: ini project section: %w", err)
	}
	if _, err := project.NewKey("version", "1.0.0"); err != nil {
		return nil, err
	}
	if _, err := project.NewKey("ide", m.IDEVersion); err != nil {
		return nil, err
	}

	program, err := f.NewSection("program")
	if err != nil {
		return nil, fmt.Errorf("upload: ini program section: %w", err)
	}
	if _, err := program.NewKey("version", fmt.Sprintf("%d", programVersion)); err != nil {
		return nil, err
	}
	if _, err := program.NewKey("name", m.Name); err != nil {
		return nil, err
	}
	if _, err := program.NewKey("slot", fmt.Sprintf("%d", m.Slot)); err != nil {
		return nil, err
	}
	if _, err := program.NewKey("icon", m.Icon); err != nil {
		return nil, err
	}
	if _, err := program.NewKey("description", m.Description); err != nil {
		return nil, err
	}
	// RFC 3339 without the trailing "Z": the brain's firmware parser
	// rejects the zone designator.
	date := m.Date.UTC().Format("2006-01-02T15:04:05")
	if _, err := program.NewKey("date", date); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("upload: render ini: %w", err)
	}
	return buf.Bytes(), nil
}
