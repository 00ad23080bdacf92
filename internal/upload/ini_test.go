package upload

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/ini.v1"
)

func TestGenerateProgramINILayout(t *testing.T) {
	m := ProgramMetadata{
		IDEVersion:  "PROS",
		Name:        "My Program",
		Slot:        3,
		Icon:        "USER902x.bmp",
		Description: "a test program",
		Date:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out, err := GenerateProgramINI(m)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	f, err := ini.Load(out)
	if err != nil {
		t.Fatalf("reload generated ini: %v", err)
	}
	if got := f.Section("project").Key("ide").String(); got != "PROS" {
		t.Fatalf("got ide=%q", got)
	}
	prog := f.Section("program")
	if got := prog.Key("name").String(); got != "My Program" {
		t.Fatalf("got name=%q", got)
	}
	if got := prog.Key("slot").String(); got != "3" {
		t.Fatalf("got slot=%q", got)
	}
	if got := prog.Key("version").String(); got != "16777216" {
		t.Fatalf("got version=%q", got)
	}
	date := prog.Key("date").String()
	if date != "2026-01-02T03:04:05" {
		t.Fatalf("got date=%q", date)
	}
	if strings.Contains(date, "Z") {
		t.Fatalf("date must not carry a zone designator")
	}
}
