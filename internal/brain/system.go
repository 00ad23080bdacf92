package brain

import (
	"context"
	"fmt"

	"github.com/marcus8448/v5ctl/internal/wire"
)

const (
	cmdSystemVersion = 0xA4
	cmdProduct       = 0x21
	cmdSystemStatus  = 0x22
	cmdExecute       = 0x18
	cmdUserComm      = 0x27
	// cmd0x2E is the overloaded sub-id shared by get-kernel-variable and
	// set-competition-state (§4.3); disambiguated by payload shape only.
	cmd0x2E         = 0x2E
	cmdKernelVarGet = cmd0x2E
	cmdKernelVarSet = 0x2F
)

// GetSystemVersion issues the simple-shaped 0xA4 request.
func (b *Brain) GetSystemVersion(ctx context.Context) (*SystemVersion, error) {
	payload, err := b.sendSimple(ctx, cmdSystemVersion, nil)
	if err != nil {
		return nil, err
	}
	if len(payload) < 6 {
		return nil, fmt.Errorf("brain: short system version response")
	}
	r := wire.NewReader(payload)
	major := r.ReadU8()
	minor := r.ReadU8()
	patch := r.ReadU8()
	verA := r.ReadU8()
	verB := r.ReadU8()
	product := Product(r.ReadU8())
	return &SystemVersion{
		Major: major, Minor: minor, Patch: patch, A: verA, B: verB,
		VersionString: fmt.Sprintf("%d.%d.%d-%d.%d %s", major, minor, patch, verA, verB, product),
		Product:       product,
	}, nil
}

// GetProduct issues the simple-shaped 0x21 request.
func (b *Brain) GetProduct(ctx context.Context) (Product, error) {
	payload, err := b.sendSimple(ctx, cmdProduct, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) < 1 {
		return 0, fmt.Errorf("brain: short product response")
	}
	return Product(payload[0]), nil
}

// GetSystemStatus issues extended command 0x22.
func (b *Brain) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	resp, err := b.sendExtended(ctx, cmdSystemStatus, nil)
	if err != nil {
		return nil, err
	}
	r := wire.NewReader(resp.Payload)
	var st SystemStatus
	_ = r.ReadU8() // reserved
	for i := range st.SystemVersion {
		st.SystemVersion[i] = r.ReadU8()
	}
	for i := range st.CPU0Version {
		st.CPU0Version[i] = r.ReadU8()
	}
	for i := range st.CPU1Version {
		st.CPU1Version[i] = r.ReadU8()
	}
	_ = r.ReadU8() // reserved gap before touch
	_ = r.ReadU8()
	_ = r.ReadU8()
	st.Touch = r.ReadU8()
	st.SystemID = r.ReadU32()
	return &st, nil
}

// ExecuteFlags controls ExecuteProgram: the single documented bit stops a
// running program rather than starting filename.
type ExecuteFlags uint8

const ExecuteFlagStop ExecuteFlags = 0x80

// ExecuteProgram issues extended command 0x18.
func (b *Brain) ExecuteProgram(ctx context.Context, vid Vid, flags ExecuteFlags, filename string) error {
	bld := wire.NewBuilder(1 + 1 + 24)
	bld.WriteU8(uint8(vid))
	bld.WriteU8(uint8(flags))
	bld.WriteStr(filename, 24)
	_, err := b.sendExtended(ctx, cmdExecute, bld.Bytes())
	return err
}

// SendUserCommunications writes data to the brain's auxiliary user-comms
// channel (0x27, send variant).
func (b *Brain) SendUserCommunications(ctx context.Context, channel uint8, data []byte) error {
	bld := wire.NewBuilder(2 + len(data))
	bld.WriteU8(channel)
	bld.WriteU8(1) // direction: send
	bld.WriteRaw(data)
	_, err := b.sendExtended(ctx, cmdUserComm, bld.Bytes())
	return err
}

// ReadUserCommunications reads up to maxLen bytes from the auxiliary
// user-comms channel (0x27, read variant distinguished by length field).
func (b *Brain) ReadUserCommunications(ctx context.Context, channel uint8, maxLen uint16) ([]byte, error) {
	bld := wire.NewBuilder(4)
	bld.WriteU8(channel)
	bld.WriteU8(0) // direction: read
	bld.WriteU16(maxLen)
	resp, err := b.sendExtended(ctx, cmdUserComm, bld.Bytes())
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// GetKernelVariable issues the get-kernel-variable shape of the overloaded
// 0x2E command: the null-terminated variable name and nothing after it. Callers MUST NOT
// interleave this with SetCompetitionState on the same Brain (§4.3); both
// share sub-id 0x2E and are disambiguated purely by payload shape, so
// concurrent use from two goroutines against one Brain is a protocol
// violation, not just a race.
func (b *Brain) GetKernelVariable(ctx context.Context, v KernelVariable) (string, error) {
	bld := wire.NewBuilder(len(v.Name) + 1)
	bld.WriteStr(v.Name, len(v.Name)+1)
	resp, err := b.sendExtended(ctx, cmdKernelVarGet, bld.Bytes())
	if err != nil {
		return "", err
	}
	return wire.NewReader(resp.Payload).ReadStr(len(resp.Payload)), nil
}

// SetKernelVariable issues command 0x2F.
func (b *Brain) SetKernelVariable(ctx context.Context, v KernelVariable, value string) error {
	if len(value) > v.MaxLen {
		return fmt.Errorf("%w: %q exceeds max length %d for %s", ErrInvalidName, value, v.MaxLen, v.Name)
	}
	bld := wire.NewBuilder(len(v.Name) + 1 + len(value) + 1)
	bld.WriteStr(v.Name, len(v.Name)+1)
	bld.WriteStr(value, len(value)+1)
	_, err := b.sendExtended(ctx, cmdKernelVarSet, bld.Bytes())
	return err
}
