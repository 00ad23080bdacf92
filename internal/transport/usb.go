package transport

import (
	"context"
	"time"

	"go.bug.st/serial"
)

// openPort is overridable so tests can inject a fake without touching a real
// device, the same seam the teacher's cmd/can-server keeps around
// openSerialPort.
var openPort = serial.Open

// usbReadTimeout is the OS-level read timeout asserted on the port; the
// per-request scan deadline in internal/brain is independent and shorter.
const usbReadTimeout = 5 * time.Second

// USB is the USB-serial composite device variant of Transport: one endpoint
// of the two exposed by the brain's VID 0x2888 / PID 0x0501 composite
// device (see internal/discovery for port selection).
type USB struct {
	name string
	port serial.Port
}

// OpenUSB opens a single serial endpoint at 115200 8-N-1, no flow control,
// asserts DTR, and sets the mandated 5-second OS-level read timeout.
func OpenUSB(name string) (*USB, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := openPort(name, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(usbReadTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := port.SetDTR(true); err != nil {
		_ = port.Close()
		return nil, err
	}
	return &USB{name: name, port: port}, nil
}

func (u *USB) WriteAll(_ context.Context, p []byte) error {
	for len(p) > 0 {
		n, err := u.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (u *USB) Flush() error { return nil }

func (u *USB) Clear() error { return u.port.ResetInputBuffer() }

// ReadExact polls the port in small slices until either buf is full or
// timeout elapses; go.bug.st/serial's own ReadTimeout governs each
// individual Read call, so this loop mostly just accumulates partial reads
// and enforces the caller's overall deadline.
func (u *USB) ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	got := 0
	for got < len(buf) {
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := u.port.Read(buf[got:])
		if err != nil {
			return err
		}
		got += n
	}
	return nil
}

func (u *USB) TryReadOne() (byte, bool, error) {
	var b [1]byte
	n, err := u.port.Read(b[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return b[0], true, nil
}

func (u *USB) Read(p []byte) (int, error) { return u.port.Read(p) }

// Reset closes and reopens the port, mirroring the original's "reopen the
// transport" recovery path for a fatal transport error.
func (u *USB) Reset(_ context.Context) error {
	_ = u.port.Close()
	port, err := openPort(u.name, &serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit})
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(usbReadTimeout); err != nil {
		_ = port.Close()
		return err
	}
	if err := port.SetDTR(true); err != nil {
		_ = port.Close()
		return err
	}
	u.port = port
	return nil
}

func (u *USB) Close() error { return u.port.Close() }

var _ Transport = (*USB)(nil)
