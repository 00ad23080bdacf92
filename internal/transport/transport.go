// Package transport implements the byte-pipe abstraction that sits under a
// Brain session: a narrow interface satisfied by a USB-serial composite
// device, a pair of BLE GATT characteristics, or a client connection to the
// local multiplexing daemon. internal/brain drives one of these per channel
// (system, user); it never knows which concrete variant it holds.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by ReadExact when the deadline elapses before the
// requested number of bytes arrived. It is a recoverable signal, not a fatal
// transport error: the Framer scanner treats it as "lost response" and the
// Brain retransmits.
var ErrTimeout = errors.New("transport: read timeout")

// Transport is the narrow abstraction every concrete channel satisfies. It
// corresponds to the "tagged variants {USB, BLE, Daemon-client}" option
// called out as an acceptable Go-native replacement for trait-object
// polymorphism: rather than a sum type, each variant is a distinct struct
// implementing this interface.
type Transport interface {
	// WriteAll writes the full contents of p, blocking until done or ctx is
	// cancelled.
	WriteAll(ctx context.Context, p []byte) error
	// Flush pushes any internally buffered output (most backends are
	// unbuffered and implement this as a no-op).
	Flush() error
	// Clear drains any bytes currently buffered for reading, discarding
	// them, so the next ReadExact/TryReadOne starts from a clean slate.
	Clear() error
	// ReadExact blocks until len(buf) bytes have been read or timeout
	// elapses, in which case it returns ErrTimeout and the partial read is
	// discarded (the caller always re-scans from a known byte 0).
	ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error
	// TryReadOne performs a single non-blocking read of at most one byte.
	// ok is false when no byte was immediately available; err is non-nil
	// only for fatal I/O failures.
	TryReadOne() (b byte, ok bool, err error)
	// Read reads up to len(p) bytes, returning however many are
	// immediately available (may block briefly per backend OS timeout).
	Read(p []byte) (int, error)
	// Reset reopens the underlying connection: closes and reopens the
	// serial port, or re-subscribes BLE notifications. Any in-flight I/O is
	// aborted via ctx.
	Reset(ctx context.Context) error
	// Close releases OS resources.
	Close() error
}
