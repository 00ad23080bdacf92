package transport

import (
	"context"
	"io"
	"sync"
	"time"
)

// Fake is an in-memory Transport used by brain and daemon tests, the same
// role tarm/serial's in-package fakes play for the teacher's backend tests:
// it implements the full Transport contract without touching real hardware.
// Outbound writes are appended to Written; inbound reads are served from
// Inbox (a queue of byte slices, each representing one simulated device
// response installed by the test).
type Fake struct {
	mu      sync.Mutex
	Written [][]byte
	Inbox   [][]byte
	cur     []byte
	resets  int
	closed  bool
}

// NewFake returns an empty Fake transport.
func NewFake() *Fake { return &Fake{} }

// Enqueue appends a byte slice to be served by subsequent reads, simulating
// a device response (or part of one) arriving on the wire.
func (f *Fake) Enqueue(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	f.Inbox = append(f.Inbox, cp)
}

func (f *Fake) WriteAll(_ context.Context, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(p))
	copy(cp, p)
	f.Written = append(f.Written, cp)
	return nil
}

func (f *Fake) Flush() error { return nil }

func (f *Fake) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = nil
	f.Inbox = nil
	return nil
}

func (f *Fake) nextByte() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.cur) == 0 {
		if len(f.Inbox) == 0 {
			return 0, false
		}
		f.cur, f.Inbox = f.Inbox[0], f.Inbox[1:]
	}
	b := f.cur[0]
	f.cur = f.cur[1:]
	return b, true
}

func (f *Fake) TryReadOne() (byte, bool, error) {
	b, ok := f.nextByte()
	return b, ok, nil
}

func (f *Fake) ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for i := range buf {
		for {
			b, ok := f.nextByte()
			if ok {
				buf[i] = b
				break
			}
			if time.Now().After(deadline) {
				return ErrTimeout
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
	return nil
}

func (f *Fake) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, ok := f.nextByte()
		if !ok {
			if n == 0 {
				return 0, io.ErrNoProgress
			}
			return n, nil
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (f *Fake) Reset(_ context.Context) error {
	f.mu.Lock()
	f.resets++
	f.cur = nil
	f.mu.Unlock()
	return nil
}

func (f *Fake) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

var _ Transport = (*Fake)(nil)
