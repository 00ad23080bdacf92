package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/currantlabs/ble"
)

// V5 BLE service/characteristic UUIDs, grounded in
// core/src/connection/bluetooth.rs. The three characteristics under the one
// service are: a pairing/control characteristic and a tx/rx pair used after
// pairing completes.
var (
	ServiceUUID = ble.MustParse("08590f7e-db05-467e-8757-72f6faeb13d5")
	PairCharUUID = ble.MustParse("08590f7e-db05-467e-8757-72f6faeb1306")
	TxCharUUID   = ble.MustParse("08590f7e-db05-467e-8757-72f6faeb1316")
	RxCharUUID   = ble.MustParse("08590f7e-db05-467e-8757-72f6faeb13e5")
)

// bleWriteChunk and blePacing are the two empirical firmware
// requirements called out in DESIGN NOTES: every BLE write, pairing or
// data, is segmented into 4-byte chunks with a mandatory 50ms pacing delay
// between chunks. Do not change these.
const (
	bleWriteChunk = 4
	blePacing     = 50 * time.Millisecond
)

// unpairedSentinel and pairChallenge are the two magic u32 values (LE) used
// by the pairing handshake.
const (
	unpairedSentinel uint32 = 0xDEADFACE
	pairChallenge    uint32 = 0xFFFFFFFF
)

var (
	ErrPairingFailed = errors.New("ble: pairing echo mismatch")
	ErrNoPIN         = errors.New("ble: device requires a PIN but none was supplied")
)

// sleepFn is overridable so pairing/pacing tests don't actually wait.
var sleepFn = time.Sleep

// BLE is the Bluetooth Low Energy variant of Transport. Reads are served
// from an internal notification buffer (the "SubscribedBluetoothConnection"
// shape from the original source) fed by a GATT notification subscription;
// writes are chunked and paced per the firmware's empirical requirements.
type BLE struct {
	client ble.Client

	pairChar *ble.Characteristic
	txChar   *ble.Characteristic
	rxChar   *ble.Characteristic

	mu      sync.Mutex
	pending []byte
	notify  chan []byte
	closed  bool
}

// NewBLE resolves the three V5 characteristics out of an already-connected
// client's discovered profile and subscribes to notifications on rxChar.
func NewBLE(client ble.Client, profile *ble.Profile) (*BLE, error) {
	b := &BLE{client: client, notify: make(chan []byte, 256)}
	for _, s := range profile.Services {
		for _, c := range s.Characteristics {
			switch {
			case c.UUID.Equal(PairCharUUID):
				b.pairChar = c
			case c.UUID.Equal(TxCharUUID):
				b.txChar = c
			case c.UUID.Equal(RxCharUUID):
				b.rxChar = c
			}
		}
	}
	if b.pairChar == nil || b.txChar == nil || b.rxChar == nil {
		return nil, fmt.Errorf("ble: v5 service missing expected characteristics")
	}
	if err := client.Subscribe(b.rxChar, true, b.onNotify); err != nil {
		return nil, fmt.Errorf("ble: subscribe rx: %w", err)
	}
	return b, nil
}

func (b *BLE) onNotify(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case b.notify <- cp:
	default:
		// Subscriber buffer full; drop this incoming chunk rather than block
		// the notification callback, matching a best-effort read buffer.
	}
}

// Pair drives the pairing handshake described in DESIGN NOTES: read the
// pairing characteristic; if it reads back the unpaired sentinel, trigger a
// PIN challenge and echo the supplied 4-digit PIN one byte per digit, then
// confirm the device echoed the same four bytes back.
func (b *BLE) Pair(ctx context.Context, pin string) error {
	val, err := b.client.ReadCharacteristic(b.pairChar)
	if err != nil {
		return fmt.Errorf("ble: read pair characteristic: %w", err)
	}
	if len(val) < 4 || binary.LittleEndian.Uint32(val) != unpairedSentinel {
		return nil // already paired
	}
	if len(pin) != 4 {
		return ErrNoPIN
	}
	var challenge [4]byte
	binary.LittleEndian.PutUint32(challenge[:], pairChallenge)
	if err := b.writeChunked(b.pairChar, challenge[:]); err != nil {
		return fmt.Errorf("ble: pair challenge: %w", err)
	}
	digits := make([]byte, 4)
	for i := 0; i < 4; i++ {
		digits[i] = pin[i] - '0'
	}
	if err := b.writeChunked(b.pairChar, digits); err != nil {
		return fmt.Errorf("ble: pair pin write: %w", err)
	}
	echo, err := b.client.ReadCharacteristic(b.pairChar)
	if err != nil {
		return fmt.Errorf("ble: read pair echo: %w", err)
	}
	if len(echo) < 4 || echo[0] != digits[0] || echo[1] != digits[1] || echo[2] != digits[2] || echo[3] != digits[3] {
		return ErrPairingFailed
	}
	return nil
}

// writeChunked segments p into 4-byte chunks (zero-padding any residue) and
// paces 50ms between writes, regardless of which characteristic is targeted.
func (b *BLE) writeChunked(c *ble.Characteristic, p []byte) error {
	for i := 0; i < len(p); i += bleWriteChunk {
		end := i + bleWriteChunk
		var chunk [bleWriteChunk]byte
		if end > len(p) {
			copy(chunk[:], p[i:])
		} else {
			copy(chunk[:], p[i:end])
		}
		if err := b.client.WriteCharacteristic(c, chunk[:], true); err != nil {
			return err
		}
		if end < len(p) {
			sleepFn(blePacing)
		}
	}
	return nil
}

func (b *BLE) WriteAll(_ context.Context, p []byte) error { return b.writeChunked(b.txChar, p) }

func (b *BLE) Flush() error { return nil }

func (b *BLE) Clear() error {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
	for {
		select {
		case <-b.notify:
		default:
			return nil
		}
	}
}

func (b *BLE) fill(timeout time.Duration) bool {
	if len(b.pending) > 0 {
		return true
	}
	select {
	case chunk := <-b.notify:
		b.pending = chunk
		return true
	case <-time.After(timeout):
		return false
	}
}

func (b *BLE) ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	got := 0
	b.mu.Lock()
	defer b.mu.Unlock()
	for got < len(buf) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !b.fill(remaining) {
			return ErrTimeout
		}
		n := copy(buf[got:], b.pending)
		b.pending = b.pending[n:]
		got += n
	}
	return nil
}

func (b *BLE) TryReadOne() (byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		select {
		case chunk := <-b.notify:
			b.pending = chunk
		default:
			return 0, false, nil
		}
	}
	if len(b.pending) == 0 {
		return 0, false, nil
	}
	v := b.pending[0]
	b.pending = b.pending[1:]
	return v, true, nil
}

func (b *BLE) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.fill(200 * time.Millisecond) {
		return 0, nil
	}
	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	return n, nil
}

// Reset re-subscribes to the rx characteristic's notifications, the BLE
// equivalent of reopening a serial port.
func (b *BLE) Reset(_ context.Context) error {
	_ = b.client.ClearSubscriptions()
	return b.client.Subscribe(b.rxChar, true, b.onNotify)
}

func (b *BLE) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.client.CancelConnection()
}

var _ Transport = (*BLE)(nil)
