package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marcus8448/v5ctl/internal/transport"
)

// Client is a transport.Transport that relays system-channel traffic
// through a running daemon instead of talking to a brain directly. It
// satisfies the exact same Transport contract internal/transport.USB and
// .BLE do: Flush is where the actual daemon round trip happens, and the
// response frame (or nothing, on a clean timeout) becomes the byte stream
// TryReadOne/ReadExact serve afterward. That means a local brain.Brain
// wrapping a Client gets correct bounded-retry semantics for free — each
// retry re-runs Clear/WriteAll/Flush/scan exactly as it would against a
// directly attached brain, except the scan itself happens server-side.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	writeBuf []byte
	pending  []byte

	Handshake Handshake
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to a daemon at addr and reads its opening handshake.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("daemon client: dial: %w", err)
	}
	hs, err := ReadHandshake(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("daemon client: handshake: %w", err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn), Handshake: hs}, nil
}

// ClaimExclusive requests exclusive system-channel access, returning
// ErrExclusiveHeld if another client already holds it.
func (c *Client) ClaimExclusive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteMessage(c.conn, Message{Verb: VerbClaimExclusive}); err != nil {
		return err
	}
	resp, err := ReadMessage(c.reader)
	if err != nil {
		return err
	}
	if len(resp.Payload) != 1 || resp.Payload[0] == 0 {
		return ErrExclusiveHeld
	}
	return nil
}

// UnclaimExclusive releases a previously claimed exclusive lock.
func (c *Client) UnclaimExclusive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteMessage(c.conn, Message{Verb: VerbUnclaimExclusive}); err != nil {
		return err
	}
	_, err := ReadMessage(c.reader)
	return err
}

// WriteAll accumulates p into the pending outgoing request; the actual
// network round trip happens in Flush, matching how a real serial write
// only becomes visible to the brain once flushed.
func (c *Client) WriteAll(ctx context.Context, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeBuf = append(c.writeBuf, p...)
	return nil
}

// Flush sends the accumulated request as one SendSystem message and blocks
// for the daemon's single relay attempt, buffering its response (which may
// be empty, signalling a clean scan timeout) for TryReadOne/ReadExact/Read.
func (c *Client) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := c.writeBuf
	c.writeBuf = nil
	if err := WriteMessage(c.conn, Message{Verb: VerbSendSystem, Payload: req}); err != nil {
		return err
	}
	resp, err := ReadMessage(c.reader)
	if err != nil {
		return err
	}
	c.pending = resp.Payload
	return nil
}

// Clear discards any buffered response bytes, mirroring clearing a serial
// port's RX buffer before a fresh request.
func (c *Client) Clear() error {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	return nil
}

// ReadExact copies exactly len(buf) bytes out of the buffered response,
// returning transport.ErrTimeout if fewer are available (the daemon always
// hands back a complete frame or nothing, so this only underflows on a
// malformed relay).
func (c *Client) ReadExact(ctx context.Context, buf []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) < len(buf) {
		return transport.ErrTimeout
	}
	copy(buf, c.pending[:len(buf)])
	c.pending = c.pending[len(buf):]
	return nil
}

// TryReadOne serves one byte of the buffered response.
func (c *Client) TryReadOne() (byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return 0, false, nil
	}
	b := c.pending[0]
	c.pending = c.pending[1:]
	return b, true, nil
}

func (c *Client) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Reset asks the daemon to reset its underlying brain transport.
func (c *Client) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := WriteMessage(c.conn, Message{Verb: VerbReset}); err != nil {
		return err
	}
	_, err := ReadMessage(c.reader)
	return err
}

func (c *Client) Close() error { return c.conn.Close() }
