package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/marcus8448/v5ctl/internal/brain"
	"github.com/marcus8448/v5ctl/internal/logging"
	"github.com/marcus8448/v5ctl/internal/metrics"
	"github.com/marcus8448/v5ctl/internal/wire"
)

// ErrExclusiveHeld is returned to a ClaimExclusive request when another
// client already holds the lock.
var ErrExclusiveHeld = errors.New("daemon: exclusive access already held")

// Server owns the TCP listener, the one physical Brain, and the exclusive
// lock + broadcast hub that let many clients share it.
type Server struct {
	addr string
	br   *brain.Brain
	hub  *userHub

	maxPacketSize uint16

	sysMu sync.Mutex // serializes all SendSystem relays against the one Brain

	exclMu    sync.Mutex
	exclOwner net.Conn

	listener net.Listener
	logger   *slog.Logger

	wg sync.WaitGroup
}

type ServerOption func(*Server)

func WithListenAddr(a string) ServerOption    { return func(s *Server) { s.addr = a } }
func WithMaxPacketSize(n uint16) ServerOption { return func(s *Server) { s.maxPacketSize = n } }
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds a Server that relays to br.
func NewServer(br *brain.Brain, opts ...ServerOption) *Server {
	s := &Server{
		br:            br,
		hub:           newUserHub(),
		addr:          "127.0.0.1:0",
		maxPacketSize: 512,
		logger:        logging.L(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("daemon: listen: %w", err)
	}
	s.listener = ln
	s.logger.Info("daemon_listen", "addr", ln.Addr().String())
	go func() { <-ctx.Done(); _ = ln.Close() }()
	go s.pollUserComms(ctx)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
			}
			return fmt.Errorf("daemon: accept: %w", err)
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// Shutdown closes the listener and waits for in-flight clients to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	if err := WriteHandshake(conn, Handshake{MaxPacketSize: s.maxPacketSize}); err != nil {
		metrics.IncError(metrics.ErrDaemonAccept)
		connLogger.Warn("daemon_handshake_write_failed", "error", err)
		return
	}

	client := s.hub.add(conn)
	defer s.hub.remove(client)
	connLogger.Info("daemon_client_connected")

	reader := bufio.NewReader(conn)
	for {
		msg, err := ReadMessage(reader)
		if err != nil {
			s.exclMu.Lock()
			wasOwner := s.exclOwner == conn
			s.exclMu.Unlock()
			s.releaseIfOwner(conn)
			if wasOwner {
				s.sysMu.Lock()
				if err := s.br.Reset(ctx); err != nil {
					connLogger.Warn("daemon_reset_failed", "error", err)
				}
				s.sysMu.Unlock()
			}
			connLogger.Info("daemon_client_disconnected", "error", err)
			return
		}
		if err := s.dispatch(ctx, conn, msg); err != nil {
			connLogger.Warn("daemon_dispatch_error", "verb", msg.Verb, "error", err)
			metrics.IncError(metrics.ErrDaemonRelay)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn, msg Message) error {
	switch msg.Verb {
	case VerbSendSystem:
		return s.handleSendSystem(ctx, conn, msg.Payload)
	case VerbSendUser:
		s.sysMu.Lock()
		err := s.br.SendUserCommunications(ctx, 1, msg.Payload)
		s.sysMu.Unlock()
		if err == nil {
			metrics.AddBytesRelayed("user", len(msg.Payload))
		}
		return err
	case VerbClaimExclusive:
		return s.handleClaim(conn)
	case VerbUnclaimExclusive:
		s.releaseIfOwner(conn)
		return WriteMessage(conn, Message{Verb: VerbUnclaimExclusive})
	case VerbReset:
		s.sysMu.Lock()
		err := s.br.Reset(ctx)
		s.sysMu.Unlock()
		if err != nil {
			return err
		}
		return WriteMessage(conn, Message{Verb: VerbReset})
	default:
		return fmt.Errorf("daemon: unknown verb %s", msg.Verb)
	}
}

func (s *Server) handleClaim(conn net.Conn) error {
	s.exclMu.Lock()
	defer s.exclMu.Unlock()
	if s.exclOwner != nil && s.exclOwner != conn {
		metrics.IncDaemonClientRejected()
		return WriteMessage(conn, Message{Verb: VerbClaimExclusive, Payload: []byte{0}})
	}
	s.exclOwner = conn
	return WriteMessage(conn, Message{Verb: VerbClaimExclusive, Payload: []byte{1}})
}

func (s *Server) releaseIfOwner(conn net.Conn) {
	s.exclMu.Lock()
	if s.exclOwner == conn {
		s.exclOwner = nil
	}
	s.exclMu.Unlock()
}

// handleSendSystem relays a raw, fully-built request frame to the brain via
// a single Exchange attempt (no daemon-side retry layering, per the design
// note on Brain.Exchange): the calling client's own Brain+Client pair
// owns retry semantics and will resend the identical bytes on a nil
// response. While another client holds the exclusive lock, the relay waits
// until that lock is released.
func (s *Server) handleSendSystem(ctx context.Context, conn net.Conn, raw []byte) error {
	cmdID := parseCmdID(raw)
	for {
		s.exclMu.Lock()
		owner := s.exclOwner
		s.exclMu.Unlock()
		if owner == nil || owner == conn {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	s.sysMu.Lock()
	resp, err := s.br.Exchange(ctx, cmdID, raw)
	s.sysMu.Unlock()
	if err != nil {
		return err
	}
	return WriteMessage(conn, Message{Verb: VerbSendSystem, Payload: resp})
}

// BroadcastUser fans payload out to every connected client.
func (s *Server) BroadcastUser(payload []byte) { s.hub.broadcast(payload) }

// pollUserComms periodically drains the brain's auxiliary user-comms
// channel (command 0x27, read variant) and broadcasts whatever arrives to
// every connected daemon client. It backs off entirely while a client holds
// the exclusive lock, since that client owns the system channel directly.
func (s *Server) pollUserComms(ctx context.Context) {
	const (
		pollInterval = 50 * time.Millisecond
		pollChannel  = 1
		pollMaxLen   = 64
	)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.exclMu.Lock()
			held := s.exclOwner != nil
			s.exclMu.Unlock()
			if held {
				continue
			}
			s.sysMu.Lock()
			data, err := s.br.ReadUserCommunications(ctx, pollChannel, pollMaxLen)
			s.sysMu.Unlock()
			if err != nil {
				continue
			}
			if len(data) > 0 {
				s.BroadcastUser(data)
			}
		}
	}
}

// parseCmdID extracts the command (or, for extended frames, the sub-id)
// byte a raw request frame carries, so the daemon can pick the same scan
// timeout the direct-connection Brain would have used.
func parseCmdID(raw []byte) byte {
	if len(raw) < 5 || raw[0] != wire.RequestPreamble[0] || raw[1] != wire.RequestPreamble[1] || raw[2] != wire.RequestPreamble[2] || raw[3] != wire.RequestPreamble[3] {
		return 0
	}
	cmd := raw[4]
	if cmd != wire.ExtCommand {
		return cmd
	}
	if len(raw) < 6 {
		return cmd
	}
	return raw[5]
}
