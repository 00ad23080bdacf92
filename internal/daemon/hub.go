package daemon

import (
	"context"
	"net"
	"sync"

	"github.com/marcus8448/v5ctl/internal/logging"
	"github.com/marcus8448/v5ctl/internal/metrics"
	"github.com/marcus8448/v5ctl/internal/transport"
)

// userClient is one connected client's asynchronous outbound queue for
// user-channel broadcasts: an AsyncTx[[]byte] whose send function writes a
// SendUser message straight to the client's socket. A slow reader's queue
// fills up and further broadcasts are dropped rather than allowed to stall
// the brain's poll loop, the same backpressure choice the CAN hub this is
// adapted from makes with its own buffered-channel-plus-select design.
type userClient struct {
	tx *transport.AsyncTx[[]byte]
}

func (c *userClient) Close() { c.tx.Close() }

// userHub fans out user-communications-channel payloads received from the
// brain to every connected client.
type userHub struct {
	mu      sync.RWMutex
	clients map[*userClient]struct{}
}

func newUserHub() *userHub { return &userHub{clients: make(map[*userClient]struct{})} }

// add registers conn as a broadcast target, returning the handle the
// caller's accept loop keeps for the connection's lifetime.
func (h *userHub) add(conn net.Conn) *userClient {
	send := func(payload []byte) error {
		if err := WriteMessage(conn, Message{Verb: VerbSendUser, Payload: payload}); err != nil {
			return err
		}
		metrics.AddBytesRelayed("user", len(payload))
		return nil
	}
	hooks := transport.Hooks{
		OnDrop: func() error {
			logging.L().Warn("daemon_user_broadcast_drop")
			return nil
		},
	}
	c := &userClient{tx: transport.NewAsyncTx(context.Background(), 1024, send, hooks)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.SetDaemonClients(n)
	return c
}

func (h *userHub) remove(c *userClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if existed {
		c.Close()
		metrics.SetDaemonClients(n)
	}
}

// broadcast fans payload out to every registered client's AsyncTx.
func (h *userHub) broadcast(payload []byte) {
	h.mu.RLock()
	clients := make([]*userClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.tx.SendFrame(payload)
	}
}
