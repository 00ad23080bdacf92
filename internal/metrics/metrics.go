package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/marcus8448/v5ctl/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	PacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packets_sent_total",
		Help: "Total request packets written to the brain.",
	})
	PacketsLost = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packets_lost_total",
		Help: "Total request attempts whose response was not received before the scan timeout.",
	})
	PacketsRetransmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packets_retransmitted_total",
		Help: "Total retransmission attempts issued by the brain session state machine.",
	})
	NacksByCode = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nacks_total",
		Help: "NACK responses received from the brain, by code.",
	}, []string{"code"})
	DaemonBytesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daemon_bytes_relayed_total",
		Help: "Bytes relayed between daemon clients and the brain, by channel.",
	}, []string{"channel"})
	DaemonClientsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "daemon_clients_active",
		Help: "Current number of connected daemon clients.",
	})
	DaemonClientsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daemon_clients_rejected_total",
		Help: "Total daemon exclusive-access claims rejected because another client holds the lock.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (bad preamble, CRC mismatch, truncated).",
	})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrUSBWrite      = "usb_write"
	ErrUSBRead       = "usb_read"
	ErrBLEWrite      = "ble_write"
	ErrBLERead       = "ble_read"
	ErrBLEPair       = "ble_pair"
	ErrDaemonAccept  = "daemon_accept"
	ErrDaemonRelay   = "daemon_relay"
	ErrTransfer      = "transfer"
)

// StartHTTP serves Prometheus metrics at /metrics on a fresh mux.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process inspection (avoids scraping
// Prometheus from within the same process).
var (
	localPacketsSent    uint64
	localPacketsLost    uint64
	localRetransmitted  uint64
	localNacks          uint64
	localBytesRelayed   uint64
	localClientsActive  uint64
	localClientsReject  uint64
	localErrors         uint64
	localMalformed      uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	PacketsSent    uint64
	PacketsLost    uint64
	Retransmitted  uint64
	Nacks          uint64
	BytesRelayed   uint64
	ClientsActive  uint64
	ClientsReject  uint64
	Errors         uint64
	Malformed      uint64
}

func Snap() Snapshot {
	return Snapshot{
		PacketsSent:   atomic.LoadUint64(&localPacketsSent),
		PacketsLost:   atomic.LoadUint64(&localPacketsLost),
		Retransmitted: atomic.LoadUint64(&localRetransmitted),
		Nacks:         atomic.LoadUint64(&localNacks),
		BytesRelayed:  atomic.LoadUint64(&localBytesRelayed),
		ClientsActive: atomic.LoadUint64(&localClientsActive),
		ClientsReject: atomic.LoadUint64(&localClientsReject),
		Errors:        atomic.LoadUint64(&localErrors),
		Malformed:     atomic.LoadUint64(&localMalformed),
	}
}

// Wrapper helpers to keep call sites simple.
func IncPacketsSent() {
	PacketsSent.Inc()
	atomic.AddUint64(&localPacketsSent, 1)
}

func IncPacketsLost() {
	PacketsLost.Inc()
	atomic.AddUint64(&localPacketsLost, 1)
}

func IncRetransmitted() {
	PacketsRetransmitted.Inc()
	atomic.AddUint64(&localRetransmitted, 1)
}

func IncNack(code string) {
	NacksByCode.WithLabelValues(code).Inc()
	atomic.AddUint64(&localNacks, 1)
}

func AddBytesRelayed(channel string, n int) {
	DaemonBytesRelayed.WithLabelValues(channel).Add(float64(n))
	atomic.AddUint64(&localBytesRelayed, uint64(n))
}

func SetDaemonClients(n int) {
	DaemonClientsActive.Set(float64(n))
	atomic.StoreUint64(&localClientsActive, uint64(n))
}

func IncDaemonClientRejected() {
	DaemonClientsRejected.Inc()
	atomic.AddUint64(&localClientsReject, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrUSBWrite, ErrUSBRead, ErrBLEWrite, ErrBLERead, ErrBLEPair,
		ErrDaemonAccept, ErrDaemonRelay, ErrTransfer,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
