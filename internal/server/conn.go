package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/twowayssl/internal/telemetry"
)

// Phase is the lifecycle position of an accepted connection.
type Phase int

const (
	PhaseHandshaking Phase = iota
	PhaseServing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseHandshaking:
		return "handshaking"
	case PhaseServing:
		return "serving"
	default:
		return "closed"
	}
}

// Stats counts connections seen by a server.
type Stats struct {
	Accepted uint64
	Served   uint64
	// Abandoned counts connections closed before a request was read. A
	// failed handshake is one cause, an idle client is another.
	Abandoned uint64
	// HandshakeFailures counts handshakes net/http reported as failed.
	HandshakeFailures uint64
	Active            int64
}

type connInfo struct {
	id       string
	phase    Phase
	accepted time.Time
}

// tracker follows every connection from accept to close through
// http.Server.ConnState.
type tracker struct {
	logger zerolog.Logger
	tls    bool

	mu    sync.Mutex
	conns map[net.Conn]*connInfo

	accepted          atomic.Uint64
	served            atomic.Uint64
	abandoned         atomic.Uint64
	handshakeFailures atomic.Uint64
	active            atomic.Int64
}

func newTracker(logger zerolog.Logger, tls bool) *tracker {
	return &tracker{
		logger: logger,
		tls:    tls,
		conns:  make(map[net.Conn]*connInfo),
	}
}

func (t *tracker) connState(conn net.Conn, state http.ConnState) {
	ctx := context.Background()
	metrics := telemetry.GetMetrics()

	t.mu.Lock()
	defer t.mu.Unlock()

	switch state {
	case http.StateNew:
		info := &connInfo{id: uuid.NewString(), phase: PhaseHandshaking, accepted: time.Now()}
		t.conns[conn] = info
		t.accepted.Add(1)
		t.active.Add(1)
		metrics.ConnectionsTotal.Add(ctx, 1)
		metrics.ActiveConnections.Add(ctx, 1)
		t.logger.Debug().
			Str("conn_id", info.id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Bool("tls", t.tls).
			Msg("connection accepted")

	case http.StateActive:
		info, ok := t.conns[conn]
		if !ok || info.phase != PhaseHandshaking {
			return
		}
		info.phase = PhaseServing
		t.served.Add(1)
		elapsed := time.Since(info.accepted)
		metrics.FirstRequestLatency.Record(ctx, float64(elapsed.Milliseconds()),
			metric.WithAttributes(attribute.Bool("tls", t.tls)))
		t.logger.Debug().
			Str("conn_id", info.id).
			Dur("first_request", elapsed).
			Msg("connection serving")

	case http.StateClosed, http.StateHijacked:
		info, ok := t.conns[conn]
		if !ok {
			return
		}
		delete(t.conns, conn)
		t.active.Add(-1)
		metrics.ActiveConnections.Add(ctx, -1)

		if info.phase == PhaseHandshaking {
			t.abandoned.Add(1)
			metrics.ConnectionsAbandonedTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("tls", t.tls)))
			t.logger.Debug().
				Str("conn_id", info.id).
				Str("remote_addr", conn.RemoteAddr().String()).
				Msg("connection closed before serving")
		}
		info.phase = PhaseClosed
	}
}

func (t *tracker) stats() Stats {
	return Stats{
		Accepted:          t.accepted.Load(),
		Served:            t.served.Load(),
		Abandoned:         t.abandoned.Load(),
		HandshakeFailures: t.handshakeFailures.Load(),
		Active:            t.active.Load(),
	}
}

const handshakeErrorPrefix = "http: TLS handshake error from "

// handshakeFailure claims net/http handshake error lines, counts them and logs
// them as structured events. The connection is already closed when this runs.
func (t *tracker) handshakeFailure(line string) bool {
	rest, ok := strings.CutPrefix(line, handshakeErrorPrefix)
	if !ok {
		return false
	}
	addr, cause, _ := strings.Cut(rest, ": ")

	t.handshakeFailures.Add(1)
	telemetry.GetMetrics().HandshakeFailuresTotal.Add(context.Background(), 1)

	t.logger.Warn().
		Str("event", "handshake_failure").
		Str("remote_addr", addr).
		Str("error", cause).
		Msg("TLS handshake failed")
	return true
}
