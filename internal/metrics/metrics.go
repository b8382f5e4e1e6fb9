package metrics

import "sync"

// Counter names. Drop reasons record events that were intentionally discarded
// (fire-and-forget delivery, queue pressure, abuse limits).
const (
	AuthFailure = "auth_failure"

	ConnectionsOpened = "connections_opened"
	ConnectionsClosed = "connections_closed"

	RoomsCreated   = "rooms_created"
	RoomsClosed    = "rooms_closed"
	SignalsRelayed = "signals_relayed"

	DropTargetUnreachable  = "target_unreachable"
	DropSendQueueFull      = "send_queue_full"
	DropRateLimited        = "rate_limited"
	DropTooManyConnections = "too_many_connections"
)

// Metrics is a minimal, concurrency-safe counter registry. It exists so the
// coordinator and transport can stay testable without a metrics backend; the
// /metrics endpoint exposes the counters in Prometheus text format.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{m: make(map[string]uint64)}
}

func (m *Metrics) Inc(name string) {
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
