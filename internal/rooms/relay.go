package rooms

import (
	"encoding/json"
	"log/slog"

	"github.com/johnEmman/server-v3/internal/metrics"
)

// Relay forwards opaque negotiation payloads. It reads room membership but
// never mutates it, and it never inspects the payload. Delivery is
// fire-and-forget: an offline target drops the payload with no failure
// surfaced to the sender.
//
// Relay methods must only be called from the Coordinator goroutine.
type Relay struct {
	store    *Store
	registry *Registry
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewRelay(store *Store, registry *Registry, m *metrics.Metrics, log *slog.Logger) *Relay {
	return &Relay{
		store:    store,
		registry: registry,
		metrics:  m,
		log:      log,
	}
}

// Signal relays payload on behalf of from. With a target set it is delivered
// to that participant only (offer/answer/candidate exchange); otherwise it is
// broadcast to every other connection currently joined to the room.
func (r *Relay) Signal(roomID string, from, target ParticipantID, payload json.RawMessage) error {
	ev := Event{Type: EventSignal, RoomID: roomID, From: from, SignalData: payload}

	if target != "" {
		r.deliver(target, ev)
		return nil
	}

	room, ok := r.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	for _, member := range room.Members() {
		if member == from {
			continue
		}
		r.deliver(member, ev)
	}
	return nil
}

func (r *Relay) deliver(id ParticipantID, ev Event) {
	conn, ok := r.registry.Resolve(id)
	if !ok {
		r.metrics.Inc(metrics.DropTargetUnreachable)
		r.log.Debug("drop signal for offline participant", "participant", id)
		return
	}
	if !conn.Deliver(ev) {
		r.metrics.Inc(metrics.DropSendQueueFull)
		r.log.Warn("drop signal, send queue full", "participant", id)
		return
	}
	r.metrics.Inc(metrics.SignalsRelayed)
}
