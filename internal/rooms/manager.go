package rooms

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/johnEmman/server-v3/internal/metrics"
)

// Manager implements the room state transitions and enforces host authority.
// Authority checks live here so the Relay can stay a dumb pass-through:
// negotiation payloads are higher-frequency than membership events and their
// path should carry no policy logic.
//
// Manager methods must only be called from the Coordinator goroutine.
type Manager struct {
	store    *Store
	registry *Registry
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewManager(store *Store, registry *Registry, m *metrics.Metrics, log *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		registry: registry,
		metrics:  m,
		log:      log,
	}
}

// CreateRoom creates a new Open room hosted by host and acks the host with
// room-created. An empty roomID asks the server to generate one.
func (m *Manager) CreateRoom(roomID string, host ParticipantID) (string, error) {
	if roomID == "" {
		roomID = uuid.NewString()
	}
	if _, err := m.store.Create(roomID, host); err != nil {
		return "", err
	}
	m.metrics.Inc(metrics.RoomsCreated)
	m.log.Info("room created", "room_id", roomID, "host", host)

	m.deliver(host, Event{Type: EventRoomCreated, RoomID: roomID})
	return roomID, nil
}

// InviteUser adds invitee to the room's invitation set. Only the host may
// invite. If the invitee has a live connection it is notified immediately;
// otherwise the invitation still stands but no notification is queued.
func (m *Manager) InviteUser(roomID string, caller, invitee ParticipantID) error {
	room, ok := m.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if !room.IsHost(caller) {
		return ErrNotHost
	}

	room.Invite(invitee)
	m.deliver(invitee, Event{Type: EventInvitedToRoom, RoomID: roomID})
	return nil
}

// RequestJoin either admits user directly (standing invitation) or forwards
// an ephemeral join-request to the host. A request for a room the user
// already belongs to is rejected without touching state.
//
// The forwarded request has no stored identity: if the host is offline it is
// dropped, and if the requester disconnects before the host responds, the
// eventual approval resolves to a dead identity and is dropped too.
func (m *Manager) RequestJoin(roomID string, user ParticipantID) error {
	room, ok := m.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if room.IsMember(user) {
		return ErrAlreadyInRoom
	}

	if room.IsInvited(user) {
		m.admit(room, user)
		return nil
	}

	m.deliver(room.Host, Event{Type: EventJoinRequest, RoomID: roomID, UserID: user})
	return nil
}

// RespondJoinRequest resolves a pending join request. A response from anyone
// but the host is silently ignored, leaving room state unchanged.
func (m *Manager) RespondJoinRequest(roomID string, approver, target ParticipantID, approved bool) error {
	room, ok := m.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if !room.IsHost(approver) {
		m.log.Warn("join response from non-host ignored", "room_id", roomID, "approver", approver)
		return nil
	}

	if !approved {
		m.deliver(target, Event{Type: EventJoinDenied, RoomID: roomID})
		return nil
	}
	if room.IsMember(target) {
		return nil
	}

	m.deliver(target, Event{Type: EventJoinApproved, RoomID: roomID})
	m.admit(room, target)
	return nil
}

// Leave removes user from the room. A departing host closes the room; a
// departing guest leaves it intact. Leaving a room one is not in is a no-op.
func (m *Manager) Leave(roomID string, user ParticipantID) error {
	room, ok := m.store.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	switch {
	case room.IsHost(user):
		m.closeRoom(room)
	case room.removeGuest(user):
		m.broadcast(room, Event{Type: EventUserLeft, RoomID: room.ID, UserID: user}, user)
	}
	return nil
}

// Disconnect handles a transport-level close. The participant identity is
// always resolved through the registry, never matched by connection handle:
// a connection that was superseded by a reconnect owns no identity anymore
// and must not disturb room state.
func (m *Manager) Disconnect(conn Conn) {
	id, ok := m.registry.Unregister(conn)
	if !ok {
		return
	}
	m.log.Info("participant disconnected", "participant", id)

	for _, room := range m.store.RoomsOf(id) {
		if room.IsHost(id) {
			m.closeRoom(room)
			continue
		}
		room.removeGuest(id)
		m.broadcast(room, Event{Type: EventUserLeft, RoomID: room.ID, UserID: id}, id)
	}
}

// admit adds user to the guest list and announces the join to every member,
// the new guest included: its own user-joined doubles as join confirmation.
func (m *Manager) admit(room *Room, user ParticipantID) {
	if !room.addGuest(user) {
		return
	}
	m.broadcast(room, Event{Type: EventUserJoined, RoomID: room.ID, UserID: user}, "")
}

// closeRoom removes the room and tells every member it is gone.
func (m *Manager) closeRoom(room *Room) {
	m.store.Delete(room.ID)
	m.metrics.Inc(metrics.RoomsClosed)
	m.log.Info("room closed", "room_id", room.ID, "host", room.Host)

	m.broadcast(room, Event{Type: EventUserLeft, RoomID: room.ID, UserID: room.Host}, room.Host)
}

// broadcast fans an event out to every room member except exclude. Fan-out
// order across recipients is unspecified.
func (m *Manager) broadcast(room *Room, ev Event, exclude ParticipantID) {
	for _, member := range room.Members() {
		if member == exclude {
			continue
		}
		m.deliver(member, ev)
	}
}

// deliver is fire-and-forget: targets without a live connection, and targets
// whose outbound queue is full, are counted and dropped. The initiator of
// the action is never told about third-party delivery failures.
func (m *Manager) deliver(id ParticipantID, ev Event) {
	conn, ok := m.registry.Resolve(id)
	if !ok {
		m.metrics.Inc(metrics.DropTargetUnreachable)
		m.log.Debug("drop event for offline participant", "participant", id, "event", ev.Type)
		return
	}
	if !conn.Deliver(ev) {
		m.metrics.Inc(metrics.DropSendQueueFull)
		m.log.Warn("drop event, send queue full", "participant", id, "event", ev.Type)
	}
}
