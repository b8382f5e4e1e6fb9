package rooms

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/johnEmman/server-v3/internal/metrics"
)

// Coordinator owns the Room Store and Connection Registry and serializes all
// access to them through a single goroutine. Inbound events from any number
// of transport connections funnel into its command channel and are handled to
// completion, one at a time, so the Manager and Relay need no locking.
type Coordinator struct {
	manager  *Manager
	relay    *Relay
	registry *Registry
	store    *Store

	cmds chan func()

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// cmdBacklog bounds the command queue. Callers block (briefly) rather than
// drop commands: unlike outbound events, inbound state transitions must not
// be lost silently.
const cmdBacklog = 256

func NewCoordinator(m *metrics.Metrics, log *slog.Logger) *Coordinator {
	store := NewStore()
	registry := NewRegistry()
	return &Coordinator{
		manager:  NewManager(store, registry, m, log),
		relay:    NewRelay(store, registry, m, log),
		registry: registry,
		store:    store,
		cmds:     make(chan func(), cmdBacklog),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run processes commands until Stop is called. It is typically started as
// `go coord.Run()` from main.
func (c *Coordinator) Run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.quit:
			// Drain whatever was enqueued before the stop so synchronous
			// callers are not left waiting.
			for {
				select {
				case fn := <-c.cmds:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Stop terminates the Run loop. Calls made after Stop return
// ErrCoordinatorClosed.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

// call runs fn on the coordinator goroutine and waits for it to complete.
func (c *Coordinator) call(fn func()) error {
	ran := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(ran) }:
	case <-c.done:
		return ErrCoordinatorClosed
	}
	select {
	case <-ran:
		return nil
	case <-c.done:
		// The loop exited without running our command.
		select {
		case <-ran:
			return nil
		default:
			return ErrCoordinatorClosed
		}
	}
}

// Register binds id to conn, superseding any previous connection for id.
func (c *Coordinator) Register(id ParticipantID, conn Conn) error {
	return c.call(func() { c.registry.Register(id, conn) })
}

// Disconnect handles a transport-level close of conn.
func (c *Coordinator) Disconnect(conn Conn) error {
	return c.call(func() { c.manager.Disconnect(conn) })
}

func (c *Coordinator) CreateRoom(roomID string, host ParticipantID) (string, error) {
	var (
		id  string
		err error
	)
	if cerr := c.call(func() { id, err = c.manager.CreateRoom(roomID, host) }); cerr != nil {
		return "", cerr
	}
	return id, err
}

func (c *Coordinator) InviteUser(roomID string, caller, invitee ParticipantID) error {
	var err error
	if cerr := c.call(func() { err = c.manager.InviteUser(roomID, caller, invitee) }); cerr != nil {
		return cerr
	}
	return err
}

func (c *Coordinator) RequestJoin(roomID string, user ParticipantID) error {
	var err error
	if cerr := c.call(func() { err = c.manager.RequestJoin(roomID, user) }); cerr != nil {
		return cerr
	}
	return err
}

func (c *Coordinator) RespondJoinRequest(roomID string, approver, target ParticipantID, approved bool) error {
	var err error
	if cerr := c.call(func() { err = c.manager.RespondJoinRequest(roomID, approver, target, approved) }); cerr != nil {
		return cerr
	}
	return err
}

func (c *Coordinator) Leave(roomID string, user ParticipantID) error {
	var err error
	if cerr := c.call(func() { err = c.manager.Leave(roomID, user) }); cerr != nil {
		return cerr
	}
	return err
}

func (c *Coordinator) Signal(roomID string, from, target ParticipantID, payload json.RawMessage) error {
	var err error
	if cerr := c.call(func() { err = c.relay.Signal(roomID, from, target, payload) }); cerr != nil {
		return cerr
	}
	return err
}

// Online returns the participants with a live connection, sorted. This is
// the presence view: the registry is the online set, there is no separate
// presence store.
func (c *Coordinator) Online() ([]ParticipantID, error) {
	var out []ParticipantID
	if err := c.call(func() { out = c.registry.Participants() }); err != nil {
		return nil, err
	}
	return out, nil
}

// RoomInfo is a point-in-time snapshot of a room, used by the HTTP surface
// and by tests.
type RoomInfo struct {
	ID     string          `json:"roomId"`
	Host   ParticipantID   `json:"host"`
	Guests []ParticipantID `json:"guests"`
}

func (c *Coordinator) Snapshot(roomID string) (RoomInfo, error) {
	var (
		info RoomInfo
		err  error
	)
	cerr := c.call(func() {
		room, ok := c.store.Get(roomID)
		if !ok {
			err = ErrRoomNotFound
			return
		}
		info = RoomInfo{ID: room.ID, Host: room.Host, Guests: room.Guests()}
	})
	if cerr != nil {
		return RoomInfo{}, cerr
	}
	return info, err
}
