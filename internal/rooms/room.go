package rooms

// Room is a named rendezvous context with one host and zero or more guests.
//
// Invariants, enforced here rather than by callers: the host never appears in
// guests, a participant appears in guests at most once, and the guest slice
// preserves join order.
type Room struct {
	ID   string
	Host ParticipantID

	guests  []ParticipantID
	invites map[ParticipantID]struct{}
}

func newRoom(id string, host ParticipantID) *Room {
	return &Room{
		ID:      id,
		Host:    host,
		invites: make(map[ParticipantID]struct{}),
	}
}

// Guests returns the guests in join order.
func (r *Room) Guests() []ParticipantID {
	out := make([]ParticipantID, len(r.guests))
	copy(out, r.guests)
	return out
}

// Members returns the host followed by the guests in join order.
func (r *Room) Members() []ParticipantID {
	out := make([]ParticipantID, 0, len(r.guests)+1)
	out = append(out, r.Host)
	out = append(out, r.guests...)
	return out
}

func (r *Room) IsHost(id ParticipantID) bool { return r.Host == id }

func (r *Room) IsGuest(id ParticipantID) bool {
	for _, g := range r.guests {
		if g == id {
			return true
		}
	}
	return false
}

func (r *Room) IsMember(id ParticipantID) bool {
	return r.IsHost(id) || r.IsGuest(id)
}

// Invite records a standing grant for id to join without host approval.
// Re-inviting is idempotent.
func (r *Room) Invite(id ParticipantID) {
	r.invites[id] = struct{}{}
}

func (r *Room) IsInvited(id ParticipantID) bool {
	_, ok := r.invites[id]
	return ok
}

// addGuest appends id to the guest list. It refuses the host and duplicates
// so the Room invariants hold no matter what the caller checked.
func (r *Room) addGuest(id ParticipantID) bool {
	if r.IsMember(id) {
		return false
	}
	r.guests = append(r.guests, id)
	return true
}

func (r *Room) removeGuest(id ParticipantID) bool {
	for i, g := range r.guests {
		if g == id {
			r.guests = append(r.guests[:i], r.guests[i+1:]...)
			return true
		}
	}
	return false
}

// Store is the in-memory table of live rooms, keyed by room ID. Like the
// Registry it is owned by the Coordinator goroutine and holds no locks.
// Rooms do not survive a process restart; that is an accepted property of
// the design, not an oversight.
type Store struct {
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

func (s *Store) Get(id string) (*Room, bool) {
	room, ok := s.rooms[id]
	return room, ok
}

// Create adds a new Open room. The room ID must not be in use.
func (s *Store) Create(id string, host ParticipantID) (*Room, error) {
	if _, ok := s.rooms[id]; ok {
		return nil, ErrRoomExists
	}
	room := newRoom(id, host)
	s.rooms[id] = room
	return room, nil
}

func (s *Store) Delete(id string) {
	delete(s.rooms, id)
}

// RoomsOf returns every room the participant belongs to, host or guest.
func (s *Store) RoomsOf(id ParticipantID) []*Room {
	var out []*Room
	for _, room := range s.rooms {
		if room.IsMember(id) {
			out = append(out, room)
		}
	}
	return out
}

func (s *Store) Len() int { return len(s.rooms) }
