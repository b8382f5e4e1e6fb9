package rooms

import "sort"

// Registry maps a participant identity to its currently active transport
// connection. A participant has at most one active connection: registering a
// new connection for an identity silently supersedes the previous mapping,
// with no explicit logout signal required.
//
// Registry is not safe for concurrent use; it is owned by the Coordinator
// goroutine.
type Registry struct {
	conns  map[ParticipantID]Conn
	owners map[Conn]ParticipantID
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[ParticipantID]Conn),
		owners: make(map[Conn]ParticipantID),
	}
}

// Register stores or overwrites the mapping for id.
func (r *Registry) Register(id ParticipantID, conn Conn) {
	if old, ok := r.conns[id]; ok {
		// The superseded connection no longer owns any identity. If it closes
		// later, Unregister will be a no-op for it.
		delete(r.owners, old)
	}
	r.conns[id] = conn
	r.owners[conn] = id
}

// Resolve returns the live connection for id, if any.
func (r *Registry) Resolve(id ParticipantID) (Conn, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Owner returns the participant identity that currently owns conn. A
// connection that was superseded by a newer registration owns nothing.
func (r *Registry) Owner(conn Conn) (ParticipantID, bool) {
	id, ok := r.owners[conn]
	return id, ok
}

// Unregister removes the mapping for conn and returns the identity it owned.
// The mapping is removed only while it still points at this exact connection,
// which guards against a stale unregister racing a newer registration for
// the same identity.
func (r *Registry) Unregister(conn Conn) (ParticipantID, bool) {
	id, ok := r.owners[conn]
	if !ok {
		return "", false
	}
	delete(r.owners, conn)
	delete(r.conns, id)
	return id, true
}

// Participants returns the identities with a live connection, sorted.
func (r *Registry) Participants() []ParticipantID {
	out := make([]ParticipantID, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of live connections.
func (r *Registry) Len() int { return len(r.conns) }
