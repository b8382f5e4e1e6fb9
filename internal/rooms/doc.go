// Package rooms implements the signaling coordinator: the in-memory room
// table, the participant-to-connection registry, the room state machine
// (create/invite/join/approve/leave/disconnect), and the relay that forwards
// opaque negotiation payloads between participants.
//
// All room and registry state is owned by a single Coordinator goroutine.
// Mutating calls are serialized through its command channel, so the Manager,
// Store and Registry themselves are lock-free and must only be touched from
// that goroutine.
package rooms
