package rooms

import "encoding/json"

// ParticipantID is the stable logical identity of a participant. It is issued
// by the identity provider (JWT subject, or a generated guest ID) and is never
// derived from a transport connection.
type ParticipantID string

func (id ParticipantID) String() string { return string(id) }

// Conn is one live transport session for a participant.
//
// Deliver must not block: implementations enqueue the event on a bounded
// outbound queue and report false when the event had to be dropped (queue
// full or connection already closed). The coordinator treats a false return
// the same as an unreachable target.
type Conn interface {
	Deliver(ev Event) bool
}

type EventType string

const (
	EventRegistered    EventType = "registered"
	EventRoomCreated   EventType = "room-created"
	EventInvitedToRoom EventType = "invited-to-room"
	EventJoinRequest   EventType = "join-request"
	EventJoinApproved  EventType = "join-approved"
	EventJoinDenied    EventType = "join-denied"
	EventUserJoined    EventType = "user-joined"
	EventUserLeft      EventType = "user-left"
	EventSignal        EventType = "signal"
	EventError         EventType = "error"
)

// Event is an outbound message from the coordinator to a participant. It is
// serialized to the wire as-is; SignalData is the opaque negotiation payload
// and passes through unmodified.
type Event struct {
	Type   EventType     `json:"type"`
	RoomID string        `json:"roomId,omitempty"`
	UserID ParticipantID `json:"userId,omitempty"`

	// From identifies the sender of a relayed signal.
	From ParticipantID `json:"from,omitempty"`

	SignalData json.RawMessage `json:"signalData,omitempty"`

	// Code and Message are set on EventError only.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
