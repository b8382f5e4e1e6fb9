package rooms

import "errors"

// Structural failures are reported synchronously to the initiating
// participant. Delivery failures to a third party (invitee or signal target
// offline) are intentionally not errors: the initiating action still
// succeeds and the payload is dropped.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room already exists")
	ErrNotHost       = errors.New("only the room host may do this")
	ErrAlreadyInRoom = errors.New("already in room")

	// ErrCoordinatorClosed is returned for calls issued after Stop.
	ErrCoordinatorClosed = errors.New("coordinator closed")
)

// ErrorCode maps a coordinator error to its wire error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomExists):
		return "room_exists"
	case errors.Is(err, ErrNotHost):
		return "not_host"
	case errors.Is(err, ErrAlreadyInRoom):
		return "already_in_room"
	default:
		return "internal_error"
	}
}
