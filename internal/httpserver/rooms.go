package httpserver

import (
	"net/http"

	"github.com/johnEmman/server-v3/internal/rooms"
)

// The room routes mirror the WebSocket operations for tooling and tests.
// Events still flow over WebSocket only: a host calling POST /rooms gets the
// room snapshot in the response, not a room-created event.

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	online, err := s.coord.Online()
	if err != nil {
		writeRoomsError(w, err)
		return
	}
	if online == nil {
		online = []rooms.ParticipantID{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"online": online, "count": len(online)})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"roomId"`
		HostID string `json:"hostId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.HostID == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "hostId is required")
		return
	}

	roomID, err := s.coord.CreateRoom(req.RoomID, rooms.ParticipantID(req.HostID))
	if err != nil {
		writeRoomsError(w, err)
		return
	}
	info, err := s.coord.Snapshot(roomID)
	if err != nil {
		writeRoomsError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.coord.Snapshot(r.PathValue("roomId"))
	if err != nil {
		writeRoomsError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostID    string `json:"hostId"`
		InviteeID string `json:"inviteeId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.HostID == "" || req.InviteeID == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "hostId and inviteeId are required")
		return
	}

	err := s.coord.InviteUser(r.PathValue("roomId"), rooms.ParticipantID(req.HostID), rooms.ParticipantID(req.InviteeID))
	if err != nil {
		writeRoomsError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "userId is required")
		return
	}

	roomID := r.PathValue("roomId")
	userID := rooms.ParticipantID(req.UserID)
	if err := s.coord.RequestJoin(roomID, userID); err != nil {
		writeRoomsError(w, err)
		return
	}

	// Invited users are admitted immediately; everyone else is pending host
	// approval. The snapshot tells the two apart.
	info, err := s.coord.Snapshot(roomID)
	if err != nil {
		writeRoomsError(w, err)
		return
	}
	admitted := false
	for _, guest := range info.Guests {
		if guest == userID {
			admitted = true
			break
		}
	}
	status := "pending"
	if admitted {
		status = "admitted"
	}
	WriteJSON(w, http.StatusOK, map[string]any{"roomId": roomID, "status": status})
}
