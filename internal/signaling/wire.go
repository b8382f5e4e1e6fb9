package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type messageType string

const (
	messageTypeAuth               messageType = "auth"
	messageTypeRegister           messageType = "register"
	messageTypeCreateRoom         messageType = "create-room"
	messageTypeInviteUser         messageType = "invite-user"
	messageTypeRequestJoin        messageType = "request-join"
	messageTypeRespondJoinRequest messageType = "respond-join-request"
	messageTypeSignal             messageType = "signal"
	messageTypeLeaveRoom          messageType = "leave-room"
)

// clientMessage is the tagged union sent by clients over the WebSocket.
// Parsing is strict: unknown fields, trailing data and fields that do not
// belong to the message type are all rejected.
type clientMessage struct {
	Type messageType `json:"type"`

	RoomID       string `json:"roomId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	InviteeID    string `json:"inviteeId,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
	Approved     *bool  `json:"approved,omitempty"`

	// SignalData is opaque negotiation payload (SDP, ICE candidates). The
	// server relays it without inspecting it.
	SignalData json.RawMessage `json:"signalData,omitempty"`

	APIKey string `json:"apiKey,omitempty"`
	Token  string `json:"token,omitempty"`
}

func parseClientMessage(data []byte) (clientMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg clientMessage
	if err := dec.Decode(&msg); err != nil {
		return clientMessage{}, err
	}
	if err := msg.validate(); err != nil {
		return clientMessage{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return clientMessage{}, fmt.Errorf("unexpected trailing data")
	}
	return msg, nil
}

func (m clientMessage) validate() error {
	switch m.Type {
	case messageTypeAuth:
		if m.APIKey == "" && m.Token == "" {
			return fmt.Errorf("auth message missing apiKey/token")
		}
		if m.RoomID != "" || m.UserID != "" || m.InviteeID != "" || m.TargetUserID != "" || m.Approved != nil || len(m.SignalData) > 0 {
			return fmt.Errorf("auth message has unexpected fields")
		}
	case messageTypeRegister:
		// UserID is optional: empty means "assign me a guest identity".
		if m.RoomID != "" || m.InviteeID != "" || m.TargetUserID != "" || m.Approved != nil || len(m.SignalData) > 0 || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("register message has unexpected fields")
		}
	case messageTypeCreateRoom:
		// RoomID is optional: empty means "generate one".
		if m.UserID != "" || m.InviteeID != "" || m.TargetUserID != "" || m.Approved != nil || len(m.SignalData) > 0 || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("create-room message has unexpected fields")
		}
	case messageTypeInviteUser:
		if m.RoomID == "" {
			return fmt.Errorf("invite-user message missing roomId")
		}
		if m.InviteeID == "" {
			return fmt.Errorf("invite-user message missing inviteeId")
		}
		if m.UserID != "" || m.TargetUserID != "" || m.Approved != nil || len(m.SignalData) > 0 || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("invite-user message has unexpected fields")
		}
	case messageTypeRequestJoin:
		if m.RoomID == "" {
			return fmt.Errorf("request-join message missing roomId")
		}
		if m.UserID != "" || m.InviteeID != "" || m.TargetUserID != "" || m.Approved != nil || len(m.SignalData) > 0 || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("request-join message has unexpected fields")
		}
	case messageTypeRespondJoinRequest:
		if m.RoomID == "" {
			return fmt.Errorf("respond-join-request message missing roomId")
		}
		if m.TargetUserID == "" {
			return fmt.Errorf("respond-join-request message missing targetUserId")
		}
		if m.Approved == nil {
			return fmt.Errorf("respond-join-request message missing approved")
		}
		if m.UserID != "" || m.InviteeID != "" || len(m.SignalData) > 0 || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("respond-join-request message has unexpected fields")
		}
	case messageTypeSignal:
		if m.RoomID == "" {
			return fmt.Errorf("signal message missing roomId")
		}
		if len(m.SignalData) == 0 {
			return fmt.Errorf("signal message missing signalData")
		}
		// TargetUserID empty means broadcast to the room.
		if m.UserID != "" || m.InviteeID != "" || m.Approved != nil || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("signal message has unexpected fields")
		}
	case messageTypeLeaveRoom:
		if m.RoomID == "" {
			return fmt.Errorf("leave-room message missing roomId")
		}
		if m.UserID != "" || m.InviteeID != "" || m.TargetUserID != "" || m.Approved != nil || len(m.SignalData) > 0 || m.APIKey != "" || m.Token != "" {
			return fmt.Errorf("leave-room message has unexpected fields")
		}
	default:
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
	return nil
}
