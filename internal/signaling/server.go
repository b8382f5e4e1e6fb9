// Package signaling is the WebSocket transport in front of the room
// coordinator. It authenticates connections, enforces per-connection limits,
// parses the client wire protocol and translates it into coordinator calls.
package signaling

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/johnEmman/server-v3/internal/auth"
	"github.com/johnEmman/server-v3/internal/config"
	"github.com/johnEmman/server-v3/internal/metrics"
	"github.com/johnEmman/server-v3/internal/origin"
	"github.com/johnEmman/server-v3/internal/ratelimit"
	"github.com/johnEmman/server-v3/internal/rooms"
)

// Server upgrades HTTP requests to signaling WebSockets.
//
// Protocol: optionally authenticate (via query credential or a first in-band
// auth message, depending on AUTH_MODE), then register an identity, then
// issue room and signal messages. Structural mistakes get an error event and
// the connection stays open; protocol violations (unauthenticated traffic,
// rate-limit abuse, binary frames) close it.
type Server struct {
	cfg      config.Config
	coord    *rooms.Coordinator
	verifier auth.Verifier
	metrics  *metrics.Metrics
	limiter  *ratelimit.ConnLimiter
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, coord *rooms.Coordinator, m *metrics.Metrics, log *slog.Logger) (*Server, error) {
	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		coord:    coord,
		verifier: verifier,
		metrics:  m,
		limiter:  ratelimit.NewConnLimiter(cfg.MaxConnections),
		log:      log,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	return s, nil
}

// checkOrigin applies the same policy as the HTTP middleware. Requests
// without an Origin header are non-browser clients and are allowed; auth is
// their gate.
func (s *Server) checkOrigin(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		return true
	}
	normalized, originHost, ok := origin.Normalize(header)
	if !ok {
		return false
	}
	return origin.Allowed(normalized, originHost, r.Host, s.cfg.AllowedOrigins)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.Acquire(); err != nil {
		s.metrics.Inc(metrics.DropTooManyConnections)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer s.limiter.Release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.metrics.Inc(metrics.ConnectionsOpened)
	defer s.metrics.Inc(metrics.ConnectionsClosed)

	conn.SetReadLimit(s.cfg.MaxSignalingMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
	})

	c := newClient(conn, s.cfg.SendQueueSize)
	go c.writePump(s.cfg.WSPingInterval)
	defer c.close()

	// identity is the credential-carried participant identifier ("" when the
	// auth mode carries none). registered is set once the client has bound an
	// identity via the register message.
	var identity rooms.ParticipantID
	var registered rooms.ParticipantID

	authenticated := false
	cred, err := auth.CredentialFromQuery(s.cfg.AuthMode, r.URL.Query())
	switch {
	case err == nil:
		id, verr := s.verifier.Verify(cred)
		if verr != nil {
			s.metrics.Inc(metrics.AuthFailure)
			s.log.Warn("signaling auth failed", "remote", r.RemoteAddr, "err", verr)
			writeClose(conn, websocket.ClosePolicyViolation, "invalid credentials")
			return
		}
		identity = rooms.ParticipantID(id)
		authenticated = true
	case errors.Is(err, auth.ErrMissingCredentials):
		// Wait for an in-band auth message, but not forever.
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SignalingAuthTimeout))
	default:
		writeClose(conn, websocket.CloseInternalServerErr, "invalid auth configuration")
		return
	}

	bucket := ratelimit.NewTokenBucket(nil,
		int64(s.cfg.MaxSignalingMessagesPerSecond),
		int64(s.cfg.MaxSignalingMessagesPerSecond))

	defer func() {
		if registered != "" {
			_ = s.coord.Disconnect(c)
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !authenticated && isTimeout(err) {
				writeClose(conn, websocket.ClosePolicyViolation, "authentication timeout")
			}
			return
		}
		if msgType != websocket.TextMessage {
			writeClose(conn, websocket.CloseUnsupportedData, "expected text message")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))

		if !bucket.Allow(1) {
			s.metrics.Inc(metrics.DropRateLimited)
			writeClose(conn, websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		msg, err := parseClientMessage(data)
		if err != nil {
			if !authenticated {
				writeClose(conn, websocket.ClosePolicyViolation, "authentication required")
				return
			}
			s.sendError(c, "bad_message", err.Error())
			continue
		}

		if !authenticated {
			if msg.Type != messageTypeAuth {
				writeClose(conn, websocket.ClosePolicyViolation, "authentication required")
				return
			}
			cred, err := auth.CredentialFromMessage(s.cfg.AuthMode, msg.APIKey, msg.Token)
			if err != nil {
				s.metrics.Inc(metrics.AuthFailure)
				writeClose(conn, websocket.ClosePolicyViolation, "missing credentials")
				return
			}
			id, err := s.verifier.Verify(cred)
			if err != nil {
				s.metrics.Inc(metrics.AuthFailure)
				s.log.Warn("signaling auth failed", "remote", r.RemoteAddr, "err", err)
				writeClose(conn, websocket.ClosePolicyViolation, "invalid credentials")
				return
			}
			identity = rooms.ParticipantID(id)
			authenticated = true
			continue
		}

		if msg.Type == messageTypeAuth {
			s.sendError(c, "bad_message", "already authenticated")
			continue
		}

		if msg.Type == messageTypeRegister {
			s.handleRegister(c, msg, identity, &registered, r.RemoteAddr)
			continue
		}

		if registered == "" {
			s.sendError(c, "not_registered", "register before sending room messages")
			continue
		}

		if err := s.dispatch(msg, registered); err != nil {
			s.sendError(c, rooms.ErrorCode(err), err.Error())
		}
	}
}

// handleRegister binds the connection to a participant identity. When the
// credential carries an identity (jwt), the claimed userId must match it;
// otherwise the client picks its identity, or is assigned a generated guest
// one.
func (s *Server) handleRegister(c *client, msg clientMessage, identity rooms.ParticipantID, registered *rooms.ParticipantID, remote string) {
	if *registered != "" {
		s.sendError(c, "already_registered", "connection is already registered")
		return
	}

	pid := rooms.ParticipantID(msg.UserID)
	if identity != "" {
		if pid != "" && pid != identity {
			s.sendError(c, "identity_mismatch", "userId does not match authenticated identity")
			return
		}
		pid = identity
	} else if pid == "" {
		pid = rooms.ParticipantID(uuid.NewString())
	}

	if err := s.coord.Register(pid, c); err != nil {
		s.sendError(c, rooms.ErrorCode(err), err.Error())
		return
	}
	*registered = pid
	s.log.Info("participant registered", "userId", pid, "remote", remote)
	c.Deliver(rooms.Event{Type: rooms.EventRegistered, UserID: pid})
}

func (s *Server) dispatch(msg clientMessage, from rooms.ParticipantID) error {
	switch msg.Type {
	case messageTypeCreateRoom:
		_, err := s.coord.CreateRoom(msg.RoomID, from)
		return err
	case messageTypeInviteUser:
		return s.coord.InviteUser(msg.RoomID, from, rooms.ParticipantID(msg.InviteeID))
	case messageTypeRequestJoin:
		return s.coord.RequestJoin(msg.RoomID, from)
	case messageTypeRespondJoinRequest:
		return s.coord.RespondJoinRequest(msg.RoomID, from, rooms.ParticipantID(msg.TargetUserID), *msg.Approved)
	case messageTypeSignal:
		return s.coord.Signal(msg.RoomID, from, rooms.ParticipantID(msg.TargetUserID), msg.SignalData)
	case messageTypeLeaveRoom:
		return s.coord.Leave(msg.RoomID, from)
	default:
		// validate() already rejected anything else.
		return nil
	}
}

func (s *Server) sendError(c *client, code, message string) {
	c.Deliver(rooms.Event{Type: rooms.EventError, Code: code, Message: message})
}

func writeClose(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
