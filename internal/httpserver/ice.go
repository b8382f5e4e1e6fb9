package httpserver

import (
	"net/http"
	"strings"

	"github.com/pion/webrtc/v4"
)

// handleICE returns the ICE server list clients should hand to
// RTCPeerConnection. When TURN REST is configured, ephemeral credentials are
// minted per request and injected into the TURN entries, replacing any static
// ones from the environment.
func (s *Server) handleICE(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.ICEConfigError(); err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "ice_config", err.Error())
		return
	}

	servers := s.cfg.ICEServers
	if servers == nil {
		// Encode as [] rather than null.
		servers = []webrtc.ICEServer{}
	}
	if s.turnGen != nil {
		creds, err := s.turnGen.GenerateRandom()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "failed to mint turn credentials")
			return
		}
		servers = withTURNCredentials(servers, creds.Username, creds.Credential)
	}

	WriteJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
}

func withTURNCredentials(servers []webrtc.ICEServer, username, credential string) []webrtc.ICEServer {
	if len(servers) == 0 {
		return servers
	}
	out := make([]webrtc.ICEServer, len(servers))
	for i, server := range servers {
		out[i] = server
		if iceServerHasTURNURL(server) {
			out[i].Username = username
			out[i].Credential = credential
		}
	}
	return out
}

func iceServerHasTURNURL(server webrtc.ICEServer) bool {
	for _, raw := range server.URLs {
		url := strings.ToLower(strings.TrimSpace(raw))
		if strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:") {
			return true
		}
	}
	return false
}
