package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/johnEmman/server-v3/internal/config"
	"github.com/johnEmman/server-v3/internal/metrics"
	"github.com/johnEmman/server-v3/internal/rooms"
	"github.com/johnEmman/server-v3/internal/signaling"
)

func testConfig() config.Config {
	return config.Config{
		ListenAddr:      "127.0.0.1:0",
		Mode:            config.ModeDev,
		LogFormat:       config.LogFormatText,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 2 * time.Second,
	}
}

func startTestServer(t *testing.T, cfg config.Config) (baseURL string, coord *rooms.Coordinator) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord = rooms.NewCoordinator(metrics.New(), log)
	go coord.Run()
	t.Cleanup(coord.Stop)

	srv, err := New(cfg, log, BuildInfo{Commit: "abc", BuildTime: "time"}, coord, metrics.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-errCh
	})

	return "http://" + ln.Addr().String(), coord
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status=%d, want %d", url, resp.StatusCode, wantStatus)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func postJSON(t *testing.T, url, payload string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func mustICEServers(t *testing.T, raw string) []webrtc.ICEServer {
	t.Helper()
	servers, err := config.ParseICEServersJSON(raw)
	if err != nil {
		t.Fatalf("parse ice servers: %v", err)
	}
	return servers
}

func TestHealthReadyVersion(t *testing.T) {
	baseURL, _ := startTestServer(t, testConfig())

	if body := getJSON(t, baseURL+"/healthz", http.StatusOK); body["ok"] != true {
		t.Fatalf("healthz=%v", body)
	}
	if body := getJSON(t, baseURL+"/readyz", http.StatusOK); body["ready"] != true {
		t.Fatalf("readyz=%v", body)
	}
	if body := getJSON(t, baseURL+"/version", http.StatusOK); body["commit"] != "abc" {
		t.Fatalf("version=%v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	baseURL, _ := startTestServer(t, testConfig())

	resp, err := http.Get(baseURL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "signaling_events_total") {
		t.Fatalf("metrics body:\n%s", raw)
	}
}

func TestPresenceEmpty(t *testing.T) {
	baseURL, _ := startTestServer(t, testConfig())

	body := getJSON(t, baseURL+"/presence", http.StatusOK)
	if body["count"] != float64(0) {
		t.Fatalf("presence=%v, want empty", body)
	}
	if _, ok := body["online"].([]any); !ok {
		t.Fatalf("online is not a list: %v", body)
	}
}

func TestRoomsRESTLifecycle(t *testing.T) {
	baseURL, _ := startTestServer(t, testConfig())

	resp := postJSON(t, baseURL+"/rooms", `{"roomId":"pairing","hostId":"alice"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d, want 201", resp.StatusCode)
	}

	// Duplicate room ID.
	resp = postJSON(t, baseURL+"/rooms", `{"roomId":"pairing","hostId":"bob"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status=%d, want 409", resp.StatusCode)
	}

	// Invite from a non-host is forbidden.
	resp = postJSON(t, baseURL+"/rooms/pairing/invite", `{"hostId":"bob","inviteeId":"carol"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-host invite status=%d, want 403", resp.StatusCode)
	}

	resp = postJSON(t, baseURL+"/rooms/pairing/invite", `{"hostId":"alice","inviteeId":"bob"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("invite status=%d, want 204", resp.StatusCode)
	}

	// Invited user is admitted immediately.
	resp = postJSON(t, baseURL+"/rooms/pairing/join", `{"userId":"bob"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status=%d, want 200", resp.StatusCode)
	}
	var joinBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&joinBody); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if joinBody["status"] != "admitted" {
		t.Fatalf("join=%v, want admitted", joinBody)
	}

	// Rejoining is a conflict.
	resp = postJSON(t, baseURL+"/rooms/pairing/join", `{"userId":"bob"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("rejoin status=%d, want 409", resp.StatusCode)
	}

	// Uninvited user stays pending.
	resp = postJSON(t, baseURL+"/rooms/pairing/join", `{"userId":"carol"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending join status=%d, want 200", resp.StatusCode)
	}
	joinBody = map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&joinBody); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if joinBody["status"] != "pending" {
		t.Fatalf("join=%v, want pending", joinBody)
	}

	body := getJSON(t, baseURL+"/rooms/pairing", http.StatusOK)
	if body["host"] != "alice" {
		t.Fatalf("room=%v", body)
	}
	guests, _ := body["guests"].([]any)
	if len(guests) != 1 || guests[0] != "bob" {
		t.Fatalf("guests=%v, want [bob]", guests)
	}

	resp = postJSON(t, baseURL+"/rooms/missing/join", `{"userId":"bob"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing room status=%d, want 404", resp.StatusCode)
	}
}

func TestRoomsRESTBadRequests(t *testing.T) {
	baseURL, _ := startTestServer(t, testConfig())

	resp := postJSON(t, baseURL+"/rooms", `{"roomId":"pairing"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing hostId status=%d, want 400", resp.StatusCode)
	}
	resp = postJSON(t, baseURL+"/rooms", `{"roomId":"pairing","hostId":"alice","extra":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field status=%d, want 400", resp.StatusCode)
	}
}

func TestOriginPolicyOnBrowserRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	baseURL, _ := startTestServer(t, cfg)

	req, _ := http.NewRequest(http.MethodGet, baseURL+"/presence", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("disallowed origin status=%d, want 403", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, baseURL+"/presence", nil)
	req.Header.Set("Origin", "https://app.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("allowed origin status=%d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("ACAO=%q", got)
	}
}

func TestICEEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.ICEServers = mustICEServers(t, `[{"urls":"stun:stun.example.com"}]`)
	baseURL, _ := startTestServer(t, cfg)

	body := getJSON(t, baseURL+"/webrtc/ice", http.StatusOK)
	servers, ok := body["iceServers"].([]any)
	if !ok || len(servers) != 1 {
		t.Fatalf("iceServers=%v", body)
	}
}

func TestICEEndpointWithTURNREST(t *testing.T) {
	cfg := testConfig()
	cfg.ICEServers = mustICEServers(t, `[{"urls":"turn:turn.example.com","username":"static","credential":"static"}]`)
	cfg.TurnREST = config.TurnRESTConfig{
		SharedSecret:   "shared",
		TTLSeconds:     600,
		UsernamePrefix: "signal",
	}
	baseURL, _ := startTestServer(t, cfg)

	body := getJSON(t, baseURL+"/webrtc/ice", http.StatusOK)
	servers := body["iceServers"].([]any)
	server := servers[0].(map[string]any)
	username, _ := server["username"].(string)
	if username == "static" || !strings.Contains(username, ":signal:") {
		t.Fatalf("username=%q, want minted turn rest credentials", username)
	}
}

// Mounts the signaling endpoint on the server mux the way main does and
// dials it through the full middleware chain. The logging middleware's
// response wrapper must pass http.Hijacker through or the upgrade fails.
func TestWebSocketThroughMiddlewareChain(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = config.AuthModeNone
	cfg.SignalingAuthTimeout = time.Second
	cfg.WSIdleTimeout = 10 * time.Second
	cfg.WSPingInterval = 5 * time.Second
	cfg.MaxSignalingMessageBytes = 64 * 1024
	cfg.MaxSignalingMessagesPerSecond = 1000
	cfg.SendQueueSize = 16

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	coord := rooms.NewCoordinator(m, log)
	go coord.Run()
	t.Cleanup(coord.Stop)

	srv, err := New(cfg, log, BuildInfo{}, coord, m)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sig, err := signaling.NewServer(cfg, coord, m, log)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.Mux().Handle("GET /ws", sig)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-errCh
	})

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial through middleware chain: %v", err)
	}
	defer ws.Close()

	readEvent := func() rooms.Event {
		t.Helper()
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev rooms.Event
		if err := ws.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		return ev
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"register","userId":"host-1"}`)); err != nil {
		t.Fatalf("write register: %v", err)
	}
	if ev := readEvent(); ev.Type != rooms.EventRegistered || ev.UserID != "host-1" {
		t.Fatalf("registered event=%+v", ev)
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"create-room","roomId":"room-1"}`)); err != nil {
		t.Fatalf("write create-room: %v", err)
	}
	if ev := readEvent(); ev.Type != rooms.EventRoomCreated || ev.RoomID != "room-1" {
		t.Fatalf("room-created event=%+v", ev)
	}
}
