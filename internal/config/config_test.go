package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func noEnv(string) (string, bool) { return "", false }

func TestDefaultsDev(t *testing.T) {
	cfg, err := load(noEnv, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("mode=%q, want %q", cfg.Mode, ModeDev)
	}
	if cfg.LogFormat != LogFormatText {
		t.Fatalf("logFormat=%q, want %q", cfg.LogFormat, LogFormatText)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("logLevel=%v, want debug", cfg.LogLevel)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("listenAddr=%q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.AuthMode != AuthModeNone {
		t.Fatalf("authMode=%q, want none", cfg.AuthMode)
	}
	if cfg.SignalingAuthTimeout != DefaultSignalingAuthTimeout {
		t.Fatalf("signalingAuthTimeout=%v, want %v", cfg.SignalingAuthTimeout, DefaultSignalingAuthTimeout)
	}
	if cfg.MaxSignalingMessageBytes != DefaultMaxSignalingMessageBytes {
		t.Fatalf("maxSignalingMessageBytes=%d, want %d", cfg.MaxSignalingMessageBytes, DefaultMaxSignalingMessageBytes)
	}
	if cfg.MaxConnections != 0 {
		t.Fatalf("maxConnections=%d, want 0 (unlimited)", cfg.MaxConnections)
	}
	if cfg.SendQueueSize != DefaultSendQueueSize {
		t.Fatalf("sendQueueSize=%d, want %d", cfg.SendQueueSize, DefaultSendQueueSize)
	}
	if cfg.TurnREST.Enabled() {
		t.Fatalf("turn rest enabled with no secret")
	}
	if err := cfg.ICEConfigError(); err != nil {
		t.Fatalf("unexpected ice config error: %v", err)
	}
}

func TestProdModeDefaultsToJSONLogs(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{envVarMode: "prod"}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Fatalf("logFormat=%q, want json", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("logLevel=%v, want info", cfg.LogLevel)
	}
}

func TestFlagOverridesEnv(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarListenAddr: "127.0.0.1:9999",
	}), []string{"--listen-addr", "127.0.0.1:7777", "--mode", "prod"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7777" {
		t.Fatalf("listenAddr=%q, want flag value", cfg.ListenAddr)
	}
	if cfg.Mode != ModeProd {
		t.Fatalf("mode=%q, want prod", cfg.Mode)
	}
}

func TestAuthModeValidation(t *testing.T) {
	if _, err := load(lookupMap(map[string]string{envVarAuthMode: "api_key"}), nil); err == nil {
		t.Fatalf("api_key without API_KEY accepted")
	}
	if _, err := load(lookupMap(map[string]string{envVarAuthMode: "jwt"}), nil); err == nil {
		t.Fatalf("jwt without JWT_SECRET accepted")
	}
	if _, err := load(lookupMap(map[string]string{envVarAuthMode: "telepathy"}), nil); err == nil {
		t.Fatalf("unknown auth mode accepted")
	}

	cfg, err := load(lookupMap(map[string]string{
		envVarAuthMode: "api_key",
		envVarAPIKey:   "sekrit",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthMode != AuthModeAPIKey || cfg.APIKey != "sekrit" {
		t.Fatalf("cfg=%+v, want api_key mode with key", cfg.AuthMode)
	}
}

func TestDurationAndIntParsing(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarShutdownTimeout:               "30s",
		envVarWSIdleTimeout:                 "90s",
		envVarWSPingInterval:                "25s",
		envVarMaxSignalingMessagesPerSecond: "10",
		envVarMaxConnections:                "500",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Fatalf("shutdownTimeout=%v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.WSIdleTimeout != 90*time.Second || cfg.WSPingInterval != 25*time.Second {
		t.Fatalf("ws timeouts=%v/%v", cfg.WSIdleTimeout, cfg.WSPingInterval)
	}
	if cfg.MaxSignalingMessagesPerSecond != 10 || cfg.MaxConnections != 500 {
		t.Fatalf("limits=%d/%d", cfg.MaxSignalingMessagesPerSecond, cfg.MaxConnections)
	}

	if _, err := load(lookupMap(map[string]string{envVarShutdownTimeout: "soon"}), nil); err == nil {
		t.Fatalf("invalid duration accepted")
	}
	if _, err := load(lookupMap(map[string]string{envVarMaxConnections: "many"}), nil); err == nil {
		t.Fatalf("invalid int accepted")
	}
}

func TestPingMustBeShorterThanIdle(t *testing.T) {
	_, err := load(lookupMap(map[string]string{
		envVarWSIdleTimeout:  "10s",
		envVarWSPingInterval: "10s",
	}), nil)
	if err == nil || !strings.Contains(err.Error(), envVarWSPingInterval) {
		t.Fatalf("err=%v, want ping/idle validation error", err)
	}
}

func TestAllowedOriginsSplit(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarAllowedOrigins: " https://app.example.com , https://beta.example.com ",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"https://app.example.com", "https://beta.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("origins=%v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("origins=%v, want %v", cfg.AllowedOrigins, want)
		}
	}
}

func TestICEConfigErrorIsDeferred(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarICEServersJSON: `not json`,
	}), nil)
	if err != nil {
		t.Fatalf("load: %v (ice errors must not fail startup)", err)
	}
	if cfg.ICEConfigError() == nil {
		t.Fatalf("expected a deferred ice config error")
	}
}
