package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/config"
	"github.com/vovakirdan/flowchat/internal/transport/transporttest"
)

const testSecret = "test-secret"

func startTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, *transporttest.Stack) {
	t.Helper()

	stack := transporttest.NewStack(t)
	cfg := config.Default()
	cfg.AdminJWTSecret = testSecret
	cfg.WSRateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	server := NewServer(Deps{
		Exchanger: stack.Exchanger,
		Registry:  stack.Dispatcher.Registry(),
		Sessions:  stack.Auth.Sessions(),
		Users:     stack.Store,
		Metrics:   stack.Metrics,
	}, &cfg, nil)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts, stack
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(AdminJWTConfig(testSecret, "flowchat", time.Hour), "ops")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func get(t *testing.T, ts *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, nil)

	resp := get(t, ts, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, stack := startTestServer(t, nil)
	stack.Exchanger.Handle(context.Background(), "tcp", []byte("HELLO"), "")

	resp := get(t, ts, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `flowchat_commands_dispatched_total{command="HELLO",outcome="found",transport="tcp"} 1`) {
		t.Fatalf("command counter missing from metrics output")
	}
}

func TestStatsRequiresAdminToken(t *testing.T) {
	ts, stack := startTestServer(t, nil)
	ctx := context.Background()
	if _, err := stack.Auth.Register(ctx, "alice", "secret1", "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := stack.Auth.Login(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if resp := get(t, ts, "/api/stats", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", resp.StatusCode)
	}
	if resp := get(t, ts, "/api/stats", "garbage"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", resp.StatusCode)
	}

	resp := get(t, ts, "/api/stats", adminToken(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d", resp.StatusCode)
	}
	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Users != 1 || stats.ActiveSessions != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Commands) != 8 || stats.Commands[0] != "AUTH" {
		t.Fatalf("unexpected commands %v", stats.Commands)
	}
}

func TestStatsRejectsNonAdminRole(t *testing.T) {
	ts, _ := startTestServer(t, nil)

	claims := auth.Claims{
		Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			Issuer:    "flowchat",
			Audience:  jwt.ClaimStrings{adminAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if resp := get(t, ts, "/api/stats", token); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin status = %d", resp.StatusCode)
	}
}

func TestStatsDisabledWithoutSecret(t *testing.T) {
	ts, _ := startTestServer(t, func(cfg *config.Config) { cfg.AdminJWTSecret = "" })

	if resp := get(t, ts, "/api/stats", "anything"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
