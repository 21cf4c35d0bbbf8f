package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TCPAddr = "127.0.0.1:0"
	cfg.UDPAddr = "127.0.0.1:0"
	cfg.AdminAddr = "127.0.0.1:0"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "flowchat.db")
	cfg.ShutdownTimeout = time.Second
	return &cfg
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	a, err := New(testConfig(t), &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRunStopsOnRemoteQuit(t *testing.T) {
	logger := zerolog.Nop()
	a, err := New(testConfig(t), &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	a.requestQuit()
	a.requestQuit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after quit")
	}
}

func TestNewFailsOnBadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabasePath = filepath.Join(t.TempDir(), "missing", "dir", "flowchat.db")
	logger := zerolog.Nop()
	if _, err := New(cfg, &logger); err == nil {
		t.Fatalf("expected error for unusable database path")
	}
}
