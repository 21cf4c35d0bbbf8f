package main

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/flowchat/internal/client"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/transport/tcp"
	"github.com/vovakirdan/flowchat/internal/transport/transporttest"
)

func startServer(t *testing.T) (string, int) {
	t.Helper()
	stack := transporttest.NewStack(t)
	srv := tcp.New(tcp.Config{Addr: "127.0.0.1:0", ReadTimeout: time.Second}, stack.Exchanger, nil, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()

	h, p, _ := net.SplitHostPort(srv.Addr())
	portNum, _ := strconv.Atoi(p)
	return h, portNum
}

func TestTranslateDefaultsTargetLanguage(t *testing.T) {
	h, p := startServer(t)

	var out strings.Builder
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--host", h, "--port", strconv.Itoa(p), "translate", "good", "morning"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("translate without --to: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "good morning" {
		t.Fatalf("translate output = %q", got)
	}
}

func TestShellSession(t *testing.T) {
	h, portNum := startServer(t)
	ctx := context.Background()
	w := client.NewWorker(proto.NewParser(), client.DefaultConfig(), nil)
	if err := w.Connect(ctx, h, portNum); err != nil {
		t.Fatalf("connect: %v", err)
	}

	script := strings.Join([]string{
		"",
		"register dana secret4 Dana D",
		"login dana wrong1",
		"login dana secret4",
		"send dana remember the milk",
		"get",
		"get",
		"dance",
		"quit",
		"send dana never sent",
	}, "\n")
	var out strings.Builder
	if err := runShell(ctx, w, strings.NewReader(script), &out); err != nil {
		t.Fatalf("shell: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"registered dana",
		"error: authenticate: rejected (INVALID_CREDENTIALS)",
		"signed in as dana",
		"Message delivered to dana",
		"Dana D (#1): remember the milk",
		"NO_MESSAGES",
		"unknown command",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "never sent") {
		t.Errorf("commands after quit were executed:\n%s", got)
	}
}
