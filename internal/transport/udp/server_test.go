package udp

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/vovakirdan/flowchat/internal/client"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/transport/transporttest"
)

func startServer(t *testing.T) (*Server, *transporttest.Stack) {
	t.Helper()
	stack := transporttest.NewStack(t)
	srv := New("127.0.0.1:0", stack.Exchanger, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return srv, stack
}

func TestWorkerOverUDP(t *testing.T) {
	srv, stack := startServer(t)
	ctx := context.Background()
	if _, err := stack.Auth.Register(ctx, "carol", "secret3", "Carol"); err != nil {
		t.Fatalf("register: %v", err)
	}

	host, p, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	port, _ := strconv.Atoi(p)

	cfg := client.DefaultConfig()
	cfg.Network = proto.TransportUDP
	cfg.IOTimeout = 2 * time.Second
	w := client.NewWorker(proto.NewParser(), cfg, nil)

	if err := w.Connect(ctx, host, port); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := w.Authenticate(ctx, "carol", "secret3"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := w.SendMessage(ctx, "carol", "over udp", "English"); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := w.GetMessage(ctx, "English")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MessageBody != "over udp" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestDatagramWithoutTokenIsRejected(t *testing.T) {
	srv, _ := startServer(t)

	conn, err := net.Dial("udp", srv.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	frame, _ := proto.Encode("GETMSG --donottranslate")
	if err := proto.WriteFrame(conn, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := proto.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	reply := proto.Parse(proto.Decode(data))
	if reply.Value(proto.KeyStatusCode) != proto.CodeNotAuthenticated {
		t.Fatalf("unexpected reply %s", reply)
	}
}

func TestStopUnblocksServe(t *testing.T) {
	stack := transporttest.NewStack(t)
	srv := New("127.0.0.1:0", stack.Exchanger, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	srv.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not return after Stop")
	}
}
