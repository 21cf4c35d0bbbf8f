package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/flowchat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	login := flag.String("login", "", "login to authenticate with (skipped when empty)")
	pass := flag.String("pass", "", "password for -login")
	text := flag.String("text", "hello from smoke test", "text to send to yourself after login")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(req *proto.Fields) (*proto.Fields, error) {
		frame, err := proto.EncodeFields(req)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", req, err)
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			return nil, fmt.Errorf("send: %w", err)
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		reply := proto.Parse(proto.Decode(data))
		fmt.Printf("> %s\n< %s\n", req, reply)
		return reply, nil
	}

	if _, err := send(proto.Hello()); err != nil {
		return err
	}
	if *login == "" {
		return nil
	}

	reply, err := send(proto.Auth(*login, *pass))
	if err != nil {
		return err
	}
	if reply.Value(proto.KeyStatusDesc) != proto.StatusOK {
		return fmt.Errorf("authentication failed: %s", reply.Value(proto.KeyStatusCode))
	}

	// The /ws connection carries the session; no token is needed below.
	msg := proto.NewRequest(proto.CmdSendMessage)
	msg.Set(proto.KeyRecipient, *login)
	msg.Set(proto.KeyMessage, *text)
	if _, err := send(msg); err != nil {
		return err
	}
	get := proto.NewRequest(proto.CmdGetMessage)
	get.SetFlag(proto.KeyDoNotTranslate)
	_, err = send(get)
	return err
}
