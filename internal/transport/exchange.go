// Package transport holds the request/reply step shared by the TCP, UDP and WebSocket servers.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/command"
	"github.com/vovakirdan/flowchat/internal/metrics"
	"github.com/vovakirdan/flowchat/internal/proto"
)

// Status codes produced when a reply cannot be put on the wire.
const (
	CodeReplyTooLarge = "REPLY_TOO_LARGE"
	CodeBadReply      = "BAD_REPLY"
)

// Outcome is the result of handling one inbound frame.
type Outcome struct {
	Reply []byte
	// Name is the resolved command name, empty for malformed requests.
	Name  string
	Found bool
	// Session is set when the request was a successful AUTH.
	Session string
	// Close asks the transport to drop the connection after writing Reply.
	Close bool
}

// Exchanger turns one inbound frame into one encoded reply.
type Exchanger struct {
	dispatcher *command.Dispatcher
	metrics    *metrics.Metrics
	log        *zerolog.Logger
}

// NewExchanger creates an exchanger. m may be nil.
func NewExchanger(d *command.Dispatcher, m *metrics.Metrics, logger *zerolog.Logger) *Exchanger {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Exchanger{dispatcher: d, metrics: m, log: logger}
}

// Handle decodes frame, dispatches it and encodes the reply.
// With a non-empty session the request is resolved unprotected under that session key.
func (e *Exchanger) Handle(ctx context.Context, transport string, frame []byte, session string) Outcome {
	text := proto.Decode(frame)

	var res command.Resolution
	if session == "" {
		res = e.dispatcher.ResolveProtected(text)
	} else {
		res = e.dispatcher.ResolveUnprotected(text, session)
	}

	start := time.Now()
	reply := res.Command.Execute(ctx)
	e.metrics.ObserveCommand(transport, res.Name, res.Found, time.Since(start))

	if !res.Found {
		e.log.Debug().Str("transport", transport).Str("cmd", res.Name).Msg("command not recognized")
	}

	out := Outcome{Name: res.Name, Found: res.Found}
	replyCmd, _ := reply.Cmd()
	switch {
	case res.Found && res.Name == proto.CmdAuth && reply.Value(proto.KeyStatusDesc) == proto.StatusOK:
		out.Session = reply.Value(proto.KeySessionToken)
	case replyCmd == proto.CmdCloseConnectionAccepted || replyCmd == proto.CmdServerHalted:
		out.Close = true
	}

	encoded, err := proto.EncodeFields(reply)
	if err != nil {
		code := CodeBadReply
		if errors.Is(err, proto.ErrFrameTooLarge) {
			code = CodeReplyTooLarge
			e.metrics.FrameTooLarge(transport)
		}
		e.log.Warn().Err(err).Str("transport", transport).Str("cmd", res.Name).Msg("reply not sendable")
		encoded = errorFrame(replyCmd, code)
	}
	out.Reply = encoded
	return out
}

func errorFrame(cmd, code string) []byte {
	if cmd == "" {
		cmd = proto.StatusError
	}
	reply := proto.Reply(cmd, proto.StatusError)
	reply.Set(proto.KeyStatusCode, code)
	frame, err := proto.EncodeFields(reply)
	if err != nil {
		// cmd itself is unusable; fall back to a fixed frame.
		reply = proto.Reply(proto.StatusError, proto.StatusError)
		reply.Set(proto.KeyStatusCode, code)
		frame, _ = proto.EncodeFields(reply)
	}
	return frame
}
