// Package client implements the FlowProtocol client worker.
//
// A Worker drives one remote endpoint through connect, authenticate and the
// per-operation requests. Every operation dials its own connection, writes one
// frame, reads one bounded frame and closes the connection before returning.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/proto"
)

// ResponseParser parses a raw reply line.
type ResponseParser interface {
	ParseResponse(text string) *proto.Fields
}

// SendMessageResult is the outcome of SendMessage.
type SendMessageResult struct {
	Success         bool
	ResponseMessage string
}

// GetMessageResult is the outcome of GetMessage.
type GetMessageResult struct {
	Success     bool
	SenderID    string
	SenderName  string
	MessageBody string
}

var (
	errMissingCmd    = errors.New("reply has no command")
	errMissingStatus = errors.New("reply has no status")
	errMissingResult = errors.New("reply has no result value")
)

// Worker is safe for concurrent use; calls never share a connection.
type Worker struct {
	parser ResponseParser
	cfg    Config
	logger *zerolog.Logger

	mu          sync.Mutex
	host        string
	port        int
	initialized bool
	login       string
	password    string
	session     uuid.UUID
}

// NewWorker creates a worker that parses replies with parser.
func NewWorker(parser ResponseParser, cfg Config, logger *zerolog.Logger) *Worker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Worker{
		parser: parser,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Connect records the endpoint and performs the HELLO handshake.
// The endpoint is kept even when the handshake fails.
func (w *Worker) Connect(ctx context.Context, host string, port int) error {
	w.mu.Lock()
	w.host = host
	w.port = port
	w.initialized = true
	w.mu.Unlock()

	const op = "connect"
	reply, err := w.roundTrip(ctx, op, proto.Hello())
	if err != nil {
		return err
	}
	if err := w.expectCmd(op, reply, proto.CmdHello); err != nil {
		return w.fail(op, err)
	}
	return nil
}

// Authenticate logs in and captures the session token from the reply.
// On failure the previous session, if any, is left untouched.
func (w *Worker) Authenticate(ctx context.Context, login, password string) error {
	w.mu.Lock()
	if !w.initialized {
		w.mu.Unlock()
		return ErrNotConnected
	}
	w.login = login
	w.password = password
	w.mu.Unlock()

	const op = "authenticate"
	reply, err := w.roundTrip(ctx, op, proto.Auth(login, password))
	if err != nil {
		return err
	}
	if err := w.expectStatus(op, reply, proto.CmdAuth); err != nil {
		return w.fail(op, err)
	}

	raw, ok := reply.Get(proto.KeySessionToken)
	if !ok {
		return w.fail(op, &Error{Op: op, Kind: KindMalformed, Err: errors.New("reply has no session token")})
	}
	token, err := uuid.Parse(raw)
	if err != nil || token == uuid.Nil {
		return w.fail(op, &Error{Op: op, Kind: KindMalformed, Err: fmt.Errorf("bad session token %q", raw)})
	}

	w.mu.Lock()
	w.session = token
	w.mu.Unlock()
	w.logger.Debug().Str("login", login).Msg("authenticated")
	return nil
}

// Register creates an account. It does not require or change the session.
func (w *Worker) Register(ctx context.Context, login, password, name string) error {
	if err := w.requireConnected(); err != nil {
		return err
	}

	const op = "register"
	reply, err := w.roundTrip(ctx, op, proto.Register(login, password, name))
	if err != nil {
		return err
	}
	if err := w.expectStatus(op, reply, proto.CmdRegister); err != nil {
		return w.fail(op, err)
	}
	if status := reply.Value(proto.KeyStatusDesc); status != proto.StatusOK {
		return w.fail(op, &Error{Op: op, Kind: KindMalformed, Err: fmt.Errorf("unexpected status %q", status)})
	}
	return nil
}

// Translate asks the server to translate text. Language names such as "English"
// are mapped to wire codes first.
func (w *Worker) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := w.requireConnected(); err != nil {
		return "", err
	}

	const op = "translate"
	req := proto.Translate(text, proto.LanguageCode(sourceLang), proto.LanguageCode(targetLang))
	reply, err := w.roundTrip(ctx, op, req)
	if err != nil {
		return "", err
	}
	if err := w.expectCmd(op, reply, proto.CmdTranslate); err != nil {
		return "", w.fail(op, err)
	}
	if reply.Value(proto.KeyStatusDesc) == proto.StatusError {
		return "", w.fail(op, rejected(op, reply))
	}
	result, ok := reply.Get(proto.KeyResult)
	if !ok {
		return "", w.fail(op, &Error{Op: op, Kind: KindMalformed, Err: errMissingResult})
	}
	return result, nil
}

// SendMessage delivers text to the recipient login.
func (w *Worker) SendMessage(ctx context.Context, recipient, text, lang string) (SendMessageResult, error) {
	token, err := w.requireSession()
	if err != nil {
		return SendMessageResult{}, err
	}

	const op = "send message"
	req := proto.SendMessage(recipient, text, proto.LanguageCode(lang), token)
	reply, err := w.roundTrip(ctx, op, req)
	if err != nil {
		return SendMessageResult{}, err
	}
	if err := w.expectStatus(op, reply, proto.CmdSendMessage); err != nil {
		return SendMessageResult{}, w.fail(op, err)
	}
	result, ok := reply.Get(proto.KeyResult)
	if reply.Value(proto.KeyStatusDesc) != proto.StatusOK || !ok {
		return SendMessageResult{}, w.fail(op, &Error{Op: op, Kind: KindMalformed, Err: errMissingResult})
	}
	return SendMessageResult{Success: true, ResponseMessage: result}, nil
}

// GetMessage fetches the next pending message. mode is either proto.ModeDoNotTranslate
// or the language the message should be translated into.
func (w *Worker) GetMessage(ctx context.Context, mode string) (GetMessageResult, error) {
	token, err := w.requireSession()
	if err != nil {
		return GetMessageResult{}, err
	}

	const op = "get message"
	var req *proto.Fields
	if mode == proto.ModeDoNotTranslate {
		req = proto.GetMessageUnmodified(token)
	} else {
		req = proto.GetMessageTranslated(token, proto.LanguageCode(mode))
	}

	reply, err := w.roundTrip(ctx, op, req)
	if err != nil {
		return GetMessageResult{}, err
	}
	if err := w.expectStatus(op, reply, proto.CmdGetMessage); err != nil {
		return GetMessageResult{}, w.fail(op, err)
	}
	if status := reply.Value(proto.KeyStatusDesc); status != proto.StatusOK {
		return GetMessageResult{}, w.fail(op, &Error{Op: op, Kind: KindMalformed, Err: fmt.Errorf("unexpected status %q", status)})
	}
	return GetMessageResult{
		Success:     true,
		SenderID:    reply.Value(proto.KeySenderID),
		SenderName:  reply.Value(proto.KeySenderName),
		MessageBody: reply.Value(proto.KeyMessage),
	}, nil
}

// SessionToken returns the current session token, or an empty string before authentication.
func (w *Worker) SessionToken() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == uuid.Nil {
		return ""
	}
	return w.session.String()
}

// Authenticated reports whether a session token is held.
func (w *Worker) Authenticated() bool {
	return w.SessionToken() != ""
}

// Login returns the login of the last Authenticate call.
func (w *Worker) Login() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.login
}

// Endpoint returns the host and port recorded by Connect.
func (w *Worker) Endpoint() (string, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.host, w.port
}

func (w *Worker) requireConnected() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.initialized {
		return ErrNotConnected
	}
	return nil
}

func (w *Worker) requireSession() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.initialized {
		return "", ErrNotConnected
	}
	if w.session == uuid.Nil {
		return "", ErrNotAuthenticated
	}
	return w.session.String(), nil
}

// roundTrip sends req over a fresh connection and parses the single reply frame.
func (w *Worker) roundTrip(ctx context.Context, op string, req *proto.Fields) (*proto.Fields, error) {
	frame, err := proto.EncodeFields(req)
	if err != nil {
		return nil, w.fail(op, &Error{Op: op, Kind: KindRequest, Err: err})
	}

	w.mu.Lock()
	addr := net.JoinHostPort(w.host, strconv.Itoa(w.port))
	w.mu.Unlock()

	dialer := net.Dialer{Timeout: w.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, w.cfg.Network, addr)
	if err != nil {
		return nil, w.fail(op, &Error{Op: op, Kind: KindConnect, Err: err})
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(w.cfg.IOTimeout)); err != nil {
		return nil, w.fail(op, &Error{Op: op, Kind: KindIO, Err: err})
	}
	// Cancellation interrupts a blocked read or write.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := proto.WriteFrame(conn, frame); err != nil {
		return nil, w.fail(op, &Error{Op: op, Kind: KindIO, Err: err})
	}
	data, err := proto.ReadFrame(conn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, w.fail(op, &Error{Op: op, Kind: KindIO, Err: err})
	}

	reply := w.parser.ParseResponse(proto.Decode(data))
	w.logger.Debug().Str("op", op).Str("addr", addr).Int("bytes", len(data)).Msg("reply received")
	return reply, nil
}

func (w *Worker) expectCmd(op string, reply *proto.Fields, want string) error {
	got, ok := reply.Cmd()
	if !ok {
		return &Error{Op: op, Kind: KindMalformed, Err: errMissingCmd}
	}
	if got != want {
		return &Error{Op: op, Kind: KindProtocol, Err: fmt.Errorf("expected %s reply, got %q", want, got)}
	}
	return nil
}

// expectStatus checks the reply command and requires a non-error status.
func (w *Worker) expectStatus(op string, reply *proto.Fields, want string) error {
	if err := w.expectCmd(op, reply, want); err != nil {
		return err
	}
	status, ok := reply.Get(proto.KeyStatusDesc)
	if !ok {
		return &Error{Op: op, Kind: KindMalformed, Err: errMissingStatus}
	}
	if status == proto.StatusError {
		return rejected(op, reply)
	}
	return nil
}

func rejected(op string, reply *proto.Fields) *Error {
	e := &Error{Op: op, Kind: KindRejected, Code: reply.Value(proto.KeyStatusCode)}
	if msg := reply.Value(proto.KeyResult); msg != "" {
		e.Err = errors.New(msg)
	}
	return e
}

func (w *Worker) fail(op string, err error) error {
	ev := w.logger.Warn()
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindRejected {
			ev = w.logger.Info()
		}
		ev = ev.Stringer("kind", e.Kind)
	}
	ev.Err(err).Str("op", op).Msg("request failed")
	return err
}
