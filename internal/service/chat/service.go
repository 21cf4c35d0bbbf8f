// Package chat implements the server side FlowProtocol commands.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/command"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/store"
	"github.com/vovakirdan/flowchat/internal/translate"
)

// Deps are the collaborators the commands run against.
type Deps struct {
	Auth       *auth.Service
	Users      store.UserStore
	Messages   store.MessageStore
	Translator translate.Translator
	Logger     *zerolog.Logger

	// AllowRemoteQuit enables QUIT_SERVER; Quit is called when it is accepted.
	AllowRemoteQuit bool
	Quit            func()
}

// Service executes chat commands.
type Service struct {
	deps Deps
	log  *zerolog.Logger
}

// handler is a *Service method expression.
type handler func(s *Service, ctx context.Context, req *proto.Fields) (*proto.Fields, error)

var handlers = map[string]handler{
	proto.CmdHello:           (*Service).hello,
	proto.CmdRegister:        (*Service).register,
	proto.CmdAuth:            (*Service).authenticate,
	proto.CmdTranslate:       (*Service).translate,
	proto.CmdSendMessage:     (*Service).sendMessage,
	proto.CmdGetMessage:      (*Service).getMessage,
	proto.CmdQuitServer:      (*Service).quitServer,
	proto.CmdCloseConnection: (*Service).closeConnection,
}

// NewService validates deps and fills in defaults.
func NewService(deps Deps) (*Service, error) {
	if deps.Auth == nil || deps.Users == nil || deps.Messages == nil {
		return nil, errors.New("chat: auth, users and messages are required")
	}
	if deps.Translator == nil {
		deps.Translator = translate.Passthrough{}
	}
	if deps.Logger == nil {
		nop := zerolog.Nop()
		deps.Logger = &nop
	}
	return &Service{deps: deps, log: deps.Logger}, nil
}

// Register binds every chat command to reg.
func Register(reg *command.Registry, deps Deps) (*Service, error) {
	svc, err := NewService(deps)
	if err != nil {
		return nil, err
	}
	for name, h := range handlers {
		err := reg.Register(name, func() command.Factory {
			return command.FactoryFunc(func(req *proto.Fields) command.Command {
				return &chatCommand{name: name, req: req, svc: svc, run: h}
			})
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}
	return svc, nil
}

// chatCommand is one request bound to its handler.
type chatCommand struct {
	name string
	req  *proto.Fields
	svc  *Service
	run  handler
}

func (c *chatCommand) Name() string { return c.name }

func (c *chatCommand) Execute(ctx context.Context) *proto.Fields {
	reply, err := c.run(c.svc, ctx, c.req)
	if err == nil {
		return reply
	}

	se := toStatusError(err)
	if se.Code == CodeInternal {
		c.svc.log.Error().Err(err).Str("cmd", c.name).Msg("command failed")
	} else {
		c.svc.log.Debug().Str("cmd", c.name).Str("code", se.Code).Msg("command rejected")
	}
	out := proto.Reply(c.name, proto.StatusError)
	out.Set(proto.KeyStatusCode, se.Code)
	out.Set(proto.KeyResult, wireSafe(se.Message))
	return out
}

func (s *Service) hello(context.Context, *proto.Fields) (*proto.Fields, error) {
	return proto.Reply(proto.CmdHello, proto.StatusOK), nil
}

func (s *Service) register(ctx context.Context, req *proto.Fields) (*proto.Fields, error) {
	login, pass, err := credentials(req)
	if err != nil {
		return nil, err
	}
	user, err := s.deps.Auth.Register(ctx, login, pass, req.Value(proto.KeyName))
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("login", user.Login).Int64("user_id", user.ID).Msg("user registered")

	reply := proto.Reply(proto.CmdRegister, proto.StatusOK)
	reply.Set(proto.KeyResult, "User "+user.Login+" registered")
	return reply, nil
}

func (s *Service) authenticate(ctx context.Context, req *proto.Fields) (*proto.Fields, error) {
	login, pass, err := credentials(req)
	if err != nil {
		return nil, err
	}
	sess, err := s.deps.Auth.Login(ctx, login, pass)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("login", sess.Login).Msg("session issued")

	reply := proto.Reply(proto.CmdAuth, proto.StatusOK)
	reply.Set(proto.KeySessionToken, sess.Token.String())
	return reply, nil
}

func (s *Service) translate(ctx context.Context, req *proto.Fields) (*proto.Fields, error) {
	text, ok := req.Get(proto.KeySourceText)
	if !ok {
		return nil, statusError(CodeBadRequest, "sourcetext is required")
	}
	target := req.Value(proto.KeyTargetLang)
	if target == "" {
		return nil, statusError(CodeBadRequest, "targetlang is required")
	}

	out, err := s.deps.Translator.Translate(ctx, text, req.Value(proto.KeySourceLang), target)
	if err != nil {
		s.log.Warn().Err(err).Str("target", target).Msg("translation failed")
		return nil, statusError(CodeTranslationFailed, "translation failed")
	}

	reply := proto.Reply(proto.CmdTranslate, proto.StatusOK)
	reply.Set(proto.KeyResult, wireSafe(out))
	return reply, nil
}

func (s *Service) sendMessage(ctx context.Context, req *proto.Fields) (*proto.Fields, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}
	to := req.Value(proto.KeyRecipient)
	if to == "" {
		return nil, statusError(CodeBadRequest, "to is required")
	}
	body, ok := req.Get(proto.KeyMessage)
	if !ok {
		return nil, statusError(CodeBadRequest, "msg is required")
	}

	recipient, err := s.deps.Users.GetUserByLogin(ctx, to)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, statusError(CodeRecipientNotFound, "no such user: "+to)
		}
		return nil, err
	}

	msg := &store.Message{
		SenderID:    sess.UserID,
		RecipientID: recipient.ID,
		Body:        body,
		Lang:        req.Value(proto.KeySourceLang),
	}
	if err := s.deps.Messages.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.log.Debug().Str("from", sess.Login).Str("to", recipient.Login).Int64("message_id", msg.ID).Msg("message stored")

	reply := proto.Reply(proto.CmdSendMessage, proto.StatusOK)
	reply.Set(proto.KeyResult, "Message delivered to "+recipient.Login)
	return reply, nil
}

func (s *Service) getMessage(ctx context.Context, req *proto.Fields) (*proto.Fields, error) {
	sess, err := s.session(req)
	if err != nil {
		return nil, err
	}

	msg, err := s.deps.Messages.PopMessage(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, statusError(CodeNoMessages, "no messages")
		}
		return nil, err
	}

	body := msg.Body
	target := req.Value(proto.KeyTranslateTo)
	if !req.Has(proto.KeyDoNotTranslate) && target != "" && target != msg.Lang {
		translated, err := s.deps.Translator.Translate(ctx, body, msg.Lang, target)
		if err != nil {
			// Already popped: deliver it untranslated.
			s.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("translation failed, delivering original")
		} else {
			body = translated
		}
	}

	var senderName string
	if sender, err := s.deps.Users.GetUserByID(ctx, msg.SenderID); err == nil {
		senderName = sender.Name
	}

	reply := proto.Reply(proto.CmdGetMessage, proto.StatusOK)
	reply.Set(proto.KeySenderID, strconv.FormatInt(msg.SenderID, 10))
	reply.Set(proto.KeySenderName, wireSafe(senderName))
	reply.Set(proto.KeyMessage, wireSafe(body))
	return reply, nil
}

func (s *Service) quitServer(context.Context, *proto.Fields) (*proto.Fields, error) {
	if !s.deps.AllowRemoteQuit {
		return nil, statusError(CodeForbidden, "remote quit is disabled")
	}
	s.log.Warn().Msg("remote quit requested")
	if s.deps.Quit != nil {
		s.deps.Quit()
	}
	return proto.Reply(proto.CmdServerHalted, proto.StatusOK), nil
}

func (s *Service) closeConnection(context.Context, *proto.Fields) (*proto.Fields, error) {
	return proto.Reply(proto.CmdCloseConnectionAccepted, proto.StatusOK), nil
}

func (s *Service) session(req *proto.Fields) (auth.Session, error) {
	sess, ok := s.deps.Auth.Session(req.Value(proto.KeySessionToken))
	if !ok {
		return auth.Session{}, statusError(CodeNotAuthenticated, "sign in first")
	}
	return sess, nil
}

func credentials(req *proto.Fields) (login, pass string, err error) {
	login = req.Value(proto.KeyLogin)
	pass = req.Value(proto.KeyPassword)
	if login == "" || pass == "" {
		return "", "", statusError(CodeBadRequest, "login and pass are required")
	}
	return login, pass, nil
}

// wireSafe replaces single quotes, which cannot appear inside a quoted value.
func wireSafe(s string) string {
	return strings.ReplaceAll(s, "'", "`")
}
