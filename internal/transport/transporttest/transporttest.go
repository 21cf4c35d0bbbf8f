// Package transporttest wires a complete chat command stack for transport tests.
package transporttest

import (
	"testing"

	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/command"
	"github.com/vovakirdan/flowchat/internal/metrics"
	"github.com/vovakirdan/flowchat/internal/proto"
	"github.com/vovakirdan/flowchat/internal/service/chat"
	"github.com/vovakirdan/flowchat/internal/store/sqlite"
	"github.com/vovakirdan/flowchat/internal/transport"
)

// Stack is an in-memory chat server without a listener.
type Stack struct {
	Store      *sqlite.SQLiteStore
	Auth       *auth.Service
	Dispatcher *command.Dispatcher
	Metrics    *metrics.Metrics
	Exchanger  *transport.Exchanger
}

// NewStack builds a Stack backed by an in-memory database. Resources are released on test cleanup.
func NewStack(t testing.TB) *Stack {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authSvc := auth.NewService(st, auth.NewSessions(0))
	reg := command.NewRegistry()
	if _, err := chat.Register(reg, chat.Deps{Auth: authSvc, Users: st, Messages: st}); err != nil {
		t.Fatalf("failed to register commands: %v", err)
	}
	d, err := command.NewDispatcher(reg, proto.NewParser())
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	m := metrics.New()
	return &Stack{
		Store:      st,
		Auth:       authSvc,
		Dispatcher: d,
		Metrics:    m,
		Exchanger:  transport.NewExchanger(d, m, nil),
	}
}
