// Package command turns parsed protocol messages into executable commands.
//
// A Registry maps command names to factories that are constructed lazily on first use.
// A Dispatcher parses raw lines and resolves them against the registry; lookups that
// miss yield a NotFound command instead of an error, so every dispatch is executable.
package command

import (
	"context"

	"github.com/vovakirdan/flowchat/internal/proto"
)

// Status codes produced by this package.
const (
	CodeCommandNotFound = "COMMAND_NOT_FOUND"
)

// Command is one resolved unit of work. Execute returns the reply message.
type Command interface {
	Name() string
	Execute(ctx context.Context) *proto.Fields
}

// Factory builds a Command from the fields of one request.
// A factory is shared by all dispatches of its name and must be safe for concurrent use.
type Factory interface {
	Build(fields *proto.Fields) Command
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(fields *proto.Fields) Command

// Build calls fn(fields).
func (fn FactoryFunc) Build(fields *proto.Fields) Command {
	return fn(fields)
}

// NotFound stands in for a command name with no registered factory.
// Cmd is empty when the message carried no command at all.
type NotFound struct {
	Cmd string
}

// Name returns the unresolved command name.
func (n NotFound) Name() string {
	return n.Cmd
}

// Execute produces the uniform "command not recognized" reply.
func (n NotFound) Execute(context.Context) *proto.Fields {
	name := n.Cmd
	if name == "" {
		name = proto.StatusError
	}
	reply := proto.Reply(name, proto.StatusError)
	reply.Set(proto.KeyStatusCode, CodeCommandNotFound)
	reply.Set(proto.KeyResult, "command not recognized")
	return reply
}
