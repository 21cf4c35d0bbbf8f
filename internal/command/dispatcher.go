package command

import (
	"errors"

	"github.com/vovakirdan/flowchat/internal/proto"
)

var (
	ErrNilRegistry = errors.New("command: nil registry")
	ErrNilParser   = errors.New("command: nil request parser")
)

// RequestParser parses a raw request line.
type RequestParser interface {
	ParseRequest(text string) *proto.Fields
}

// Resolution is the outcome of one dispatch. Command is never nil:
// when Found is false it holds a NotFound carrying Name.
type Resolution struct {
	Found   bool
	Name    string
	Fields  *proto.Fields
	Command Command
}

// Dispatcher resolves raw requests to commands.
type Dispatcher struct {
	registry *Registry
	parser   RequestParser
}

// NewDispatcher creates a dispatcher over registry using parser for incoming lines.
func NewDispatcher(registry *Registry, parser RequestParser) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if parser == nil {
		return nil, ErrNilParser
	}
	return &Dispatcher{registry: registry, parser: parser}, nil
}

// ResolveProtected parses raw and resolves it as is.
func (d *Dispatcher) ResolveProtected(raw string) Resolution {
	return d.resolve(d.parser.ParseRequest(raw))
}

// ResolveUnprotected parses raw, attaches sessionKey under KeySessionToken and resolves it.
// The injected key replaces a token the raw message may carry; no other field is touched.
func (d *Dispatcher) ResolveUnprotected(raw, sessionKey string) Resolution {
	fields := d.parser.ParseRequest(raw)
	if fields == nil {
		fields = proto.NewFields()
	}
	fields.Set(proto.KeySessionToken, sessionKey)
	return d.resolve(fields)
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) resolve(fields *proto.Fields) Resolution {
	name, ok := fields.Cmd()
	if ok {
		if factory, found := d.registry.Factory(name); found {
			if cmd := factory.Build(fields); cmd != nil {
				return Resolution{Found: true, Name: name, Fields: fields, Command: cmd}
			}
		}
	}
	return Resolution{Name: name, Fields: fields, Command: NotFound{Cmd: name}}
}
