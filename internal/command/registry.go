package command

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

var (
	ErrEmptyName      = errors.New("command: empty command name")
	ErrNilConstructor = errors.New("command: nil factory constructor")
	ErrAlreadyExists  = errors.New("command: name already registered")
)

// Constructor creates the factory for one command name.
type Constructor func() Factory

type entry struct {
	factory func() Factory
}

// Registry maps command names to lazily constructed factories.
// Each constructor runs at most once per registry, even under concurrent first use.
type Registry struct {
	entries *xsync.MapOf[string, *entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: xsync.NewMapOf[string, *entry]()}
}

// Register binds name to a constructor. The factory is built on first lookup.
// Names are matched exactly and case-sensitively.
func (r *Registry) Register(name string, ctor Constructor) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if ctor == nil {
		return ErrNilConstructor
	}
	if _, loaded := r.entries.LoadOrStore(name, &entry{factory: sync.OnceValue(ctor)}); loaded {
		return ErrAlreadyExists
	}
	return nil
}

// RegisterFactory binds name to an already built factory.
func (r *Registry) RegisterFactory(name string, f Factory) error {
	if f == nil {
		return ErrNilConstructor
	}
	return r.Register(name, func() Factory { return f })
}

// Factory returns the factory for name, constructing it on first use.
func (r *Registry) Factory(name string) (Factory, bool) {
	e, ok := r.entries.Load(name)
	if !ok {
		return nil, false
	}
	f := e.factory()
	return f, f != nil
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.entries.Size())
	r.entries.Range(func(name string, _ *entry) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	return r.entries.Size()
}
