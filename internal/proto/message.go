package proto

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingCommand  = errors.New("proto: missing command")
	ErrInvalidCommand  = errors.New("proto: invalid command name")
	ErrInvalidKey      = errors.New("proto: invalid field key")
	ErrUnquotableValue = errors.New("proto: value contains a single quote")
	ErrFrameTooLarge   = errors.New("proto: frame exceeds size limit")
)

// Fields is the ordered key/value view of one protocol message.
// The command token lives under KeyCmd like any other field.
type Fields struct {
	keys   []string
	values map[string]string
	flags  map[string]struct{}
}

// NewFields returns an empty mapping.
func NewFields() *Fields {
	return &Fields{
		values: make(map[string]string),
		flags:  make(map[string]struct{}),
	}
}

// NewRequest returns a mapping holding only the command name.
func NewRequest(cmd string) *Fields {
	f := NewFields()
	f.Set(KeyCmd, cmd)
	return f
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	v, ok := f.values[key]
	return v, ok
}

// Value returns the value stored under key or an empty string.
func (f *Fields) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

// Has reports whether key is present, including bare flags.
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Cmd returns the command name. ok is false for malformed messages.
func (f *Fields) Cmd() (string, bool) {
	return f.Get(KeyCmd)
}

// Set stores value under key, replacing an existing value in place.
func (f *Fields) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
	delete(f.flags, key)
}

// SetFlag stores a bare --key option.
func (f *Fields) SetFlag(key string) {
	f.Set(key, "")
	f.flags[key] = struct{}{}
}

// Add stores value under key only if key is absent. It reports whether the value was stored.
func (f *Fields) Add(key, value string) bool {
	if _, ok := f.values[key]; ok {
		return false
	}
	f.Set(key, value)
	return true
}

// IsFlag reports whether key was given as a bare option.
func (f *Fields) IsFlag(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f.flags[key]
	return ok
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Clone returns an independent copy.
func (f *Fields) Clone() *Fields {
	out := NewFields()
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		if f.IsFlag(k) {
			out.SetFlag(k)
			continue
		}
		out.Set(k, f.values[k])
	}
	return out
}

// Format renders the mapping in wire form: the command first, then options in insertion order.
func (f *Fields) Format() (string, error) {
	cmd, ok := f.Cmd()
	if !ok || cmd == "" {
		return "", ErrMissingCommand
	}
	if strings.HasPrefix(cmd, "--") || strings.ContainsAny(cmd, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}

	var b strings.Builder
	b.WriteString(cmd)
	for _, k := range f.keys {
		if k == KeyCmd {
			continue
		}
		if !validKey(k) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
		b.WriteString(" --")
		b.WriteString(k)
		if f.IsFlag(k) {
			continue
		}
		v := f.values[k]
		if strings.ContainsRune(v, '\'') {
			return "", fmt.Errorf("%w: %s", ErrUnquotableValue, k)
		}
		b.WriteString("='")
		b.WriteString(v)
		b.WriteByte('\'')
	}
	return b.String(), nil
}

// String renders the mapping for logs. Use Format when the result goes on the wire.
func (f *Fields) String() string {
	s, err := f.Format()
	if err != nil {
		return fmt.Sprintf("<invalid message: %v>", err)
	}
	return s
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		if !isKeyByte(k[i]) {
			return false
		}
	}
	return true
}

func isKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
