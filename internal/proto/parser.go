package proto

import "strings"

// Parser parses request and response lines. Both roles share one grammar;
// they differ only in which keys callers look for.
type Parser struct{}

// NewParser returns a stateless parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseRequest parses a line received by a server.
func (*Parser) ParseRequest(text string) *Fields {
	return Parse(text)
}

// ParseResponse parses a line received by a client.
func (*Parser) ParseResponse(text string) *Fields {
	return Parse(text)
}

// Parse splits a line of the form
//
//	CMD --key='value' --flag ...
//
// The first token becomes KeyCmd unless it is itself an option. Values are taken
// literally up to the next single quote. Tokens that do not fit the grammar are
// skipped, an unterminated value ends parsing, and when a key repeats the first
// occurrence wins. The command is only ever taken from the first token.
// Parse never fails: callers detect malformed input by missing keys.
func Parse(text string) *Fields {
	f := NewFields()

	rest := strings.TrimLeft(text, whitespace)
	if rest != "" && !strings.HasPrefix(rest, "--") {
		var cmd string
		cmd, rest = nextToken(rest)
		f.Set(KeyCmd, cmd)
	}

	for {
		rest = strings.TrimLeft(rest, whitespace)
		if rest == "" {
			return f
		}
		if !strings.HasPrefix(rest, "--") {
			_, rest = nextToken(rest)
			continue
		}

		body := rest[2:]
		i := 0
		for i < len(body) && isKeyByte(body[i]) {
			i++
		}
		key, after := body[:i], body[i:]

		switch {
		case key == "":
			_, rest = nextToken(body)
		case after == "" || strings.IndexByte(whitespace, after[0]) >= 0:
			if key != KeyCmd && !f.Has(key) {
				f.SetFlag(key)
			}
			rest = after
		case strings.HasPrefix(after, "='"):
			end := strings.IndexByte(after[2:], '\'')
			if end < 0 {
				return f
			}
			if key != KeyCmd {
				f.Add(key, after[2:2+end])
			}
			rest = after[2+end+1:]
		default:
			_, rest = nextToken(after)
		}
	}
}

const whitespace = " \t\r\n\v\f\x00"

func nextToken(s string) (token, rest string) {
	i := strings.IndexAny(s, whitespace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}
