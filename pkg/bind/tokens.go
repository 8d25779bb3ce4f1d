package bind

import "strings"

// DefaultCommand is the command implied by a token without a colon.
const DefaultCommand = "text"

// Token is one parsed entry of a binding attribute.
type Token struct {
	Command  string
	Argument string
}

func (t Token) String() string {
	if t.Argument == "" {
		return t.Command
	}
	return t.Command + ":" + t.Argument
}

// ParseTokens parses a binding attribute value:
//
//	token (',' token)*
//	token = command | command ':' argument
//
// The argument keeps any further colons ("attr:title:user.name" has the
// argument "title:user.name"). A token without a colon is shorthand for
// text:token. Whitespace around tokens is ignored and empty tokens are
// skipped.
func ParseTokens(attr string) []Token {
	var tokens []Token
	for _, raw := range strings.Split(attr, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		cmd, arg, found := strings.Cut(raw, ":")
		if !found {
			tokens = append(tokens, Token{Command: DefaultCommand, Argument: raw})
			continue
		}
		tokens = append(tokens, Token{
			Command:  strings.TrimSpace(cmd),
			Argument: strings.TrimSpace(arg),
		})
	}
	return tokens
}

// ParseMeta parses a metadata attribute value such as
// "cols:name,email;sort:name;dir:desc". Entries without a colon map to an
// empty value.
func ParseMeta(attr string) map[string]string {
	meta := make(map[string]string)
	for _, entry := range strings.Split(attr, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, v, _ := strings.Cut(entry, ":")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		meta[k] = strings.TrimSpace(v)
	}
	return meta
}
