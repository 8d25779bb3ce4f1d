// Package keypath resolves dotted key paths against nested records.
//
// A Path is parsed once and then resolved many times:
//
//	p := keypath.Parse("user.address.city")
//	city := p.Resolve(data) // nil if any intermediate is missing
//
// Resolution never panics. A nil or unresolvable intermediate value
// short-circuits to nil. Empty segments ("a..b", "a.b.") are ignored.
package keypath

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Separator splits path segments.
const Separator = "."

// Getter is implemented by reactive records that expose their fields by key.
type Getter interface {
	Lookup(key string) (any, bool)
}

// Path is a tokenized, immutable key path.
type Path struct {
	segs []string
}

// Parse splits s on the separator and drops empty segments.
func Parse(s string) Path {
	raw := strings.Split(s, Separator)
	segs := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		segs = append(segs, seg)
	}
	return Path{segs: segs}
}

// Of builds a Path from already split segments.
func Of(segs ...string) Path {
	return Parse(strings.Join(segs, Separator))
}

// Valid reports whether s is a well-formed path. Segments may contain
// letters, digits, '_', '$' and '-'.
func Valid(s string) error {
	p := Parse(s)
	if p.IsEmpty() {
		return fmt.Errorf("keypath: empty path %q", s)
	}
	for _, seg := range p.segs {
		for _, r := range seg {
			if !validRune(r) {
				return fmt.Errorf("keypath: invalid character %q in %q", r, s)
			}
		}
	}
	return nil
}

func validRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '$' || r == '-':
		return true
	}
	return false
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segs))
	copy(out, p.segs)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int { return len(p.segs) }

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool { return len(p.segs) == 0 }

// Leaf returns the last segment, or "" for an empty path.
func (p Path) Leaf() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[len(p.segs)-1]
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p.segs) <= 1 {
		return Path{}
	}
	return Path{segs: p.segs[:len(p.segs)-1]}
}

// String joins the segments with the separator.
func (p Path) String() string {
	return strings.Join(p.segs, Separator)
}

// Resolve returns the value at the path, or nil.
func (p Path) Resolve(root any) any {
	v, _ := p.Lookup(root)
	return v
}

// Lookup returns the value at the path and whether every segment resolved.
// An empty path resolves to root itself.
func (p Path) Lookup(root any) (any, bool) {
	cur := root
	for _, seg := range p.segs {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Owner resolves all but the last segment and returns the record that owns
// the leaf key. ok is false if an intermediate is missing or nil.
func (p Path) Owner(root any) (owner any, leaf string, ok bool) {
	if p.IsEmpty() {
		return nil, "", false
	}
	owner, ok = p.Parent().Lookup(root)
	if !ok || owner == nil || isNil(owner) {
		return nil, "", false
	}
	return owner, p.Leaf(), true
}

// step resolves a single segment against v.
func step(v any, seg string) (any, bool) {
	switch rec := v.(type) {
	case nil:
		return nil, false
	case Getter:
		if isNil(rec) {
			return nil, false
		}
		return rec.Lookup(seg)
	case map[string]any:
		val, ok := rec[seg]
		return val, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(rec) {
			return nil, false
		}
		return rec[i], true
	}
	return nil, false
}

// isNil reports whether v holds a typed nil pointer.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
