package keypath

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestResolveNested(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": map[string]any{"c": 5}}}

	if got := Parse("a.b.c").Resolve(data); got != 5 {
		t.Errorf("a.b.c = %v, want 5", got)
	}
}

func TestResolveMissingIntermediate(t *testing.T) {
	data := map[string]any{"a": map[string]any{}}

	got, ok := Parse("a.x.y").Lookup(data)
	if ok || got != nil {
		t.Errorf("a.x.y = (%v, %v), want (nil, false)", got, ok)
	}
}

func TestResolveNilIntermediate(t *testing.T) {
	data := map[string]any{"a": nil}

	if got := Parse("a.b").Resolve(data); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := Parse("a.b").Resolve(nil); got != nil {
		t.Errorf("expected nil for nil root, got %v", got)
	}
}

type record struct {
	fields map[string]any
}

func (r *record) Lookup(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

func TestResolveTypedNilGetter(t *testing.T) {
	var missing *record
	data := map[string]any{"user": missing}

	if got := Parse("user.name").Resolve(data); got != nil {
		t.Errorf("user.name = %v, want nil", got)
	}
	if _, _, ok := Parse("user.name").Owner(data); ok {
		t.Error("expected no owner under a nil record")
	}
	if got := Parse("name").Resolve(missing); got != nil {
		t.Errorf("name on nil root = %v, want nil", got)
	}

	data["user"] = &record{fields: map[string]any{"name": "ada"}}
	if got := Parse("user.name").Resolve(data); got != "ada" {
		t.Errorf("user.name = %v, want ada", got)
	}
}

func TestParseIgnoresEmptySegments(t *testing.T) {
	tests := []struct {
		in   string
		want string
		n    int
	}{
		{"a.b", "a.b", 2},
		{"a.b.", "a.b", 2},
		{".a..b", "a.b", 2},
		{" a . b ", "a.b", 2},
		{"", "", 0},
		{"...", "", 0},
	}

	for _, tt := range tests {
		p := Parse(tt.in)
		if p.String() != tt.want || p.Len() != tt.n {
			t.Errorf("Parse(%q) = %q/%d, want %q/%d", tt.in, p.String(), p.Len(), tt.want, tt.n)
		}
	}
}

func TestResolveSliceIndex(t *testing.T) {
	data := map[string]any{"rows": []any{"x", map[string]any{"name": "y"}}}

	if got := Parse("rows.1.name").Resolve(data); got != "y" {
		t.Errorf("rows.1.name = %v", got)
	}
	if got := Parse("rows.7").Resolve(data); got != nil {
		t.Errorf("out of range index should be nil, got %v", got)
	}
	if got := Parse("rows.x").Resolve(data); got != nil {
		t.Errorf("non-numeric index should be nil, got %v", got)
	}
}

type getter map[string]any

func (g getter) Lookup(key string) (any, bool) {
	v, ok := g[key]
	return v, ok
}

func TestResolveThroughGetter(t *testing.T) {
	data := getter{"user": getter{"name": "ada"}}

	if got := Parse("user.name").Resolve(data); got != "ada" {
		t.Errorf("user.name = %v", got)
	}
}

func TestOwner(t *testing.T) {
	user := map[string]any{"name": "ada"}
	data := map[string]any{"user": user}

	owner, leaf, ok := Parse("user.name").Owner(data)
	if !ok || leaf != "name" {
		t.Fatalf("Owner = (%v, %q, %v)", owner, leaf, ok)
	}
	if owner.(map[string]any)["name"] != "ada" {
		t.Errorf("wrong owner %v", owner)
	}

	owner, leaf, ok = Parse("count").Owner(data)
	if !ok || leaf != "count" {
		t.Fatalf("single segment owner should be root, got (%v, %q, %v)", owner, leaf, ok)
	}

	if _, _, ok := Parse("missing.name").Owner(data); ok {
		t.Error("missing intermediate should not have an owner")
	}
	if _, _, ok := Parse("").Owner(data); ok {
		t.Error("empty path should not have an owner")
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"a", "a.b", "$index", "row-1.name_2"} {
		if err := Valid(s); err != nil {
			t.Errorf("Valid(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "..", "a b", "a.b()", "x['y']"} {
		if err := Valid(s); err == nil {
			t.Errorf("Valid(%q) should fail", s)
		}
	}
}

func TestResolveNeverPanics(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("arbitrary paths resolve without panicking", prop.ForAll(
		func(s string) bool {
			data := map[string]any{"a": map[string]any{"b": []any{1, nil}}, "n": nil, "r": (*record)(nil)}
			_ = Parse(s).Resolve(data)
			return true
		},
		gen.AnyString(),
	))

	properties.Property("resolving a built path finds the leaf", prop.ForAll(
		func(keys []string) bool {
			if len(keys) == 0 {
				return true
			}
			root := map[string]any{}
			cur := root
			for _, k := range keys[:len(keys)-1] {
				next := map[string]any{}
				cur[k] = next
				cur = next
			}
			cur[keys[len(keys)-1]] = "leaf"
			return Of(keys...).Resolve(root) == "leaf"
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
