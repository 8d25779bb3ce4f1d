// Package page opens a template file and its data as a bound document. It is
// shared by the render and serve commands.
package page

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/scopebind/internal/errors"
	"github.com/vango-dev/scopebind/pkg/actions"
	"github.com/vango-dev/scopebind/pkg/bind"
	"github.com/vango-dev/scopebind/pkg/binders"
	"github.com/vango-dev/scopebind/pkg/dom"
	"github.com/vango-dev/scopebind/pkg/keypath"
	"github.com/vango-dev/scopebind/pkg/scope"
)

// DefaultRoot is the element bound when Source.Root is empty.
const DefaultRoot = "body"

// Source names the files a page is built from.
type Source struct {
	// Template is the HTML file to bind.
	Template string

	// Data is an optional JSON or YAML file holding the root record.
	Data string

	// Root selects the element the data is bound to.
	Root string

	// Sets are key=value assignments applied after binding.
	Sets []string
}

// Page is a bound document.
type Page struct {
	Engine *bind.Engine
	Doc    *dom.Document
	Scope  *scope.Scope

	root string
}

// Open parses the template, binds the data to the root element and applies
// the assignments. Binders and built-in actions are registered on the
// engine. Assignments reach the document on the next flush.
func Open(src Source, opts ...bind.Option) (*Page, error) {
	raw, err := os.ReadFile(src.Template)
	if err != nil {
		return nil, errors.New(errors.CodeDataFile).WithDetail(src.Template).Wrap(err)
	}
	doc, err := dom.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.New(errors.CodeDataFile).WithDetail(src.Template).Wrap(err)
	}

	data := scope.Plain{}
	if src.Data != "" {
		if data, err = LoadData(src.Data); err != nil {
			return nil, err
		}
	}

	assignments := make([]Assignment, 0, len(src.Sets))
	for _, set := range src.Sets {
		a, err := ParseAssignment(set)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	e := bind.New(doc, opts...)
	binders.Register(e)
	actions.Register(e)

	root := src.Root
	if root == "" {
		root = DefaultRoot
	}
	s, err := e.Bind(root, data)
	if err != nil {
		e.Close()
		return nil, err
	}
	for _, a := range assignments {
		a.Apply(s)
	}
	return &Page{Engine: e, Doc: doc, Scope: s, root: root}, nil
}

// Close unbinds the root and detaches the engine from the document.
func (p *Page) Close() {
	if err := p.Engine.Unbind(p.root); err != nil {
		p.Engine.Logger().Debug("unbind on close", "error", err)
	}
	p.Engine.Close()
}

// LoadData reads a JSON or YAML object. Arrays anywhere in the data become
// list states so paging and sort actions can drive them.
func LoadData(path string) (scope.Plain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeDataFile).WithDetail(path).Wrap(err)
	}

	var data map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, errors.New(errors.CodeDataFile).WithDetail(path).Wrap(err)
	}
	if data == nil {
		data = scope.Plain{}
	}
	return Lists(data), nil
}

// Lists replaces every array in data with a ListState, recursing into
// records. Array elements are left as they are; the list upgrades record
// rows itself.
func Lists(data scope.Plain) scope.Plain {
	for k, v := range data {
		switch val := v.(type) {
		case []any:
			data[k] = scope.NewListState(val)
		case map[string]any:
			data[k] = Lists(val)
		}
	}
	return data
}

// Assignment is a parsed key=value pair.
type Assignment struct {
	Path  keypath.Path
	Value any
}

// ParseAssignment parses "path=value". The value is decoded as a YAML
// scalar, so numbers and booleans keep their type; anything else is taken
// as a string.
func ParseAssignment(s string) (Assignment, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Assignment{}, errors.New(errors.CodeAssignmentSyntax).WithDetail(s)
	}
	if err := keypath.Valid(key); err != nil {
		return Assignment{}, errors.New(errors.CodeAssignmentSyntax).WithDetail(s).Wrap(err)
	}
	return Assignment{Path: keypath.Parse(key), Value: scalar(raw)}, nil
}

func scalar(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case int, float64, bool, string:
		return v
	}
	return raw
}

// Apply writes the value into s, creating intermediate records as needed.
func (a Assignment) Apply(s *scope.Scope) {
	cur := s
	segs := a.Path.Segments()
	for _, seg := range segs[:len(segs)-1] {
		switch next := cur.Get(seg).(type) {
		case *scope.Scope:
			cur = next
		case *scope.ListState:
			cur = next.Scope
		default:
			child := scope.New(nil)
			cur.Set(seg, child)
			cur = child
		}
	}
	cur.Set(a.Path.Leaf(), a.Value)
}
