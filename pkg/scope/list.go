package scope

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vango-dev/scopebind/pkg/keypath"
)

// List state field names.
const (
	KeyItems    = "items"
	KeyPage     = "page"
	KeyPageSize = "pageSize"
	KeySortKey  = "sortKey"
	KeySortDir  = "sortDir"
	KeyTotal    = "total"
	KeyQuery    = "query"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ValueKey is the field that holds a non-record item after it is wrapped
// into a row scope.
const ValueKey = "value"

// ListState is a paged, sorted, filterable collection. It is itself a Scope,
// so every change to the items or the view settings notifies observers the
// same way a field change does.
//
// Items are kept as row scopes. Plain records are upgraded when they are
// set, and non-record values are wrapped as {value: v}. Passing the same
// record again yields the same row scope.
type ListState struct {
	*Scope

	rows map[uintptr]*Scope
}

// NewListState creates a list state holding items, on page 1 with no paging
// or sorting.
func NewListState(items []any) *ListState {
	l := &ListState{
		Scope: New(Plain{
			KeyPage:     1,
			KeyPageSize: 0,
			KeySortKey:  "",
			KeySortDir:  SortAsc,
			KeyQuery:    "",
		}),
	}
	l.SetItems(items)
	return l
}

// SetItems replaces the collection.
func (l *ListState) SetItems(items []any) {
	rows := make([]*Scope, 0, len(items))
	next := make(map[uintptr]*Scope, len(items))
	for _, item := range items {
		row := l.row(item, next)
		rows = append(rows, row)
	}
	l.rows = next

	l.Set(KeyItems, rows)
	l.refreshTotal()
	l.clampPage()
}

func (l *ListState) row(item any, next map[uintptr]*Scope) *Scope {
	switch v := item.(type) {
	case *Scope:
		return v
	case *ListState:
		return v.Scope
	case map[string]any:
		ptr := reflect.ValueOf(v).Pointer()
		if s, ok := l.rows[ptr]; ok {
			next[ptr] = s
			return s
		}
		s := New(v)
		next[ptr] = s
		return s
	}
	return New(Plain{ValueKey: item})
}

// Items returns the row scopes in insertion order.
func (l *ListState) Items() []*Scope {
	rows, _ := l.Get(KeyItems).([]*Scope)
	return rows
}

// Append adds items to the end of the collection.
func (l *ListState) Append(items ...any) {
	cur := l.Items()
	all := make([]any, 0, len(cur)+len(items))
	for _, r := range cur {
		all = append(all, r)
	}
	l.SetItems(append(all, items...))
}

// Remove drops the given row from the collection.
func (l *ListState) Remove(row *Scope) {
	cur := l.Items()
	all := make([]any, 0, len(cur))
	for _, r := range cur {
		if r != row {
			all = append(all, r)
		}
	}
	if len(all) != len(cur) {
		l.SetItems(all)
	}
}

// Page returns the 1-based current page.
func (l *ListState) Page() int { return intField(l.Scope, KeyPage, 1) }

// PageSize returns the page size. Zero means no paging.
func (l *ListState) PageSize() int { return intField(l.Scope, KeyPageSize, 0) }

// SortKey returns the field rows are sorted by, or "".
func (l *ListState) SortKey() string { return stringField(l.Scope, KeySortKey) }

// SortDir returns SortAsc or SortDesc.
func (l *ListState) SortDir() string {
	if stringField(l.Scope, KeySortDir) == SortDesc {
		return SortDesc
	}
	return SortAsc
}

// Query returns the current filter text.
func (l *ListState) Query() string { return stringField(l.Scope, KeyQuery) }

// Total returns the number of rows that pass the filter.
func (l *ListState) Total() int { return intField(l.Scope, KeyTotal, 0) }

// Pages returns the number of pages, at least 1.
func (l *ListState) Pages() int {
	size := l.PageSize()
	total := l.Total()
	if size <= 0 || total == 0 {
		return 1
	}
	return (total + size - 1) / size
}

// SetPage moves to page n, clamped to [1, Pages()].
func (l *ListState) SetPage(n int) {
	l.Set(KeyPage, clamp(n, 1, l.Pages()))
}

// NextPage advances one page if possible.
func (l *ListState) NextPage() { l.SetPage(l.Page() + 1) }

// PrevPage goes back one page if possible.
func (l *ListState) PrevPage() { l.SetPage(l.Page() - 1) }

// SetPageSize changes the page size and returns to page 1.
func (l *ListState) SetPageSize(n int) {
	if n < 0 {
		n = 0
	}
	l.Set(KeyPageSize, n)
	l.Set(KeyPage, 1)
}

// SetSort sorts by key in the given direction. An empty key disables
// sorting.
func (l *ListState) SetSort(key, dir string) {
	if dir != SortDesc {
		dir = SortAsc
	}
	l.Set(KeySortKey, key)
	l.Set(KeySortDir, dir)
}

// SortBy sorts ascending by key, or flips the direction if the list is
// already sorted by key.
func (l *ListState) SortBy(key string) {
	if l.SortKey() == key {
		if l.SortDir() == SortAsc {
			l.Set(KeySortDir, SortDesc)
		} else {
			l.Set(KeySortDir, SortAsc)
		}
		return
	}
	l.SetSort(key, SortAsc)
}

// SetQuery filters rows to those with a field containing q, ignoring case,
// and returns to page 1.
func (l *ListState) SetQuery(q string) {
	l.Set(KeyQuery, q)
	l.refreshTotal()
	l.Set(KeyPage, 1)
}

// Visible returns the rows of the current page after filtering and sorting.
// The result is a fresh slice; the stored items are not reordered.
func (l *ListState) Visible() []*Scope {
	rows := l.filtered()

	if key := l.SortKey(); key != "" {
		p := keypath.Parse(key)
		desc := l.SortDir() == SortDesc
		sort.SliceStable(rows, func(i, j int) bool {
			c := Compare(p.Resolve(rows[i]), p.Resolve(rows[j]))
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	size := l.PageSize()
	if size <= 0 {
		return rows
	}
	start := (l.Page() - 1) * size
	if start >= len(rows) {
		return []*Scope{}
	}
	end := min(start+size, len(rows))
	return rows[start:end]
}

func (l *ListState) filtered() []*Scope {
	items := l.Items()
	q := strings.ToLower(strings.TrimSpace(l.Query()))
	out := make([]*Scope, 0, len(items))
	for _, row := range items {
		if q == "" || rowMatches(row, q) {
			out = append(out, row)
		}
	}
	return out
}

func (l *ListState) refreshTotal() {
	l.Set(KeyTotal, len(l.filtered()))
}

func (l *ListState) clampPage() {
	if p := l.Page(); p > l.Pages() {
		l.Set(KeyPage, l.Pages())
	}
}

func rowMatches(row *Scope, q string) bool {
	for _, k := range row.Keys() {
		switch v := row.Get(k).(type) {
		case nil, *Scope, *ListState, map[string]any, []any, func():
			continue
		default:
			if strings.Contains(strings.ToLower(fmt.Sprint(v)), q) {
				return true
			}
		}
	}
	return false
}

// Compare orders two field values. Numbers compare numerically, everything
// else by its formatted text. nil sorts after every other value.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func intField(s *Scope, key string, def int) int {
	if f, ok := number(s.Get(key)); ok {
		return int(f)
	}
	return def
}

func stringField(s *Scope, key string) string {
	str, _ := s.Get(key).(string)
	return str
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
