package bind

import (
	"golang.org/x/net/html"

	"github.com/vango-dev/scopebind/pkg/scope"
)

// Frame pairs a scope boundary element with its scope.
type Frame struct {
	Element *html.Node
	Scope   *scope.Scope
}

// Stack is the chain of scopes enclosing the element being bound, innermost
// last.
type Stack struct {
	frames []Frame
}

// Push adds an innermost frame.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes and returns the innermost frame.
func (s *Stack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

// Top returns the innermost frame.
func (s *Stack) Top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the number of frames.
func (s *Stack) Len() int {
	return len(s.frames)
}

// Frames returns the frames, outermost first.
func (s *Stack) Frames() []Frame {
	return append([]Frame(nil), s.frames...)
}

// Clone returns an independent copy.
func (s *Stack) Clone() *Stack {
	return &Stack{frames: s.Frames()}
}

// Contains reports whether sc is the scope of any frame.
func (s *Stack) Contains(sc *scope.Scope) bool {
	for _, f := range s.frames {
		if f.Scope == sc {
			return true
		}
	}
	return false
}

func (s *Stack) with(f Frame) *Stack {
	c := s.Clone()
	c.Push(f)
	return c
}
