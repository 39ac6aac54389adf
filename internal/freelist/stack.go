package freelist

import "github.com/minio/slabpool/handle"

// Stack is a thread-local LIFO reuse list. It is not safe for concurrent
// use — touse and tofree are each owned by exactly one thread.
type Stack struct {
	linker Linker
	head   handle.Handle
	count  int
}

// NewStack creates an empty stack that links through linker.
func NewStack(linker Linker) *Stack {
	return &Stack{linker: linker, head: handle.Null}
}

// Len reports the number of handles currently on the stack.
func (s *Stack) Len() int { return s.count }

// Empty reports whether the stack has no handles.
func (s *Stack) Empty() bool { return s.count == 0 }

// Push writes h's link word to point at the current head, then makes h
// the new head. h must not be dereferenced by the caller afterwards
// until it is popped again.
func (s *Stack) Push(h handle.Handle) {
	s.linker.WriteNext(h, s.head)
	s.head = h
	s.count++
}

// Pop removes and returns the most recently pushed handle.
func (s *Stack) Pop() (handle.Handle, bool) {
	if s.count == 0 {
		return handle.Null, false
	}
	h := s.head
	s.head = s.linker.ReadNext(h)
	s.count--
	return h, true
}

// AbsorbFrom exchanges the contents of s and other in a single pointer
// swap. When s is empty this moves all of other's entries onto s and
// leaves other empty; it lets tofree be promoted wholesale into an
// empty touse.
func (s *Stack) AbsorbFrom(other *Stack) {
	s.head, other.head = other.head, s.head
	s.count, other.count = other.count, s.count
}

// Drain removes and returns every handle, head-first, for teardown or
// for building a Node to spill to the shared directory.
func (s *Stack) Drain() (head handle.Handle, count int) {
	head, count = s.head, s.count
	s.head, s.count = handle.Null, 0
	return
}

// Load replaces the stack's contents wholesale, used when grafting a
// shared Node's contents into a fresh local stack.
func (s *Stack) Load(head handle.Handle, count int) {
	s.head, s.count = head, count
}
