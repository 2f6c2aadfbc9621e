package alloc

import "fmt"

// Sequence hands out monotonically increasing numbers for entity IDs.
//
// Callers pass a Sequence into every stage that creates entities so that two
// runs over the same input produce the same IDs. A Sequence is not safe for
// concurrent use; give each goroutine its own.
type Sequence struct {
	prefix string
	next   int
}

// NewSequence returns a sequence starting at 1. A non-empty prefix is
// prepended to every ID it generates.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix, next: 1}
}

// Next returns the next number.
func (s *Sequence) Next() int {
	n := s.next
	s.next++
	return n
}

// ID returns "<prefix>-<kind>-<n>" (or "<kind>-<n>" without a prefix).
func (s *Sequence) ID(kind string) string {
	n := s.Next()
	if s.prefix == "" {
		return fmt.Sprintf("%s-%d", kind, n)
	}
	return fmt.Sprintf("%s-%s-%d", s.prefix, kind, n)
}

// Peek returns the number the next call to Next will return.
func (s *Sequence) Peek() int { return s.next }

// ResumeSequence returns a sequence whose next number is next. It restores a
// sequence whose state was saved with Peek.
func ResumeSequence(prefix string, next int) *Sequence {
	return &Sequence{prefix: prefix, next: max(next, 1)}
}
