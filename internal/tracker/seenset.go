package tracker

import "container/list"

// SeenSet is an insertion-ordered set of item identifiers. It is not safe for
// concurrent use; State guards it.
type SeenSet struct {
	order *list.List // of string, oldest at Front
	index map[string]*list.Element
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{order: list.New(), index: map[string]*list.Element{}}
}

// Add records id. Re-adding an existing id keeps its original position.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = s.order.PushBack(id)
	return true
}

// Has reports whether id was added and not yet trimmed.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len is the number of ids held.
func (s *SeenSet) Len() int { return s.order.Len() }

// Trim drops the oldest entries until at most keep remain and returns how
// many were dropped.
func (s *SeenSet) Trim(keep int) int {
	if keep < 0 {
		keep = 0
	}
	dropped := 0
	for s.order.Len() > keep {
		e := s.order.Front()
		s.order.Remove(e)
		delete(s.index, e.Value.(string))
		dropped++
	}
	return dropped
}

// Recent returns up to n ids, newest first.
func (s *SeenSet) Recent(n int) []string {
	if n <= 0 || n > s.order.Len() {
		n = s.order.Len()
	}
	out := make([]string, 0, n)
	for e := s.order.Back(); e != nil && len(out) < n; e = e.Prev() {
		out = append(out, e.Value.(string))
	}
	return out
}
