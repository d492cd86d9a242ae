package tracker

import (
	"strconv"
	"strings"
	"testing"
)

func TestSeenSetTrimKeepsMostRecent(t *testing.T) {
	t.Parallel()
	s := NewSeenSet()
	for i := 0; i < 105; i++ {
		s.Add("id_" + strconv.Itoa(i))
	}
	if n := s.Trim(100); n != 5 {
		t.Fatalf("Trim dropped %d, want 5", n)
	}
	if s.Len() != 100 {
		t.Fatalf("Len = %d, want 100", s.Len())
	}
	for i := 0; i < 5; i++ {
		if s.Has("id_" + strconv.Itoa(i)) {
			t.Fatalf("id_%d survived trim", i)
		}
	}
	for i := 5; i < 105; i++ {
		if !s.Has("id_" + strconv.Itoa(i)) {
			t.Fatalf("id_%d evicted", i)
		}
	}
	if n := s.Trim(100); n != 0 {
		t.Fatalf("second Trim dropped %d", n)
	}
}

func TestSeenSetReAddKeepsPosition(t *testing.T) {
	t.Parallel()
	s := NewSeenSet()
	s.Add("a")
	s.Add("b")
	if s.Add("a") {
		t.Fatal("re-adding reported new")
	}
	s.Add("c")
	s.Trim(2)
	if s.Has("a") || !s.Has("b") || !s.Has("c") {
		t.Fatalf("recent = %v", s.Recent(0))
	}
}

func TestSeenSetRecent(t *testing.T) {
	t.Parallel()
	s := NewSeenSet()
	for _, id := range []string{"a", "b", "c", "d"} {
		s.Add(id)
	}
	tests := []struct {
		n    int
		want string
	}{
		{2, "d,c"},
		{0, "d,c,b,a"},
		{10, "d,c,b,a"},
	}
	for _, tt := range tests {
		if joined := strings.Join(s.Recent(tt.n), ","); joined != tt.want {
			t.Fatalf("Recent(%d) = %q, want %q", tt.n, joined, tt.want)
		}
	}
	if got := NewSeenSet().Recent(5); len(got) != 0 {
		t.Fatalf("empty Recent = %v", got)
	}
}
