package tracker

import (
	"errors"
	"testing"

	kit "animebot/internal/transport"
)

func TestStateFollow(t *testing.T) {
	t.Parallel()
	s := NewState(kit.ChatTarget{}, "", 0, Followed{Anime: []string{"Dandadan"}})

	tests := []struct {
		kind Kind
		name string
		want error
	}{
		{KindAnime, "  Spy   x Family ", nil},
		{KindAnime, "spy x family", ErrAlreadyFollowed},
		{KindAnime, "DANDADAN", ErrAlreadyFollowed},
		{KindManga, "Dandadan", nil},
		{KindManga, "   ", ErrEmptyName},
		{Kind("novel"), "x", ErrUnknownKind},
	}
	for _, tt := range tests {
		if err := s.Follow(tt.kind, tt.name); !errors.Is(err, tt.want) {
			t.Fatalf("Follow(%s, %q) = %v, want %v", tt.kind, tt.name, err, tt.want)
		}
	}
	f := s.Followed()
	if len(f.Anime) != 2 || f.Anime[1] != "Spy x Family" || len(f.Manga) != 1 {
		t.Fatalf("followed = %+v", f)
	}

	// callers get copies
	f.Anime[0] = "changed"
	if s.Followed().Anime[0] != "Dandadan" {
		t.Fatal("Followed leaked internal slice")
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	if k, err := ParseKind(" MANGA"); err != nil || k != KindManga {
		t.Fatalf("ParseKind = %q %v", k, err)
	}
	if _, err := ParseKind("ova"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v", err)
	}
}

func TestStateDestinationAndCap(t *testing.T) {
	t.Parallel()
	s := NewState(kit.ChatTarget{ChatID: 1}, " @fans ", 2, Followed{})
	if d, m := s.Destination(); d.ChatID != 1 || m != "@fans" {
		t.Fatalf("destination = %+v %q", d, m)
	}
	s.SetDestination(kit.ChatTarget{ChatID: -100, ThreadID: 5}, "")
	if d, m := s.Destination(); d.ThreadID != 5 || m != "" {
		t.Fatalf("destination = %+v %q", d, m)
	}
	for _, id := range []string{"a", "b", "c"} {
		s.MarkSeen(id)
	}
	if n := s.TrimSeen(0); n != 1 || s.SeenLen() != 2 || s.Seen("a") {
		t.Fatalf("trim=%d len=%d", n, s.SeenLen())
	}
}

func TestTrimSeenKeepsCycleItems(t *testing.T) {
	t.Parallel()
	s := NewState(kit.ChatTarget{ChatID: 1}, "", 2, Followed{})
	for _, id := range []string{"a", "b", "c", "d"} {
		s.MarkSeen(id)
	}
	if n := s.TrimSeen(3); n != 1 || s.Seen("a") || !s.Seen("b") {
		t.Fatalf("trim=%d len=%d", n, s.SeenLen())
	}
	if n := s.TrimSeen(1); n != 1 || s.SeenLen() != 2 {
		t.Fatalf("cap should win over a smaller minimum: trim=%d len=%d", n, s.SeenLen())
	}
}
